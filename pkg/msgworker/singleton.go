package msgworker

import (
	"context"
	"sync"

	coreconfig "github.com/AzielCF/az-typing/core/config"
	"github.com/sirupsen/logrus"
)

var (
	globalPool     *Pool
	globalPoolOnce sync.Once
	globalPoolCtx  context.Context
	globalCancel   context.CancelFunc
)

// GetGlobalPool returns the process-wide pool used for outbound sends,
// starting it on first use.
func GetGlobalPool() *Pool {
	globalPoolOnce.Do(func() {
		globalPoolCtx, globalCancel = context.WithCancel(context.Background())

		size, queue := 4, 256
		if coreconfig.Global != nil {
			if coreconfig.Global.WorkerPool.Size > 0 {
				size = coreconfig.Global.WorkerPool.Size
			}
			if coreconfig.Global.WorkerPool.QueueSize > 0 {
				queue = coreconfig.Global.WorkerPool.QueueSize
			}
		}

		globalPool = NewPool(size, queue)
		globalPool.Start(globalPoolCtx)
		logrus.Infof("[WORKER_POOL] Global instance started with %d workers and queue size %d", size, queue)
	})
	return globalPool
}

// StopGlobalPool stops the global pool if it was started.
func StopGlobalPool() {
	if globalCancel != nil {
		globalCancel()
	}
	if globalPool != nil {
		globalPool.Stop()
	}
}

// GetGlobalStats returns stats from the global pool
func GetGlobalStats() PoolStats {
	return GetGlobalPool().GetStats()
}
