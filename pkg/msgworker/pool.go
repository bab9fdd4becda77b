package msgworker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is a unit of work. Jobs sharing a Key run on the same worker, in
// dispatch order.
type Job struct {
	Key     string
	Handler func(ctx context.Context) error
}

// PoolStats is a live snapshot of the pool.
type PoolStats struct {
	NumWorkers      int            `json:"num_workers"`
	QueueSize       int            `json:"queue_size"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalDispatched int64          `json:"total_dispatched"`
	TotalProcessed  int64          `json:"total_processed"`
	TotalDropped    int64          `json:"total_dropped"`
	TotalErrors     int64          `json:"total_errors"`
	WorkerStats     []WorkerStats  `json:"worker_stats"`
	ActiveKeys      map[string]int `json:"active_keys"` // job key -> worker_id
}
type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

type activeKeyEntry struct {
	workerID  int
	updatedAt time.Time
}

// Pool runs jobs on a fixed set of workers, each with its own queue.
type Pool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32
	stopCh     chan struct{}

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
	activeKeysMu    sync.RWMutex
	activeKeys      map[string]activeKeyEntry
	startTime       time.Time

	OnWorkerStart func(workerID int, key string)
	OnWorkerEnd   func(workerID int, key string)
}

type worker struct {
	id            int
	jobQueue      chan Job
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  int32              // atomic: 1 if processing, 0 if idle
	jobsProcessed int64              // atomic counter
	pool          *Pool
}

func NewPool(numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 10
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	pool := &Pool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
		activeKeys: make(map[string]activeKeyEntry),
		stopCh:     make(chan struct{}),
		startTime:  time.Now(),
	}

	return pool
}

// Start launches the workers. Cancelling ctx drains the queues and stops them.
func (p *Pool) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				now := time.Now()
				p.activeKeysMu.Lock()
				for k, v := range p.activeKeys {
					if !v.updatedAt.IsZero() && now.Sub(v.updatedAt) > 2*time.Second {
						delete(p.activeKeys, k)
					}
				}
				p.activeKeysMu.Unlock()
			}
		}
	}()

	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			jobQueue: make(chan Job, p.queueSize),
			ctx:      workerCtx,
			cancel:   cancel,
			pool:     p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[WORKER_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

// TryDispatch queues job on its key's worker without blocking and reports
// whether it was accepted.
func (p *Pool) TryDispatch(job Job) bool {
	if atomic.LoadInt32(&p.stopped) == 1 {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardFor(job.Key)
	atomic.AddInt64(&p.totalDispatched, 1)

	p.activeKeysMu.Lock()
	p.activeKeys[job.Key] = activeKeyEntry{workerID: shard, updatedAt: time.Now()}
	p.activeKeysMu.Unlock()

	sent := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].jobQueue <- job:
			return true
		default:
			return false
		}
	}()

	if sent {
		return true
	}
	p.activeKeysMu.Lock()
	delete(p.activeKeys, job.Key)
	p.activeKeysMu.Unlock()

	atomic.AddInt64(&p.totalDropped, 1)
	logrus.Warnf("[WORKER_POOL] Worker %d queue full (or stopped), dropping job for %s", shard, job.Key)
	return false
}

func (p *Pool) Dispatch(job Job) {
	_ = p.TryDispatch(job)
}

// Stop closes the queues and waits for queued jobs to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		close(p.stopCh)
		logrus.Info("[WORKER_POOL] Stopping workers...")

		for _, w := range p.workers {
			w.cancel()
			close(w.jobQueue)
		}

		p.wg.Wait()

		logrus.Info("[WORKER_POOL] All workers stopped")
	})
}

func (p *Pool) shardFor(key string) int {
	h := fnv.New64a()
	h.Write([]byte(key))
	// keys such as "pm:7,8" differ only in their last bytes; fold the high
	// bits down so the modulo does not see near-constant low bits
	sum := h.Sum64()
	x := uint32(sum ^ sum>>32)
	x ^= x >> 16
	return int(x % uint32(p.numWorkers))
}

func (p *Pool) GetStats() PoolStats {
	workerStats := make([]WorkerStats, len(p.workers))
	activeWorkers := 0

	for i, w := range p.workers {
		isProcessing := atomic.LoadInt32(&w.isProcessing) == 1
		if isProcessing {
			activeWorkers++
		}

		workerStats[i] = WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.jobQueue),
			IsProcessing:  isProcessing,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		}
	}

	now := time.Now()
	p.activeKeysMu.Lock()
	activeKeys := make(map[string]int, len(p.activeKeys))
	for k, v := range p.activeKeys {
		if !v.updatedAt.IsZero() && now.Sub(v.updatedAt) > 2*time.Second {
			delete(p.activeKeys, k)
			continue
		}
		activeKeys[k] = v.workerID
	}
	p.activeKeysMu.Unlock()

	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		ActiveWorkers:   activeWorkers,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		WorkerStats:     workerStats,
		ActiveKeys:      activeKeys,
	}
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	logrus.Debugf("[WORKER_POOL] Worker %d started", w.id)

	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				logrus.Debugf("[WORKER_POOL] Worker %d shutting down", w.id)
				return
			}
			w.process(job)

		case <-w.ctx.Done():
			logrus.Debugf("[WORKER_POOL] Worker %d context cancelled, draining queue...", w.id)
			w.drainQueue()
			return
		}
	}
}

func (w *worker) process(job Job) {
	if w.pool.OnWorkerStart != nil {
		w.pool.OnWorkerStart(w.id, job.Key)
	}
	atomic.StoreInt32(&w.isProcessing, 1)
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&w.pool.totalErrors, 1)
			logrus.Errorf("[WORKER_POOL] Worker %d panic for %s: %v", w.id, job.Key, r)
		}
		if w.pool.OnWorkerEnd != nil {
			w.pool.OnWorkerEnd(w.id, job.Key)
		}
		atomic.StoreInt32(&w.isProcessing, 0)
		atomic.AddInt64(&w.jobsProcessed, 1)
		atomic.AddInt64(&w.pool.totalProcessed, 1)
	}()

	if err := job.Handler(w.ctx); err != nil {
		atomic.AddInt64(&w.pool.totalErrors, 1)
		logrus.WithError(err).Errorf("[WORKER_POOL] Worker %d job failed for %s", w.id, job.Key)
	}
}

// drainQueue runs what is left in the queue after the context is cancelled.
func (w *worker) drainQueue() {
	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}
			w.process(job)
		default:
			return
		}
	}
}
