package infrastructure

import (
	"context"
	"time"

	"github.com/AzielCF/az-typing/pkg/msgworker"
	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/sirupsen/logrus"
)

var _ typing.Transport = (*PooledTransport)(nil)

// PooledTransport hands every notification to the worker pool and returns
// immediately. Notifications for one conversation share a worker so start
// and stop arrive in order; failures are logged by the worker.
type PooledTransport struct {
	next    typing.Transport
	pool    *msgworker.Pool
	timeout time.Duration
}

func NewPooledTransport(next typing.Transport, pool *msgworker.Pool, timeout time.Duration) *PooledTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PooledTransport{next: next, pool: pool, timeout: timeout}
}

func (p *PooledTransport) Notify(ctx context.Context, key conversation.Key, op typing.Operation) error {
	// the caller's context usually ends before the job runs
	jobCtx := context.WithoutCancel(ctx)
	queued := p.pool.TryDispatch(msgworker.Job{
		Key: key.String(),
		Handler: func(context.Context) error {
			sendCtx, cancel := context.WithTimeout(jobCtx, p.timeout)
			defer cancel()
			return p.next.Notify(sendCtx, key, op)
		},
	})
	if !queued {
		logrus.Warnf("[TRANSPORT] Dropped %s for %s, pool is full", op, key)
	}
	return nil
}
