package exam

import (
	"context"
	"sync"
	"time"

	"github.com/vytor/quizflash/internal/logger"
)

// Runner drives a Session's countdown from a ticker until the session
// ends, the context is cancelled or Stop is called.
type Runner struct {
	session  *Session
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
	log      *logger.Logger
}

// NewRunner returns a runner ticking every interval. A zero interval means
// one second.
func NewRunner(session *Session, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	return &Runner{
		session:  session,
		interval: interval,
		done:     make(chan struct{}),
		log:      logger.Default().WithPrefix("exam-runner"),
	}
}

// Start launches the tick loop. It must be called at most once; a runner
// that was already stopped does not start.
func (r *Runner) Start(ctx context.Context) {
	select {
	case <-r.done:
		return
	default:
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.log = logger.FromContext(ctx).WithPrefix("exam-runner")
	r.log.Debug("starting exam timer (interval %v)", r.interval)

	go r.run(ctx)
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Debug("exam timer stopped (context cancelled)")
			return
		case <-ticker.C:
			res, err := r.session.Tick(ctx)
			if err != nil {
				r.log.Error("tick failed: %v", err)
			}
			if res.Completed || !r.session.Active() {
				r.log.Debug("exam timer finished")
				return
			}
		}
	}
}

// Stop cancels the loop and waits for it to exit. Safe to call repeatedly
// and before Start.
func (r *Runner) Stop() {
	r.once.Do(func() {
		if r.cancel == nil {
			close(r.done)
			return
		}
		r.cancel()
		<-r.done
	})
}

// Done is closed when the tick loop has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) Session() *Session {
	return r.session
}
