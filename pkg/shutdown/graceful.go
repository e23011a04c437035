// Package shutdown coordinates graceful termination: components register with
// Add/Done, the coordinator listens for context cancellation or OS signals
// and awaits the registered components up to a configurable timeout.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrGracefulTimeout = errors.New("graceful shutdown timed out, components still running")

// Gracefuller is the component-facing side of the coordinator.
type Gracefuller interface {
	Add(delta int)
	Done()
}

type Graceful struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	timeout time.Duration
}

func NewGraceful(ctx context.Context, cancel context.CancelFunc) *Graceful {
	return &Graceful{
		ctx:     ctx,
		cancel:  cancel,
		wg:      &sync.WaitGroup{},
		timeout: time.Minute,
	}
}

// SetGracefulTimeout bounds how long ListenCancelAndAwait waits for
// registered components after cancellation.
func (g *Graceful) SetGracefulTimeout(timeout time.Duration) {
	g.timeout = timeout
}

func (g *Graceful) Add(delta int) { g.wg.Add(delta) }
func (g *Graceful) Done()         { g.wg.Done() }

// ListenCancelAndAwait blocks until the context is cancelled or a termination
// signal arrives, then cancels the context and waits for all registered
// components up to the graceful timeout.
func (g *Graceful) ListenCancelAndAwait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("[shutdown] received %v, stopping", sig)
	case <-g.ctx.Done():
		log.Info().Msg("[shutdown] context cancelled, stopping")
	}

	g.cancel()

	waitCh := make(chan struct{})
	go func() {
		defer close(waitCh)
		g.wg.Wait()
	}()

	select {
	case <-waitCh:
		return nil
	case <-time.After(g.timeout):
		return ErrGracefulTimeout
	}
}
