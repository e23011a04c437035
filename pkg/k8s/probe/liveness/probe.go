// Package liveness implements a polling liveness prober for k8s-style health
// checks: it watches registered services at a fixed interval and exposes the
// aggregate state over HTTP.
package liveness

import (
	"context"
	"sync/atomic"
	"time"
)

// Service is anything the probe can ask "are you alive".
type Service interface {
	IsAlive(ctx context.Context) bool
}

// Prober watches services and aggregates their liveness.
type Prober interface {
	Watch(svc Service)
	IsAlive() bool
}

type Probe struct {
	timeout time.Duration
	alive   atomic.Bool
}

func NewProbe(timeout time.Duration) *Probe {
	return &Probe{timeout: timeout}
}

// Watch starts polling the service in the background; it does not block.
func (p *Probe) Watch(svc Service) {
	go func() {
		ticker := time.NewTicker(p.timeout / 2)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			p.alive.Store(svc.IsAlive(ctx))
			cancel()
		}
	}()
}

// IsAlive reports the most recent poll result.
func (p *Probe) IsAlive() bool {
	return p.alive.Load()
}
