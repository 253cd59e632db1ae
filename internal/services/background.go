// internal/services/background.go
package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// BackgroundTasks tracks work that outlives the request that started it, so shutdown
// can wait for it before closing the database.
type BackgroundTasks struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func NewBackgroundTasks() *BackgroundTasks {
	return &BackgroundTasks{}
}

// Go runs fn in its own goroutine. Once Wait has been called no new work is accepted
// and Go reports false.
func (b *BackgroundTasks) Go(name string, fn func()) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		logrus.WithField("task", name).Warn("Skipping background task during shutdown")
		return false
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		fn()
	}()
	return true
}

// Wait stops accepting work and blocks until running tasks finish or ctx is done.
func (b *BackgroundTasks) Wait(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
