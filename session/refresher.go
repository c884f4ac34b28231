package session

import (
	"context"
	"sync"
	"time"
)

// refresher periodically extends the session in the background. It is
// advisory only: refresh failures are logged and ticking continues,
// and the goroutine never blocks process termination.
type refresher struct {
	client   *Client
	interval time.Duration

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// newRefresher creates a refresher for the given client.
func newRefresher(c *Client, interval time.Duration) *refresher {
	return &refresher{
		client:   c,
		interval: interval,
	}
}

// start begins the background refresh goroutine. Idempotent.
func (r *refresher) start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.stoppedCh = make(chan struct{})

	go r.loop()
}

// stop halts the refresher and waits for the loop to exit. Idempotent;
// always invoked on logout.
func (r *refresher) stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	close(r.stopCh)
	stoppedCh := r.stoppedCh
	r.mu.Unlock()

	<-stoppedCh
}

// loop is the scheduler goroutine.
func (r *refresher) loop() {
	defer func() {
		r.mu.Lock()
		r.running = false
		close(r.stoppedCh)
		r.mu.Unlock()
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

// tick runs one refresh attempt if a session is active.
func (r *refresher) tick() {
	if r.client.Session() == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.client.config.Timeout)
	defer cancel()

	if err := r.client.Refresh(ctx); err != nil {
		// Not fatal to the foreground workload.
		r.client.logger.Warn("background session refresh failed", "error", err)
	}
}
