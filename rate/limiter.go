// Package rate keeps one token bucket per client.
package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const sweepInterval = time.Minute

type Limiter struct {
	burst  int
	limit  rate.Limit
	expiry time.Duration

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stop chan struct{}
	once sync.Once
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLimiter allows each client one request every interval with bursts of
// up to burst requests. Clients idle for longer than expiry are forgotten.
func NewLimiter(burst int, interval time.Duration, expiry time.Duration) *Limiter {
	l := &Limiter{
		burst:   burst,
		limit:   rate.Every(interval),
		expiry:  expiry,
		clients: make(map[string]*clientLimiter),
		stop:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

func (l *Limiter) Check(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[id]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[id] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter.Allow()
}

// Stop ends the background sweep. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.forget(time.Now())
		}
	}
}

func (l *Limiter) forget(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, cl := range l.clients {
		if now.Sub(cl.lastAccess) > l.expiry {
			delete(l.clients, id)
		}
	}
}
