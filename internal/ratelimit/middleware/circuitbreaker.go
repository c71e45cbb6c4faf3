package middleware

import "sync"

type transition int

const (
	unchanged transition = iota
	opened
	closed
)

// circuitBreaker counts consecutive primary store errors. At failureThreshold
// it opens and the fallback answers; successThreshold consecutive successful
// primary checks close it again.
type circuitBreaker struct {
	mu               sync.Mutex
	open             bool
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
}

func newCircuitBreaker(failureThreshold, successThreshold int) *circuitBreaker {
	return &circuitBreaker{failureThreshold: failureThreshold, successThreshold: successThreshold}
}

func (c *circuitBreaker) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *circuitBreaker) success() transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
	if !c.open {
		return unchanged
	}
	c.successes++
	if c.successes < c.successThreshold {
		return unchanged
	}
	c.open = false
	c.successes = 0
	return closed
}

// failure reports whether the fallback should answer this request.
func (c *circuitBreaker) failure() (bool, transition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successes = 0
	c.failures++
	if c.open {
		return true, unchanged
	}
	if c.failures < c.failureThreshold {
		return false, unchanged
	}
	c.open = true
	return true, opened
}
