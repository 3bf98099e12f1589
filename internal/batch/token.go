package batch

import "sync"

// Token is an explicit cancellation flag shared by reference between the
// batch loop and whoever may stop it. The loop checks it only between
// iterations; a request already in flight is never aborted.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken returns a fresh, unstopped token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Stop requests the batch to stop. Safe from any goroutine, idempotent.
func (t *Token) Stop() {
	t.once.Do(func() { close(t.done) })
}

// Stopped reports whether Stop was called.
func (t *Token) Stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done is closed when the token is stopped.
func (t *Token) Done() <-chan struct{} {
	return t.done
}
