package safemap

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

const (
	blockWait   = 20 * time.Millisecond
	releaseWait = time.Second
)

// tracked counts how many times values sharing a counter were destroyed.
type tracked struct {
	id        int
	destroyed *atomic.Int32
}

func (v tracked) Destroy() {
	v.destroyed.Add(1)
}

// mustContract runs fn, which must panic with a *ContractError wrapping want.
func mustContract(t *testing.T, want error, fn func()) *ContractError {
	t.Helper()
	var got any
	func() {
		defer func() {
			got = recover()
		}()
		fn()
	}()
	if got == nil {
		t.Fatalf("expected panic wrapping %v", want)
	}
	ce, ok := got.(*ContractError)
	if !ok {
		t.Fatalf("panic value %T(%v), want *ContractError", got, got)
	}
	if !errors.Is(ce, want) {
		t.Fatalf("panic %v, want %v", ce, want)
	}
	return ce
}

// tolerate runs fn and swallows a contract panic wrapping want.
func tolerate(want error, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*ContractError); !ok || !errors.Is(ce, want) {
				panic(r)
			}
		}
	}()
	fn()
}

// async runs fn in a new goroutine and returns a channel closed when it
// returns.
func async(fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	return done
}

func expectBlocked(t *testing.T, done <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
		t.Fatalf("%s completed while it should block", what)
	case <-time.After(blockWait):
	}
}

func expectDone(t *testing.T, done <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(releaseWait):
		t.Fatalf("%s did not complete", what)
	}
}
