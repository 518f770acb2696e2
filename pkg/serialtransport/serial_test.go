package serialtransport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kfly-project/kfly-comm/pkg/kfly"
)

// A nonexistent device path makes serial.OpenPort fail deterministically
// without needing real serial hardware, which lets these tests exercise
// the reconnect/backoff loop and its error reporting in isolation.
const noSuchPort = "/dev/kfly-test-nonexistent"

func TestOpenReportsErrorsAndRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var errCount int

	Open(ctx, noSuchPort, 115200, kfly.NewCodec(),
		WithReconnectInterval(5*time.Millisecond),
		WithReconnectMax(20*time.Millisecond),
		WithErrorHandler(func(err error) {
			mu.Lock()
			errCount++
			mu.Unlock()
		}),
	)

	deadline := time.After(500 * time.Millisecond)
	for {
		mu.Lock()
		n := errCount
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("errCount = %d after 500ms, want at least 2 retries", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestOpenStopsRetryingWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var errCount int
	stopped := make(chan struct{})

	Open(ctx, noSuchPort, 115200, kfly.NewCodec(),
		WithReconnectInterval(2*time.Millisecond),
		WithReconnectMax(5*time.Millisecond),
		WithErrorHandler(func(err error) {
			mu.Lock()
			errCount++
			mu.Unlock()
		}),
	)

	time.Sleep(20 * time.Millisecond)
	cancel()
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(stopped)
	}()
	<-stopped

	mu.Lock()
	afterCancel := errCount
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	final := errCount
	mu.Unlock()

	if final > afterCancel+1 {
		t.Fatalf("errCount kept growing after cancel: %d -> %d", afterCancel, final)
	}
}

func TestWriteReturnsFalseOnCancelledContext(t *testing.T) {
	// A full, unserviced writeCh forces the select in Write to have only
	// one ready case (ctx.Done()) instead of racing against room in the
	// channel, so the outcome is deterministic rather than a 50/50 pick
	// between Go's randomly-chosen ready select cases.
	l := &Link{writeCh: make(chan []byte, 1)}
	l.writeCh <- []byte{0x00}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if ok := l.Write(ctx, []byte{0xC0}); ok {
		t.Fatalf("Write should report failure once ctx is already cancelled")
	}
}

func TestOptionsApplyOverDefaults(t *testing.T) {
	l := &Link{
		readBufSize:  4096,
		reconnect:    500 * time.Millisecond,
		reconnectMax: 10 * time.Second,
	}
	for _, opt := range []Option{
		WithReconnectInterval(50 * time.Millisecond),
		WithReconnectMax(time.Second),
		WithReadBufferSize(128),
	} {
		opt(l)
	}

	if l.reconnect != 50*time.Millisecond {
		t.Fatalf("reconnect = %v, want 50ms", l.reconnect)
	}
	if l.reconnectMax != time.Second {
		t.Fatalf("reconnectMax = %v, want 1s", l.reconnectMax)
	}
	if l.readBufSize != 128 {
		t.Fatalf("readBufSize = %d, want 128", l.readBufSize)
	}
}

func TestOptionsIgnoreNonPositiveValues(t *testing.T) {
	l := &Link{
		readBufSize:  4096,
		reconnect:    500 * time.Millisecond,
		reconnectMax: 10 * time.Second,
	}
	WithReconnectInterval(0)(l)
	WithReconnectMax(-1)(l)
	WithReadBufferSize(0)(l)

	if l.readBufSize != 4096 || l.reconnect != 500*time.Millisecond || l.reconnectMax != 10*time.Second {
		t.Fatalf("non-positive option values should leave defaults untouched, got %+v", l)
	}
}
