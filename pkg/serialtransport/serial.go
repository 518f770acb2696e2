// Package serialtransport connects a kfly.Codec to a physical
// USB-serial link, reconnecting with backoff the same way the example
// host reconnects its other links.
package serialtransport

import (
	"context"
	"time"

	"github.com/tarm/serial"

	"github.com/kfly-project/kfly-comm/pkg/kfly"
)

// Link owns a serial port and feeds every received byte into a Codec,
// reconnecting on I/O error until ctx is cancelled.
type Link struct {
	portName     string
	baud         int
	readBufSize  int
	reconnect    time.Duration
	reconnectMax time.Duration
	errorHandler func(error)
	codec        *kfly.Codec

	writeCh chan []byte
}

// Option configures a Link.
type Option func(*Link)

func WithReconnectInterval(d time.Duration) Option {
	return func(l *Link) {
		if d > 0 {
			l.reconnect = d
		}
	}
}

func WithReconnectMax(d time.Duration) Option {
	return func(l *Link) {
		if d > 0 {
			l.reconnectMax = d
		}
	}
}

func WithReadBufferSize(n int) Option {
	return func(l *Link) {
		if n > 0 {
			l.readBufSize = n
		}
	}
}

func WithErrorHandler(fn func(error)) Option {
	return func(l *Link) {
		if fn != nil {
			l.errorHandler = fn
		}
	}
}

// Open starts reading portName at baud and feeding bytes into codec. It
// returns a Link whose Write method queues frames for transmission;
// the caller drives its lifetime with ctx.
func Open(ctx context.Context, portName string, baud int, codec *kfly.Codec, opts ...Option) *Link {
	l := &Link{
		portName:     portName,
		baud:         baud,
		readBufSize:  4096,
		reconnect:    500 * time.Millisecond,
		reconnectMax: 10 * time.Second,
		codec:        codec,
		writeCh:      make(chan []byte, 64),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run(ctx)
	return l
}

// Write enqueues a fully framed packet (as produced by
// kfly.GeneratePacket or kfly.GenerateCommand) for transmission. It
// returns false if ctx has already been cancelled and the frame could
// not be queued.
func (l *Link) Write(ctx context.Context, framed []byte) bool {
	select {
	case l.writeCh <- framed:
		return true
	case <-ctx.Done():
		return false
	}
}

func (l *Link) run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		port, err := serial.OpenPort(&serial.Config{
			Name:        l.portName,
			Baud:        l.baud,
			ReadTimeout: time.Second,
		})
		if err != nil {
			l.handleError(err)
			attempt++
			l.sleepBackoff(ctx, attempt)
			continue
		}

		attempt = 0
		err = l.handlePort(ctx, port)
		_ = port.Close()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			l.handleError(err)
		}
		l.sleepBackoff(ctx, 1)
	}
}

func (l *Link) handlePort(ctx context.Context, port *serial.Port) error {
	readErrs := make(chan error, 1)
	go func() {
		buf := make([]byte, l.readBufSize)
		for {
			n, err := port.Read(buf)
			if n > 0 {
				l.codec.FeedBytes(buf[:n])
			}
			if err != nil {
				readErrs <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErrs:
			return err
		case framed := <-l.writeCh:
			if _, err := port.Write(framed); err != nil {
				return err
			}
		}
	}
}

func (l *Link) sleepBackoff(ctx context.Context, attempt int) {
	wait := l.reconnect * time.Duration(attempt)
	if wait > l.reconnectMax {
		wait = l.reconnectMax
	}
	timer := time.NewTimer(wait)
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	timer.Stop()
}

func (l *Link) handleError(err error) {
	if l.errorHandler != nil {
		l.errorHandler(err)
	}
}
