package kfly

import "sync"

// Codec ties the frame decoder, packet codec, and dispatch registry
// together into the single entry point a transport needs: feed it raw
// bytes, it decodes and routes complete datagrams; ask it to generate
// outgoing frames, it knows the wire format so callers never touch CRC
// or escaping directly.
type Codec struct {
	mu       sync.Mutex // transport lock: serializes Feed/FeedBytes
	decoder  *FrameDecoder
	registry *Registry
}

// NewCodec creates a Codec with a fresh frame decoder and dispatch
// registry.
func NewCodec() *Codec {
	return &Codec{
		decoder:  NewFrameDecoder(),
		registry: NewRegistry(),
	}
}

// RegisterCallback subscribes fn to be invoked whenever a datagram of
// type T for cmd is received and decoded. It mirrors the free-function
// and bound-method callback registration of the protocol's native
// client, collapsed into one generic entry point.
func RegisterCallback[T any](c *Codec, cmd Command, fn func(T)) HandlerID {
	return Register(c.registry, cmd, fn)
}

// ReleaseCallback removes a previously registered callback and
// reports how many registrations were removed.
func (c *Codec) ReleaseCallback(cmd Command, id HandlerID) int {
	return c.registry.Release(cmd, id)
}

// Feed processes a single raw byte from the transport. Completed,
// CRC-valid frames are decoded and dispatched to registered callbacks;
// anything else (partial frames, CRC failures, unknown commands,
// length mismatches) is silently dropped, matching the protocol's
// receive-path error policy.
func (c *Codec) Feed(b byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, ok := c.decoder.Feed(b)
	if !ok {
		return
	}
	c.handleBody(body)
}

// FeedBytes processes a run of raw bytes from the transport, in order.
func (c *Codec) FeedBytes(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoder.FeedBytes(p, c.handleBody)
}

func (c *Codec) handleBody(body []byte) {
	cmd, payload, ok := VerifyPacket(body)
	if !ok {
		return
	}
	value, ok := DecodeDatagram(cmd, payload)
	if !ok {
		return
	}
	c.registry.Dispatch(cmd, value)
}

// GeneratePacket produces a complete, SLIP-framed packet carrying
// datagram under cmd, ready to be written to the transport.
func GeneratePacket[T any](cmd Command, datagram T, ack bool) ([]byte, error) {
	body, err := AssemblePacket(cmd, datagram, ack)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(body), nil
}

// GenerateCommand produces a complete, SLIP-framed packet for a bare
// command with no payload (Ping, SaveToFlash, EraseFlash,
// ResetEstimation, and similar zero-argument host-to-device commands).
func GenerateCommand(cmd Command, ack bool) ([]byte, error) {
	dir, ok := direction(cmd)
	if !ok {
		return nil, ErrUnknownCommand
	}
	if dir == DirDeviceToHost {
		return nil, ErrNotHostToDevice
	}
	return EncodeFrame(assembleCommandOnly(cmd, ack)), nil
}

// GenerateSubscribe produces a packet asking the device to begin
// periodically publishing cmd on port at the given interval.
func GenerateSubscribe(port Port, cmd Command, intervalMs uint32) ([]byte, error) {
	sub := ManageSubscription{
		Port:      port,
		Cmd:       cmd,
		Subscribe: true,
		DeltaMs:   intervalMs,
	}
	return GeneratePacket(ManageSubscriptions, sub, false)
}

// GenerateUnsubscribe produces a packet asking the device to stop
// publishing cmd on port.
func GenerateUnsubscribe(port Port, cmd Command) ([]byte, error) {
	sub := ManageSubscription{
		Port:      port,
		Cmd:       cmd,
		Subscribe: false,
	}
	return GeneratePacket(ManageSubscriptions, sub, false)
}

// GenerateUnsubscribeAll produces a packet asking the device to cancel
// every active subscription on port.
func GenerateUnsubscribeAll(port Port) ([]byte, error) {
	sub := ManageSubscription{
		Port:      port,
		Cmd:       None,
		Subscribe: false,
	}
	return GeneratePacket(ManageSubscriptions, sub, false)
}
