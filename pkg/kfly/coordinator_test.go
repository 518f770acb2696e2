package kfly

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestCodecFeedDispatchesDecodedDatagram(t *testing.T) {
	c := NewCodec()
	var got SystemStatus
	var calls int
	RegisterCallback(c, GetSystemStatus, func(s SystemStatus) {
		got = s
		calls++
	})

	want := SystemStatus{FlightTime: 42, BatteryVoltage: 11.8, InAir: true}
	body := assembleBody(GetSystemStatus, encodeForTest(t, want), false)
	c.FeedBytes(EncodeFrame(body))

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCodecFeedDropsCorruptFrame(t *testing.T) {
	c := NewCodec()
	var calls int
	RegisterCallback(c, GetRunningMode, func(RunningMode) { calls++ })

	body := assembleBody(GetRunningMode, encodeForTest(t, RunningMode{Sel: 'P'}), false)
	framed := EncodeFrame(body)
	framed[3] ^= 0xFF // corrupt a payload byte inside the frame

	c.FeedBytes(framed)
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 for a corrupted frame", calls)
	}
}

func TestGenerateCommandRoundTrip(t *testing.T) {
	framed, err := GenerateCommand(Ping, false)
	if err != nil {
		t.Fatalf("GenerateCommand error: %v", err)
	}

	d := NewFrameDecoder()
	var body []byte
	d.FeedBytes(framed, func(b []byte) { body = append([]byte(nil), b...) })

	cmd, payload, ok := VerifyPacket(body)
	if !ok || cmd != Ping || len(payload) != 0 {
		t.Fatalf("VerifyPacket = (%v, %v, %v), want (Ping, [], true)", cmd, payload, ok)
	}
}

func TestGenerateSubscribeUnsubscribe(t *testing.T) {
	sub, err := GenerateSubscribe(PortUSB, GetIMUData, 20)
	if err != nil {
		t.Fatalf("GenerateSubscribe error: %v", err)
	}
	unsub, err := GenerateUnsubscribe(PortUSB, GetIMUData)
	if err != nil {
		t.Fatalf("GenerateUnsubscribe error: %v", err)
	}

	for _, framed := range [][]byte{sub, unsub} {
		d := NewFrameDecoder()
		var body []byte
		d.FeedBytes(framed, func(b []byte) { body = append([]byte(nil), b...) })
		cmd, payload, ok := VerifyPacket(body)
		if !ok || cmd != ManageSubscriptions {
			t.Fatalf("VerifyPacket failed on generated subscription packet")
		}
		decoded, ok := DecodeDatagram(cmd, payload)
		if !ok {
			t.Fatalf("failed to decode generated ManageSubscription")
		}
		if decoded.(ManageSubscription).Cmd != GetIMUData {
			t.Fatalf("decoded subscription targets the wrong command")
		}
	}
}

func TestGenerateUnsubscribeAll(t *testing.T) {
	framed, err := GenerateUnsubscribeAll(PortAux2)
	if err != nil {
		t.Fatalf("GenerateUnsubscribeAll error: %v", err)
	}

	d := NewFrameDecoder()
	var body []byte
	d.FeedBytes(framed, func(b []byte) { body = append([]byte(nil), b...) })
	cmd, payload, ok := VerifyPacket(body)
	if !ok || cmd != ManageSubscriptions {
		t.Fatalf("VerifyPacket failed on unsubscribe-all packet")
	}
	decoded, _ := DecodeDatagram(cmd, payload)
	sub := decoded.(ManageSubscription)
	if sub.Subscribe || sub.Port != PortAux2 {
		t.Fatalf("unsubscribe-all payload wrong: %+v", sub)
	}
}

func TestReleaseCallbackStopsDispatch(t *testing.T) {
	c := NewCodec()
	var calls int
	id := RegisterCallback(c, GetRunningMode, func(RunningMode) { calls++ })
	c.ReleaseCallback(GetRunningMode, id)

	body := assembleBody(GetRunningMode, encodeForTest(t, RunningMode{Sel: 'B'}), false)
	c.FeedBytes(EncodeFrame(body))

	if calls != 0 {
		t.Fatalf("calls = %d, want 0 after ReleaseCallback", calls)
	}
}

func encodeForTest(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return buf.Bytes()
}
