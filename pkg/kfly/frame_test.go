package kfly

import (
	"bytes"
	"testing"
)

func TestEncodeFrameEscapesEndAndEsc(t *testing.T) {
	body := []byte{0x01, slipEnd, 0x02, slipEsc, 0x03}
	got := EncodeFrame(body)
	want := []byte{
		slipEnd,
		0x01, slipEsc, slipEscEnd, 0x02, slipEsc, slipEscEsc, 0x03,
		slipEnd,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("EncodeFrame = % X, want % X", got, want)
	}
}

func TestFrameDecoderRoundTrip(t *testing.T) {
	body := []byte{0x00, 0x01, slipEnd, slipEsc, 0xFF, 0x7F}
	framed := EncodeFrame(body)

	d := NewFrameDecoder()
	var got []byte
	var count int
	d.FeedBytes(framed, func(b []byte) {
		got = append([]byte(nil), b...)
		count++
	})

	if count != 1 {
		t.Fatalf("got %d frames, want 1", count)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("decoded body = % X, want % X", got, body)
	}
}

func TestFrameDecoderResyncsAfterGarbage(t *testing.T) {
	d := NewFrameDecoder()

	garbage := []byte{0x11, 0x22, 0x33}
	for _, b := range garbage {
		if _, ok := d.Feed(b); ok {
			t.Fatalf("unexpected frame before any END byte")
		}
	}

	body := []byte{0xAA, 0xBB, 0xCC}
	framed := EncodeFrame(body)
	var out [][]byte
	d.FeedBytes(framed, func(b []byte) {
		out = append(out, append([]byte(nil), b...))
	})

	if len(out) != 1 || !bytes.Equal(out[0], body) {
		t.Fatalf("decoder failed to resync cleanly, got %v", out)
	}
}

func TestFrameDecoderCorruptEscapeResyncs(t *testing.T) {
	d := NewFrameDecoder()

	// END, ESC, then a byte that is neither ESC_END nor ESC_ESC: the
	// escape sequence is corrupt and the partial frame must be dropped.
	corrupt := []byte{slipEnd, 0x01, slipEsc, 0x05, 0x02, slipEnd}
	var out [][]byte
	d.FeedBytes(corrupt, func(b []byte) {
		out = append(out, append([]byte(nil), b...))
	})

	if len(out) != 0 {
		t.Fatalf("expected the corrupt frame to be dropped, got %v", out)
	}

	// The decoder must still be usable for the next, well-formed frame.
	body := []byte{0x09, 0x08}
	framed := EncodeFrame(body)
	d.FeedBytes(framed, func(b []byte) {
		out = append(out, append([]byte(nil), b...))
	})
	if len(out) != 1 || !bytes.Equal(out[0], body) {
		t.Fatalf("decoder did not recover after corrupt escape, got %v", out)
	}
}

func TestFrameDecoderIgnoresBackToBackEnd(t *testing.T) {
	d := NewFrameDecoder()
	stream := []byte{slipEnd, slipEnd, 0x01, 0x02, slipEnd}
	var out [][]byte
	d.FeedBytes(stream, func(b []byte) {
		out = append(out, append([]byte(nil), b...))
	})
	if len(out) != 1 || !bytes.Equal(out[0], []byte{0x01, 0x02}) {
		t.Fatalf("got %v, want a single [01 02] frame", out)
	}
}

func TestFrameDecoderOverflowGuard(t *testing.T) {
	d := NewFrameDecoder()
	d.Feed(slipEnd)
	for i := 0; i < MaxFrameSize+10; i++ {
		d.Feed(0x41)
	}
	if _, ok := d.Feed(slipEnd); ok {
		t.Fatalf("oversized frame must be dropped, not emitted")
	}

	// decoder resynchronizes afterward
	body := []byte{0x01}
	var out [][]byte
	d.FeedBytes(EncodeFrame(body), func(b []byte) {
		out = append(out, append([]byte(nil), b...))
	})
	if len(out) != 1 || !bytes.Equal(out[0], body) {
		t.Fatalf("decoder did not recover after overflow, got %v", out)
	}
}
