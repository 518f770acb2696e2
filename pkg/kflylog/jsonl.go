// Package kflylog provides a diagnostic JSONL sink for decoded KFly
// datagrams. It is a pure consumer of kfly.Codec dispatch: the core
// library never logs anything itself.
package kflylog

import (
	"encoding/json"
	"io"
	"time"

	"github.com/kfly-project/kfly-comm/pkg/kfly"
)

// Writer appends one JSON record per dispatched datagram.
type Writer struct {
	enc *json.Encoder
}

type record struct {
	TS      string `json:"ts"`
	Command string `json:"command"`
	Data    any    `json:"data"`
}

// NewWriter wraps w as a JSONL sink with HTML-escaping disabled, matching
// plain log-line output.
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc}
}

// Attach subscribes the writer on codec to each command in cmds that
// it has a handler for (GetSystemStatus, GetIMUData, GetRawIMUData,
// GetEstimationAttitude, GetEstimationAllStates, GetRCValues,
// DebugMessage, Ack), logging each decoded datagram as it arrives;
// other commands in cmds are not logged. It returns the HandlerIDs so
// the caller can Detach later.
func Attach(codec *kfly.Codec, w *Writer, cmds []kfly.Command) []attachment {
	attachments := make([]attachment, 0, len(cmds))
	for _, cmd := range cmds {
		attachments = append(attachments, attachFor(codec, w, cmd))
	}
	return attachments
}

type attachment struct {
	cmd kfly.Command
	id  kfly.HandlerID
}

// Detach releases every callback previously attached via Attach.
func Detach(codec *kfly.Codec, attachments []attachment) {
	for _, a := range attachments {
		codec.ReleaseCallback(a.cmd, a.id)
	}
}

func attachFor(codec *kfly.Codec, w *Writer, cmd kfly.Command) attachment {
	switch cmd {
	case kfly.GetSystemStatus:
		return attachment{cmd: cmd, id: kfly.RegisterCallback(codec, cmd, func(v kfly.SystemStatus) { w.write(cmd, v) })}
	case kfly.GetIMUData:
		return attachment{cmd: cmd, id: kfly.RegisterCallback(codec, cmd, func(v kfly.IMUData) { w.write(cmd, v) })}
	case kfly.GetRawIMUData:
		return attachment{cmd: cmd, id: kfly.RegisterCallback(codec, cmd, func(v kfly.RawIMUData) { w.write(cmd, v) })}
	case kfly.GetEstimationAttitude:
		return attachment{cmd: cmd, id: kfly.RegisterCallback(codec, cmd, func(v kfly.EstimationAttitude) { w.write(cmd, v) })}
	case kfly.GetEstimationAllStates:
		return attachment{cmd: cmd, id: kfly.RegisterCallback(codec, cmd, func(v kfly.EstimationAllStates) { w.write(cmd, v) })}
	case kfly.GetRCValues:
		return attachment{cmd: cmd, id: kfly.RegisterCallback(codec, cmd, func(v kfly.RCValues) { w.write(cmd, v) })}
	case kfly.DebugMessage:
		return attachment{cmd: cmd, id: kfly.RegisterCallback(codec, cmd, func(v kfly.DebugMessagePayload) { w.write(cmd, v) })}
	case kfly.Ack:
		return attachment{cmd: cmd, id: kfly.RegisterCallback(codec, cmd, func(v kfly.AckPayload) { w.write(cmd, v) })}
	default:
		// Unrecognized command: register nothing, Detach is then a no-op
		// for this entry.
		return attachment{cmd: cmd}
	}
}

func (w *Writer) write(cmd kfly.Command, data any) {
	rec := record{
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Command: cmd.String(),
		Data:    data,
	}
	_ = w.enc.Encode(rec)
}
