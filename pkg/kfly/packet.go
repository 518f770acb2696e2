package kfly

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Errors of the transmit and registration paths: the transmit path
// returns them, and Register panics with ErrNilHandler for a nil
// handler. Receive-path failures are never surfaced as errors: they are
// silent drops per the wire protocol's error taxonomy.
var (
	ErrNotHostToDevice = errors.New("kfly: datagram is not host-to-device")
	ErrPayloadTooLarge  = errors.New("kfly: payload exceeds 251 bytes")
	ErrNilHandler       = errors.New("kfly: nil handler")
	ErrUnknownCommand   = errors.New("kfly: unknown command")
)

const maxPayloadSize = 251

const ackBit = 0x80

// AssemblePacket builds the header+payload+CRC body for cmd carrying
// datagram, ready to be SLIP-encoded. It fails if cmd is not
// host-to-device or if the serialized payload would exceed 251 bytes.
func AssemblePacket[T any](cmd Command, datagram T, ack bool) ([]byte, error) {
	dir, ok := direction(cmd)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	if dir == DirDeviceToHost {
		return nil, fmt.Errorf("%w: %s", ErrNotHostToDevice, cmd)
	}

	var payloadBuf bytes.Buffer
	if err := binary.Write(&payloadBuf, binary.LittleEndian, datagram); err != nil {
		return nil, fmt.Errorf("kfly: serialize %s: %w", cmd, err)
	}
	payload := payloadBuf.Bytes()
	if len(payload) > maxPayloadSize {
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrPayloadTooLarge, cmd, len(payload))
	}

	return assembleBody(cmd, payload, ack), nil
}

// assembleCommandOnly builds the body for a bare command with no
// payload (Ping, SaveToFlash, EraseFlash, ResetEstimation). Its only
// caller, GenerateCommand, rejects device-to-host commands first.
func assembleCommandOnly(cmd Command, ack bool) []byte {
	return assembleBody(cmd, nil, ack)
}

func assembleBody(cmd Command, payload []byte, ack bool) []byte {
	cmdByte := byte(cmd) & 0x7F
	if ack {
		cmdByte |= ackBit
	}

	body := make([]byte, 0, 2+len(payload)+2)
	body = append(body, cmdByte, byte(len(payload)))
	body = append(body, payload...)

	crc := CRC16(body)
	body = append(body, byte(crc), byte(crc>>8))
	return body
}

// VerifyPacket validates a decoded frame body and returns the
// stripped command and payload on success. Every failure is a silent
// drop (ok=false), matching the wire protocol's receive-path policy.
func VerifyPacket(body []byte) (cmd Command, payload []byte, ok bool) {
	if len(body) < 4 {
		return 0, nil, false
	}

	cmdByte := body[0]
	length := int(body[1])
	if length+4 != len(body) {
		return 0, nil, false
	}

	crcReceived := uint16(body[len(body)-2]) | uint16(body[len(body)-1])<<8
	crcExpected := CRC16(body[:len(body)-2])
	if crcReceived != crcExpected {
		return 0, nil, false
	}

	cmd = Command(cmdByte &^ ackBit)
	return cmd, body[2 : 2+length], true
}

// DecodeDatagram looks up the registered type for cmd and byte-copies
// payload into a new value of that type. It returns ok=false if cmd is
// unknown or payload's length does not match the type's static size.
func DecodeDatagram(cmd Command, payload []byte) (value any, ok bool) {
	entry, known := commandTable[cmd]
	if !known {
		return nil, false
	}
	return entry.decode(payload)
}
