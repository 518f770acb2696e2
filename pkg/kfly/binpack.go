package kfly

import (
	"encoding/binary"
	"math"
)

func putUint16(dst []byte, v uint16) {
	binary.LittleEndian.PutUint16(dst, v)
}

func getUint16(src []byte) uint16 {
	return binary.LittleEndian.Uint16(src)
}

// packFloats32 lays out four float32 values little-endian into a
// 16-byte array, used for the ComputerControlReference union.
func packFloats32(a, b, c, d float32) [computerControlUnionSize]byte {
	var out [computerControlUnionSize]byte
	binary.LittleEndian.PutUint32(out[0:4], math.Float32bits(a))
	binary.LittleEndian.PutUint32(out[4:8], math.Float32bits(b))
	binary.LittleEndian.PutUint32(out[8:12], math.Float32bits(c))
	binary.LittleEndian.PutUint32(out[12:16], math.Float32bits(d))
	return out
}

func unpackFloats32(buf [computerControlUnionSize]byte) (a, b, c, d float32) {
	a = math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4]))
	b = math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8]))
	c = math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12]))
	d = math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16]))
	return
}
