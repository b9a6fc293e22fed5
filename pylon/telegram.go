package pylon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/snksoft/crc"
)

// telegrams are encoded as [SOT][MESSAGE][EOT].
// the message is formatted as
// [OP] [NAMELEN] [0..255 name bytes] [0..n data bytes] [CRC16]
// and every byte between SOT and EOT is sanitized so the frame
// markers cannot appear inside the body.

const (
	// telStart is the start of telegram byte
	telStart = 0x0D

	// telEnd is the end of telegram byte
	telEnd = 0x0A

	// specialCharFirstReplacement is the first byte used to replace a special character
	specialCharFirstReplacement = 0x5E

	// specialCharShift is the amount to shift special characters up.
	// special characters max out at 0x5E, so we will never overflow
	specialCharShift = 0x40
)

// operation bytecodes for the remote camera protocol
const (
	OpGet byte = iota + 1
	OpSet
	OpMin
	OpMax
	OpInc
	OpOptions
	OpExec
	OpLoadSet
	OpSaveSet
	OpStart
	OpStop
	OpFrame
	OpFrameRate
	OpAck
	OpErr
)

var (
	// dataOrder is the byte order for multi-byte values in telegram data
	dataOrder = binary.LittleEndian

	// specialChars is a byte slice of values that must be filtered out of messages
	specialChars = []byte{telStart, telEnd, specialCharFirstReplacement}

	crcTable = crc.NewTable(crc.XMODEM)

	// ErrBadCRC is generated when a telegram's CRC does not match its contents
	ErrBadCRC = errors.New("telegram CRC mismatch")

	// ErrMalformedTelegram is generated when a telegram is too short to decode
	ErrMalformedTelegram = errors.New("telegram too short or missing frame markers")
)

// MessagePrimitive is a struct holding the pieces of a message before
// packing, CRC, and sanitization
type MessagePrimitive struct {
	// Op is the operation bytecode
	Op byte

	// Name is the parameter or slot the operation applies to, "" if none
	Name string

	// Data is the operation payload
	Data []byte
}

// crcHelper computes the two-byte CRC value in one line
func crcHelper(buf []byte) []byte {
	crcUint := crcTable.InitCrc()
	crcUint = crcTable.UpdateCrc(crcUint, buf)
	crcBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(crcBytes, crcTable.CRC16(crcUint))
	return crcBytes
}

func sanitize(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if bytes.Contains(specialChars, []byte{b}) {
			out = append(out, specialCharFirstReplacement, b+specialCharShift)
		} else {
			out = append(out, b)
		}
	}
	return out
}

func reverseSanitize(data []byte) []byte {
	out := make([]byte, 0, len(data))
	subNext := false
	for _, b := range data {
		if b == specialCharFirstReplacement && !subNext {
			// substitution marker; subtract from the next byte
			subNext = true
		} else {
			if subNext {
				b = b - specialCharShift
			}
			out = append(out, b)
			subNext = false
		}
	}
	return out
}

// MakeTelegram produces a wire-ready telegram from the constituent pieces
func MakeTelegram(mp MessagePrimitive) ([]byte, error) {
	if len(mp.Name) > 255 {
		return nil, fmt.Errorf("parameter name %q exceeds 255 bytes", mp.Name)
	}
	buf := make([]byte, 0, 2+len(mp.Name)+len(mp.Data))
	buf = append(buf, mp.Op, byte(len(mp.Name)))
	buf = append(buf, []byte(mp.Name)...)
	buf = append(buf, mp.Data...)
	buf = append(buf, crcHelper(buf)...)

	out := []byte{telStart}
	out = append(out, sanitize(buf)...)
	out = append(out, telEnd)
	return out, nil
}

// DecodeTelegram unpacks a telegram into its primitive, checking the CRC
func DecodeTelegram(tele []byte) (MessagePrimitive, error) {
	mp := MessagePrimitive{}
	if len(tele) < 6 || tele[0] != telStart || tele[len(tele)-1] != telEnd {
		return mp, ErrMalformedTelegram
	}
	buf := reverseSanitize(tele[1 : len(tele)-1])
	if len(buf) < 4 {
		return mp, ErrMalformedTelegram
	}
	body := buf[:len(buf)-2]
	crcRecv := buf[len(buf)-2:]
	if !bytes.Equal(crcRecv, crcHelper(body)) {
		return mp, ErrBadCRC
	}
	nameLen := int(body[1])
	if len(body) < 2+nameLen {
		return mp, ErrMalformedTelegram
	}
	mp.Op = body[0]
	mp.Name = string(body[2 : 2+nameLen])
	mp.Data = body[2+nameLen:]
	return mp, nil
}

// packFloat encodes a float64 for telegram data
func packFloat(f float64) []byte {
	out := make([]byte, 8)
	dataOrder.PutUint64(out, math.Float64bits(f))
	return out
}

// unpackFloat decodes a float64 from telegram data
func unpackFloat(data []byte) (float64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("float payload must be 8 bytes, got %d", len(data))
	}
	return math.Float64frombits(dataOrder.Uint64(data)), nil
}
