// Package payload packs binary values into the hex text carried by the
// AT$SF= uplink command.
//
// Every fixed-width value is encoded most-significant byte first, whatever
// the byte order of the host, so a reading encoded on one platform decodes
// to the same value on the backend.
package payload

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
)

const (
	// MaxBytes is the largest uplink payload accepted by the Sigfox network.
	MaxBytes = 12
	// MaxHexLen is MaxBytes expressed as hex digits.
	MaxHexLen = 2 * MaxBytes
	// MaxTextLen is the longest text that EncodeText accepts, one byte per character.
	MaxTextLen = MaxBytes
)

var (
	// ErrInvalidHexDigit is returned by DecodeDigit for characters outside
	// 0-9, a-z and A-Z. The digit value returned alongside it is always 0.
	ErrInvalidHexDigit = errors.New("invalid hex digit")

	// ErrTextTooLong is returned when a text message does not fit in a
	// single uplink.
	ErrTextTooLong = errors.New("text too long")

	// ErrPayloadTooLong is returned when a hex payload exceeds MaxHexLen.
	ErrPayloadTooLong = errors.New("payload too long")

	// ErrOddLength is returned when a hex payload does not describe a whole
	// number of bytes.
	ErrOddLength = errors.New("odd payload length")
)

func EncodeUint8(v uint8) string { return EncodeBytes([]byte{v}) }

func EncodeInt8(v int8) string { return EncodeUint8(uint8(v)) }

func EncodeUint16(v uint16) string { return EncodeBytes(binary.BigEndian.AppendUint16(nil, v)) }

func EncodeInt16(v int16) string { return EncodeUint16(uint16(v)) }

func EncodeUint32(v uint32) string { return EncodeBytes(binary.BigEndian.AppendUint32(nil, v)) }

func EncodeInt32(v int32) string { return EncodeUint32(uint32(v)) }

func EncodeUint64(v uint64) string { return EncodeBytes(binary.BigEndian.AppendUint64(nil, v)) }

func EncodeInt64(v int64) string { return EncodeUint64(uint64(v)) }

// EncodeFloat32 encodes the IEEE-754 bit pattern of v as 8 hex digits.
func EncodeFloat32(v float32) string { return EncodeUint32(math.Float32bits(v)) }

// EncodeFloat64 encodes the IEEE-754 bit pattern of v as 16 hex digits.
func EncodeFloat64(v float64) string { return EncodeUint64(math.Float64bits(v)) }

// EncodeBytes returns two lowercase hex digits per byte of b.
func EncodeBytes(b []byte) string {
	return hex.EncodeToString(b)
}

// EncodeText encodes a text message character by character. The text must
// fit in a single uplink, so at most MaxTextLen bytes are accepted.
func EncodeText(s string) (string, error) {
	if len(s) > MaxTextLen {
		return "", fmt.Errorf("%w: %d bytes, max %d", ErrTextTooLong, len(s), MaxTextLen)
	}
	return EncodeBytes([]byte(s)), nil
}

// DecodeDigit converts a single digit to its value. Letters map to 10 and up
// over the whole alphabet, so 'g' yields 16; callers that need strict hex
// must check the result is below 16.
func DecodeDigit(c byte) (uint8, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'z':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'Z':
		return c - 'A' + 10, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidHexDigit, c)
}

// Decode is the inverse of EncodeBytes. Upper and lower case digits are
// both accepted.
func Decode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: %d digits", ErrOddLength, len(s))
	}
	out := make([]byte, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		hi, err := strictDigit(s[i])
		if err != nil {
			return nil, err
		}
		lo, err := strictDigit(s[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, hi<<4|lo)
	}
	return out, nil
}

// Validate checks that s can be sent as an uplink payload.
func Validate(s string) error {
	if len(s) > MaxHexLen {
		return fmt.Errorf("%w: %d digits, max %d", ErrPayloadTooLong, len(s), MaxHexLen)
	}
	_, err := Decode(s)
	return err
}

func strictDigit(c byte) (uint8, error) {
	d, err := DecodeDigit(c)
	if err != nil {
		return 0, err
	}
	if d > 0xf {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHexDigit, c)
	}
	return d, nil
}
