package payload_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"i4.energy/across/sigfoxgw/payload"
)

func TestEncodeFixedWidth(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"uint8", payload.EncodeUint8(0x0a), "0a"},
		{"int8 negative", payload.EncodeInt8(-1), "ff"},
		{"uint16 is most significant byte first", payload.EncodeUint16(0x1234), "1234"},
		{"int16 negative", payload.EncodeInt16(-2), "fffe"},
		{"uint32 zero padded", payload.EncodeUint32(0x00010203), "00010203"},
		{"int32", payload.EncodeInt32(215), "000000d7"},
		{"uint64", payload.EncodeUint64(0x0102030405060708), "0102030405060708"},
		{"int64 negative", payload.EncodeInt64(-1), "ffffffffffffffff"},
		{"float32", payload.EncodeFloat32(1.0), "3f800000"},
		{"float32 negative", payload.EncodeFloat32(-2.5), "c0200000"},
		{"float64", payload.EncodeFloat64(1.0), "3ff0000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.got)
			}
		})
	}
}

func TestEncodeWidths(t *testing.T) {
	tests := []struct {
		encoded string
		width   int
	}{
		{payload.EncodeUint8(math.MaxUint8), 1},
		{payload.EncodeUint16(math.MaxUint16), 2},
		{payload.EncodeUint32(7), 4},
		{payload.EncodeUint64(7), 8},
		{payload.EncodeFloat32(math.Pi), 4},
		{payload.EncodeFloat64(math.SmallestNonzeroFloat64), 8},
	}
	for _, tt := range tests {
		if len(tt.encoded) != 2*tt.width {
			t.Errorf("%q: expected %d hex digits, got %d", tt.encoded, 2*tt.width, len(tt.encoded))
		}
		if tt.encoded != strings.ToLower(tt.encoded) {
			t.Errorf("%q: expected lowercase digits", tt.encoded)
		}
	}
}

func TestEncodeText(t *testing.T) {
	t.Run("Two characters", func(t *testing.T) {
		got, err := payload.EncodeText("Hi")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "4869" {
			t.Errorf("expected 4869, got %q", got)
		}
	})

	t.Run("Twelve characters fill the uplink", func(t *testing.T) {
		got, err := payload.EncodeText("Hello World!")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != payload.MaxHexLen {
			t.Errorf("expected %d digits, got %d", payload.MaxHexLen, len(got))
		}
	})

	t.Run("ErrTextTooLong past twelve characters", func(t *testing.T) {
		_, err := payload.EncodeText("Hello World!!")
		if !errors.Is(err, payload.ErrTextTooLong) {
			t.Errorf("expected ErrTextTooLong, got: %v", err)
		}
	})
}

func TestDecodeDigit(t *testing.T) {
	tests := []struct {
		in       byte
		expected uint8
	}{
		{'0', 0},
		{'9', 9},
		{'a', 10},
		{'f', 15},
		{'A', 10},
		{'F', 15},
		{'g', 16},
		{'z', 35},
		{'Z', 35},
	}
	for _, tt := range tests {
		got, err := payload.DecodeDigit(tt.in)
		if err != nil {
			t.Errorf("DecodeDigit(%q): unexpected error: %v", tt.in, err)
		}
		if got != tt.expected {
			t.Errorf("DecodeDigit(%q): expected %d, got %d", tt.in, tt.expected, got)
		}
	}

	for _, c := range []byte{' ', '-', '/', ':', '@', '[', '`', '{', 0x00, 0xff} {
		got, err := payload.DecodeDigit(c)
		if !errors.Is(err, payload.ErrInvalidHexDigit) {
			t.Errorf("DecodeDigit(%q): expected ErrInvalidHexDigit, got: %v", c, err)
		}
		if got != 0 {
			t.Errorf("DecodeDigit(%q): expected sentinel 0, got %d", c, got)
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	spans := [][]byte{
		{},
		{0x00},
		{0xde, 0xad, 0xbe, 0xef},
		[]byte("Hello World!"),
		bytes.Repeat([]byte{0xff}, payload.MaxBytes),
	}
	for _, b := range spans {
		encoded := payload.EncodeBytes(b)
		for _, s := range []string{encoded, strings.ToUpper(encoded)} {
			got, err := payload.Decode(s)
			if err != nil {
				t.Fatalf("Decode(%q): unexpected error: %v", s, err)
			}
			if !bytes.Equal(got, b) {
				t.Errorf("Decode(%q): expected %x, got %x", s, b, got)
			}
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := payload.Decode("486"); !errors.Is(err, payload.ErrOddLength) {
		t.Errorf("expected ErrOddLength, got: %v", err)
	}
	if _, err := payload.Decode("4g"); !errors.Is(err, payload.ErrInvalidHexDigit) {
		t.Errorf("expected ErrInvalidHexDigit for letter past f, got: %v", err)
	}
	if _, err := payload.Decode("4 "); !errors.Is(err, payload.ErrInvalidHexDigit) {
		t.Errorf("expected ErrInvalidHexDigit for space, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := payload.Validate("4869"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := payload.Validate(strings.Repeat("ab", payload.MaxBytes)); err != nil {
		t.Errorf("unexpected error for full payload: %v", err)
	}
	if err := payload.Validate(strings.Repeat("ab", payload.MaxBytes+1)); !errors.Is(err, payload.ErrPayloadTooLong) {
		t.Errorf("expected ErrPayloadTooLong, got: %v", err)
	}
	if err := payload.Validate("48xy"); !errors.Is(err, payload.ErrInvalidHexDigit) {
		t.Errorf("expected ErrInvalidHexDigit, got: %v", err)
	}
}
