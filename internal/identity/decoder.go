// Package identity decodes the packed short-string names carried by the
// game feed into display text.
//
// A packed name is a field element holding up to 31 ASCII bytes, written
// either as 0x-prefixed hex or as a decimal integer:
//
//	0x416c696365  -> "Alice"
//	280991720293  -> "Alice"
//
// Decoding never fails upward. Anything that is not a valid packed name
// decodes to Unknown.
package identity

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"
)

// Unknown is returned for any input that is not a validly packed name.
const Unknown = "Unknown"

// MaxShortStringBytes is the capacity of a single field element.
const MaxShortStringBytes = 31

var (
	errEmpty       = errors.New("empty value")
	errNotNumeric  = errors.New("not hex or decimal")
	errTooLong     = errors.New("exceeds short string capacity")
	errUnprintable = errors.New("contains non-printable bytes")
)

// Decoder turns packed names into display strings and logs malformed input.
type Decoder struct {
	logger *zap.Logger
}

// NewDecoder creates a Decoder. A nil logger disables decode diagnostics.
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger.Named("identity")}
}

// Decode returns the display string for packed, or Unknown.
func (d *Decoder) Decode(packed string) string {
	s, err := decode(packed)
	if err != nil {
		d.logger.Debug("failed to decode packed name",
			zap.String("packed", packed),
			zap.Error(err),
		)
		return Unknown
	}
	return s
}

var defaultDecoder = NewDecoder(nil)

// Decode decodes packed without diagnostics.
func Decode(packed string) string {
	return defaultDecoder.Decode(packed)
}

func decode(packed string) (string, error) {
	s := strings.TrimSpace(packed)
	if s == "" {
		return "", errEmpty
	}

	var n big.Int
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		digits := s[2:]
		if digits == "" || !isHex(digits) {
			return "", fmt.Errorf("%q: %w", s, errNotNumeric)
		}
		n.SetString(digits, 16)
	case isDecimal(s):
		n.SetString(s, 10)
	default:
		return "", fmt.Errorf("%q: %w", s, errNotNumeric)
	}

	// Bytes drops leading zero bytes, which are padding.
	b := n.Bytes()
	if len(b) == 0 {
		return "", errEmpty
	}
	if len(b) > MaxShortStringBytes {
		return "", fmt.Errorf("%d bytes: %w", len(b), errTooLong)
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return "", fmt.Errorf("byte 0x%02x: %w", c, errUnprintable)
		}
	}
	return string(b), nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func isDecimal(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
