// Package handid generates hand identifiers: UUIDv7 values written as 26
// lowercase Crockford base32 characters, so ids sort by creation time.
package handid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded id.
const Length = 26

// New returns a fresh hand id.
func New() string {
	return Encode(uuid.Must(uuid.NewV7()))
}

// Encode writes the 128 bits of u, left padded to 130 bits, five bits per
// character.
func Encode(u uuid.UUID) string {
	var out [Length]byte
	for i := range out {
		var v byte
		for b := range 5 {
			v <<= 1
			if pos := i*5 + b - 2; pos >= 0 {
				v |= u[pos/8] >> (7 - pos%8) & 1
			}
		}
		out[i] = alphabet[v]
	}
	return string(out[:])
}

// Decode parses an encoded id.
func Decode(id string) (uuid.UUID, error) {
	var u uuid.UUID
	if err := Validate(id); err != nil {
		return u, err
	}
	for i := range Length {
		v := strings.IndexByte(alphabet, id[i])
		for b := range 5 {
			pos := i*5 + b - 2
			if pos < 0 || v>>(4-b)&1 == 0 {
				continue
			}
			u[pos/8] |= 1 << (7 - pos%8)
		}
	}
	return u, nil
}

// Validate checks that id is a well formed hand id.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("hand id must be %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("hand id first character must be 0-7, got %c", id[0])
	}
	for i := range len(id) {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}

// Time returns the creation time embedded in id.
func Time(id string) (time.Time, error) {
	u, err := Decode(id)
	if err != nil {
		return time.Time{}, err
	}
	var ms int64
	for _, b := range u[:6] {
		ms = ms<<8 | int64(b)
	}
	return time.UnixMilli(ms), nil
}
