package bookings

import "github.com/google/uuid"

// crockford is Crockford's base32 alphabet (no I, L, O, U).
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewReference returns a human-readable code "BK-" followed by 8 base32
// characters drawn from 40 random bits.
func NewReference() string {
	id := uuid.New()
	var bits uint64
	for _, b := range id[:5] {
		bits = bits<<8 | uint64(b)
	}
	out := make([]byte, 0, 11)
	out = append(out, "BK-"...)
	for i := 7; i >= 0; i-- {
		out = append(out, crockford[(bits>>(uint(i)*5))&0x1f])
	}
	return string(out)
}
