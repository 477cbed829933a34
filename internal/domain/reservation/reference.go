package reservation

import (
	"crypto/rand"
	"math/big"
)

const (
	referencePrefix  = "BK"
	referenceLength  = 10
	referenceCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewReference returns a short shareable code such as BK7QK2M9XWPA.
// Uniqueness is enforced by storage; callers retry on ErrDuplicateReference.
func NewReference() (string, error) {
	code := make([]byte, referenceLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceCharset))))
		if err != nil {
			return "", err
		}
		code[i] = referenceCharset[n.Int64()]
	}
	return referencePrefix + string(code), nil
}
