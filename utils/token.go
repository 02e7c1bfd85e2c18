package utils

import (
	"crypto/rand"
	"math/big"
)

// No 0/O or 1/I so codes survive being read aloud.
const inviteCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewInviteCode returns a random code of length n from the invite charset.
func NewInviteCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(inviteCharset)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken
			panic(err)
		}
		b[i] = inviteCharset[idx.Int64()]
	}
	return string(b)
}
