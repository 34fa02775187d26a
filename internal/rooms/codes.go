// internal/rooms/codes.go
package rooms

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet excludes nothing: codes are plain 5-character uppercase
// alphanumerics, matching the room-document key format.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 5
)

// NewRoomCode returns a random 5-character room code. Collisions are handled
// by the caller retrying Create.
func NewRoomCode() string {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand read failure is not recoverable here.
			panic(err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf)
}
