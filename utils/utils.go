package utils

import (
	"math/rand"
	"time"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

var seeded = rand.New(rand.NewSource(time.Now().UnixNano()))

// RandomAlphabetString returns n random lower case letters. Not safe for
// concurrent use and not suitable for secrets.
func RandomAlphabetString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[seeded.Intn(len(alphabet))]
	}
	return string(b)
}
