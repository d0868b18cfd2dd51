package utils

import "math/rand/v2"

// IDLength is the length of ids produced by GenerateID.
const IDLength = 23

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateID returns a random alphanumeric id of IDLength characters.
// The process-wide generator is randomly seeded, so ids produced by
// independent writers do not collide in practice.
func GenerateID() string {
	buf := make([]byte, IDLength)
	for i := range buf {
		buf[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return string(buf)
}

// IsValidID reports whether id looks like a value produced by GenerateID.
func IsValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
