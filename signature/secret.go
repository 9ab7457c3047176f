package signature

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateSecret creates a cryptographically random webhook signing secret.
// Format: "csec_" + 32 bytes hex = 69 characters total.
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("cascade: failed to generate random secret: " + err.Error())
	}
	return "csec_" + hex.EncodeToString(b)
}
