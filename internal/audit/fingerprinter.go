package audit

import (
	"crypto/sha256"
	"encoding/base64"
)

// Fingerprint hashes a secret value (e.g. a challenge code) so audit
// records can correlate events about it without ever storing the secret.
func Fingerprint(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(hash[:])
}
