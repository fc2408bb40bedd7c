// Package secretgen generates the random shared-secret string stored on
// each Resource and embedded verbatim in its .res file's
// `shared-secret` directive (spec §3's Resource.Secret field).
//
// Unlike the teacher's pkg/security/secrets.go, this secret is never
// encrypted at rest — original_source/drbdmanage/consts.py's RES_SECRET
// constant names it as a plain property key, and the control volume's
// own C4 locking/hash protocol is the only protection this system
// applies to the cluster image. What carries over from secrets.go is
// the crypto/rand.Reader-backed generation idiom; AES-GCM envelope
// encryption has nothing in this domain to wrap.
package secretgen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Length is the number of random bytes generated per secret, chosen to
// land the base64 encoding in the same rough character-count range DRBD
// deployments conventionally use for shared-secret strings; no exact
// value survived in the retrieved original source.
const Length = 15

// New returns a fresh base64 (URL-safe, unpadded) random secret.
func New() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("secretgen: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
