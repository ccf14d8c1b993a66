// Package keys generates the capability key pairs that address stored
// files: the public key grants read access, the private key grants delete
// access. The two keys are drawn independently, so neither is derivable
// from the other or from the file's identity.
package keys

import (
	"encoding/base64"

	"github.com/dsmirnov/filedrop/internal/common"
)

// keySize is the entropy per key in bytes. 256 bits keeps the collision
// probability negligible against any realistic key universe.
const keySize = 32

// KeyPair holds the two textually encoded access tokens for one file.
type KeyPair struct {
	Public  string
	Private string
}

// GenerateKeyPair produces a fresh pair of independent high-entropy keys,
// encoded with unpadded URL-safe base64 so they can travel in a path
// segment unescaped. Uniqueness is ultimately enforced by the registry's
// unique constraints; a collision there is retried with a new pair.
func GenerateKeyPair() KeyPair {
	return KeyPair{
		Public:  encode(common.GenerateRandByteArray(keySize)),
		Private: encode(common.GenerateRandByteArray(keySize)),
	}
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
