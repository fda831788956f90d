package requirement

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the content-derived cache key for a requirement
// analysis request. The key covers the requirement ID and description, so
// editing a requirement's text produces a new key while renames of other
// fields do not.
func Fingerprint(req *Requirement) string {
	h := sha256.New()
	h.Write([]byte(req.ID))
	h.Write([]byte{0x1f})
	h.Write([]byte(req.Description))
	return hex.EncodeToString(h.Sum(nil))
}
