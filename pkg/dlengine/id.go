package dlengine

import (
	"crypto/md5"
	"encoding/hex"
)

// ComputeID derives the 12-character lowercase hex DownloadID from the
// first 6 bytes of the MD5 hash of url. MD5 is adequate here: the ID only
// needs to be a stable, collision-unlikely handle across the wire
// protocol, not a cryptographic guarantee.
func ComputeID(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:6])
}
