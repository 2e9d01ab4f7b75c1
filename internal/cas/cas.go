// Package cas provides content-addressing utilities: BLAKE3 digests and
// millisecond timestamps shared by the storage layer.
package cas

import (
	"encoding/hex"
	"time"

	"lukechampine.com/blake3"
)

// DigestSize is the size of a BLAKE3 digest in bytes.
const DigestSize = 32

// Blake3Hash returns the BLAKE3 digest of data.
func Blake3Hash(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}

// Blake3HashHex returns the BLAKE3 digest of data as a hex string.
func Blake3HashHex(data []byte) string {
	return hex.EncodeToString(Blake3Hash(data))
}

// NowMs returns the current time in milliseconds since epoch.
func NowMs() int64 {
	return time.Now().UnixMilli()
}
