package images

import (
	"crypto/md5"
	"fmt"
)

// ComputeChecksum returns the hex md5 of raw image bytes. It keys cached results, not security.
func ComputeChecksum(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}
