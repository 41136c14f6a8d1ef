package integrity

import (
	"crypto/sha1"
	"fmt"
	"hash"
	"strings"

	sha256 "github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
)

// Supported digest algorithms.
const (
	AlgorithmSHA1   = "sha1"
	AlgorithmSHA256 = "sha256"
	AlgorithmBLAKE3 = "blake3"
)

// NewHasher returns a constructor for the named digest algorithm.
// The collector must be configured with the same algorithm.
func NewHasher(algorithm string) (func() hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "", AlgorithmSHA1:
		return sha1.New, nil
	case AlgorithmSHA256:
		return sha256.New, nil
	case AlgorithmBLAKE3:
		return func() hash.Hash { return blake3.New() }, nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm %q", algorithm)
	}
}
