package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ChunkID derives a stable chunk identifier from document id, page index and
// word offset. Re-chunking the same text yields the same ids, which keeps
// index upserts idempotent.
func ChunkID(documentID string, pageIndex, offset int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", documentID, pageIndex, offset)))
	return hex.EncodeToString(sum[:])[:24]
}

// FileHash returns the hex sha256 of a file, used for duplicate detection.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
