// Package fileid provides a deterministic content digest for workbooks.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const prefix = "sha256:"

// Digest returns a stable identifier for data. Equal bytes always yield the
// same digest.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return prefix + hex.EncodeToString(sum[:])
}

// DigestFile reads path and returns its contents together with their digest.
func DigestFile(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("read workbook: %w", err)
	}
	return data, Digest(data), nil
}
