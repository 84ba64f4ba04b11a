package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Digest is a deterministic content identity of a file tree.
type Digest string

func (d Digest) String() string { return string(d) }

// DigestDir computes a Digest over the files below dir.
//
// The digest covers relative paths and file contents only:
//   - paths are sorted and slash-separated
//   - every field is length-prefixed to avoid ambiguity
//   - metadata (mode, mtime, owner) is excluded
//
// Two directories with the same files and bytes always share a digest.
func DigestDir(dir string) (Digest, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return "", err
	}

	hasher := sha256.New()
	writeField := func(data []byte) {
		length := uint64(len(data))
		lengthBytes := []byte{
			byte(length >> 56),
			byte(length >> 48),
			byte(length >> 40),
			byte(length >> 32),
			byte(length >> 24),
			byte(length >> 16),
			byte(length >> 8),
			byte(length),
		}
		hasher.Write(lengthBytes)
		hasher.Write(data)
	}

	count := uint64(len(files))
	writeField([]byte{byte(count >> 24), byte(count >> 16), byte(count >> 8), byte(count)})
	for _, rel := range files {
		content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return "", fmt.Errorf("reading %q: %w", rel, err)
		}
		writeField([]byte(rel))
		writeField(content)
	}

	return Digest(hex.EncodeToString(hasher.Sum(nil))), nil
}
