package dag

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
)

// fieldWriter writes length-prefixed fields so that adjacent fields cannot
// be confused with each other.
type fieldWriter struct {
	h hash.Hash
}

func newFieldWriter() *fieldWriter { return &fieldWriter{h: sha256.New()} }

func (w *fieldWriter) writeBytes(data []byte) {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(len(data)))
	w.h.Write(prefix[:])
	w.h.Write(data)
}

func (w *fieldWriter) writeString(s string) { w.writeBytes([]byte(s)) }

func (w *fieldWriter) writeInt(n int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	w.writeBytes(b[:])
}

// writeSet writes a sorted copy of values, treating them as a set.
func (w *fieldWriter) writeSet(values []string) {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	w.writeInt(len(sorted))
	for _, v := range sorted {
		w.writeString(v)
	}
}

func (w *fieldWriter) sum() string { return hex.EncodeToString(w.h.Sum(nil)) }

// computeTaskDefHash hashes the declarative fields of a task: name, group,
// inputs and outputs. The action is not part of the identity.
func computeTaskDefHash(t Task) TaskDefHash {
	w := newFieldWriter()
	w.writeString(t.Name)
	w.writeString(t.Group)
	w.writeSet(t.Inputs)
	w.writeSet(t.Outputs)
	return TaskDefHash(w.sum())
}
