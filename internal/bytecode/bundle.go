package bytecode

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
)

// Encode serializes u with encoding/gob, the format
// funvibe-funxy/internal/vm/bundle.go uses for its own compiled-Chunk
// Bundle artifact. Unit's fields are all plain structs, slices, and
// maps of exported fields (no interfaces), so gob round-trips it
// without needing custom GobEncode/GobDecode methods — the same
// reason the teacher's Bundle gets by with a handful of gob.Register
// calls rather than hand-written marshalling.
func (u *Unit) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(u); err != nil {
		return fmt.Errorf("bytecode: encode unit: %w", err)
	}
	return nil
}

// Marshal is Encode into an in-memory buffer, for hosts that want the
// bytes directly (e.g. to embed a compiled Unit as a resource, the way
// the teacher's --embed build flag bundles compiled chunks).
func (u *Unit) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := u.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeUnit deserializes a Unit previously written by Encode/Marshal.
func DecodeUnit(r io.Reader) (*Unit, error) {
	var u Unit
	if err := gob.NewDecoder(r).Decode(&u); err != nil {
		return nil, fmt.Errorf("bytecode: decode unit: %w", err)
	}
	return &u, nil
}

// UnmarshalUnit is DecodeUnit over an in-memory byte slice.
func UnmarshalUnit(data []byte) (*Unit, error) {
	return DecodeUnit(bytes.NewReader(data))
}
