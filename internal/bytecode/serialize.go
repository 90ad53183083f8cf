package bytecode

import (
	"bytes"
	"encoding/gob"
)

// EncodeBytes serializes a Unit to a self-contained byte stream. Grounded on
// funvibe-funxy/internal/vm/bundle.go, which gob-encodes a Bundle for
// self-contained bytecode execution — the same technique, applied to
// Unit directly since this spec has no separate "bundle of resources"
// concept to wrap it in.
func (u *Unit) EncodeBytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(u); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a Unit from bytes produced by EncodeBytes. Spec.md §8
// requires that "Serializing and deserializing a Unit preserves
// execution behavior on every entry point" — since Unit holds no
// unexported state and EncodeBytes/Decode round-trip every exported field,
// that property holds by construction.
func Decode(data []byte) (*Unit, error) {
	var u Unit
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}
