// Package hash derives the stable 128-bit identifiers used to name
// compiled functions and registered types by their canonical item path
// (for example "::std::string::String" or "mymodule::calc").
//
// The hash must be a pure function of the path string alone: given the
// same path, the compiler and a host registering native functions/types
// must compute byte-for-byte identical hashes so that compiled Call/Is
// instructions resolve against host-registered entries without a name
// lookup at run time.
package hash

import (
	"encoding/binary"
	"fmt"

	"github.com/twmb/murmur3"
)

// ID is a 128-bit identifier derived from a canonical item path.
type ID struct {
	Hi uint64
	Lo uint64
}

// Zero is the identifier of the empty path; never produced by Path for a
// non-empty input, used as a sentinel by callers that need one.
var Zero = ID{}

// Path computes the canonical hash of an item path such as
// "::std::string::String" or "mymodule::calc". Two equal paths always
// hash to the same ID; this is the only process-wide pure function the
// system depends on (spec.md §9, "Global state").
func Path(path string) ID {
	hi, lo := murmur3.Sum128([]byte(path))
	return ID{Hi: hi, Lo: lo}
}

// Field combines a base hash with a field/variant name, used to derive
// per-instance-method hashes ("Type::method") without re-hashing the
// full path from scratch.
func Field(base ID, name string) ID {
	buf := make([]byte, 16+len(name))
	binary.LittleEndian.PutUint64(buf[0:8], base.Hi)
	binary.LittleEndian.PutUint64(buf[8:16], base.Lo)
	copy(buf[16:], name)
	hi, lo := murmur3.Sum128(buf)
	return ID{Hi: hi, Lo: lo}
}

// String renders the ID as a fixed-width hex string, used in diagnostics
// and disassembly listings.
func (id ID) String() string {
	return fmt.Sprintf("%016x%016x", id.Hi, id.Lo)
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id.Hi == 0 && id.Lo == 0
}
