package bytecode

import "github.com/loom-lang/loom/internal/hash"

// FuncEntry is what the function table maps a hash to: where the
// function's body begins in Unit.Instructions and how many arguments it
// expects (spec.md §3 "Unit").
type FuncEntry struct {
	EntryOffset int
	ArgCount    int
	Name        string // for diagnostics/disassembly only
	IsGenerator bool
	IsAsync     bool
}

// Unit is the immutable artifact a Compiler produces and a VM consumes:
// one flat instruction stream shared by every compiled function (their
// bodies are concatenated, and inter-procedural calls are absolute
// jumps to a FuncEntry.EntryOffset), plus the static data pools and
// lookup tables spec.md §3 names.
//
// Grounded on funvibe-funxy/internal/vm.Chunk (instruction buffer +
// constant pool), generalized from "one Chunk per function" to "one
// shared instruction stream per Unit" because spec.md's Call
// instruction addresses callees by absolute EntryOffset into a single
// stream rather than by a per-function chunk reference — the shape
// original_source/crates/runestick uses (one linear "rune" of bytecode
// per compiled program).
type Unit struct {
	Instructions []Instr

	Strings    []string   // static string pool, index -> string
	ObjectKeys [][]string // static object-key pool, index -> ordered key vector

	Functions         map[hash.ID]FuncEntry // free functions, keyed by item-path hash
	InstanceFunctions map[hash.ID]int       // instance methods, keyed by name-hash -> entry offset
	Imports           map[string]string     // local name -> fully-qualified item path
}

// NewUnit returns an empty, still-being-built Unit.
func NewUnit() *Unit {
	return &Unit{
		Functions:         make(map[hash.ID]FuncEntry),
		InstanceFunctions: make(map[hash.ID]int),
		Imports:           make(map[string]string),
	}
}

// Builder assembles one or more functions' linked instruction streams
// into a single Unit. The compiler creates one Builder per compiled
// file/module.
type Builder struct {
	unit *Unit
}

func NewBuilder() *Builder {
	return &Builder{unit: NewUnit()}
}

// AddString interns s into the static string pool, returning its slot
// (reusing an existing slot if s was already interned, so two literal
// occurrences of the same string share the one immutable copy spec.md
// §3 describes).
func (b *Builder) AddString(s string) int {
	for i, existing := range b.unit.Strings {
		if existing == s {
			return i
		}
	}
	b.unit.Strings = append(b.unit.Strings, s)
	return len(b.unit.Strings) - 1
}

// AddObjectKeys appends an ordered key vector for an object literal to
// the pool and returns its slot. Unlike AddString it does not reuse an
// existing entry: identical key vectors get separate slots.
func (b *Builder) AddObjectKeys(keys []string) int {
	b.unit.ObjectKeys = append(b.unit.ObjectKeys, keys)
	return len(b.unit.ObjectKeys) - 1
}

// DefineFunction links asm and appends its instructions to the shared
// stream, registering it under h. Returns a LinkError (wrapping the
// Assembly's own Link failure, or a duplicate-function conflict)
// without mutating the Unit on failure.
func (b *Builder) DefineFunction(h hash.ID, name string, argCount int, asm *Assembly, generator, async bool) error {
	if _, exists := b.unit.Functions[h]; exists {
		return &LinkError{Kind: LinkErrDuplicateFunction, Name: name}
	}
	instrs, err := asm.Link()
	if err != nil {
		return err
	}
	entry := len(b.unit.Instructions)
	b.unit.Instructions = append(b.unit.Instructions, instrs...)
	b.unit.Functions[h] = FuncEntry{
		EntryOffset: entry,
		ArgCount:    argCount,
		Name:        name,
		IsGenerator: generator,
		IsAsync:     async,
	}
	return nil
}

// DefineInstanceFunction registers nameHash as an instance method whose
// body was already linked by an earlier DefineFunction call under
// funcHash (instance methods share the free-function table's entry;
// this table only adds the name-based lookup spec.md §3 requires).
func (b *Builder) DefineInstanceFunction(nameHash hash.ID, funcHash hash.ID) error {
	fn, ok := b.unit.Functions[funcHash]
	if !ok {
		return &LinkError{Kind: LinkErrUnknownImport, Name: funcHash.String()}
	}
	b.unit.InstanceFunctions[nameHash] = fn.EntryOffset
	return nil
}

// AddImport records that localName resolves to fullPath within the
// compiled unit.
func (b *Builder) AddImport(localName, fullPath string) {
	b.unit.Imports[localName] = fullPath
}

// Build finalizes and returns the assembled Unit.
func (b *Builder) Build() *Unit {
	return b.unit
}
