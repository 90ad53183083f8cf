package bytecode

import "github.com/loom-lang/loom/internal/hash"

// Span locates a range in source text, carried on every instruction so
// compile and VM errors can be converted to line/column by the host
// (spec.md §6 "Diagnostics").
type Span struct {
	Start, End int // byte offsets into the source buffer
	Line, Col  int // 1-based; filled in by the lexer
}

// LitKind identifies the kind of literal an OpPush instruction carries.
type LitKind uint8

const (
	LitUnit LitKind = iota
	LitBool
	LitByte
	LitChar
	LitInteger
	LitFloat
	LitType
)

// Lit is the literal payload of an OpPush instruction (original_source
// inst.rs InstValue).
type Lit struct {
	Kind    LitKind
	Bool    bool
	Byte    uint8
	Char    rune
	Integer int64
	Float   float64
	Type    hash.ID
}

// Instr is one tagged bytecode instruction. Every operand a given Op
// needs lives in one of these fields; unused fields are the zero value.
// Label references (Jump*) are resolved to signed Offset values by
// Assembly.Link before a Unit is considered buildable.
type Instr struct {
	Op   Op
	Span Span

	// Generic small-integer operands, meaning depends on Op:
	//   OpPopN/OpClean:        A = count
	//   OpCopy/OpMove/OpReplace/OpDrop: A = frame-relative offset
	//   OpCall/OpCallInstance: A = arg count
	//   OpCallFn:              A = arg count
	//   OpClosure:             A is not read; the captures arrive already
	//                          packed into one Tuple (built by a preceding
	//                          OpTuple), which OpClosure pops as one value
	//   OpVec/OpTuple:         A = element count
	//   OpTupleIndexGet/Set:   A = tuple index
	//   OpPopAndJumpIfNot:     A = pop count
	//   OpSelect:              A = number of futures
	//   OpPushTuple:           A = expected element count
	A int

	Offset int // resolved signed jump offset (relative to this instr's successor)

	Lit Lit // OpPush operand

	Hash hash.ID // OpCall/OpCallInstance/OpClosure/OpIs/OpLoadFn operand (OpCallFn takes its callee from the stack)

	StringSlot int // OpString: index into Unit.Strings
	KeysSlot   int // OpObject/OpMatchObject: index into Unit.ObjectKeys

	BinOp    BinOp
	AssignOp AssignOp
	Target   Target

	Seq struct {
		Kind  SeqKind
		Len   int
		Exact bool
	}

	Branch int // OpJumpIfBranch operand: branch register value to match
}
