// Package bytecode implements the Unit/Assembly artifact: an ordered,
// label-resolved instruction stream plus the static-data pool and
// function tables the compiler emits into and the VM executes. It is
// grounded on funvibe-funxy/internal/vm's Chunk+Opcode split
// (chunk.go, opcodes.go), generalized from that language's byte-coded
// operand encoding to the spec's tagged-instruction model (closer to
// original_source/crates/runestick/src/inst.rs's `Inst` enum, which
// this opcode set mirrors one-for-one under Go-idiomatic names).
package bytecode

// Op identifies a single VM instruction. Unlike the teacher's Chunk,
// which packs opcodes and raw operand bytes into one []byte stream,
// instructions here are tagged Go values (see Inst in instr.go): this
// spec's operands are heterogeneous (hashes, slots, signed offsets,
// literal values) and a byte-oriented encoding would just reimplement
// a second, shakier type system on top of Go's.
type Op uint8

const (
	// Stack manipulation
	OpPush Op = iota // push a literal InstValue
	OpPop            // discard top
	OpPopN           // discard N values
	OpClean          // keep top, pop N beneath it
	OpDup            // duplicate top
	OpCopy           // push a clone of stack[base+offset]
	OpMove           // push stack[base+offset], replace it with Unit
	OpReplace        // pop top, store at stack[base+offset]
	OpDrop           // write Unit into stack[base+offset]

	// Arithmetic / bitwise / string-vec operators, dispatched by InstOp
	OpOp // binary operator: pop b, pop a, push op(a, b)
	OpNeg
	OpNot
	OpBNot

	// Comparison / equality fast paths
	OpEq
	OpNe
	OpIs // type-identity test against a Type operand

	// Scalar equality fast paths (original_source inst.rs EqByte/EqCharacter/EqInteger/EqStaticString)
	OpEqByte
	OpEqChar
	OpEqInteger
	OpEqStaticString
	OpIsUnit
	OpIsValue

	// Literals / constants
	OpString // push interned string from the static pool

	// Aggregates
	OpVec
	OpTuple
	OpObject // args on stack in key-vector order; slot points at the static key vector

	// Field / index access
	OpTupleIndexGet
	OpTupleIndexSet
	OpObjectIndexGet
	OpIndexGet
	OpIndexSet
	OpAssign // compound assign to a Target with an InstAssignOp

	// Calls
	OpCall
	OpCallInstance
	OpCallFn
	OpLoadFn
	OpClosure

	// Control flow
	OpJump
	OpJumpIf
	OpJumpIfNot
	OpJumpIfOrPop
	OpJumpIfNotOrPop
	OpPopAndJumpIfNot
	OpJumpIfBranch

	// Pattern matching
	OpMatchSequence
	OpMatchObject
	OpUnwrap

	// Function return
	OpReturn
	OpReturnUnit

	// Async / generators
	OpAwait
	OpSelect
	OpYield
	OpYieldUnit
	OpPushTuple // unpack a captured-environment tuple into the locals right after the parameters (argCount..argCount+count-1), not into the leading slots

	// Misc
	OpPanic
)

var opNames = [...]string{
	OpPush: "push", OpPop: "pop", OpPopN: "pop-n", OpClean: "clean", OpDup: "dup",
	OpCopy: "copy", OpMove: "move", OpReplace: "replace", OpDrop: "drop",
	OpOp: "op", OpNeg: "neg", OpNot: "not", OpBNot: "bnot",
	OpEq: "eq", OpNe: "ne", OpIs: "is",
	OpEqByte: "eq-byte", OpEqChar: "eq-char", OpEqInteger: "eq-integer", OpEqStaticString: "eq-static-string",
	OpIsUnit: "is-unit", OpIsValue: "is-value",
	OpString: "string",
	OpVec:    "vec", OpTuple: "tuple", OpObject: "object",
	OpTupleIndexGet: "tuple-index-get", OpTupleIndexSet: "tuple-index-set",
	OpObjectIndexGet: "object-index-get", OpIndexGet: "index-get", OpIndexSet: "index-set",
	OpAssign:        "assign",
	OpCall:          "call", OpCallInstance: "call-instance", OpCallFn: "call-fn", OpLoadFn: "load-fn", OpClosure: "closure",
	OpJump:          "jump", OpJumpIf: "jump-if", OpJumpIfNot: "jump-if-not",
	OpJumpIfOrPop: "jump-if-or-pop", OpJumpIfNotOrPop: "jump-if-not-or-pop",
	OpPopAndJumpIfNot: "pop-and-jump-if-not", OpJumpIfBranch: "jump-if-branch",
	OpMatchSequence: "match-sequence", OpMatchObject: "match-object", OpUnwrap: "unwrap",
	OpReturn: "return", OpReturnUnit: "return-unit",
	OpAwait: "await", OpSelect: "select", OpYield: "yield", OpYieldUnit: "yield-unit", OpPushTuple: "push-tuple",
	OpPanic: "panic",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "unknown"
}

// BinOp identifies the arithmetic/bitwise/comparison operator an OpOp
// instruction performs (original_source inst.rs InstOp, spec.md §4.4
// "Op{op}... runtime type dispatch").
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinBitAnd
	BinBitXor
	BinBitOr
	BinShl
	BinShr
	BinLt
	BinGt
	BinLte
	BinGte
	BinConcat // ++ on strings/vecs
	BinCons   // :: prepend onto a vec
)

// AssignOp identifies the operator an OpAssign (compound assignment)
// instruction performs; Set is `=`, the rest are the `+=`-style family
// (original_source inst.rs InstAssignOp).
type AssignOp uint8

const (
	AssignSet AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignRem
	AssignBitAnd
	AssignBitXor
	AssignBitOr
	AssignShl
	AssignShr
)

// Target identifies what an OpAssign/OpIndexSet-adjacent instruction
// writes to (original_source inst.rs InstTarget).
type TargetKind uint8

const (
	TargetOffset TargetKind = iota // a local slot
	TargetField                    // an object field (static key slot)
	TargetTupleField               // a tuple field (index)
)

type Target struct {
	Kind  TargetKind
	Value int // slot offset, or static key slot, or tuple index
}

// SeqKind identifies what shape OpMatchSequence checks for.
type SeqKind uint8

const (
	SeqTuple SeqKind = iota
	SeqVec
	SeqOptionSome
	SeqOptionNone
	SeqResultOk
	SeqResultErr
	SeqGeneratorState
	SeqType
	SeqVariant
)
