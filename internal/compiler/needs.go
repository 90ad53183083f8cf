package compiler

// Needs tells an expression-lowering call whether its caller will
// consume a value left on the stack (Value) or whether the expression
// is compiled purely for its side effects and must leave the stack
// exactly as it found it (None) — spec.md §4.3's central lowering
// discipline. Every compile* function that can produce a value takes a
// Needs and is responsible for the corresponding stack effect itself;
// callers never insert their own corrective Pop.
type Needs bool

const (
	NeedsNone  Needs = false
	NeedsValue Needs = true
)
