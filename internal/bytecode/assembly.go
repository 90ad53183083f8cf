package bytecode

import "fmt"

// Label is an abstract, named forward-declaration (spec.md §3, §4.2).
// It is opaque outside this package; callers only ever pass it back to
// the Assembly that produced it.
type Label struct {
	id int
}

// LinkError reports a label that was referenced but never committed, or
// committed more than once (a structural bug in the compiler), or a
// Builder-level conflict: a function hash defined twice, or an unknown
// import target (spec.md §7).
type LinkError struct {
	Kind   LinkErrorKind
	Name   string
	Span   Span
	Detail string
}

type LinkErrorKind uint8

const (
	LinkErrUnresolvedLabel LinkErrorKind = iota
	LinkErrDuplicateLabel
	LinkErrDuplicateFunction
	LinkErrUnknownImport
)

func (e *LinkError) Error() string {
	switch e.Kind {
	case LinkErrUnresolvedLabel:
		return fmt.Sprintf("label %q was never committed", e.Name)
	case LinkErrDuplicateLabel:
		return fmt.Sprintf("label %q committed more than once", e.Name)
	case LinkErrDuplicateFunction:
		return fmt.Sprintf("duplicate function %q", e.Name)
	case LinkErrUnknownImport:
		return fmt.Sprintf("unknown import target %q", e.Name)
	default:
		return e.Detail
	}
}

// jumpRef records that instruction index `at` needs its Offset field
// resolved to point at label `label` once it is committed.
type jumpRef struct {
	at    int
	label int
}

// Assembly is an append-only instruction buffer with a label table, one
// per compiled function (spec.md §4.2). It is produced by the compiler
// and consumed by Unit construction once Link succeeds.
//
// Grounded on funvibe-funxy/internal/vm's Chunk.WriteOp/emitJump/
// patchJump pattern (chunk.go, compiler_scope.go), generalized from
// "patch a forward jump once its target is known" (which only works for
// jumps that are patched at their *own* emission site) to named labels
// that may be referenced from many jump sites both before and after the
// label is committed (spec.md requires both directions to work).
type Assembly struct {
	Name  string
	instr []Instr

	labels    []int // label id -> committed index, or -1 if uncommitted
	names     []string
	pending   []jumpRef
}

// NewAssembly starts a fresh instruction buffer for one function named
// name (used in diagnostics and disassembly).
func NewAssembly(name string) *Assembly {
	return &Assembly{Name: name}
}

// Len returns the number of instructions emitted so far.
func (a *Assembly) Len() int { return len(a.instr) }

// NewLabel returns a fresh, uncommitted label.
func (a *Assembly) NewLabel(name string) Label {
	id := len(a.labels)
	a.labels = append(a.labels, -1)
	a.names = append(a.names, name)
	return Label{id: id}
}

// CommitLabel commits L to the current instruction index. Committing
// the same label twice, or a label this Assembly never created, is an
// internal compiler bug; CommitLabel returns it as a LinkError right
// away rather than panicking.
func (a *Assembly) CommitLabel(l Label) error {
	if l.id < 0 || l.id >= len(a.labels) {
		return &LinkError{Kind: LinkErrUnresolvedLabel, Name: "<invalid>"}
	}
	if a.labels[l.id] != -1 {
		return &LinkError{Kind: LinkErrDuplicateLabel, Name: a.names[l.id]}
	}
	a.labels[l.id] = len(a.instr)
	return nil
}

// Push appends an instruction carrying no label reference.
func (a *Assembly) Push(i Instr) int {
	idx := len(a.instr)
	a.instr = append(a.instr, i)
	return idx
}

// PushJump appends a jump-family instruction targeting label l. Its
// Offset field is filled in by Link.
func (a *Assembly) PushJump(i Instr, l Label) int {
	idx := a.Push(i)
	a.pending = append(a.pending, jumpRef{at: idx, label: l.id})
	return idx
}

// Link resolves every pending jump reference to a signed offset
// relative to the jump instruction's successor, and fails if any
// referenced label was never committed (spec.md §4.2).
func (a *Assembly) Link() ([]Instr, error) {
	for _, ref := range a.pending {
		target := a.labels[ref.label]
		if target == -1 {
			return nil, &LinkError{Kind: LinkErrUnresolvedLabel, Name: a.names[ref.label]}
		}
		a.instr[ref.at].Offset = target - (ref.at + 1)
	}
	return a.instr, nil
}
