package compiler

// CompileMeta describes one compiled function beyond what
// bytecode.FuncEntry already carries: the free variables a closure or
// async block captured, in the order they are copied into its
// environment tuple (spec.md §4.3 "Closures"). Move is never set by
// the compiler: every capture is emitted as an OpCopy, whether or not
// the source wrote `move`. The VM does not read CompileMeta.
type CompileMeta struct {
	Kind      MetaKind
	Captures  []string
	Move      bool
	Generator bool
	Async     bool
}

type MetaKind uint8

const (
	MetaPlainFn MetaKind = iota
	MetaClosure
	MetaAsyncBlock
)
