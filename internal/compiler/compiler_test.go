package compiler_test

import (
	"testing"

	"github.com/loom-lang/loom/internal/bytecode"
	"github.com/loom-lang/loom/internal/compiler"
	"github.com/loom-lang/loom/internal/hash"
	"github.com/loom-lang/loom/internal/parser"
)

func compileSrc(t *testing.T, src string) (*bytecode.Unit, map[hash.ID]compiler.CompileMeta) {
	t.Helper()
	file, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	unit, meta, err := compiler.CompileFile(file)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return unit, meta
}

func TestEmptyFunctionBodyLowersToBareReturnUnit(t *testing.T) {
	unit, _ := compileSrc(t, `fn main() {}`)
	entry, ok := unit.Functions[hash.Path("main")]
	if !ok {
		t.Fatal("main not registered in function table")
	}
	instrs := unit.Instructions[entry.EntryOffset:]
	if len(instrs) != 1 || instrs[0].Op != bytecode.OpReturnUnit {
		t.Fatalf("got %v, want exactly [OpReturnUnit]", instrs)
	}
}

func TestBreakOutsideLoopIsCompileError(t *testing.T) {
	file, err := parser.Parse(`fn main() { break; }`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, _, err = compiler.CompileFile(file)
	if err == nil {
		t.Fatal("expected a compile error for break outside a loop")
	}
	ce, ok := err.(*compiler.Error)
	if !ok || ce.Kind != compiler.ErrBreakOutsideOfLoop {
		t.Fatalf("got %v, want ErrBreakOutsideOfLoop", err)
	}
}

func TestFunctionArgCountIsRecorded(t *testing.T) {
	unit, _ := compileSrc(t, `fn add(a, b) { a + b }`)
	entry, ok := unit.Functions[hash.Path("add")]
	if !ok {
		t.Fatal("add not registered in function table")
	}
	if entry.ArgCount != 2 {
		t.Fatalf("got ArgCount %d, want 2", entry.ArgCount)
	}
}

func TestAsyncFunctionFlagIsRecorded(t *testing.T) {
	unit, _ := compileSrc(t, `async fn fetch() { 1 }`)
	entry, ok := unit.Functions[hash.Path("fetch")]
	if !ok {
		t.Fatal("fetch not registered in function table")
	}
	if !entry.IsAsync {
		t.Fatal("expected IsAsync to be true for an async fn")
	}
}
