package script

import (
	"context"
	"testing"

	"github.com/loom-lang/loom/internal/value"
)

// The six scenarios below are the literal end-to-end inputs/outputs
// this language's design commits to: given the right surface syntax,
// every layer — lexer, parser, compiler, VM — has to agree on what
// `1 + 2 * 3` or a captured closure or a compound async call means.

func TestArithmeticPrecedence(t *testing.T) {
	s, err := Compile(`fn main() { 1 + 2 * 3 }`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	result, err := New(s, nil).Call(context.Background(), "main")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result != 7 {
		t.Fatalf("got %v, want 7", result)
	}
}

func TestClosureCapturesByCopy(t *testing.T) {
	s, err := Compile(`fn main() { let a = 4; let f = || a + 1; f() }`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	result, err := New(s, nil).Call(context.Background(), "main")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result != 5 {
		t.Fatalf("got %v, want 5", result)
	}
}

func TestTupleFieldArithmetic(t *testing.T) {
	s, err := Compile(`fn calc(x) { (x.0 + 1, x.1 + 2) }`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v := New(s, nil)
	slot := v.Heap().Allocate(&value.Tuple{Elems: []value.Value{value.Integer(1), value.Integer(2)}})
	arg := value.Managed(slot)

	result, err := v.Call(context.Background(), "calc", arg)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	tup, ok := result.([]interface{})
	if !ok || len(tup) != 2 {
		t.Fatalf("got %#v, want a 2-element tuple", result)
	}
	if tup[0] != 2 || tup[1] != 4 {
		t.Fatalf("got %v, want (2, 4)", tup)
	}
}

func TestObjectIndexSet(t *testing.T) {
	s, err := Compile(`fn calc(o) { o["Hello"] = "World"; o }`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v := New(s, nil)
	result, err := v.Call(context.Background(), "calc", map[string]interface{}{"Hello": 42})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	obj, ok := result.(map[string]interface{})
	if !ok {
		t.Fatalf("got %#v, want an object", result)
	}
	if obj["Hello"] != "World" {
		t.Fatalf("got %v, want Hello=World", obj)
	}
}

func TestWhileLoopSum(t *testing.T) {
	s, err := Compile(`fn main() {
		let s = 0;
		let i = 0;
		while i < 10 {
			s = s + i;
			i = i + 1;
		}
		s
	}`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	result, err := New(s, nil).Call(context.Background(), "main")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result != 45 {
		t.Fatalf("got %v, want 45", result)
	}
}

func TestAsyncClosureRoundTrip(t *testing.T) {
	s, err := Compile(`
		async fn foo(cb) { cb(1).await }
		async fn main() { let v = 12; foo(async |n| n + v).await }
	`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	result, err := New(s, nil).Call(context.Background(), "main")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result != 13 {
		t.Fatalf("got %v, want 13", result)
	}
}
