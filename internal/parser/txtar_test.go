package parser

import (
	"strings"
	"testing"

	"github.com/loom-lang/loom/internal/ast"
	"golang.org/x/tools/txtar"
)

// Golden fixtures for the surface-syntax constructs spec.md §4.3 lists,
// one source file per construct, bundled as a single txtar archive so
// adding a case means adding a "-- name --" section rather than a new
// Go file.
const validFixtures = `
-- fn.script --
fn add(a, b) { a + b }
-- async-fn.script --
async fn fetch(url) { url }
-- closure.script --
fn main() { let f = |x| x + 1; f(2) }
-- async-closure.script --
fn main() { let f = async |x| x + 1; f(2) }
-- control-flow.script --
fn main() {
	let i = 0;
	while i < 10 {
		if i == 5 {
			break;
		}
		i = i + 1;
	}
	for x in i {
		continue;
	}
	loop {
		break;
	}
}
-- literals.script --
fn main() { (1, 2.5, 'c', true, "s", [1, 2, 3]) }
-- tuple-index.script --
fn main(t) { t.0 + t.1 }
-- index-assign.script --
fn main(o) { o["k"] = 1; o }
-- yield.script --
fn gen() { yield 1; yield 2; }
`

// Sources that must fail to parse. Every case must return an error; for
// the bad-token case, an *Error must additionally carry a non-zero line.
const invalidFixtures = `
-- unterminated-paren.script --
fn main() { (1 + 2 }
-- missing-body.script --
fn main()
-- bad-token.script --
fn main() { 1 +* 2 }
`

func TestParseValidFixtures(t *testing.T) {
	archive := txtar.Parse([]byte(validFixtures))
	if len(archive.Files) == 0 {
		t.Fatal("fixture archive has no files")
	}
	for _, f := range archive.Files {
		f := f
		t.Run(f.Name, func(t *testing.T) {
			file, err := Parse(string(f.Data))
			if err != nil {
				t.Fatalf("Parse(%s): unexpected error: %v", f.Name, err)
			}
			if len(file.Items) == 0 {
				t.Fatalf("Parse(%s): expected at least one top-level item", f.Name)
			}
			if _, ok := file.Items[0].(*ast.FnItem); !ok {
				t.Fatalf("Parse(%s): expected first item to be a function, got %T", f.Name, file.Items[0])
			}
		})
	}
}

func TestParseInvalidFixtures(t *testing.T) {
	archive := txtar.Parse([]byte(invalidFixtures))
	for _, f := range archive.Files {
		f := f
		t.Run(f.Name, func(t *testing.T) {
			_, err := Parse(string(f.Data))
			if err == nil {
				t.Fatalf("Parse(%s): expected an error, got none", f.Name)
			}
			if !strings.Contains(f.Name, "bad-token") {
				return
			}
			if pe, ok := err.(*Error); ok && pe.Line == 0 {
				t.Fatalf("Parse(%s): expected a non-zero line in %v", f.Name, pe)
			}
		})
	}
}
