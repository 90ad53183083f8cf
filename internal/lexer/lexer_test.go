package lexer_test

import (
	"testing"

	"github.com/loom-lang/loom/internal/lexer"
	"github.com/loom-lang/loom/internal/token"
)

func lexAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := lexer.New(src)
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("lex %q: %v", src, err)
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestLexIdentifiersKeywordsAndOperators(t *testing.T) {
	toks := lexAll(t, `fn add(a, b) { a + b }`)
	want := []token.Kind{
		token.Fn, token.Ident, token.LParen, token.Ident, token.Comma, token.Ident,
		token.RParen, token.LBrace, token.Ident, token.Plus, token.Ident, token.RBrace,
		token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestLexIntegerLiteral(t *testing.T) {
	toks := lexAll(t, `42`)
	if len(toks) != 2 || toks[0].Kind != token.Int || toks[0].Text != "42" {
		t.Fatalf("got %v, want a single int token \"42\"", toks)
	}
}

func TestLexStringLiteralWithEscapes(t *testing.T) {
	toks := lexAll(t, `"a\nb"`)
	if len(toks) != 2 || toks[0].Kind != token.Str {
		t.Fatalf("got %v, want a single string token", toks)
	}
}

func TestLexCompoundAssignOperators(t *testing.T) {
	toks := lexAll(t, `+= -= *= /=`)
	want := []token.Kind{token.PlusEq, token.MinusEq, token.StarEq, token.SlashEq, token.EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestLexUnterminatedStringIsAnError(t *testing.T) {
	l := lexer.New(`"unterminated`)
	_, err := l.Next()
	if err == nil {
		t.Fatal("expected an error for an unterminated string literal")
	}
}
