// Command script is the scripting language's command-line front end:
// run a source file, list its compiled instructions, or just check it
// compiles. Subcommand dispatch mirrors funvibe-funxy's cmd/funxy +
// pkg/cli/entry.go shape (argv[1] picks the verb), but each verb's own
// flags go through the standard library flag package rather than the
// teacher's hand-rolled os.Args[i] scanning loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/loom-lang/loom/pkg/script"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "disasm":
		err = disasmCmd(os.Args[2:])
	case "compile":
		err = compileCmd(os.Args[2:])
	case "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "script: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, colorize(err.Error(), 31))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  script run [-manifest file] <file> [args...]   compile and run a source file, calling its "main"
  script disasm <file>                           print the compiled instruction listing
  script compile <file>                          compile only, reporting errors
`)
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	manifestPath := fs.String("manifest", "", "YAML manifest listing host modules to register before running")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("run: expected a source file")
	}

	s, err := script.CompileFile(rest[0])
	if err != nil {
		return err
	}

	ctx := script.NewContext()
	if *manifestPath != "" {
		ctx, err = script.LoadManifest(*manifestPath, builtinRegistry)
		if err != nil {
			return err
		}
	}

	callArgs := make([]interface{}, len(rest)-1)
	for i, a := range rest[1:] {
		callArgs[i] = a
	}
	v := script.New(s, ctx)
	result, err := v.Call(context.Background(), "main", callArgs...)
	if err != nil {
		return err
	}
	if result != nil {
		fmt.Println(result)
	}
	return nil
}

func disasmCmd(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("disasm: expected a source file")
	}
	s, err := script.CompileFile(rest[0])
	if err != nil {
		return err
	}
	return s.Disassemble(os.Stdout)
}

func compileCmd(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("compile: expected a source file")
	}
	if _, err := script.CompileFile(rest[0]); err != nil {
		return err
	}
	fmt.Println(colorize("ok", 32))
	return nil
}

// builtinRegistry is empty by default: a real embedder registers its
// own ModuleConstructors here (or builds its own Registry) before a
// -manifest flag can name them. Kept as the wiring point the run
// subcommand needs to exercise script.LoadManifest at all.
var builtinRegistry = script.Registry{}

// colorize wraps s in an ANSI color code when stdout looks like a real
// terminal, the same isatty-gated check
// funvibe-funxy/internal/evaluator/builtins_term.go uses before
// emitting escape codes.
func colorize(s string, code int) string {
	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return s
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", code, s)
}
