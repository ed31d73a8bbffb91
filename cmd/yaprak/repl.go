package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/yaprak-lang/yaprak/compiler"
	"github.com/yaprak-lang/yaprak/vm"
)

// repl is an interactive read-eval-print loop. Every entry is compiled as
// a fresh program; function definitions and `yükle` statements of earlier
// entries are kept and prepended, variables are not.
type repl struct {
	in      io.Reader
	out     io.Writer
	errOut  *termenv.Output
	vm      *vm.VM
	options compiler.Options

	defs     strings.Builder
	defLines int
}

func (r *repl) run() {
	fmt.Fprintln(r.out, "Yaprak REPL (type 'çık' to quit, ':yardım' for commands)")

	scanner := bufio.NewScanner(r.in)
	var buf strings.Builder

	for {
		// Show prompt
		if buf.Len() == 0 {
			fmt.Fprint(r.out, ">> ")
		} else {
			fmt.Fprint(r.out, ".. ")
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if buf.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "çık" || trimmed == "exit" {
				break
			}
			if strings.HasPrefix(trimmed, ":") {
				r.command(trimmed)
				continue
			}
			if trimmed == "" {
				continue
			}
		}

		// A line ending in ':' opens a block that a blank line closes.
		if line == "" || (buf.Len() == 0 && !strings.HasSuffix(strings.TrimSpace(line), ":")) {
			if line != "" {
				buf.WriteString(line)
			}
			r.eval(buf.String())
			buf.Reset()
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if buf.Len() > 0 {
		r.eval(buf.String())
	}
	fmt.Fprintln(r.out)
}

func (r *repl) command(cmd string) {
	switch cmd {
	case ":yardım", ":help", ":h":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :yardım         Show this help")
		fmt.Fprintln(r.out, "  :tanımlar       Show kept definitions")
		fmt.Fprintln(r.out, "  :temizle        Forget kept definitions")
		fmt.Fprintln(r.out, "  çık             Exit REPL")
	case ":tanımlar":
		fmt.Fprint(r.out, r.defs.String())
	case ":temizle":
		r.defs.Reset()
		r.defLines = 0
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type :yardım for commands)\n", cmd)
	}
}

// eval compiles and runs one entry after the kept definitions and prints a
// non-empty result.
func (r *repl) eval(entry string) {
	entry = strings.TrimRight(entry, "\n")
	if strings.TrimSpace(entry) == "" {
		return
	}

	file, err := compiler.ParseSource(r.defs.String()+entry+"\n", "")
	if err != nil {
		r.report(err)
		return
	}
	prog, err := compiler.Compile(file, r.options)
	if err != nil {
		r.report(err)
		return
	}
	defer prog.Release()

	res, err := r.vm.Run(prog)
	defer vm.Release(res)
	if err != nil {
		r.report(err)
		return
	}
	if res != vm.Empty {
		fmt.Fprintln(r.out, res.String())
	}
	r.keepDefinitions(file, entry)
}

// keepDefinitions stores the source of the entry's top-level function
// definitions and loads.
func (r *repl) keepDefinitions(file *compiler.File, entry string) {
	base := len(r.defs.String())
	stmts := file.Body.Statements
	for i, stmt := range stmts {
		switch stmt.(type) {
		case *compiler.FunctionDefinition, *compiler.Load:
		default:
			continue
		}
		start := stmt.Pos().Offset - base
		if start < 0 {
			continue
		}
		end := len(entry)
		if i+1 < len(stmts) {
			end = stmts[i+1].Pos().Offset - base
		}
		text := strings.TrimRight(entry[start:end], "\n") + "\n"
		r.defs.WriteString(text)
		r.defLines += strings.Count(text, "\n")
	}
}

// report prints err with line numbers relative to the entry.
func (r *repl) report(err error) {
	var cerr *compiler.Error
	var rerr *vm.RuntimeError
	switch {
	case errors.As(err, &cerr) && cerr.Pos.Line > r.defLines:
		cerr.Pos.Line -= r.defLines
	case errors.As(err, &rerr) && rerr.Line > r.defLines:
		rerr.Line -= r.defLines
	}
	printError(r.errOut, err)
}
