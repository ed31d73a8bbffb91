// Yaprak CLI - the main entry point for running Yaprak programs
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/muesli/termenv"
	"github.com/tliron/commonlog"

	"github.com/yaprak-lang/yaprak/compiler"
	"github.com/yaprak-lang/yaprak/manifest"
	"github.com/yaprak-lang/yaprak/server"
	"github.com/yaprak-lang/yaprak/vm"

	_ "github.com/tliron/commonlog/simple"
)

// ImageExt is the conventional extension of compiled images.
const ImageExt = ".ypi"

type config struct {
	compileOut  string
	disassemble bool
	interactive bool
	lsp         bool
	profile     bool
	verbose     bool
	target      string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("yaprak", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var cfg config
	flags.StringVar(&cfg.compileOut, "c", "", "Compile to an image file instead of running")
	flags.BoolVar(&cfg.disassemble, "d", false, "Print the disassembly instead of running")
	flags.BoolVar(&cfg.interactive, "i", false, "Start interactive REPL")
	flags.BoolVar(&cfg.lsp, "lsp", false, "Run the language server on stdio")
	flags.BoolVar(&cfg.profile, "p", false, "Print a call profile to stderr after the run")
	flags.BoolVar(&cfg.verbose, "v", false, "Verbose logging")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: yaprak [options] [script.yap | image%s]\n\n", ImageExt)
		fmt.Fprintf(stderr, "Runs a Yaprak script or compiled image. Without a file the entry of\n")
		fmt.Fprintf(stderr, "the nearest %s is run, or the REPL starts.\n\n", manifest.FileName)
		fmt.Fprintf(stderr, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  yaprak ana.yap               # Run a script\n")
		fmt.Fprintf(stderr, "  yaprak -c ana%s ana.yap    # Compile to an image\n", ImageExt)
		fmt.Fprintf(stderr, "  yaprak ana%s               # Run an image\n", ImageExt)
		fmt.Fprintf(stderr, "  yaprak -d ana.yap            # Show bytecode\n")
		fmt.Fprintf(stderr, "  yaprak -i                    # Start REPL\n")
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() > 1 {
		flags.Usage()
		return 2
	}
	cfg.target = flags.Arg(0)

	errOut := termenv.NewOutput(stderr)

	m, err := loadManifest(cfg.target)
	if err != nil {
		printError(errOut, err)
		return 1
	}
	configureLogging(m, cfg.verbose)

	searchPaths, err := m.SearchPaths()
	if err != nil {
		printError(errOut, err)
		return 1
	}
	reg := vm.NewRegistry()

	if cfg.lsp {
		if err := server.NewLSP(reg, searchPaths).Run(); err != nil {
			printError(errOut, err)
			return 1
		}
		return 0
	}

	var profiler *vm.Profiler
	if cfg.profile {
		profiler = vm.NewProfiler()
	}
	newVM := func() *vm.VM {
		machine := vm.New(vm.Options{
			MaxCallDepth: m.Runtime.MaxCallDepth,
			Stdout:       stdout,
			Stdin:        stdin,
			Profiler:     profiler,
		})
		machine.Registry = reg
		return machine
	}

	if cfg.target == "" && !cfg.interactive {
		if _, err := os.Stat(m.EntryPath()); err == nil {
			cfg.target = m.EntryPath()
		} else {
			cfg.interactive = true
		}
	}

	if cfg.interactive {
		r := &repl{
			in:      stdin,
			out:     stdout,
			errOut:  errOut,
			vm:      newVM(),
			options: compiler.Options{Registry: reg, SearchPaths: searchPaths},
		}
		r.run()
		if profiler != nil {
			writeProfile(stderr, profiler.Report())
		}
		return 0
	}

	prog, err := load(cfg.target, reg, searchPaths, errOut)
	if err != nil {
		printError(errOut, err)
		return 1
	}
	defer prog.Release()

	if cfg.disassemble || cfg.compileOut != "" {
		if cfg.disassemble {
			fmt.Fprint(stdout, prog.Disassemble())
		}
		if cfg.compileOut != "" {
			if err := writeImage(cfg.compileOut, prog); err != nil {
				printError(errOut, err)
				return 1
			}
		}
		return 0
	}

	res, err := newVM().Run(prog)
	vm.Release(res)
	if profiler != nil {
		writeProfile(stderr, profiler.Report())
	}
	if err != nil {
		printError(errOut, err)
		return 1
	}
	return 0
}

// loadManifest finds the yaprak.toml governing target (or the working
// directory), falling back to defaults.
func loadManifest(target string) (*manifest.Manifest, error) {
	start := "."
	if target != "" {
		start = filepath.Dir(target)
	}
	m, err := manifest.FindAndLoad(start)
	if err != nil {
		return nil, err
	}
	if m == nil {
		dir, err := filepath.Abs(start)
		if err != nil {
			return nil, err
		}
		m = manifest.Default(dir)
	}
	return m, nil
}

func configureLogging(m *manifest.Manifest, verbose bool) {
	verbosity := m.Verbosity()
	if verbose {
		verbosity = max(verbosity, 1)
	}
	commonlog.Configure(verbosity, m.LogPath())
}

// load reads a script or an image. Semantic warnings of scripts go to
// errOut.
func load(path string, reg *vm.Registry, searchPaths []string, errOut *termenv.Output) (*vm.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if vm.IsImage(data) {
		return vm.ReadImage(bytes.NewReader(data), reg)
	}

	source := string(data)
	file, err := compiler.ParseSource(source, path)
	if err != nil {
		return nil, err
	}
	for _, w := range compiler.Analyze(file) {
		printWarning(errOut, path, w)
	}
	prog, err := compiler.Compile(file, compiler.Options{Registry: reg, SearchPaths: searchPaths})
	if err != nil {
		return nil, err
	}
	prog.Source = source
	return prog, nil
}

func writeImage(path string, prog *vm.Program) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := vm.WriteImage(f, prog); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printError(out *termenv.Output, err error) {
	label := out.String("error:").Foreground(out.Color("1")).Bold()
	fmt.Fprintf(out, "%s %v\n", label, err)
}

func printWarning(out *termenv.Output, path string, w *compiler.Warning) {
	label := out.String("warning:").Foreground(out.Color("3")).Bold()
	fmt.Fprintf(out, "%s %s:%d:%d: %s\n", label, path, w.Pos.Line, w.Pos.Column, w.Message)
}
