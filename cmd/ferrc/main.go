package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/ferrite-lang/ferrc/pkg/cli"
	"github.com/ferrite-lang/ferrc/pkg/compiler"
	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/ir"
	"github.com/ferrite-lang/ferrc/pkg/util"
	"github.com/goforj/godump"
)

func main() {
	app := cli.NewApp("ferrc")
	app.Synopsis = "[options] <input.fe>"
	app.Description = "A compiler for the Ferrite language. Emits x86-64 assembly for the GNU assembler."

	var (
		outFile string
		target  string
		dumpIR  bool
		dumpAST bool
		verbose bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the assembly into <file> (default: input with .s).", "file")
	fs.String(&target, "target", "t", "", "Set the target ABI (only amd64_sysv is supported).", "target")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Dump the intermediate representation and exit.")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Dump the syntax tree and exit.")
	fs.Bool(&verbose, "verbose", "v", false, "Print progress information.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		cfg.Verbose = verbose
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			fmt.Fprintf(os.Stderr, "ferrc: error: %v\n", err)
			return err
		}
		if cfg.CrossCompiling() {
			util.Info(os.Stderr, cfg.Verbose, "host target is %s; emitting %s", cfg.HostTarget, cfg.Target)
		}
		if len(inputFiles) != 1 {
			err := errors.New("expected exactly one input file")
			fmt.Fprintf(os.Stderr, "ferrc: error: %v\n", err)
			return err
		}
		return compileFile(cfg, inputFiles[0], outFile, dumpIR, dumpAST)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func compileFile(cfg *config.Config, path, outFile string, dumpIR, dumpAST bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ferrc: error: could not read file '%s': %v\n", path, err)
		return err
	}
	file := util.SourceFile{Name: path, Content: string(content)}
	util.Info(os.Stderr, cfg.Verbose, "compiling %s (%s, xxhash %016x) for %s", path,
		humanize.Bytes(uint64(len(content))), xxhash.Sum64(content), cfg.Target)

	res, err := compiler.CompileWithProgress(file.Content, cfg, func(stage util.Stage) {
		util.Info(os.Stderr, cfg.Verbose, "%s stage done", stage)
	})

	reporter := util.NewReporter(os.Stderr, file)
	for _, w := range res.Warnings {
		reporter.Warn(w)
	}
	if dumpAST && res.AST != nil {
		godump.Dump(res.AST)
		if err == nil {
			return nil
		}
	}
	if err != nil {
		reporter.Error(err)
		return err
	}
	if dumpIR {
		fmt.Print(ir.Dump(res.IR))
		return nil
	}

	if outFile == "" {
		outFile = strings.TrimSuffix(path, filepath.Ext(path)) + ".s"
	}
	if err := os.WriteFile(outFile, []byte(res.Asm), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "ferrc: error: could not write '%s': %v\n", outFile, err)
		return err
	}
	util.Info(os.Stderr, cfg.Verbose, "wrote %s (%s, %d functions, %d literals)", outFile,
		humanize.Bytes(uint64(len(res.Asm))), len(res.IR.Functions), len(res.IR.Globals))
	return nil
}
