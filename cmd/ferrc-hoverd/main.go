package main

import (
	"fmt"
	"net/http"
	"os"
	"runtime"

	"github.com/ferrite-lang/ferrc/pkg/cli"
	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/hover"
	"github.com/ferrite-lang/ferrc/pkg/util"
)

func main() {
	app := cli.NewApp("ferrc-hoverd")
	app.Synopsis = "[options]"
	app.Description = "Serves hover and diagnostic queries for Ferrite sources over a websocket."

	var (
		addr      string
		path      string
		cacheSize int
		verbose   bool
	)

	fs := app.FlagSet
	fs.String(&addr, "listen", "l", "127.0.0.1:7301", "Listen on <addr>.", "addr")
	fs.String(&path, "path", "p", "/hover", "Serve the websocket endpoint at <path>.", "path")
	fs.Int(&cacheSize, "cache-size", "c", 64, "Keep the results of the last <n> sources.", "n")
	fs.Bool(&verbose, "verbose", "v", false, "Log connections and diagnostics.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(args []string) error {
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, config.SupportedTarget); err != nil {
			return err
		}

		mux := http.NewServeMux()
		mux.Handle(path, hover.NewServer(hover.NewService(cfg, cacheSize), os.Stderr, verbose))
		util.Info(os.Stderr, verbose, "listening on ws://%s%s", addr, path)
		if err := http.ListenAndServe(addr, mux); err != nil {
			fmt.Fprintf(os.Stderr, "ferrc-hoverd: error: %v\n", err)
			return err
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
