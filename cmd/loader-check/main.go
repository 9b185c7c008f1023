// cmd/loader-check/main.go
//
// Headless batch loader for scripts and CI: loads the config's preload list
// plus any names given on the command line, printing one line per name and
// exiting nonzero if anything failed.

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mossline/goload/autoload"
	"github.com/mossline/goload/internal/config"
	"github.com/mossline/goload/internal/runtime"
)

func main() {
	projectDir := flag.String("project", "", "path to the project directory (defaults to cwd)")
	verbose := flag.Bool("v", false, "print every probed path for failures")
	flag.Parse()

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		die("resolve project dir: %v", err)
	}
	cfg, err := config.New(absoluteProject)
	if err != nil {
		die("load config: %v", err)
	}

	host := runtime.New()
	loader := autoload.New(host)
	if err := cfg.Apply(loader); err != nil {
		die("apply config: %v", err)
	}
	// Checks are pointless if failures are swallowed.
	if loader.Mode() == autoload.ModeSilent {
		loader.SetMode(autoload.ModeNormal)
	}

	names := append(cfg.Preload(), flag.Args()...)
	if len(names) == 0 {
		die("nothing to check: no preload entries and no names given")
	}

	failures := 0
	for _, name := range names {
		if err := loader.Load(name); err != nil {
			failures++
			reportFailure(name, err, *verbose)
			continue
		}
		fmt.Printf("ok   %s\n", name)
	}
	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d names failed\n", failures, len(names))
		os.Exit(1)
	}
}

func reportFailure(name string, err error, verbose bool) {
	var loadErr *autoload.Error
	if verbose || !errors.As(err, &loadErr) {
		fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", name, err)
		return
	}
	// Compact form: discriminant only, the full tried list stays behind -v.
	fmt.Fprintf(os.Stderr, "FAIL %s: %s\n", name, loadErr.Kind)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
