// cmd/goload/main.go
//
// Entry point for the goload CLI.
//
// Flow:
// 1. Initialize the .autoload directory in the project
// 2. Build the yaegi host and an autoloader wired from .autoload/config.yaml
// 3. With name arguments, load each one and print the outcome
// 4. Without arguments, launch the interactive inspector TUI

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mossline/goload/autoload"
	"github.com/mossline/goload/internal/config"
	"github.com/mossline/goload/internal/logging"
	"github.com/mossline/goload/internal/runtime"
	"github.com/mossline/goload/internal/tui"
)

func main() {
	projectDir := flag.String("project", "", "path to the project directory (defaults to cwd)")
	mode := flag.String("mode", "", "override the configured mode (silent, normal, debug)")
	flag.Parse()

	project, err := resolveProject(*projectDir)
	if err != nil {
		die("resolve project dir: %v", err)
	}
	if err := config.InitDir(project); err != nil {
		die("init %s: %v", config.AutoloadDir, err)
	}
	cfg, err := config.New(project)
	if err != nil {
		die("load config: %v", err)
	}
	log, err := logging.New(project)
	if err != nil {
		die("open log: %v", err)
	}
	defer log.Close()

	host := runtime.New()
	loader := autoload.New(host, autoload.WithLogger(log))
	if err := cfg.Apply(loader); err != nil {
		die("apply config: %v", err)
	}
	if *mode != "" {
		parsed, err := autoload.ParseMode(*mode)
		if err != nil {
			die("%v", err)
		}
		loader.SetMode(parsed)
	}
	loader.Register(host, false)
	defer loader.Unregister()

	for _, name := range cfg.Preload() {
		if err := loader.Load(name); err != nil {
			die("preload %s: %v", name, err)
		}
	}

	if flag.NArg() > 0 {
		runNames(loader, flag.Args())
		return
	}

	p := tea.NewProgram(
		tui.NewApp(loader),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		die("run inspector: %v", err)
	}
}

// runNames loads each name in order and prints where it resolved.
func runNames(loader *autoload.Loader, names []string) {
	failed := false
	for _, name := range names {
		if err := loader.Load(name); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
			continue
		}
		switch path, ok := loader.Loaded()[name]; {
		case ok:
			fmt.Printf("%s ← %s\n", name, path)
		case loader.Declared(name):
			fmt.Printf("%s already declared\n", name)
		default:
			fmt.Printf("%s not loaded (swallowed by %s mode)\n", name, loader.Mode())
		}
	}
	if failed {
		os.Exit(1)
	}
}

func resolveProject(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return cwd, nil
	}
	return filepath.Abs(dir)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
