// internal/config/config.go
//
// This package handles configuration and the .autoload directory structure.
// Every project that uses the autoloader gets a .autoload/ folder created in
// its root, holding the config file and logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mossline/goload/autoload"
	"gopkg.in/yaml.v3"
)

// AutoloadDir is the name of the directory we create in each project.
const AutoloadDir = ".autoload"

const defaultProjectConfigYAML = `# autoload project configuration
version: 1

# How symbolic names map to files. The separator splits namespace segments,
# the extension is appended to every computed path.
options:
  separator: "."
  extension: ".go"
  # Consult AUTOLOAD_PATH as a last resort when prefixes and fallbacks miss.
  global_search_path: false

# silent, normal, or debug. Normal reports missing files; debug reports
# every failure condition.
mode: normal

# Prefix entries are searched in order. Directories are relative to the
# project root unless absolute.
prefixes:
  - prefix: "App."
    dirs:
      - src

# Directories searched when no prefix matches.
fallbacks: []

# Direct name-to-file overrides, checked before any prefix logic.
map: {}

# Names loaded eagerly at startup by loader-check and the CLI.
preload: []
`

// PrefixRef declares one prefix entry inside .autoload/config.yaml. A list
// is used rather than a YAML map so search order survives parsing.
type PrefixRef struct {
	Prefix string   `yaml:"prefix"`
	Dirs   []string `yaml:"dirs"`
}

// OptionsConfig captures loader option overrides.
type OptionsConfig struct {
	Separator        string `yaml:"separator,omitempty"`
	Extension        string `yaml:"extension,omitempty"`
	GlobalSearchPath bool   `yaml:"global_search_path,omitempty"`
}

// ProjectConfig models .autoload/config.yaml.
type ProjectConfig struct {
	Version   int               `yaml:"version"`
	Options   OptionsConfig     `yaml:"options"`
	Mode      string            `yaml:"mode"`
	Prefixes  []PrefixRef       `yaml:"prefixes"`
	Fallbacks []string          `yaml:"fallbacks"`
	Map       map[string]string `yaml:"map"`
	Preload   []string          `yaml:"preload"`
}

// Config holds the runtime configuration for one project.
type Config struct {
	// ProjectDir is the directory the autoloader was started from.
	ProjectDir string

	// AutoloadProjectDir is ProjectDir/.autoload.
	AutoloadProjectDir string

	Project ProjectConfig
}

// InitDir creates the .autoload directory structure in the given project
// directory and seeds a commented default config file if none exists.
func InitDir(projectDir string) error {
	dir := filepath.Join(projectDir, AutoloadDir)
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(dir, "config.yaml"))
}

// New loads the project configuration, falling back to defaults when no
// config file exists yet.
func New(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:         projectDir,
		AutoloadProjectDir: filepath.Join(projectDir, AutoloadDir),
		Project:            defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.AutoloadProjectDir, "logs")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.AutoloadProjectDir, "config.yaml")
}

// Preload returns the names to load eagerly at startup.
func (c *Config) Preload() []string {
	return append([]string{}, c.Project.Preload...)
}

// Apply wires a loader from the project configuration: options, mode, prefix
// table, fallbacks, and the explicit map. Relative directories and mapped
// files are resolved against the project root.
func (c *Config) Apply(loader *autoload.Loader) error {
	mode, err := autoload.ParseMode(c.Project.Mode)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	loader.Configure(
		autoload.WithSeparator(c.Project.Options.Separator),
		autoload.WithExtension(c.Project.Options.Extension),
		autoload.WithGlobalSearchPath(c.Project.Options.GlobalSearchPath),
		autoload.WithMode(mode),
	)
	for _, ref := range c.Project.Prefixes {
		if strings.TrimSpace(ref.Prefix) == "" && len(ref.Dirs) > 0 {
			loader.AddFallback(c.resolveDirs(ref.Dirs)...)
			continue
		}
		loader.Add(ref.Prefix, c.resolveDirs(ref.Dirs)...)
	}
	loader.AddFallback(c.resolveDirs(c.Project.Fallbacks)...)
	if len(c.Project.Map) > 0 {
		entries := make(map[string]string, len(c.Project.Map))
		for name, path := range c.Project.Map {
			entries[name] = c.resolvePath(path)
		}
		loader.SetMap(entries)
	}
	return nil
}

func (c *Config) resolveDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, c.resolvePath(dir))
	}
	return out
}

func (c *Config) resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ProjectDir, path)
}

func (c *Config) loadProjectConfig() error {
	data, err := os.ReadFile(c.ProjectConfigPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", c.ProjectConfigPath(), err)
	}
	var project ProjectConfig
	if err := yaml.Unmarshal(data, &project); err != nil {
		return fmt.Errorf("config: parse %s: %w", c.ProjectConfigPath(), err)
	}
	if err := validateProjectConfig(project); err != nil {
		return err
	}
	c.Project = project
	return nil
}

func validateProjectConfig(project ProjectConfig) error {
	if _, err := autoload.ParseMode(project.Mode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for i, ref := range project.Prefixes {
		if len(ref.Dirs) == 0 {
			return fmt.Errorf("config: prefixes[%d] (%q) has no dirs", i, ref.Prefix)
		}
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	var project ProjectConfig
	// The default YAML is the single source of truth for defaults so the
	// seeded file and the in-memory fallback can never drift apart.
	if err := yaml.Unmarshal([]byte(defaultProjectConfigYAML), &project); err != nil {
		panic(fmt.Sprintf("config: default config is invalid: %v", err))
	}
	return project
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
