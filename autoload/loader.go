// Package autoload resolves symbolic names to files and loads them through a
// host runtime on demand. Prefix tables map namespace prefixes to candidate
// directories, fallback directories catch everything else, and an explicit
// map short-circuits both for names with known locations.
package autoload

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Runtime is the host the loader drives. Load evaluates a file, making its
// declared symbols live; Declared reports whether a name is currently live
// without triggering any further resolution; SearchPath returns the host's
// global search path list.
type Runtime interface {
	Declared(name string) bool
	Load(path string) error
	SearchPath() string
}

// Host owns a chain of miss handlers consulted when a name cannot otherwise
// be resolved. Register returns a token for later removal.
type Host interface {
	Register(handler func(name string) error, prepend bool) int
	Unregister(token int)
}

type prefixEntry struct {
	prefix string
	lower  string
	dirs   []string
}

// Loader resolves names to file paths and loads them through its Runtime.
// Each Loader owns its own tables and registry; multiple instances may drive
// the same host independently.
type Loader struct {
	runtime Runtime

	prefixes  []prefixEntry
	index     map[string]int
	fallbacks []string
	fileMap   map[string]string
	loaded    map[string]string
	tried     []string

	sep           string
	ext           string
	useSearchPath bool
	mode          Mode
	log           Logger

	host  Host
	token int
}

// New builds a Loader around the given runtime with default options.
func New(runtime Runtime, opts ...Option) *Loader {
	l := &Loader{
		runtime: runtime,
		index:   map[string]int{},
		fileMap: map[string]string{},
		loaded:  map[string]string{},
		sep:     DefaultSeparator,
		ext:     DefaultExtension,
		mode:    ModeNormal,
	}
	l.Configure(opts...)
	return l
}

// Configure applies options over the current configuration. Unset options
// keep their existing values.
func (l *Loader) Configure(opts ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
}

// Separator returns the namespace separator token.
func (l *Loader) Separator() string { return l.sep }

// Extension returns the file suffix appended to computed paths.
func (l *Loader) Extension() string { return l.ext }

// GlobalSearchPath reports whether the host search path is consulted as a
// last resort.
func (l *Loader) GlobalSearchPath() bool { return l.useSearchPath }

// SetMode changes the operational mode.
func (l *Loader) SetMode(m Mode) { l.mode = m }

// Mode returns the operational mode.
func (l *Loader) Mode() Mode { return l.mode }

// Add appends directories to the prefix table entry for prefix, creating the
// entry if absent. A later Add for the same prefix extends the entry rather
// than replacing it. An empty prefix routes the directories to the fallback
// list instead.
func (l *Loader) Add(prefix string, dirs ...string) {
	if prefix == "" {
		l.AddFallback(dirs...)
		return
	}
	trimmed := trimDirs(dirs)
	if pos, ok := l.index[prefix]; ok {
		l.prefixes[pos].dirs = append(l.prefixes[pos].dirs, trimmed...)
		return
	}
	l.index[prefix] = len(l.prefixes)
	l.prefixes = append(l.prefixes, prefixEntry{
		prefix: prefix,
		lower:  strings.ToLower(prefix),
		dirs:   trimmed,
	})
}

// AddFallback appends directories to the fallback list, searched after every
// prefix misses.
func (l *Loader) AddFallback(dirs ...string) {
	l.fallbacks = append(l.fallbacks, trimDirs(dirs)...)
}

// SetPaths merges a prefix-to-directories mapping into the prefix table by
// calling Add per entry. Existing entries are extended, never cleared. Keys
// are applied in sorted order so merges stay deterministic.
func (l *Loader) SetPaths(paths map[string][]string) {
	keys := make([]string, 0, len(paths))
	for prefix := range paths {
		keys = append(keys, prefix)
	}
	sort.Strings(keys)
	for _, prefix := range keys {
		l.Add(prefix, paths[prefix]...)
	}
}

// Paths returns a copy of the prefix table.
func (l *Loader) Paths() map[string][]string {
	out := make(map[string][]string, len(l.prefixes))
	for _, entry := range l.prefixes {
		out[entry.prefix] = append([]string{}, entry.dirs...)
	}
	return out
}

// Fallbacks returns a copy of the fallback list.
func (l *Loader) Fallbacks() []string {
	return append([]string{}, l.fallbacks...)
}

// SetMap merges explicit name-to-file entries over the existing map. Later
// entries overwrite earlier ones per key.
func (l *Loader) SetMap(entries map[string]string) {
	for name, path := range entries {
		l.fileMap[name] = path
	}
}

// Map returns a copy of the explicit name-to-file map.
func (l *Loader) Map() map[string]string {
	out := make(map[string]string, len(l.fileMap))
	for name, path := range l.fileMap {
		out[name] = path
	}
	return out
}

// Loaded returns a snapshot of the names this loader has satisfied, mapped to
// the file that satisfied each.
func (l *Loader) Loaded() map[string]string {
	out := make(map[string]string, len(l.loaded))
	for name, path := range l.loaded {
		out[name] = path
	}
	return out
}

// Tried returns the paths probed during the most recent Find call.
func (l *Loader) Tried() []string {
	return append([]string{}, l.tried...)
}

// Declared reports whether name is live in the host runtime.
func (l *Loader) Declared(name string) bool {
	return l.runtime.Declared(strings.TrimPrefix(name, l.sep))
}

// Register installs this loader's Load on the host's miss-handler chain,
// prepended or appended relative to other handlers.
func (l *Loader) Register(host Host, prepend bool) {
	l.Unregister()
	l.host = host
	l.token = host.Register(l.Load, prepend)
}

// Unregister removes this loader from the host chain it was registered on.
func (l *Loader) Unregister() {
	if l.host == nil {
		return
	}
	l.host.Unregister(l.token)
	l.host = nil
	l.token = 0
}

// Find computes the candidate file path for name. The explicit map wins
// outright; otherwise the name is split on the separator into a namespace
// path and a class segment and matched against the prefix table in
// registration order. Directories registered for a matching prefix are
// probed with the path computed from the remainder of the name after that
// prefix; fallbacks and the host search path use the path for the full name.
// The second return is false when no existing readable file was found.
func (l *Loader) Find(name string) (string, bool) {
	name = strings.TrimPrefix(name, l.sep)
	if path, ok := l.fileMap[name]; ok {
		return path, true
	}
	l.tried = l.tried[:0]

	lower := strings.ToLower(name)
	for _, entry := range l.prefixes {
		if !strings.HasPrefix(lower, entry.lower) {
			continue
		}
		candidate := l.relativePath(name[len(entry.prefix):])
		if path, ok := l.lookup(candidate, entry.dirs); ok {
			return path, true
		}
	}
	candidate := l.relativePath(name)
	if path, ok := l.lookup(candidate, l.fallbacks); ok {
		return path, true
	}
	if l.useSearchPath {
		searchPath := l.runtime.SearchPath()
		l.tried = append(l.tried, searchPath)
		for _, dir := range filepath.SplitList(searchPath) {
			if dir == "" {
				continue
			}
			full := filepath.Join(dir, filepath.FromSlash(candidate))
			if isReadableFile(full) {
				return full, true
			}
		}
	}
	return "", false
}

// relativePath translates a symbolic name into a relative file path: the
// namespace segments become directories and the class segment keeps its
// place, with underscores in it mapping to subdirectories the way
// namespace-less names did in older codebases.
func (l *Loader) relativePath(name string) string {
	var namespace, class string
	if p := strings.LastIndex(strings.ToLower(name), strings.ToLower(l.sep)); p >= 0 {
		namespace = strings.ReplaceAll(name[:p], l.sep, "/") + "/"
		class = name[p+len(l.sep):]
	} else {
		class = name
	}
	return namespace + strings.ReplaceAll(class, "_", "/") + l.ext
}

// lookup probes file under each directory in order, recording every probed
// directory, and returns the first existing readable regular file.
func (l *Loader) lookup(file string, dirs []string) (string, bool) {
	rel := filepath.FromSlash(file)
	for _, dir := range dirs {
		l.tried = append(l.tried, dir)
		full := filepath.Join(dir, rel)
		if isReadableFile(full) {
			return full, true
		}
	}
	return "", false
}

// Load resolves name to a file, executes it through the host runtime, and
// verifies the name became live. Failure reporting follows the loader's
// mode: silent swallows everything, normal reports only missing files, debug
// reports every condition.
func (l *Loader) Load(name string) error {
	name = strings.TrimPrefix(name, l.sep)
	if l.runtime.Declared(name) {
		if l.mode == ModeDebug {
			return &Error{Kind: KindAlreadyLoaded, Name: name}
		}
		return nil
	}
	path, ok := l.Find(name)
	if !ok {
		l.logf("no file found for %s after %d probes", name, len(l.tried))
		if l.mode == ModeSilent {
			return nil
		}
		return &Error{Kind: KindNotFound, Name: name, Tried: l.Tried()}
	}
	l.logf("loading %s from %s", name, path)
	if err := l.runtime.Load(path); err != nil {
		if l.mode == ModeSilent {
			return nil
		}
		return &Error{Kind: KindNotFound, Name: name, Err: err}
	}
	if !l.runtime.Declared(name) {
		l.logf("%s executed but did not declare %s", path, name)
		if l.mode == ModeDebug {
			return &Error{Kind: KindNotDeclared, Name: name}
		}
		return nil
	}
	if _, seen := l.loaded[name]; !seen {
		l.loaded[name] = path
	}
	return nil
}

func (l *Loader) logf(format string, args ...any) {
	if l.log == nil || l.mode != ModeDebug {
		return
	}
	l.log.Printf("autoload: "+format, args...)
}

func trimDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, strings.TrimRight(dir, string(os.PathSeparator)+"/"))
	}
	return out
}

func isReadableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
