package autoload

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRuntime stands in for the interpreter so tests can assert on the exact
// sequence of load calls without executing anything.
type fakeRuntime struct {
	declared      map[string]bool
	declareOnLoad []string
	loadErr       error
	searchPath    string
	loadedPaths   []string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{declared: map[string]bool{}}
}

func (f *fakeRuntime) Declared(name string) bool { return f.declared[name] }

func (f *fakeRuntime) Load(path string) error {
	f.loadedPaths = append(f.loadedPaths, path)
	if f.loadErr != nil {
		return f.loadErr
	}
	for _, name := range f.declareOnLoad {
		f.declared[name] = true
	}
	return nil
}

func (f *fakeRuntime) SearchPath() string { return f.searchPath }

func writeFile(t *testing.T, dir, rel string) string {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte("package main\n"), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return full
}

func TestFindResolvesNamespaceToPath(t *testing.T) {
	src := t.TempDir()
	want := writeFile(t, src, "Models/User.go")
	loader := New(newFakeRuntime())
	loader.Add("App.", src)

	got, ok := loader.Find("App.Models.User")
	if !ok {
		t.Fatalf("expected a hit, tried %v", loader.Tried())
	}
	if got != want {
		t.Fatalf("resolved %s, want %s", got, want)
	}
}

func TestFindStripsLeadingSeparator(t *testing.T) {
	src := t.TempDir()
	want := writeFile(t, src, "Models/User.go")
	loader := New(newFakeRuntime())
	loader.Add("App.", src)

	got, ok := loader.Find(".App.Models.User")
	if !ok || got != want {
		t.Fatalf("resolved (%q, %v), want %s", got, ok, want)
	}
}

func TestFindFirstMatchingDirectoryWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	want := writeFile(t, first, "Models/User.go")
	writeFile(t, second, "Models/User.go")
	loader := New(newFakeRuntime())
	loader.Add("App.", first, second)

	got, ok := loader.Find("App.Models.User")
	if !ok || got != want {
		t.Fatalf("resolved (%q, %v), want %s", got, ok, want)
	}
	if tried := loader.Tried(); len(tried) != 1 || tried[0] != first {
		t.Fatalf("expected only %s probed, got %v", first, tried)
	}
}

func TestFindProbesDirectoriesInOrder(t *testing.T) {
	miss := t.TempDir()
	hit := t.TempDir()
	want := writeFile(t, hit, "Models/User.go")
	loader := New(newFakeRuntime())
	loader.Add("App.", miss, hit)

	got, ok := loader.Find("App.Models.User")
	if !ok || got != want {
		t.Fatalf("resolved (%q, %v), want %s", got, ok, want)
	}
	tried := loader.Tried()
	if len(tried) != 2 || tried[0] != miss || tried[1] != hit {
		t.Fatalf("expected probes [%s %s], got %v", miss, hit, tried)
	}
}

func TestFindFallbackAfterPrefixMiss(t *testing.T) {
	prefixDir := t.TempDir()
	fallback := t.TempDir()
	// Fallback probes use the full namespace path, not a prefix-relative one.
	want := writeFile(t, fallback, "App/Models/User.go")
	loader := New(newFakeRuntime())
	loader.Add("App.", prefixDir)
	loader.AddFallback(fallback)

	got, ok := loader.Find("App.Models.User")
	if !ok || got != want {
		t.Fatalf("resolved (%q, %v), want %s", got, ok, want)
	}
	tried := loader.Tried()
	if len(tried) != 2 || tried[0] != prefixDir || tried[1] != fallback {
		t.Fatalf("expected prefix dir probed before fallback, got %v", tried)
	}
}

func TestFindFallbackWhenNoPrefixMatches(t *testing.T) {
	prefixDir := t.TempDir()
	fallback := t.TempDir()
	want := writeFile(t, fallback, "Vendor/Thing.go")
	loader := New(newFakeRuntime())
	loader.Add("App.", prefixDir)
	loader.AddFallback(fallback)

	got, ok := loader.Find("Vendor.Thing")
	if !ok || got != want {
		t.Fatalf("resolved (%q, %v), want %s", got, ok, want)
	}
	if tried := loader.Tried(); len(tried) != 1 || tried[0] != fallback {
		t.Fatalf("prefix dirs must not be probed for a non-matching name, got %v", tried)
	}
}

func TestFindExplicitMapWinsWithoutProbing(t *testing.T) {
	loader := New(newFakeRuntime())
	loader.Add("App.", t.TempDir())
	loader.SetMap(map[string]string{"App.Models.User": "/nowhere/User.go"})

	got, ok := loader.Find("App.Models.User")
	if !ok || got != "/nowhere/User.go" {
		t.Fatalf("resolved (%q, %v), want the mapped path", got, ok)
	}
	if tried := loader.Tried(); len(tried) != 0 {
		t.Fatalf("explicit map must not touch the filesystem, probed %v", tried)
	}
}

func TestFindUnderscoreMapsToSubdirectory(t *testing.T) {
	fallback := t.TempDir()
	want := writeFile(t, fallback, "Text/Diff.go")
	loader := New(newFakeRuntime())
	loader.AddFallback(fallback)

	got, ok := loader.Find("Text_Diff")
	if !ok || got != want {
		t.Fatalf("resolved (%q, %v), want %s", got, ok, want)
	}
}

func TestFindPrefixMatchIsCaseInsensitive(t *testing.T) {
	src := t.TempDir()
	want := writeFile(t, src, "Models/User.go")
	loader := New(newFakeRuntime())
	loader.Add("APP.", src)

	got, ok := loader.Find("App.Models.User")
	if !ok || got != want {
		t.Fatalf("resolved (%q, %v), want %s", got, ok, want)
	}
}

func TestFindBackslashSeparator(t *testing.T) {
	src := t.TempDir()
	want := writeFile(t, src, "Models/User.php")
	loader := New(newFakeRuntime(), WithSeparator(`\`), WithExtension(".php"))
	loader.Add(`App\`, src)

	got, ok := loader.Find(`App\Models\User`)
	if !ok || got != want {
		t.Fatalf("resolved (%q, %v), want %s", got, ok, want)
	}
}

func TestFindGlobalSearchPath(t *testing.T) {
	shared := t.TempDir()
	want := writeFile(t, shared, "Lib/Util.go")
	rt := newFakeRuntime()
	rt.searchPath = strings.Join([]string{t.TempDir(), shared}, string(os.PathListSeparator))
	loader := New(rt, WithGlobalSearchPath(true))

	got, ok := loader.Find("Lib.Util")
	if !ok || got != want {
		t.Fatalf("resolved (%q, %v), want %s", got, ok, want)
	}
	tried := loader.Tried()
	if len(tried) == 0 || tried[len(tried)-1] != rt.searchPath {
		t.Fatalf("search path string must be recorded in the tried log, got %v", tried)
	}
}

func TestFindSearchPathDisabledByDefault(t *testing.T) {
	shared := t.TempDir()
	writeFile(t, shared, "Lib/Util.go")
	rt := newFakeRuntime()
	rt.searchPath = shared
	loader := New(rt)

	if got, ok := loader.Find("Lib.Util"); ok {
		t.Fatalf("search path must be opt-in, resolved %s", got)
	}
}

func TestAddEmptyPrefixRoutesToFallback(t *testing.T) {
	fallback := t.TempDir()
	want := writeFile(t, fallback, "Vendor/Thing.go")
	loader := New(newFakeRuntime())
	loader.Add("", fallback)

	if got := loader.Fallbacks(); len(got) != 1 || got[0] != fallback {
		t.Fatalf("expected fallback list [%s], got %v", fallback, got)
	}
	if got, ok := loader.Find("Vendor.Thing"); !ok || got != want {
		t.Fatalf("resolved (%q, %v), want %s", got, ok, want)
	}
}

func TestAddTrimsTrailingSlash(t *testing.T) {
	loader := New(newFakeRuntime())
	loader.Add("App.", "/srv/app/src/")

	if dirs := loader.Paths()["App."]; len(dirs) != 1 || dirs[0] != "/srv/app/src" {
		t.Fatalf("expected trimmed dir, got %v", dirs)
	}
}

func TestAddSamePrefixAppends(t *testing.T) {
	loader := New(newFakeRuntime())
	loader.Add("App.", "/one")
	loader.Add("App.", "/two")

	dirs := loader.Paths()["App."]
	if len(dirs) != 2 || dirs[0] != "/one" || dirs[1] != "/two" {
		t.Fatalf("expected appended dirs, got %v", dirs)
	}
}

func TestSetPathsMerges(t *testing.T) {
	loader := New(newFakeRuntime())
	loader.Add("App.", "/one")
	loader.SetPaths(map[string][]string{
		"App.": {"/two"},
		"Lib.": {"/lib"},
	})

	paths := loader.Paths()
	if dirs := paths["App."]; len(dirs) != 2 || dirs[1] != "/two" {
		t.Fatalf("SetPaths must extend existing prefixes, got %v", dirs)
	}
	if dirs := paths["Lib."]; len(dirs) != 1 || dirs[0] != "/lib" {
		t.Fatalf("SetPaths must add new prefixes, got %v", dirs)
	}
}

func TestSetMapLastWriteWins(t *testing.T) {
	loader := New(newFakeRuntime())
	loader.SetMap(map[string]string{"App.User": "/a/User.go"})
	loader.SetMap(map[string]string{"App.User": "/b/User.go"})

	if got := loader.Map()["App.User"]; got != "/b/User.go" {
		t.Fatalf("expected the later entry to win, got %s", got)
	}
}

func TestLoadRecordsRegistryAndShortCircuits(t *testing.T) {
	src := t.TempDir()
	want := writeFile(t, src, "Models/User.go")
	rt := newFakeRuntime()
	rt.declareOnLoad = []string{"App.Models.User"}
	loader := New(rt)
	loader.Add("App.", src)

	if err := loader.Load("App.Models.User"); err != nil {
		t.Fatalf("load: %v", err)
	}
	loaded := loader.Loaded()
	if len(loaded) != 1 || loaded["App.Models.User"] != want {
		t.Fatalf("unexpected registry %v", loaded)
	}
	// A second load must short-circuit on the declared check, not re-execute.
	if err := loader.Load("App.Models.User"); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if len(rt.loadedPaths) != 1 {
		t.Fatalf("file executed %d times, want 1", len(rt.loadedPaths))
	}
	if len(loader.Loaded()) != 1 {
		t.Fatalf("registry grew on the second load: %v", loader.Loaded())
	}
}

func TestLoadAlreadyDeclared(t *testing.T) {
	rt := newFakeRuntime()
	rt.declared["App.Models.User"] = true

	for _, mode := range []Mode{ModeSilent, ModeNormal} {
		loader := New(rt, WithMode(mode))
		if err := loader.Load("App.Models.User"); err != nil {
			t.Fatalf("%s mode: expected idempotent no-op, got %v", mode, err)
		}
	}
	loader := New(rt, WithMode(ModeDebug))
	err := loader.Load("App.Models.User")
	var loadErr *Error
	if !errors.As(err, &loadErr) || loadErr.Kind != KindAlreadyLoaded {
		t.Fatalf("debug mode: expected KindAlreadyLoaded, got %v", err)
	}
	if len(rt.loadedPaths) != 0 {
		t.Fatalf("declared name must never hit the runtime loader, got %v", rt.loadedPaths)
	}
}

func TestLoadNotFoundListsTriedPaths(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	loader := New(newFakeRuntime())
	loader.Add("App.", first)
	loader.AddFallback(second)

	err := loader.Load("App.Missing")
	var loadErr *Error
	if !errors.As(err, &loadErr) || loadErr.Kind != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"App.Missing", first, second} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("message must mention %q, got:\n%s", fragment, msg)
		}
	}
	if !strings.Contains(msg, first+"\n"+second) {
		t.Fatalf("tried paths must be listed one per line, got:\n%s", msg)
	}
}

func TestLoadNotFoundSilentMode(t *testing.T) {
	loader := New(newFakeRuntime(), WithMode(ModeSilent))
	if err := loader.Load("App.Missing"); err != nil {
		t.Fatalf("silent mode must swallow not-found, got %v", err)
	}
}

func TestLoadNotDeclaredAfterExecution(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "Models/User.go")

	loader := New(newFakeRuntime())
	loader.Add("App.", src)
	if err := loader.Load("App.Models.User"); err != nil {
		t.Fatalf("normal mode must accept an undeclared load, got %v", err)
	}
	if len(loader.Loaded()) != 0 {
		t.Fatalf("undeclared load must not be recorded, got %v", loader.Loaded())
	}

	loader = New(newFakeRuntime(), WithMode(ModeDebug))
	loader.Add("App.", src)
	err := loader.Load("App.Models.User")
	var loadErr *Error
	if !errors.As(err, &loadErr) || loadErr.Kind != KindNotDeclared {
		t.Fatalf("debug mode: expected KindNotDeclared, got %v", err)
	}
}

func TestLoadRuntimeErrorIsWrapped(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "Models/User.go")
	rt := newFakeRuntime()
	rt.loadErr = errors.New("syntax error")

	loader := New(rt)
	loader.Add("App.", src)
	err := loader.Load("App.Models.User")
	var loadErr *Error
	if !errors.As(err, &loadErr) || loadErr.Kind != KindNotFound {
		t.Fatalf("expected a tagged error, got %v", err)
	}
	if !errors.Is(err, rt.loadErr) {
		t.Fatalf("runtime error must be wrapped, got %v", err)
	}

	loader = New(rt, WithMode(ModeSilent))
	loader.Add("App.", src)
	if err := loader.Load("App.Models.User"); err != nil {
		t.Fatalf("silent mode must swallow runtime errors, got %v", err)
	}
}

// fakeHost records chain mutations so Register/Unregister can be asserted
// without a real interpreter.
type fakeHost struct {
	handlers map[int]func(string) error
	prepends []bool
	nextTok  int
}

func newFakeHost() *fakeHost {
	return &fakeHost{handlers: map[int]func(string) error{}, nextTok: 1}
}

func (h *fakeHost) Register(handler func(string) error, prepend bool) int {
	token := h.nextTok
	h.nextTok++
	h.handlers[token] = handler
	h.prepends = append(h.prepends, prepend)
	return token
}

func (h *fakeHost) Unregister(token int) {
	delete(h.handlers, token)
}

func TestRegisterInstallsLoadHandler(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "Models/User.go")
	rt := newFakeRuntime()
	rt.declareOnLoad = []string{"App.Models.User"}
	loader := New(rt)
	loader.Add("App.", src)

	host := newFakeHost()
	loader.Register(host, true)
	if len(host.handlers) != 1 || !host.prepends[0] {
		t.Fatalf("expected one prepended handler, got %d (prepends %v)", len(host.handlers), host.prepends)
	}
	for _, handler := range host.handlers {
		if err := handler("App.Models.User"); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if len(loader.Loaded()) != 1 {
		t.Fatalf("handler must drive Load, registry %v", loader.Loaded())
	}

	loader.Unregister()
	if len(host.handlers) != 0 {
		t.Fatalf("unregister must remove the handler")
	}
	// A second Unregister is a no-op.
	loader.Unregister()
}
