package rules

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Set is an immutable denylist of module roots and builtin names. Construct
// one with Default, Load, or New; the zero value denies nothing.
type Set struct {
	modules    map[string]struct{}
	builtins   map[string]struct{}
	attributes map[string]struct{}
}

// defaultModules are module roots a submission may never import, directly or
// through an alias. Matching is on the resolved root of the dotted path, so
// "os.path" and "import os as harmless" are both caught as "os".
var defaultModules = []string{
	"os",
	"sys",
	"subprocess",
	"socket",
	"shutil",
	"pathlib",
	"glob",
	"tempfile",
	"importlib",
	"ctypes",
	"multiprocessing",
	"threading",
	"signal",
	"resource",
	"pty",
	"fcntl",
	"inspect",
	"gc",
	"socketserver",
	"http",
	"urllib",
	"ftplib",
	"telnetlib",
}

// defaultBuiltins are builtin call targets that allow dynamic code
// evaluation, unrestricted file access, or process control.
var defaultBuiltins = []string{
	"eval",
	"exec",
	"compile",
	"__import__",
	"open",
	"breakpoint",
	"globals",
	"vars",
	"exit",
	"quit",
}

// defaultAttributes are attribute names used to climb out of a restricted
// namespace via the object graph, e.g. ().__class__.__bases__[0].__subclasses__().
var defaultAttributes = []string{
	"__globals__",
	"__builtins__",
	"__subclasses__",
	"__bases__",
	"__mro__",
	"__code__",
	"__loader__",
	"__spec__",
}

// Default returns the built-in rule set.
func Default() Set {
	return New(defaultModules, defaultBuiltins, defaultAttributes)
}

// New builds a Set from explicit module, builtin, and attribute lists.
func New(modules, builtins, attributes []string) Set {
	s := Set{
		modules:    make(map[string]struct{}, len(modules)),
		builtins:   make(map[string]struct{}, len(builtins)),
		attributes: make(map[string]struct{}, len(attributes)),
	}
	for _, m := range modules {
		if m = strings.TrimSpace(m); m != "" {
			s.modules[m] = struct{}{}
		}
	}
	for _, b := range builtins {
		if b = strings.TrimSpace(b); b != "" {
			s.builtins[b] = struct{}{}
		}
	}
	for _, a := range attributes {
		if a = strings.TrimSpace(a); a != "" {
			s.attributes[a] = struct{}{}
		}
	}
	return s
}

// Extend returns a new Set containing every rule of s plus the given
// additions. The receiver is not modified.
func (s Set) Extend(modules, builtins []string) Set {
	return New(append(s.Modules(), modules...), append(s.Builtins(), builtins...), s.Attributes())
}

// fileFormat is the on-disk shape of a rules extension file.
type fileFormat struct {
	Modules  []string `yaml:"modules"`
	Builtins []string `yaml:"builtins"`
}

// Load reads a YAML rules file and returns the default set extended with its
// entries. File entries extend the defaults; they can never remove a rule.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read rules file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Set{}, fmt.Errorf("parse rules file: %w", err)
	}
	return Default().Extend(f.Modules, f.Builtins), nil
}

// BannedModule reports whether a dotted module path resolves to a denylisted
// root, returning the matched rule identifier.
func (s Set) BannedModule(module string) (string, bool) {
	root := module
	if i := strings.IndexByte(module, '.'); i >= 0 {
		root = module[:i]
	}
	if _, ok := s.modules[root]; ok {
		return root, true
	}
	return "", false
}

// BannedBuiltin reports whether a call target name is denylisted.
func (s Set) BannedBuiltin(name string) (string, bool) {
	if _, ok := s.builtins[name]; ok {
		return name, true
	}
	return "", false
}

// BannedAttribute reports whether an attribute name is a denylisted
// reflection escape.
func (s Set) BannedAttribute(name string) (string, bool) {
	if _, ok := s.attributes[name]; ok {
		return name, true
	}
	return "", false
}

// Modules returns the denylisted module roots in sorted order.
func (s Set) Modules() []string {
	return sortedKeys(s.modules)
}

// Builtins returns the denylisted builtin names in sorted order.
func (s Set) Builtins() []string {
	return sortedKeys(s.builtins)
}

// Attributes returns the denylisted attribute names in sorted order.
func (s Set) Attributes() []string {
	return sortedKeys(s.attributes)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
