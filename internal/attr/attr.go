// internal/attr/attr.go
package attr

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// AttributesFile is the root-level attribute rule file name.
const AttributesFile = ".driftattributes"

// State is the four-way result of an attribute lookup.
type State int

const (
	Unspecified State = iota
	True
	False
	ValueSet
)

// Value is the resolved attribute for one path.
type Value struct {
	State State
	Str   string // set only when State == ValueSet
}

type rule struct {
	pattern string
	name    string
	value   Value
}

// Engine resolves attributes from the repository's rule file. Later rules
// win, matching the usual attribute-file semantics.
type Engine struct {
	rules []rule
}

// Load reads the attributes file at the repository root. A missing file
// yields an empty engine.
func Load(root string) (*Engine, error) {
	e := &Engine{}
	f, err := os.Open(filepath.Join(root, AttributesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return e, nil
		}
		return nil, fmt.Errorf("opening attributes file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		for _, spec := range fields[1:] {
			e.rules = append(e.rules, parseRule(fields[0], spec))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading attributes file: %w", err)
	}
	return e, nil
}

func parseRule(pattern, spec string) rule {
	r := rule{pattern: pattern}
	switch {
	case strings.HasPrefix(spec, "-"):
		r.name = spec[1:]
		r.value = Value{State: False}
	case strings.Contains(spec, "="):
		name, val, _ := strings.Cut(spec, "=")
		r.name = name
		r.value = Value{State: ValueSet, Str: val}
	default:
		r.name = spec
		r.value = Value{State: True}
	}
	return r
}

// Get resolves one attribute for a root-relative path.
func (e *Engine) Get(relpath, name string) Value {
	relpath = filepath.ToSlash(relpath)
	base := path.Base(relpath)
	out := Value{State: Unspecified}
	for _, r := range e.rules {
		if r.name != name {
			continue
		}
		if ok, _ := path.Match(r.pattern, base); !ok {
			if ok, _ := path.Match(r.pattern, relpath); !ok {
				continue
			}
		}
		out = r.value
	}
	return out
}
