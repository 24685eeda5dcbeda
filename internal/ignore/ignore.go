// internal/ignore/ignore.go
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFile is the per-directory rule file name.
const IgnoreFile = ".driftignore"

// defaultSkips are always ignored, regardless of rule files.
var defaultSkips = []string{"node_modules", "vendor", ".git", ".drift"}

// Engine loads ignore rules anchored at a repository root.
type Engine struct {
	root string
}

// Context is the resolved rule set for one directory. Queries take paths
// relative to the repository root.
type Context struct {
	rules []rule
}

type rule struct {
	pattern string
	dirOnly bool
	baseDir string // root-relative dir of the rule file, "" at the root
}

func NewEngine(root string) *Engine {
	return &Engine{root: root}
}

// ForDir builds the context for one directory, stacking rule files from the
// root down to dir. dir is relative to the root ("" for the root itself).
func (e *Engine) ForDir(dir string) (*Context, error) {
	ctx := &Context{}
	for _, skip := range defaultSkips {
		ctx.rules = append(ctx.rules, rule{pattern: skip})
	}

	segs := []string{""}
	if dir != "" {
		clean := strings.TrimSuffix(filepath.ToSlash(dir), "/")
		acc := ""
		for _, seg := range strings.Split(clean, "/") {
			acc = path.Join(acc, seg)
			segs = append(segs, acc)
		}
	}

	for _, rel := range segs {
		file := filepath.Join(e.root, filepath.FromSlash(rel), IgnoreFile)
		rules, err := loadRuleFile(file, rel)
		if err != nil {
			return nil, err
		}
		ctx.rules = append(ctx.rules, rules...)
	}
	return ctx, nil
}

func loadRuleFile(file, baseDir string) ([]rule, error) {
	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file %s: %w", file, err)
	}
	defer f.Close()

	var rules []rule
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r := rule{baseDir: baseDir}
		if strings.HasSuffix(line, "/") {
			r.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		r.pattern = line
		rules = append(rules, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", file, err)
	}
	return rules, nil
}

// Ignored reports whether the root-relative path matches any rule. A
// trailing slash marks the path as a directory.
func (c *Context) Ignored(relpath string) bool {
	isDir := strings.HasSuffix(relpath, "/")
	relpath = strings.TrimSuffix(filepath.ToSlash(relpath), "/")
	base := path.Base(relpath)

	for _, r := range c.rules {
		if r.dirOnly && !isDir {
			continue
		}
		target := relpath
		if r.baseDir != "" {
			rest, ok := strings.CutPrefix(relpath, r.baseDir+"/")
			if !ok {
				continue
			}
			target = rest
		}
		if ok, _ := path.Match(r.pattern, base); ok {
			return true
		}
		if ok, _ := path.Match(r.pattern, target); ok {
			return true
		}
	}
	return false
}
