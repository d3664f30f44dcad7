package dcp

import (
	"sync"

	"github.com/gobwas/glob"
)

// globCache compiles patterns once, grounded on permission.RuleSet's
// pattern-compilation pattern (internal/permission/ruleset.go) but keyed
// so the content rewriter and strategy pipeline can share compiled globs
// across many calls per transform without recompiling each time.
type globCache struct {
	mu    sync.Mutex
	cache map[string]glob.Glob
}

var sharedGlobCache = &globCache{cache: make(map[string]glob.Glob)}

func (c *globCache) compile(pattern string) (glob.Glob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.cache[pattern]; ok {
		return g, nil
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}
	c.cache[pattern] = g
	return g, nil
}

// MatchesGlob reports whether path matches pattern, using '/' as the
// path separator so "**/*.ts" and "a/*.ts" behave the way the testable
// property in spec §8 item 8 expects.
func MatchesGlob(path, pattern string) bool {
	g, err := sharedGlobCache.compile(pattern)
	if err != nil {
		return false
	}
	return g.Match(path)
}

// MatchesAnyGlob reports whether path matches any of patterns.
func MatchesAnyGlob(path string, patterns []string) bool {
	for _, p := range patterns {
		if MatchesGlob(path, p) {
			return true
		}
	}
	return false
}
