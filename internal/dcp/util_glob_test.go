package dcp

import "testing"

// Property 8: glob matching behaves the way the spec's path-protection
// examples expect for "**" (any depth) vs a single "*" segment.
func TestMatchesGlob(t *testing.T) {
	cases := []struct {
		path, pattern string
		want          bool
	}{
		{"a/b/c.ts", "**/*.ts", true},
		{"a/b.ts", "a/*.ts", true},
		{"a/b/c.ts", "a/*.ts", false},
		{"secrets.env", "secrets.env", true},
		{"a/secrets.env", "secrets.env", false},
	}
	for _, c := range cases {
		got := MatchesGlob(c.path, c.pattern)
		if got != c.want {
			t.Errorf("MatchesGlob(%q, %q) = %v, want %v", c.path, c.pattern, got, c.want)
		}
	}
}

func TestMatchesAnyGlob(t *testing.T) {
	patterns := []string{"*.env", "secrets/**"}
	if !MatchesAnyGlob("config.env", patterns) {
		t.Errorf("expected config.env to match *.env")
	}
	if !MatchesAnyGlob("secrets/db/password.txt", patterns) {
		t.Errorf("expected secrets/db/password.txt to match secrets/**")
	}
	if MatchesAnyGlob("readme.md", patterns) {
		t.Errorf("readme.md should not match any protected pattern")
	}
}

func TestMatchesAnyGlobEmptyPatternList(t *testing.T) {
	if MatchesAnyGlob("anything.go", nil) {
		t.Errorf("an empty pattern list must never match")
	}
}
