package dcp

import "testing"

func TestLowerID(t *testing.T) {
	if lowerID("AbC123") != "abc123" {
		t.Errorf("lowerID did not lowercase as expected")
	}
}

func TestParseIndex(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"0", 0, true},
		{"42", 42, true},
		{"  7 ", 7, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"3.5", 0, false},
	}
	for _, c := range cases {
		got, ok := parseIndex(c.in)
		if ok != c.wantOK || (ok && got != c.want) {
			t.Errorf("parseIndex(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}
