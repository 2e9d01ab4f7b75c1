package match

import "testing"

func TestMatcher(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		pkg      string
		want     bool
	}{
		{
			name:     "exact name",
			patterns: []string{"/Game/Foo"},
			pkg:      "/Game/Foo",
			want:     true,
		},
		{
			name:     "exact name mismatch",
			patterns: []string{"/Game/Foo"},
			pkg:      "/Game/Bar",
			want:     false,
		},
		{
			name:     "single star stays in one segment",
			patterns: []string{"/Game/*"},
			pkg:      "/Game/Maps/Foo",
			want:     false,
		},
		{
			name:     "double star spans segments",
			patterns: []string{"/Game/**"},
			pkg:      "/Game/Maps/Foo",
			want:     true,
		},
		{
			name:     "second pattern matches",
			patterns: []string{"/Engine/**", "/Game/**"},
			pkg:      "/Game/Foo",
			want:     true,
		},
		{
			name:     "no patterns matches nothing",
			patterns: nil,
			pkg:      "/Game/Foo",
			want:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatcher(tt.patterns)
			if err != nil {
				t.Fatalf("NewMatcher failed: %v", err)
			}
			if got := m.Match(tt.pkg); got != tt.want {
				t.Errorf("Match(%q) = %v, expected %v", tt.pkg, got, tt.want)
			}
		})
	}
}

func TestNewMatcher_InvalidPattern(t *testing.T) {
	if _, err := NewMatcher([]string{"/Game/[Foo"}); err == nil {
		t.Error("expected error for unterminated character class")
	}
}

func TestMatcher_Empty(t *testing.T) {
	m, err := NewMatcher(nil)
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}
	if !m.Empty() {
		t.Error("Empty() = false for matcher without patterns")
	}
	m, err = NewMatcher([]string{"/Game/**"})
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}
	if m.Empty() {
		t.Error("Empty() = true for matcher with patterns")
	}
}

func TestMatcher_MatchAny(t *testing.T) {
	m, err := NewMatcher([]string{"/Game/Maps/**"})
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}
	if !m.MatchAny([]string{"/Engine/Default", "/Game/Maps/Foo"}) {
		t.Error("MatchAny missed a matching package")
	}
	if m.MatchAny([]string{"/Engine/Default"}) {
		t.Error("MatchAny matched a non-matching list")
	}
	if m.MatchAny(nil) {
		t.Error("MatchAny matched an empty list")
	}
}
