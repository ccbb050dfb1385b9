package text

import (
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestNewSplitter(t *testing.T) {
	s := NewSplitter(zaptest.NewLogger(t))
	if s == nil {
		t.Fatal("expected splitter")
	}
}

func TestSplit(t *testing.T) {
	s := NewSplitter(zaptest.NewLogger(t))

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "Just one sentence.", []string{"Just one sentence."}},
		{
			"trailing spaces stay with sentence",
			"First one here.  Second one there. Third.",
			[]string{"First one here.  ", "Second one there. ", "Third."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Split(tt.in)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if strings.Join(got, "") != tt.in {
				t.Errorf("sentences do not cover input: %q", got)
			}
		})
	}
}

func TestSplitNil(t *testing.T) {
	var s *Splitter
	got := s.Split("One. Two.")
	if !slices.Equal(got, []string{"One. Two."}) {
		t.Errorf("nil splitter: %q", got)
	}
}

func TestSentencesIteratorStops(t *testing.T) {
	s := NewSplitter(zaptest.NewLogger(t))
	var got []string
	for sentence := range s.Sentences("One thing. Two things. Three things.") {
		got = append(got, sentence)
		if len(got) == 2 {
			break
		}
	}
	if len(got) != 2 {
		t.Errorf("expected iteration to stop after 2, got %d", len(got))
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		in         string
		ignoreNBSP bool
		want       []string
	}{
		{"", false, nil},
		{"  one two\tthree\n", false, []string{"one", "two", "three"}},
		{"a b c", false, []string{"a b", "c"}},
		{"a b c", true, []string{"a", "b", "c"}},
		{"Привет, мир", false, []string{"Привет,", "мир"}},
	}
	var s *Splitter
	for _, tt := range tests {
		if got := s.SplitWords(tt.in, tt.ignoreNBSP); !slices.Equal(got, tt.want) {
			t.Errorf("SplitWords(%q, %v) = %q, want %q", tt.in, tt.ignoreNBSP, got, tt.want)
		}
	}
}

func TestIsSeparator(t *testing.T) {
	tests := []struct {
		r          rune
		ignoreNBSP bool
		want       bool
	}{
		{' ', false, true},
		{'\n', false, true},
		{'a', false, false},
		{0xA0, false, false},
		{0xA0, true, true},
		{0x2003, false, true},
	}
	for _, tt := range tests {
		if got := isSeparator(tt.r, tt.ignoreNBSP); got != tt.want {
			t.Errorf("isSeparator(%U, %v) = %v, want %v", tt.r, tt.ignoreNBSP, got, tt.want)
		}
	}
}
