package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"two sentences", "Hello world. Foo bar!", []string{"Hello world.", "Foo bar!"}},
		{"no punctuation", "No punctuation here", []string{"No punctuation here."}},
		{"question", "Is it true? Yes it is.", []string{"Is it true.", "Yes it is."}},
		{"repeated punctuation", "Wait!!! What...   Really?", []string{"Wait.", "What.", "Really?"}},
		{"newlines", "First line.\nSecond line.\n\nThird", []string{"First line.", "Second line.", "Third."}},
		{"abbreviation without space", "Version 1.2 shipped", []string{"Version 1.2 shipped."}},
		{"empty", "   ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SplitSentences(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestSplitSentences_Deterministic(t *testing.T) {
	in := "One. Two! Three?"
	first := SplitSentences(in)
	second := SplitSentences(in)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Expected identical output on repeated calls:\n%s", diff)
	}
}

func TestParseNumberedList(t *testing.T) {
	in := `Here are the fragments:
1. The first fragment
2) The second fragment
3: The third fragment
4.
   5.   Indented fifth

Unnumbered line`

	want := []string{
		"Here are the fragments:",
		"The first fragment",
		"The second fragment",
		"The third fragment",
		"Indented fifth",
		"Unnumbered line",
	}

	got := ParseNumberedList(in)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseNumberedList mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNumberedList_Empty(t *testing.T) {
	if got := ParseNumberedList("\n\n  \n"); len(got) != 0 {
		t.Errorf("Expected no items, got %v", got)
	}
}

func TestFitToCount(t *testing.T) {
	padded := FitToCount([]string{"a", "b"}, 4)
	want := []string{"a", "b", "Fragment 3 not extracted", "Fragment 4 not extracted"}
	if diff := cmp.Diff(want, padded); diff != "" {
		t.Errorf("Padding mismatch (-want +got):\n%s", diff)
	}

	trimmed := FitToCount([]string{"a", "b", "c"}, 2)
	if diff := cmp.Diff([]string{"a", "b"}, trimmed); diff != "" {
		t.Errorf("Truncation mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanQuote(t *testing.T) {
	tests := map[string]string{
		`"quoted text"`:     "quoted text",
		`'single'`:          "single",
		`  "both' `:         "both",
		`no quotes`:         "no quotes",
		`"'nested quotes'"`: "nested quotes",
	}
	for in, want := range tests {
		if got := CleanQuote(in); got != want {
			t.Errorf("CleanQuote(%q): expected %q, got %q", in, want, got)
		}
	}
}
