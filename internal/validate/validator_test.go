package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/verbatim/internal/model"
)

const goodText = "The committee met on Tuesday to discuss the new budget proposal for the coming year."

func TestValidator_Text_Valid(t *testing.T) {
	v := New()

	got, err := v.Text("   " + goodText + "\n\n")
	if err != nil {
		t.Fatalf("Expected valid text, got %v", err)
	}
	if got != goodText {
		t.Errorf("Expected trimmed text, got %q", got)
	}
}

func TestValidator_Text_Violations(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantMsg string
	}{
		{"empty", "   ", "required"},
		{"too short", "Short text.", "at least 50"},
		{"too long", strings.Repeat("abcdefghijk ", 1000), "no more than 10000"},
		{"low variety", strings.Repeat("ab ", 30), "insufficient variety"},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Text(tt.text)
			if err == nil {
				t.Fatal("Expected validation error")
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected *ValidationError, got %T", err)
			}
			if len(verr.Violations) == 0 {
				t.Fatal("Expected at least one violation")
			}
			if verr.Violations[0].Field != "text" {
				t.Errorf("Expected field text, got %s", verr.Violations[0].Field)
			}
			if !strings.Contains(verr.Error(), tt.wantMsg) {
				t.Errorf("Expected message to contain %q, got %q", tt.wantMsg, verr.Error())
			}
		})
	}
}

func TestValidator_Text_LengthCountsRunes(t *testing.T) {
	// 50 two-byte runes with enough variety is exactly on the lower bound
	text := strings.Repeat("äöüßéèêëïî", 5)
	if _, err := New().Text(text); err != nil {
		t.Errorf("Expected 50-rune text to be accepted, got %v", err)
	}
}

func TestCountDistinct(t *testing.T) {
	if got := CountDistinct("AaBbCc"); got != 3 {
		t.Errorf("Expected 3 distinct lower-cased runes, got %d", got)
	}
	if got := CountDistinct(""); got != 0 {
		t.Errorf("Expected 0 for empty string, got %d", got)
	}
}

func TestValidator_Config(t *testing.T) {
	v := New()

	if err := v.Struct(model.DefaultConfig()); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "mystery"
	cfg.Concurrency.Workers = 0

	err := v.Struct(cfg)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %v", err)
	}
	if len(verr.Violations) != 2 {
		t.Errorf("Expected 2 violations, got %d: %v", len(verr.Violations), verr.Violations)
	}
}
