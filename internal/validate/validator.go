package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	MinTextLength     = 50
	MaxTextLength     = 10000
	MinDistinctChars  = 10
	distinctCharsRule = "distinctchars"
)

// SubmissionInput is the user-supplied payload for a new submission
type SubmissionInput struct {
	Text string `json:"text" validate:"required,min=50,max=10000,distinctchars=10"`
}

// Violation is one failed rule on one field
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rule the input broke
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Field+": "+v.Message)
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// Validator checks submission input and configuration structs
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the custom text rules registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// Registration only fails on an empty tag or nil func
	_ = v.RegisterValidation(distinctCharsRule, distinctChars)
	return &Validator{v: v}
}

// Text trims raw and checks it against the submission rules.
// It returns the trimmed text, or a *ValidationError.
func (val *Validator) Text(raw string) (string, error) {
	in := SubmissionInput{Text: strings.TrimSpace(raw)}
	if err := val.Struct(in); err != nil {
		return "", err
	}
	return in.Text, nil
}

// Struct validates any tagged struct, converting rule failures into a *ValidationError
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Violations = append(out.Violations, Violation{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

// distinctChars requires at least param distinct lower-cased runes
func distinctChars(fl validator.FieldLevel) bool {
	need, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return CountDistinct(fl.Field().String()) >= need
}

// CountDistinct counts the distinct lower-cased runes in s
func CountDistinct(s string) int {
	seen := make(map[rune]struct{})
	for _, r := range s {
		seen[unicode.ToLower(r)] = struct{}{}
	}
	return len(seen)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Text must be at least %s characters long.", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Text must be no more than %s characters long.", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s.", fe.Param())
	case distinctCharsRule:
		return "Text appears to contain insufficient variety. Please provide meaningful content."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	}
	return fmt.Sprintf("Failed %q rule.", fe.Tag())
}
