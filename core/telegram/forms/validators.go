package forms

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

// Codes of the checks the pipeline runs before field validators.
const (
	RuleRequired = "required"
	RuleType     = "type"
)

// Validator checks a processed value. Validate may block (for example on a
// database lookup) and should honour ctx.
type Validator interface {
	Code() string
	Validate(ctx context.Context, v any) error
}

type funcValidator struct {
	code string
	fn   func(ctx context.Context, v any) error
}

func (f funcValidator) Code() string { return f.code }

func (f funcValidator) Validate(ctx context.Context, v any) error { return f.fn(ctx, v) }

// ValidatorFunc adapts a function into a Validator with the given code.
func ValidatorFunc(code string, fn func(ctx context.Context, v any) error) Validator {
	return funcValidator{code: code, fn: fn}
}

// Integer accepts values that parse as a base-10 integer.
func Integer() Validator {
	return ValidatorFunc("integer", func(_ context.Context, v any) error {
		switch n := v.(type) {
		case int, int32, int64:
			return nil
		case json.Number:
			_, err := n.Int64()
			return err
		}
		s, _ := textOf(v)
		if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
			return fmt.Errorf("%q is not an integer", s)
		}
		return nil
	})
}

// MinLength requires at least n characters.
func MinLength(n int) Validator {
	return ValidatorFunc("min_length", func(_ context.Context, v any) error {
		s, _ := textOf(v)
		if utf8.RuneCountInString(s) < n {
			return fmt.Errorf("shorter than %d", n)
		}
		return nil
	})
}

// MaxLength allows at most n characters.
func MaxLength(n int) Validator {
	return ValidatorFunc("max_length", func(_ context.Context, v any) error {
		s, _ := textOf(v)
		if utf8.RuneCountInString(s) > n {
			return fmt.Errorf("longer than %d", n)
		}
		return nil
	})
}

// Regex requires the textual value to match re.
func Regex(re *regexp.Regexp) Validator {
	return ValidatorFunc("regex", func(_ context.Context, v any) error {
		s, _ := textOf(v)
		if !re.MatchString(s) {
			return fmt.Errorf("does not match %s", re)
		}
		return nil
	})
}

// Pattern is Regex with a pattern compiled at declaration time; it panics on a bad expression.
func Pattern(expr string) Validator {
	return Regex(regexp.MustCompile(expr))
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,20}$`)
)

// Email accepts a plausible e-mail address.
func Email() Validator {
	return ValidatorFunc("email", func(_ context.Context, v any) error {
		s, _ := textOf(v)
		if !emailRe.MatchString(s) {
			return fmt.Errorf("%q is not an e-mail address", s)
		}
		return nil
	})
}

// Phone accepts international numbers with 7 to 15 digits.
func Phone() Validator {
	return ValidatorFunc("phone", func(_ context.Context, v any) error {
		s, _ := textOf(v)
		if !phoneRe.MatchString(s) {
			return fmt.Errorf("%q is not a phone number", s)
		}
		digits := 0
		for _, r := range s {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits < 7 || digits > 15 {
			return fmt.Errorf("%q has %d digits", s, digits)
		}
		return nil
	})
}

// OneOf accepts only the listed values.
func OneOf(values ...string) Validator {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return ValidatorFunc("one_of", func(_ context.Context, v any) error {
		s, _ := textOf(v)
		if _, ok := allowed[s]; !ok {
			return fmt.Errorf("%q is not an allowed value", s)
		}
		return nil
	})
}

// Range accepts numbers within [min, max].
func Range(min, max float64) Validator {
	return ValidatorFunc("range", func(_ context.Context, v any) error {
		n, ok := numberOf(v)
		if !ok {
			return fmt.Errorf("%v is not a number", v)
		}
		if n < min || n > max {
			return fmt.Errorf("%v outside [%v, %v]", n, min, max)
		}
		return nil
	})
}

func textOf(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case time.Time:
		return t.Format(time.RFC3339), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		return f, err == nil
	}
	return 0, false
}
