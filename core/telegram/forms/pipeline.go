package forms

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// runPipeline turns one update into the value stored for f: extract, process,
// required check, then validators in order. The first failure stops the run.
func (d *Dispatcher) runPipeline(ctx context.Context, c tele.Context, f *Field) (any, *ValidationError) {
	if !f.required && d.isSkip(c) {
		return nil, nil
	}

	raw, err := f.extract(ctx, c)
	if err != nil {
		return nil, &ValidationError{Field: f.key, Rule: RuleType, Err: err}
	}
	v, err := f.process(ctx, raw)
	if err != nil {
		return nil, &ValidationError{Field: f.key, Rule: RuleType, Err: err}
	}

	if isEmpty(v) {
		if f.required {
			return nil, &ValidationError{Field: f.key, Rule: RuleRequired}
		}
		return nil, nil
	}

	for _, val := range f.validators {
		if err := val.Validate(ctx, v); err != nil {
			return nil, &ValidationError{Field: f.key, Rule: val.Code(), Err: err}
		}
	}
	return v, nil
}

// isSkip reports whether the reply is exactly the skip button's text. Typed
// answers that only differ in case are regular values.
func (d *Dispatcher) isSkip(c tele.Context) bool {
	skip := strings.TrimSpace(resolve(d.opts.SkipLabel))
	return skip != "" && messageText(c) == skip
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}
