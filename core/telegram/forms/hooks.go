package forms

import "context"

// Hooks observe dispatcher progress. Every hook is optional.
type Hooks struct {
	FormStarted      func(ctx context.Context, form string)
	FieldAccepted    func(ctx context.Context, form, field string)
	ValidationFailed func(ctx context.Context, form, field, rule string)
	FormCompleted    func(ctx context.Context, form string)
	MenuShown        func(ctx context.Context, menu string, edited bool)
	ItemSelected     func(ctx context.Context, menu, item string)
}

func (h Hooks) formStarted(ctx context.Context, form string) {
	if h.FormStarted != nil {
		h.FormStarted(ctx, form)
	}
}

func (h Hooks) fieldAccepted(ctx context.Context, form, field string) {
	if h.FieldAccepted != nil {
		h.FieldAccepted(ctx, form, field)
	}
}

func (h Hooks) validationFailed(ctx context.Context, form, field, rule string) {
	if h.ValidationFailed != nil {
		h.ValidationFailed(ctx, form, field, rule)
	}
}

func (h Hooks) formCompleted(ctx context.Context, form string) {
	if h.FormCompleted != nil {
		h.FormCompleted(ctx, form)
	}
}

func (h Hooks) menuShown(ctx context.Context, menu string, edited bool) {
	if h.MenuShown != nil {
		h.MenuShown(ctx, menu, edited)
	}
}

func (h Hooks) itemSelected(ctx context.Context, menu, item string) {
	if h.ItemSelected != nil {
		h.ItemSelected(ctx, menu, item)
	}
}
