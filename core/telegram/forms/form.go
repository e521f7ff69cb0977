package forms

import (
	"errors"

	tele "gopkg.in/telebot.v4"
)

// CompletionFunc receives the collected values once the last field is accepted.
type CompletionFunc func(c tele.Context, data Data) error

var errFrozen = errors.New("forms: form is registered and can no longer change")

// Form is an ordered sequence of fields.
type Form struct {
	id         string
	title      Label
	fields     []*Field
	onComplete CompletionFunc
	frozen     bool
}

// NewForm declares a form. Field order is the step order.
func NewForm(id string, fields ...*Field) *Form {
	f := &Form{id: id}
	f.fields = append(f.fields, fields...)
	return f
}

// Add appends fields before registration.
func (f *Form) Add(fields ...*Field) error {
	if f.frozen {
		return errFrozen
	}
	f.fields = append(f.fields, fields...)
	return nil
}

// WithTitle sets text sent once before the first prompt.
func (f *Form) WithTitle(l Label) *Form {
	f.title = l
	return f
}

// OnComplete sets the default completion used when Start is given none.
func (f *Form) OnComplete(fn CompletionFunc) *Form {
	f.onComplete = fn
	return f
}

func (f *Form) ID() string   { return f.id }
func (f *Form) Kind() Kind   { return KindForm }
func (f *Form) Title() Label { return f.title }
func (*Form) sealed()        {}

// Keys returns field keys in declaration order.
func (f *Form) Keys() []string {
	keys := make([]string, len(f.fields))
	for i, fld := range f.fields {
		keys[i] = fld.key
	}
	return keys
}

// Fields returns the fields in declaration order.
func (f *Form) Fields() []*Field {
	return append([]*Field(nil), f.fields...)
}

// Len is the number of fields.
func (f *Form) Len() int { return len(f.fields) }

// Field looks a field up by key.
func (f *Form) Field(key string) (*Field, bool) {
	for _, fld := range f.fields {
		if fld.key == key {
			return fld, true
		}
	}
	return nil, false
}

// FirstField returns the first step, or nil for an empty form.
func (f *Form) FirstField() *Field {
	if len(f.fields) == 0 {
		return nil
	}
	return f.fields[0]
}

// NextField returns the field declared after cur, or nil when cur is last or unknown.
func (f *Form) NextField(cur *Field) *Field {
	for i, fld := range f.fields {
		if fld == cur {
			if i+1 < len(f.fields) {
				return f.fields[i+1]
			}
			return nil
		}
	}
	return nil
}
