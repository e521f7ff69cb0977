package forms

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/m3rciful/tgforms/core/telegram/helpers"
	"github.com/m3rciful/tgforms/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// FieldType names the built-in field flavours.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeInteger  FieldType = "integer"
	TypeFloat    FieldType = "float"
	TypeDate     FieldType = "date"
	TypeEmail    FieldType = "email"
	TypePhone    FieldType = "phone"
	TypeChoice   FieldType = "choice"
	TypeDocument FieldType = "document"
	TypePhoto    FieldType = "photo"
)

// ExtractFunc derives the raw value from an incoming update. Returning nil or ""
// means the user supplied nothing.
type ExtractFunc func(ctx context.Context, c tele.Context) (any, error)

// ProcessFunc normalises an extracted value before validation.
type ProcessFunc func(ctx context.Context, v any) (any, error)

// MarkupFunc builds the keyboard sent with a field prompt.
type MarkupFunc func() *tele.ReplyMarkup

// Choice is one option of a choice field.
type Choice struct {
	Value string
	Label Label
}

var (
	errNoDocument = errors.New("no document attached")
	errNoPhoto    = errors.New("no photo attached")
)

// Field is one step of a Form.
type Field struct {
	key        string
	typ        FieldType
	label      Label
	help       Label
	required   bool
	messages   map[string]Label
	validators []Validator
	extract    ExtractFunc
	process    ProcessFunc
	markup     MarkupFunc
	choices    []Choice
	processSet bool

	form  *Form
	token state.State
}

// FieldOption customises a field at declaration time.
type FieldOption func(*Field)

// Required rejects empty input.
func Required() FieldOption {
	return func(f *Field) { f.required = true }
}

// Help adds a hint shown under the field label.
func Help(l Label) FieldOption {
	return func(f *Field) { f.help = l }
}

// Validate appends validators, run in order after the built-in ones.
func Validate(v ...Validator) FieldOption {
	return func(f *Field) { f.validators = append(f.validators, v...) }
}

// ErrorMessage sets the text shown when the validator with the given code fails.
// Use RuleRequired and RuleType for the built-in checks.
func ErrorMessage(code string, l Label) FieldOption {
	return func(f *Field) { f.messages[code] = l }
}

// WithExtract overrides how the raw value is read from the update.
func WithExtract(fn ExtractFunc) FieldOption {
	return func(f *Field) {
		if fn != nil {
			f.extract = fn
		}
	}
}

// WithProcess overrides the normalisation step.
func WithProcess(fn ProcessFunc) FieldOption {
	return func(f *Field) {
		if fn != nil {
			f.process = fn
			f.processSet = true
		}
	}
}

// WithMarkup sets a custom prompt keyboard.
func WithMarkup(fn MarkupFunc) FieldOption {
	return func(f *Field) { f.markup = fn }
}

func newField(key string, typ FieldType, label Label, extract ExtractFunc, opts []FieldOption, builtin ...Validator) *Field {
	f := &Field{
		key:        key,
		typ:        typ,
		label:      label,
		messages:   make(map[string]Label),
		validators: append([]Validator(nil), builtin...),
		extract:    extract,
		process:    identity,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// TextField collects trimmed message text.
func TextField(key string, label Label, opts ...FieldOption) *Field {
	return newField(key, TypeText, label, extractText, opts)
}

// IntegerField parses the reply as a base-10 int64.
func IntegerField(key string, label Label, opts ...FieldOption) *Field {
	return newField(key, TypeInteger, label, extractInteger, opts)
}

// FloatField parses the reply as float64, accepting a decimal comma.
func FloatField(key string, label Label, opts ...FieldOption) *Field {
	return newField(key, TypeFloat, label, extractFloat, opts)
}

// DateField parses the reply with the flexible date layouts (2006-01-02, 02.01.2006, ...).
func DateField(key string, label Label, opts ...FieldOption) *Field {
	return newField(key, TypeDate, label, extractDate, opts)
}

// EmailField collects a lower-cased e-mail address.
func EmailField(key string, label Label, opts ...FieldOption) *Field {
	f := newField(key, TypeEmail, label, extractText, opts, Email())
	if !f.processSet {
		f.process = lowerCase
	}
	return f
}

// PhoneField accepts a typed number or a shared contact.
func PhoneField(key string, label Label, opts ...FieldOption) *Field {
	return newField(key, TypePhone, label, extractPhone, opts, Phone())
}

// ChoiceField offers a reply keyboard; the stored value is the choice Value.
func ChoiceField(key string, label Label, choices []Choice, opts ...FieldOption) *Field {
	values := make([]string, 0, len(choices))
	for _, ch := range choices {
		values = append(values, ch.Value)
	}
	f := newField(key, TypeChoice, label, extractText, opts, OneOf(values...))
	f.choices = append([]Choice(nil), choices...)
	if !f.processSet {
		f.process = f.matchChoice
	}
	return f
}

// DocumentField stores the file id of an attached document.
func DocumentField(key string, label Label, opts ...FieldOption) *Field {
	return newField(key, TypeDocument, label, extractDocument, opts)
}

// PhotoField stores the file id of an attached photo.
func PhotoField(key string, label Label, opts ...FieldOption) *Field {
	return newField(key, TypePhoto, label, extractPhoto, opts)
}

func (f *Field) Key() string             { return f.key }
func (f *Field) Type() FieldType         { return f.typ }
func (f *Field) Label() Label            { return f.label }
func (f *Field) IsRequired() bool        { return f.required }
func (f *Field) Choices() []Choice       { return append([]Choice(nil), f.choices...) }
func (f *Field) Validators() []Validator { return append([]Validator(nil), f.validators...) }

// Token is the state token assigned at registration; empty before that.
func (f *Field) Token() state.State { return f.token }

// Form returns the owning form once registered.
func (f *Field) Form() *Form { return f.form }

// DataKey is the bag key the value is stored under.
func (f *Field) DataKey() string {
	if f.form == nil {
		return f.key
	}
	return DataKey(f.form.id, f.key)
}

func (f *Field) message(code string) (string, bool) {
	l, ok := f.messages[code]
	if !ok {
		return "", false
	}
	return resolve(l), true
}

func (f *Field) matchChoice(_ context.Context, v any) (any, error) {
	s, _ := v.(string)
	if s == "" {
		return v, nil
	}
	for _, ch := range f.choices {
		if strings.EqualFold(s, ch.Value) || strings.EqualFold(s, resolve(ch.Label)) {
			return ch.Value, nil
		}
	}
	return s, nil
}

func identity(_ context.Context, v any) (any, error) { return v, nil }

func lowerCase(_ context.Context, v any) (any, error) {
	if s, ok := v.(string); ok {
		return strings.ToLower(s), nil
	}
	return v, nil
}

func messageText(c tele.Context) string {
	if msg := c.Message(); msg != nil {
		if msg.Text != "" {
			return strings.TrimSpace(msg.Text)
		}
		return strings.TrimSpace(msg.Caption)
	}
	return strings.TrimSpace(c.Text())
}

func extractText(_ context.Context, c tele.Context) (any, error) {
	return messageText(c), nil
}

func extractInteger(_ context.Context, c tele.Context) (any, error) {
	text := messageText(c)
	if text == "" {
		return nil, nil
	}
	return strconv.ParseInt(text, 10, 64)
}

func extractFloat(_ context.Context, c tele.Context) (any, error) {
	text := messageText(c)
	if text == "" {
		return nil, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
}

func extractDate(_ context.Context, c tele.Context) (any, error) {
	text := messageText(c)
	if text == "" {
		return nil, nil
	}
	t, ok := helpers.ParseDate(text, nil)
	if !ok {
		return nil, errors.New("unrecognised date")
	}
	return t, nil
}

func extractPhone(_ context.Context, c tele.Context) (any, error) {
	if msg := c.Message(); msg != nil && msg.Contact != nil {
		return strings.TrimSpace(msg.Contact.PhoneNumber), nil
	}
	return messageText(c), nil
}

func extractDocument(_ context.Context, c tele.Context) (any, error) {
	msg := c.Message()
	if msg == nil || msg.Document == nil {
		if messageText(c) == "" {
			return nil, nil
		}
		return nil, errNoDocument
	}
	return msg.Document.FileID, nil
}

func extractPhoto(_ context.Context, c tele.Context) (any, error) {
	msg := c.Message()
	if msg == nil || msg.Photo == nil {
		if messageText(c) == "" {
			return nil, nil
		}
		return nil, errNoPhoto
	}
	return msg.Photo.FileID, nil
}
