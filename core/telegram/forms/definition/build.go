package definition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/m3rciful/tgforms/core/logger"
	"github.com/m3rciful/tgforms/core/telegram/forms"
)

var (
	ErrUnknownType      = errors.New("definition: unknown field type")
	ErrUnknownValidator = errors.New("definition: unknown validator")
	ErrUnknownAction    = errors.New("definition: unknown action")
)

// Actions binds names used in a definitions file to code.
type Actions struct {
	Completions map[string]forms.CompletionFunc
	Items       map[string]forms.ActionFunc
	Validators  map[string]forms.Validator
}

type fieldCtor func(key string, label forms.Label, opts ...forms.FieldOption) *forms.Field

var fieldTypes = map[forms.FieldType]fieldCtor{
	forms.TypeText:     forms.TextField,
	forms.TypeInteger:  forms.IntegerField,
	forms.TypeFloat:    forms.FloatField,
	forms.TypeDate:     forms.DateField,
	forms.TypeEmail:    forms.EmailField,
	forms.TypePhone:    forms.PhoneField,
	forms.TypeDocument: forms.DocumentField,
	forms.TypePhoto:    forms.PhotoField,
}

// Build turns a decoded file into entities ready for registration. Forms come
// first, in document order, followed by menus.
func Build(f *File, acts Actions) ([]forms.Entity, error) {
	out := make([]forms.Entity, 0, len(f.Forms)+len(f.Menus))
	for _, fs := range f.Forms {
		form, err := buildForm(fs, acts)
		if err != nil {
			return nil, fmt.Errorf("definition: form %q: %w", fs.ID, err)
		}
		out = append(out, form)
	}
	for _, ms := range f.Menus {
		menu, err := buildMenu(ms, acts)
		if err != nil {
			return nil, fmt.Errorf("definition: menu %q: %w", ms.ID, err)
		}
		out = append(out, menu)
	}
	return out, nil
}

// RegisterAll builds f and registers every entity in reg.
func RegisterAll(ctx context.Context, reg *forms.Registry, f *File, acts Actions) error {
	entities, err := Build(f, acts)
	if err != nil {
		return err
	}
	for _, e := range entities {
		if err := reg.Register(e); err != nil {
			return err
		}
	}
	logger.Info(ctx, "forms", "definitions.registered",
		slog.Int("forms", len(f.Forms)),
		slog.Int("menus", len(f.Menus)),
	)
	return nil
}

func buildForm(fs FormSpec, acts Actions) (*forms.Form, error) {
	form := forms.NewForm(fs.ID)
	if fs.Title != "" {
		form.WithTitle(forms.Str(fs.Title))
	}
	if fs.OnComplete != "" {
		fn, ok := acts.Completions[fs.OnComplete]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownAction, fs.OnComplete)
		}
		form.OnComplete(fn)
	}
	for _, spec := range fs.Fields {
		field, err := buildField(spec, acts)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", spec.Key, err)
		}
		if err := form.Add(field); err != nil {
			return nil, err
		}
	}
	return form, nil
}

func buildField(fs FieldSpec, acts Actions) (*forms.Field, error) {
	var opts []forms.FieldOption
	if fs.Required {
		opts = append(opts, forms.Required())
	}
	if fs.Help != "" {
		opts = append(opts, forms.Help(forms.Str(fs.Help)))
	}
	for code, msg := range fs.Messages {
		opts = append(opts, forms.ErrorMessage(code, forms.Str(msg)))
	}
	for _, vs := range fs.Validators {
		v, err := buildValidator(vs, acts)
		if err != nil {
			return nil, err
		}
		opts = append(opts, forms.Validate(v))
	}

	label := forms.Str(fs.Label)
	typ := forms.FieldType(fs.Type)
	if typ == "" {
		typ = forms.TypeText
	}
	if typ == forms.TypeChoice {
		if len(fs.Choices) == 0 {
			return nil, errors.New("choice field without choices")
		}
		choices := make([]forms.Choice, 0, len(fs.Choices))
		for _, ch := range fs.Choices {
			choices = append(choices, forms.Choice{Value: ch.Value, Label: forms.Str(ch.Label)})
		}
		return forms.ChoiceField(fs.Key, label, choices, opts...), nil
	}
	ctor, ok := fieldTypes[typ]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, fs.Type)
	}
	return ctor(fs.Key, label, opts...), nil
}

type lengthArgs struct {
	N int `mapstructure:"n"`
}

type patternArgs struct {
	Pattern string `mapstructure:"pattern"`
}

type rangeArgs struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

type oneOfArgs struct {
	Values []string `mapstructure:"values"`
}

var builtinValidators = map[string]struct{}{
	"integer":    {},
	"email":      {},
	"phone":      {},
	"min_length": {},
	"max_length": {},
	"regex":      {},
	"range":      {},
	"one_of":     {},
}

// IsBuiltin reports whether name is a validator Build provides without Actions.
func IsBuiltin(name string) bool {
	_, ok := builtinValidators[name]
	return ok
}

func buildValidator(vs ValidatorSpec, acts Actions) (forms.Validator, error) {
	switch vs.Name {
	case "integer":
		return forms.Integer(), decodeArgs(vs, nil)
	case "email":
		return forms.Email(), decodeArgs(vs, nil)
	case "phone":
		return forms.Phone(), decodeArgs(vs, nil)
	case "min_length", "max_length":
		var args lengthArgs
		if err := decodeArgs(vs, &args); err != nil {
			return nil, err
		}
		if vs.Name == "min_length" {
			return forms.MinLength(args.N), nil
		}
		return forms.MaxLength(args.N), nil
	case "regex":
		var args patternArgs
		if err := decodeArgs(vs, &args); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(args.Pattern)
		if err != nil {
			return nil, fmt.Errorf("validator regex: %w", err)
		}
		return forms.Regex(re), nil
	case "range":
		var args rangeArgs
		if err := decodeArgs(vs, &args); err != nil {
			return nil, err
		}
		if args.Min > args.Max {
			return nil, fmt.Errorf("validator range: min %v > max %v", args.Min, args.Max)
		}
		return forms.Range(args.Min, args.Max), nil
	case "one_of":
		var args oneOfArgs
		if err := decodeArgs(vs, &args); err != nil {
			return nil, err
		}
		return forms.OneOf(args.Values...), nil
	}
	if v, ok := acts.Validators[vs.Name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownValidator, vs.Name)
}

// decodeArgs decodes validator arguments into out. A nil out means the
// validator takes none.
func decodeArgs(vs ValidatorSpec, out any) error {
	if out == nil {
		if len(vs.Args) > 0 {
			return fmt.Errorf("validator %s takes no arguments", vs.Name)
		}
		return nil
	}
	if err := decode(vs.Args, out); err != nil {
		return fmt.Errorf("validator %s: %w", vs.Name, err)
	}
	return nil
}

func buildMenu(ms MenuSpec, acts Actions) (*forms.Menu, error) {
	menu := forms.NewMenu(ms.ID)
	if ms.Title != "" {
		menu.WithTitle(forms.Str(ms.Title))
	}
	if ms.Columns > 0 {
		menu.WithColumns(ms.Columns)
	}
	for _, is := range ms.Items {
		label := forms.Str(is.Label)
		var item *forms.Item
		switch {
		case is.Target != "" && is.Action != "":
			return nil, fmt.Errorf("item %q: both target and action set", is.Key)
		case is.Target != "":
			item = forms.Link(is.Key, label, is.Target)
		case is.Action != "":
			fn, ok := acts.Items[is.Action]
			if !ok {
				return nil, fmt.Errorf("item %q: %w %q", is.Key, ErrUnknownAction, is.Action)
			}
			item = forms.Do(is.Key, label, fn)
		default:
			item = forms.Button(is.Key, label)
		}
		if err := menu.Add(item); err != nil {
			return nil, err
		}
	}
	return menu, nil
}
