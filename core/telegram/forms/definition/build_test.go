package definition

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tgforms/core/telegram/forms"
)

const sample = `
forms:
  - id: signup
    title: Sign up
    on_complete: save
    fields:
      - key: name
        label: What is your name?
        required: true
        validators:
          - name: min_length
            args: {n: 2}
      - key: age
        type: integer
        label: How old are you?
        validators:
          - name: range
            args: {min: 1, max: 120}
        messages:
          range: Between 1 and 120 please
      - key: color
        type: choice
        label: Favourite colour?
        choices:
          - red
          - value: blue
            label: Blue
      - key: email
        type: email
        label: E-mail
        validators: [unique]
menus:
  - id: main
    title: Main menu
    columns: 2
    items:
      - key: join
        label: Join
        target: signup
      - key: help
        label: Help
        action: help
      - key: noop
        label: Nothing
`

func sampleActions() Actions {
	return Actions{
		Completions: map[string]forms.CompletionFunc{
			"save": func(tele.Context, forms.Data) error { return nil },
		},
		Items: map[string]forms.ActionFunc{
			"help": func(tele.Context) error { return nil },
		},
		Validators: map[string]forms.Validator{
			"unique": forms.ValidatorFunc("unique", func(context.Context, any) error { return nil }),
		},
	}
}

func TestParseAndBuild(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, f.Forms, 1)
	require.Len(t, f.Menus, 1)

	color := f.Forms[0].Fields[2]
	assert.Equal(t, []ChoiceSpec{{Value: "red", Label: "red"}, {Value: "blue", Label: "Blue"}}, color.Choices)
	assert.Equal(t, []ValidatorSpec{{Name: "unique"}}, f.Forms[0].Fields[3].Validators)

	entities, err := Build(f, sampleActions())
	require.NoError(t, err)
	require.Len(t, entities, 2)

	form := entities[0].(*forms.Form)
	assert.Equal(t, "signup", form.ID())
	assert.Equal(t, []string{"name", "age", "color", "email"}, form.Keys())
	name, _ := form.Field("name")
	assert.True(t, name.IsRequired())
	age, _ := form.Field("age")
	assert.Equal(t, forms.TypeInteger, age.Type())

	menu := entities[1].(*forms.Menu)
	assert.Equal(t, 2, menu.Columns())
	join, _ := menu.Item("join")
	assert.Equal(t, "signup", join.Target())
	help, _ := menu.Item("help")
	assert.NotNil(t, help.Action())
	noop, _ := menu.Item("noop")
	assert.Empty(t, noop.Target())
	assert.Nil(t, noop.Action())
}

func TestBuiltValidatorsApplyArguments(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	entities, err := Build(f, sampleActions())
	require.NoError(t, err)

	form := entities[0].(*forms.Form)
	ctx := context.Background()

	name, _ := form.Field("name")
	v := name.Validators()
	require.Len(t, v, 1)
	assert.Equal(t, "min_length", v[0].Code())
	assert.Error(t, v[0].Validate(ctx, "A"))
	assert.NoError(t, v[0].Validate(ctx, "Al"))

	age, _ := form.Field("age")
	var rng forms.Validator
	for _, v := range age.Validators() {
		if v.Code() == "range" {
			rng = v
		}
	}
	require.NotNil(t, rng)
	assert.NoError(t, rng.Validate(ctx, int64(30)))
	assert.Error(t, rng.Validate(ctx, int64(130)))
}

func TestRegisterAll(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	reg := forms.NewRegistry()
	require.NoError(t, RegisterAll(context.Background(), reg, f, sampleActions()))
	assert.Equal(t, 2, reg.Len())
	require.NoError(t, reg.Validate())

	step, err := reg.Resolve(forms.Token("signup", "age"))
	require.NoError(t, err)
	assert.Equal(t, "age", step.Field.Key())
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want error
	}{
		"unknown type": {
			doc:  "forms:\n  - id: f\n    fields:\n      - {key: a, type: colour, label: A}\n",
			want: ErrUnknownType,
		},
		"unknown validator": {
			doc:  "forms:\n  - id: f\n    fields:\n      - {key: a, label: A, validators: [nope]}\n",
			want: ErrUnknownValidator,
		},
		"unknown completion": {
			doc:  "forms:\n  - id: f\n    on_complete: nope\n    fields:\n      - {key: a, label: A}\n",
			want: ErrUnknownAction,
		},
		"unknown item action": {
			doc:  "menus:\n  - id: m\n    items:\n      - {key: a, label: A, action: nope}\n",
			want: ErrUnknownAction,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f, err := Parse([]byte(tc.doc))
			require.NoError(t, err)
			_, err = Build(f, sampleActions())
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBuildRejectsMalformedDeclarations(t *testing.T) {
	docs := map[string]string{
		"target and action": "menus:\n  - id: m\n    items:\n      - {key: a, label: A, target: f, action: help}\n",
		"choice without choices": "forms:\n  - id: f\n    fields:\n      - {key: a, type: choice, label: A}\n",
		"bad regex": "forms:\n  - id: f\n    fields:\n      - {key: a, label: A, validators: [{name: regex, args: {pattern: '('}}]}\n",
		"args on plain validator": "forms:\n  - id: f\n    fields:\n      - {key: a, label: A, validators: [{name: email, args: {x: 1}}]}\n",
		"unknown argument": "forms:\n  - id: f\n    fields:\n      - {key: a, label: A, validators: [{name: min_length, args: {count: 1}}]}\n",
		"inverted range": "forms:\n  - id: f\n    fields:\n      - {key: a, label: A, validators: [{name: range, args: {min: 5, max: 1}}]}\n",
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			f, err := Parse([]byte(doc))
			require.NoError(t, err)
			_, err = Build(f, sampleActions())
			assert.Error(t, err)
		})
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("forms:\n  - id: f\n    feilds: []\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("forms: [\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Forms, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestIsBuiltin(t *testing.T) {
	assert.True(t, IsBuiltin("regex"))
	assert.False(t, IsBuiltin("unique"))
}
