package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/tgforms/core/config"
	"github.com/m3rciful/tgforms/core/telegram/forms"
	"github.com/m3rciful/tgforms/core/telegram/forms/definition"
)

const exampleDefinitions = "../../configs/forms.example.yaml"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formsbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: abc
forms:
  parse_mode: MarkdownV2
database:
  host: db
`)
	t.Setenv("STORE_BACKEND", "postgres")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Telegram.Token)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, coreconfig.StorePostgres, cfg.Store.Backend)
	assert.Equal(t, "markdownv2", cfg.Forms.ParseMode)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadConfigRequiresDatabaseForPostgres(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: abc\nstore:\n  backend: postgres\n")
	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestExampleDefinitionsRegister(t *testing.T) {
	f, err := definition.Load(exampleDefinitions)
	require.NoError(t, err)

	reg := forms.NewRegistry()
	require.NoError(t, definition.RegisterAll(context.Background(), reg, f, definitionActions("markdownv2")))
	require.NoError(t, reg.Validate())

	_, err = reg.Menu(mainMenu)
	assert.NoError(t, err)
	for _, e := range reg.Entities() {
		if e.Kind() == forms.KindForm {
			assert.Regexp(t, commandName, e.ID())
		}
	}
}

func TestInspectPrintsTokens(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect", exampleDefinitions})
	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "signup.email")
	assert.Contains(t, text, "main.feedback")
	assert.Contains(t, text, "-> more")
}

func TestInspectStubsUnknownActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.yaml")
	doc := "forms:\n  - id: f\n    on_complete: elsewhere\n    fields:\n      - {key: a, label: A, validators: [custom]}\n" +
		"menus:\n  - id: m\n    items:\n      - {key: x, label: X, action: external}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "action")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "formsbot "))
}

func TestRenderDataEscapesValues(t *testing.T) {
	text := renderData("Thanks!", map[string]any{"name": "a_b", "age": nil}, "markdownv2")
	assert.Equal(t, "Thanks\\!\nage: \\-\nname: a\\_b", text)

	plain := renderData("Thanks!", map[string]any{"name": "a_b"}, "")
	assert.Equal(t, "Thanks!\nname: a_b", plain)
}

func TestNoDigits(t *testing.T) {
	assert.NoError(t, noDigits(context.Background(), "Alice"))
	assert.ErrorIs(t, noDigits(context.Background(), "R2D2"), errHasDigits)
}

var _ tele.HandlerFunc = aboutAction
