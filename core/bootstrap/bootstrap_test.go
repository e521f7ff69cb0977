package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/tgforms/core/config"
	coredatabase "github.com/m3rciful/tgforms/core/database"
	"github.com/m3rciful/tgforms/core/telegram/forms"
	"github.com/m3rciful/tgforms/core/telegram/forms/definition"
	"github.com/m3rciful/tgforms/core/telegram/state"
)

func noLogger(*coreconfig.Config) error { return nil }

func contactForm() *forms.Form {
	return forms.NewForm("contact", forms.TextField("name", forms.Str("Name?"), forms.Required()))
}

func TestRunMemoryStore(t *testing.T) {
	cfg := &coreconfig.Config{}
	res, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Modules:    []Module{Entities(contactForm())},
	})
	require.NoError(t, err)
	defer res.Close()

	assert.Nil(t, res.DB)
	assert.NotNil(t, res.Dispatcher)
	assert.Same(t, res.Forms, res.Dispatcher.Registry())
	_, err = res.Forms.Form("contact")
	assert.NoError(t, err)
}

func TestRunRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := &coreconfig.Config{Store: coreconfig.StoreConfig{
		Backend:    coreconfig.StoreRedis,
		TTLSeconds: 60,
		Redis:      coreconfig.RedisConfig{Addr: mr.Addr(), Prefix: "boot:"},
	}}
	res, err := Run(context.Background(), Options{Config: cfg, LoggerInit: noLogger})
	require.NoError(t, err)
	defer res.Close()

	_, ok := res.Store.(*state.RedisStore)
	require.True(t, ok)
	require.NoError(t, res.Store.SetState(context.Background(), state.Key{ChatID: 1, UserID: 1}, "x.y"))
	assert.True(t, mr.Exists("boot:session:1:1"))
}

func TestRunPostgresUsesInjectedSteps(t *testing.T) {
	cfg := &coreconfig.Config{Store: coreconfig.StoreConfig{Backend: coreconfig.StorePostgres}}
	migrated := false
	res, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return sqlx.NewDb(nil, "postgres"), nil
		},
		Migrate: func(context.Context, *sqlx.DB) error {
			migrated = true
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, migrated)
	_, ok := res.Store.(*state.PostgresStore)
	assert.True(t, ok)
}

func TestRunFailures(t *testing.T) {
	boom := errors.New("boom")

	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)

	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return boom },
	})
	assert.ErrorIs(t, err, boom)

	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{Store: coreconfig.StoreConfig{Backend: coreconfig.StorePostgres}},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return nil, boom
		},
	})
	assert.ErrorIs(t, err, boom)

	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{Store: coreconfig.StoreConfig{Backend: "etcd"}},
		LoggerInit: noLogger,
	})
	assert.Error(t, err)
}

func TestRegisterModulesValidatesLinks(t *testing.T) {
	reg := forms.NewRegistry()
	menu := forms.NewMenu("main", forms.Link("go", forms.Str("Go"), "missing"))
	err := RegisterModules(context.Background(), reg, Entities(menu))
	assert.Error(t, err)

	reg = forms.NewRegistry()
	err = RegisterModules(context.Background(), reg,
		Entities(forms.NewMenu("main", forms.Link("go", forms.Str("Go"), "contact"))),
		nil,
		Entities(contactForm()),
	)
	assert.NoError(t, err)
}

func TestDefinitionsModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forms.yaml")
	doc := "forms:\n  - id: feedback\n    fields:\n      - {key: text, label: Your feedback}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	reg := forms.NewRegistry()
	require.NoError(t, RegisterModules(context.Background(), reg, Definitions(path, definition.Actions{})))
	_, err := reg.Form("feedback")
	assert.NoError(t, err)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, tele.ModeMarkdown, ParseMode("markdown"))
	assert.Equal(t, tele.ModeMarkdownV2, ParseMode("markdownv2"))
	assert.Equal(t, tele.ModeDefault, ParseMode(""))
}

func TestDispatcherOptionsFollowConfig(t *testing.T) {
	retain := false
	cfg := &coreconfig.Config{Forms: coreconfig.FormsConfig{
		RetainData:   &retain,
		GenericError: "Nope",
		ParseMode:    "markdown",
	}}
	opts := dispatcherOptions(cfg, forms.Hooks{})
	assert.True(t, opts.DropData)
	assert.Equal(t, forms.Str("Nope"), opts.GenericError)
	assert.Nil(t, opts.SkipLabel)
	assert.Equal(t, forms.BotMessenger{ParseMode: tele.ModeMarkdown}, opts.Messenger)
}
