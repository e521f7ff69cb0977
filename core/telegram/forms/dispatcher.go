package forms

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/m3rciful/tgforms/core/logger"
	"github.com/m3rciful/tgforms/core/telegram/helpers"
	"github.com/m3rciful/tgforms/core/telegram/keyboard"
	"github.com/m3rciful/tgforms/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

const (
	defaultGenericError = "Invalid value, please try again."
	defaultSkipLabel    = "Skip"
	defaultContactLabel = "Share contact"
)

// Options configures a Dispatcher. Zero values pick the defaults.
type Options struct {
	// Messenger delivers prompts and menus; BotMessenger{} when nil.
	Messenger Messenger
	// GenericError is shown when a failing validator has no message of its own.
	GenericError Label
	// SkipLabel is the reply button offered on optional fields.
	SkipLabel Label
	// ContactLabel is the share-contact button of phone fields.
	ContactLabel Label
	// DropData clears the value bag when a form finishes instead of keeping it.
	DropData bool
	Hooks    Hooks
}

// pendingRun is the form run a conversation is in. A conversation has at most one;
// starting a form replaces whatever run was there.
type pendingRun struct {
	form       string
	id         string
	onComplete CompletionFunc
}

// Dispatcher sequences forms and navigates menus for every conversation of a bot.
// It keeps no per-conversation state besides completion callbacks; the current
// step and collected values live in the state.Store.
type Dispatcher struct {
	reg   *Registry
	store state.Store
	msgr  Messenger
	opts  Options

	mu       sync.Mutex
	machines map[string]*machine
	handlers map[state.State]tele.HandlerFunc
	runs     map[state.Key]pendingRun
}

// NewDispatcher creates a dispatcher over reg and store.
func NewDispatcher(reg *Registry, store state.Store, opts Options) *Dispatcher {
	if opts.GenericError == nil {
		opts.GenericError = Str(defaultGenericError)
	}
	if opts.SkipLabel == nil {
		opts.SkipLabel = Str(defaultSkipLabel)
	}
	if opts.ContactLabel == nil {
		opts.ContactLabel = Str(defaultContactLabel)
	}
	msgr := opts.Messenger
	if msgr == nil {
		msgr = BotMessenger{}
	}
	return &Dispatcher{
		reg:      reg,
		store:    store,
		msgr:     msgr,
		opts:     opts,
		machines: make(map[string]*machine),
		handlers: make(map[state.State]tele.HandlerFunc),
		runs:     make(map[state.Key]pendingRun),
	}
}

// Registry returns the registry the dispatcher resolves entities from.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Store returns the conversation store.
func (d *Dispatcher) Store() state.Store { return d.store }

// bind installs the transition table and field handlers of f once per process.
func (d *Dispatcher) bind(f *Form) *machine {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.machines[f.id]; ok {
		return m
	}
	m := newMachine(f)
	d.machines[f.id] = m
	for _, fld := range f.fields {
		form, field := f, fld
		d.handlers[fld.token] = func(c tele.Context) error {
			return d.handleField(c, form, field)
		}
	}
	logger.Debug(context.Background(), "forms", "bind",
		slog.String("form", f.id),
		slog.Int("fields", len(f.fields)),
	)
	return m
}

func (d *Dispatcher) handler(tok state.State) (tele.HandlerFunc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handlers[tok]
	return h, ok
}

// Start puts the conversation on the first field of formID and sends its prompt.
// onComplete overrides the form's own completion for this run; it may be nil.
func (d *Dispatcher) Start(c tele.Context, formID string, onComplete CompletionFunc) error {
	ctx := helpers.BuildContext(c)
	form, err := d.reg.Form(formID)
	if err != nil {
		return err
	}
	m := d.bind(form)

	first, err := m.step(ctx, state.StateIdle, eventStart)
	if err != nil {
		return err
	}
	key := state.KeyFrom(c)
	if err := d.store.SetState(ctx, key, first); err != nil {
		return fmt.Errorf("forms: start %s: %w", formID, err)
	}

	run := pendingRun{form: formID, id: uuid.NewString(), onComplete: onComplete}
	d.mu.Lock()
	if prev, ok := d.runs[key]; ok && prev.form != formID {
		logger.Debug(ctx, "forms", "form.abandon",
			slog.String("form", prev.form),
			slog.String("form_run", prev.id),
		)
	}
	d.runs[key] = run
	d.mu.Unlock()
	ctx = logger.WithFormRun(ctx, formID, run.id)

	d.opts.Hooks.formStarted(ctx, formID)
	logger.Info(ctx, "forms", "form.start", slog.String("state", string(first)))
	return d.prompt(ctx, c, form.FirstField(), resolve(form.title))
}

// InProgress reports whether the conversation is currently inside a form step.
func (d *Dispatcher) InProgress(c tele.Context) bool {
	ctx := helpers.BuildContext(c)
	cur, err := d.store.GetState(ctx, state.KeyFrom(c))
	if err != nil {
		logger.Error(ctx, "forms", "state.read", slog.String("err", err.Error()))
		return false
	}
	return cur != "" && cur != state.StateIdle
}

// Cancel abandons the active form of the conversation without running its
// completion. It reports whether a form was active.
func (d *Dispatcher) Cancel(c tele.Context) (bool, error) {
	ctx := helpers.BuildContext(c)
	key := state.KeyFrom(c)
	cur, err := d.store.GetState(ctx, key)
	if err != nil {
		return false, fmt.Errorf("forms: read state: %w", err)
	}
	if cur == state.StateIdle {
		return false, nil
	}
	if err := d.store.Reset(ctx, key, !d.opts.DropData); err != nil {
		return false, fmt.Errorf("forms: cancel: %w", err)
	}

	d.mu.Lock()
	delete(d.runs, key)
	d.mu.Unlock()

	var formID string
	if step, err := d.reg.Resolve(cur); err == nil {
		formID = step.Entity.ID()
	}
	logger.Info(ctx, "forms", "form.cancel",
		slog.String("form", formID),
		slog.String("state", string(cur)),
	)
	return true, nil
}

// ManagerHandler feeds an update to the handler bound to the conversation's state.
// Tokens with no bound field are logged and ignored.
func (d *Dispatcher) ManagerHandler(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	cur, err := d.store.GetState(ctx, state.KeyFrom(c))
	if err != nil {
		return fmt.Errorf("forms: read state: %w", err)
	}
	if cur == state.StateIdle {
		return nil
	}

	h, ok := d.handler(cur)
	if !ok {
		// After a restart persistent stores may hold tokens of forms not yet bound here.
		if step, err := d.reg.Resolve(cur); err == nil {
			switch step.Entity.Kind() {
			case KindForm:
				d.bind(step.Entity.(*Form))
				h, ok = d.handler(cur)
			case KindMenu:
			default:
				return &UnsupportedEntityError{ID: step.Entity.ID(), Kind: step.Entity.Kind()}
			}
		}
	}
	if !ok {
		logger.Warn(ctx, "forms", "state.unknown", slog.String("state", string(cur)))
		return nil
	}
	return h(c)
}

func (d *Dispatcher) handleField(c tele.Context, form *Form, field *Field) error {
	key := state.KeyFrom(c)
	ctx := d.runContext(helpers.BuildContext(c), key, form.id)

	value, verr := d.runPipeline(ctx, c, field)
	if verr != nil {
		d.opts.Hooks.validationFailed(ctx, form.id, field.key, verr.Rule)
		logger.Info(ctx, "forms", "field.invalid",
			slog.String("form", form.id),
			slog.String("field", field.key),
			slog.String("code", verr.Rule),
		)
		return d.prompt(ctx, c, field, d.errorText(field, verr.Rule))
	}

	if err := d.store.UpdateData(ctx, key, map[string]any{field.DataKey(): value}); err != nil {
		return fmt.Errorf("forms: store %s: %w", field.DataKey(), err)
	}

	m := d.bind(form)
	next, err := m.step(ctx, field.token, advanceEvent(field.token))
	if err != nil {
		return err
	}
	d.opts.Hooks.fieldAccepted(ctx, form.id, field.key)
	logger.Debug(ctx, "forms", "field.accepted",
		slog.String("form", form.id),
		slog.String("field", field.key),
		slog.String("state", string(next)),
	)

	if next == stateFinished {
		return d.finish(ctx, c, form, m)
	}
	if err := d.store.SetState(ctx, key, next); err != nil {
		return fmt.Errorf("forms: advance %s: %w", form.id, err)
	}
	return d.prompt(ctx, c, form.NextField(field), "")
}

// runContext tags ctx with the active run of formID, when this process started it.
func (d *Dispatcher) runContext(ctx context.Context, key state.Key, formID string) context.Context {
	d.mu.Lock()
	run, ok := d.runs[key]
	d.mu.Unlock()
	if !ok || run.form != formID {
		return logger.WithFormRun(ctx, formID, "")
	}
	return logger.WithFormRun(ctx, formID, run.id)
}

// finish returns the conversation to idle and runs the completion callback with the
// collected values.
func (d *Dispatcher) finish(ctx context.Context, c tele.Context, form *Form, m *machine) error {
	key := state.KeyFrom(c)
	data, err := d.FormData(ctx, key, form.id)
	if err != nil {
		return err
	}
	if _, err := m.step(ctx, stateFinished, eventReset); err != nil {
		return err
	}
	if err := d.store.Reset(ctx, key, !d.opts.DropData); err != nil {
		return fmt.Errorf("forms: finish %s: %w", form.id, err)
	}

	d.mu.Lock()
	run, ok := d.runs[key]
	if ok && run.form == form.id {
		delete(d.runs, key)
	} else {
		ok = false
	}
	d.mu.Unlock()

	d.opts.Hooks.formCompleted(ctx, form.id)
	logger.Info(ctx, "forms", "form.complete", slog.Int("fields", len(data)))

	cb := run.onComplete
	if !ok || cb == nil {
		cb = form.onComplete
	}
	if cb == nil {
		return nil
	}
	return cb(c, data)
}

// FormData reads back the values stored for formID, keyed by field key.
func (d *Dispatcher) FormData(ctx context.Context, key state.Key, formID string) (Data, error) {
	form, err := d.reg.Form(formID)
	if err != nil {
		return nil, err
	}
	bag, err := d.store.GetData(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("forms: read data: %w", err)
	}
	out := make(Data, len(form.fields))
	for _, f := range form.fields {
		if v, ok := bag[f.DataKey()]; ok {
			out[f.key] = v
		}
	}
	return out, nil
}

func (d *Dispatcher) errorText(f *Field, rule string) string {
	if msg, ok := f.message(rule); ok {
		return msg
	}
	return resolve(d.opts.GenericError)
}

// prompt sends the label and help of f, preceded by lead (a title or an error).
func (d *Dispatcher) prompt(ctx context.Context, c tele.Context, f *Field, lead string) error {
	text := resolve(f.label)
	if help := resolve(f.help); help != "" {
		text += "\n" + help
	}
	if lead != "" {
		text = lead + "\n\n" + text
	}
	logger.Debug(ctx, "forms", "field.prompt",
		slog.String("form", f.form.id),
		slog.String("field", f.key),
	)
	return d.msgr.Send(c, text, d.fieldMarkup(f))
}

func (d *Dispatcher) fieldMarkup(f *Field) *tele.ReplyMarkup {
	if f.markup != nil {
		return f.markup()
	}
	skip := resolve(d.opts.SkipLabel)
	switch f.typ {
	case TypeChoice:
		rows := make([][]string, 0, len(f.choices)+1)
		for _, ch := range f.choices {
			rows = append(rows, []string{resolve(ch.Label)})
		}
		if !f.required {
			rows = append(rows, []string{skip})
		}
		return keyboard.ReplyButtons(rows...)
	case TypePhone:
		markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
		rows := []tele.Row{markup.Row(markup.Contact(resolve(d.opts.ContactLabel)))}
		if !f.required {
			rows = append(rows, markup.Row(markup.Text(skip)))
		}
		markup.Reply(rows...)
		return markup
	}
	if !f.required {
		return keyboard.ReplyButtons([]string{skip})
	}
	return keyboard.RemoveKeyboard()
}
