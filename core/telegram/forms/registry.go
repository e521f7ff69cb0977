package forms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/tgforms/core/logger"
	"github.com/m3rciful/tgforms/core/telegram/state"
)

// maxTokenLen keeps "\f<token>" inside Telegram's 64-byte callback data limit.
const maxTokenLen = 62

// Step is what a state token points at: a form field or a menu item.
type Step struct {
	Entity Entity
	Field  *Field
	Item   *Item
}

// Registry maps entity ids and state tokens to declarations. Entries are never removed.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]Entity
	tokens   map[state.State]Step
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]Entity),
		tokens:   make(map[state.State]Step),
	}
}

// Register validates e, assigns its state tokens and freezes it. On error the
// registry is left unchanged.
func (r *Registry) Register(e Entity) error {
	if e == nil {
		return &RegistrationError{Reason: "nil entity"}
	}
	id := e.ID()
	if err := checkName(id); err != nil {
		return &RegistrationError{ID: id, Reason: "id " + err.Error()}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.entities[id]; dup {
		return &RegistrationError{ID: id, Reason: "duplicate id"}
	}
	steps, err := plan(e)
	if err != nil {
		return err
	}
	for tok := range steps {
		if prev, taken := r.tokens[tok]; taken {
			return &RegistrationError{ID: id, Reason: fmt.Sprintf("state token %q already used by %q", tok, prev.Entity.ID())}
		}
	}

	for tok, st := range steps {
		r.tokens[tok] = st
		switch {
		case st.Field != nil:
			st.Field.form = e.(*Form)
			st.Field.token = tok
		case st.Item != nil:
			st.Item.menu = e.(*Menu)
			st.Item.token = tok
		}
	}
	switch v := e.(type) {
	case *Form:
		v.frozen = true
	case *Menu:
		v.frozen = true
	}
	r.entities[id] = e

	logger.Debug(context.Background(), "forms", "register",
		slog.String(e.Kind().String(), id),
		slog.Int("fields", len(steps)),
	)
	return nil
}

// MustRegister registers every entity and panics on the first failure. Meant for
// startup wiring where a bad declaration must stop the process.
func (r *Registry) MustRegister(entities ...Entity) {
	for _, e := range entities {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
}

func plan(e Entity) (map[state.State]Step, error) {
	id := e.ID()
	steps := make(map[state.State]Step)
	add := func(key string, st Step) error {
		if err := checkName(key); err != nil {
			return &RegistrationError{ID: id, Reason: fmt.Sprintf("key %q %s", key, err)}
		}
		tok := Token(id, key)
		if len(tok) > maxTokenLen {
			return &RegistrationError{ID: id, Reason: fmt.Sprintf("state token %q longer than %d bytes", tok, maxTokenLen)}
		}
		if _, dup := steps[tok]; dup {
			return &RegistrationError{ID: id, Reason: fmt.Sprintf("duplicate key %q", key)}
		}
		steps[tok] = st
		return nil
	}

	switch e.Kind() {
	case KindForm:
		form, ok := e.(*Form)
		if !ok || form == nil {
			return nil, &UnsupportedEntityError{ID: id, Kind: e.Kind()}
		}
		if len(form.fields) == 0 {
			return nil, &RegistrationError{ID: id, Reason: "form has no fields"}
		}
		for _, f := range form.fields {
			if f == nil {
				return nil, &RegistrationError{ID: id, Reason: "nil field"}
			}
			if f.form != nil && f.form != form {
				return nil, &RegistrationError{ID: id, Reason: fmt.Sprintf("field %q already belongs to %q", f.key, f.form.id)}
			}
			if err := add(f.key, Step{Entity: form, Field: f}); err != nil {
				return nil, err
			}
		}
	case KindMenu:
		menu, ok := e.(*Menu)
		if !ok || menu == nil {
			return nil, &UnsupportedEntityError{ID: id, Kind: e.Kind()}
		}
		if len(menu.items) == 0 {
			return nil, &RegistrationError{ID: id, Reason: "menu has no items"}
		}
		for _, it := range menu.items {
			if it == nil {
				return nil, &RegistrationError{ID: id, Reason: "nil item"}
			}
			if it.menu != nil && it.menu != menu {
				return nil, &RegistrationError{ID: id, Reason: fmt.Sprintf("item %q already belongs to %q", it.key, it.menu.id)}
			}
			if err := add(it.key, Step{Entity: menu, Item: it}); err != nil {
				return nil, err
			}
		}
	default:
		return nil, &UnsupportedEntityError{ID: id, Kind: e.Kind()}
	}
	return steps, nil
}

func checkName(name string) error {
	switch {
	case name == "":
		return errors.New("is empty")
	case strings.ContainsAny(name, "|:"):
		return errors.New("contains '|' or ':'")
	case strings.ContainsFunc(name, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' }):
		return errors.New("contains whitespace")
	}
	return nil
}

// Entity returns the entity registered under id.
func (r *Registry) Entity(id string) (Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, &LookupError{What: "entity", ID: id}
	}
	return e, nil
}

// Form returns the form registered under id.
func (r *Registry) Form(id string) (*Form, error) {
	e, err := r.Entity(id)
	if err != nil {
		return nil, &LookupError{What: "form", ID: id}
	}
	f, ok := e.(*Form)
	if !ok {
		return nil, &LookupError{What: "form", ID: id}
	}
	return f, nil
}

// Menu returns the menu registered under id.
func (r *Registry) Menu(id string) (*Menu, error) {
	e, err := r.Entity(id)
	if err != nil {
		return nil, &LookupError{What: "menu", ID: id}
	}
	m, ok := e.(*Menu)
	if !ok {
		return nil, &LookupError{What: "menu", ID: id}
	}
	return m, nil
}

// Resolve maps a state token to its field or item.
func (r *Registry) Resolve(tok state.State) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.tokens[tok]
	if !ok {
		return Step{}, &LookupError{What: "state token", ID: string(tok)}
	}
	return st, nil
}

// Len is the number of registered entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Entities returns every entity sorted by id.
func (r *Registry) Entities() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Validate checks that every menu link points at a registered entity.
func (r *Registry) Validate() error {
	var errs []error
	for _, e := range r.Entities() {
		m, ok := e.(*Menu)
		if !ok {
			continue
		}
		for _, it := range m.items {
			if it.target == "" {
				continue
			}
			if _, err := r.Entity(it.target); err != nil {
				errs = append(errs, fmt.Errorf("menu %q item %q: %w", m.id, it.key, err))
			}
		}
	}
	return errors.Join(errs...)
}
