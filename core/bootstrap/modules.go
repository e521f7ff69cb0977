package bootstrap

import (
	"context"
	"fmt"

	"github.com/m3rciful/tgforms/core/telegram/forms"
	"github.com/m3rciful/tgforms/core/telegram/forms/definition"
)

// Module declares forms and menus during bootstrap.
type Module interface {
	Register(ctx context.Context, reg *forms.Registry) error
}

// ModuleFunc adapts a bare function to the Module interface.
type ModuleFunc func(ctx context.Context, reg *forms.Registry) error

// Register executes the underlying function.
func (f ModuleFunc) Register(ctx context.Context, reg *forms.Registry) error {
	return f(ctx, reg)
}

// Entities registers entities built in code.
func Entities(entities ...forms.Entity) Module {
	return ModuleFunc(func(_ context.Context, reg *forms.Registry) error {
		for _, e := range entities {
			if err := reg.Register(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Definitions registers the entities of a YAML definitions file.
func Definitions(path string, acts definition.Actions) Module {
	return ModuleFunc(func(ctx context.Context, reg *forms.Registry) error {
		f, err := definition.Load(path)
		if err != nil {
			return err
		}
		return definition.RegisterAll(ctx, reg, f, acts)
	})
}

// RegisterModules runs modules in order and then checks that every menu link resolves.
func RegisterModules(ctx context.Context, reg *forms.Registry, modules ...Module) error {
	for i, m := range modules {
		if m == nil {
			continue
		}
		if err := m.Register(ctx, reg); err != nil {
			return fmt.Errorf("module %d: %w", i, err)
		}
	}
	return reg.Validate()
}
