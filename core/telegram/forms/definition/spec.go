// Package definition loads forms and menus from a YAML document.
//
// The document is decoded into generic maps first and then into the typed specs
// below, so field types, validator names and actions are checked by Build rather
// than by the YAML decoder.
package definition

// File is a decoded definitions document.
type File struct {
	Forms []FormSpec `mapstructure:"forms"`
	Menus []MenuSpec `mapstructure:"menus"`
}

// FormSpec declares a form. OnComplete names an entry of Actions.Completions.
type FormSpec struct {
	ID         string      `mapstructure:"id"`
	Title      string      `mapstructure:"title"`
	OnComplete string      `mapstructure:"on_complete"`
	Fields     []FieldSpec `mapstructure:"fields"`
}

// FieldSpec declares one field of a form.
type FieldSpec struct {
	Key        string            `mapstructure:"key"`
	Type       string            `mapstructure:"type"`
	Label      string            `mapstructure:"label"`
	Help       string            `mapstructure:"help"`
	Required   bool              `mapstructure:"required"`
	Messages   map[string]string `mapstructure:"messages"`
	Validators []ValidatorSpec   `mapstructure:"validators"`
	Choices    []ChoiceSpec      `mapstructure:"choices"`
}

// ValidatorSpec names a validator and its arguments. A bare string in the
// document is shorthand for a validator without arguments.
type ValidatorSpec struct {
	Name string         `mapstructure:"name"`
	Args map[string]any `mapstructure:"args"`
}

// ChoiceSpec is one option of a choice field. A bare string sets both value and label.
type ChoiceSpec struct {
	Value string `mapstructure:"value"`
	Label string `mapstructure:"label"`
}

// MenuSpec declares a menu.
type MenuSpec struct {
	ID      string     `mapstructure:"id"`
	Title   string     `mapstructure:"title"`
	Columns int        `mapstructure:"columns"`
	Items   []ItemSpec `mapstructure:"items"`
}

// ItemSpec declares a menu item. At most one of Target and Action may be set.
type ItemSpec struct {
	Key    string `mapstructure:"key"`
	Label  string `mapstructure:"label"`
	Target string `mapstructure:"target"`
	Action string `mapstructure:"action"`
}
