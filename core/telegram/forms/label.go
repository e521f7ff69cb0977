package forms

// Label is display text resolved at render time. Results are never cached, so
// translations swapped at runtime show up on the next prompt.
type Label interface {
	Resolve() string
}

// Str is a literal label.
type Str string

// Resolve returns the literal text.
func (s Str) Resolve() string { return string(s) }

// LabelFunc is a lazily evaluated label, typically a translation lookup.
type LabelFunc func() string

// Resolve calls the function.
func (f LabelFunc) Resolve() string {
	if f == nil {
		return ""
	}
	return f()
}

func resolve(l Label) string {
	if l == nil {
		return ""
	}
	return l.Resolve()
}
