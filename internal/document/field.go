package document

// FieldID identifies a top-level selection: a field by name and optional
// alias, or an opaque fragment spread whose Name carries the "..." prefix.
//
// Alias is empty for unaliased fields. The parser records an unaliased field
// with its name as alias, so an explicit alias equal to the name (`a: a`)
// cannot be told apart and is also reported without one.
type FieldID struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// NewFieldID builds the identifier of a field selection, dropping an alias
// that only repeats the name.
func NewFieldID(name, alias string) FieldID {
	if alias == name {
		alias = ""
	}
	return FieldID{Name: name, Alias: alias}
}

// Key is the response key: the alias when present, otherwise the name.
func (f FieldID) Key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func (f FieldID) String() string {
	if f.Alias != "" && f.Alias != f.Name {
		return f.Alias + ": " + f.Name
	}
	return f.Name
}
