package document

import (
	"slices"

	language "github.com/hanpama/fieldtimer/internal/language"
)

// Document is a single executable operation plus the fragment definitions
// transitively reachable from its selection set.
type Document struct {
	Operation *language.OperationDefinition
	Fragments language.FragmentDefinitionList
}

// Name returns the operation name, or "" for an anonymous operation.
func (d *Document) Name() string {
	if d == nil || d.Operation == nil {
		return ""
	}
	return d.Operation.Name
}

// Variables returns the operation's variable definitions.
func (d *Document) Variables() language.VariableDefinitionList {
	if d == nil || d.Operation == nil {
		return nil
	}
	return d.Operation.VariableDefinitions
}

// SelectionSet returns the root selection set of the operation.
func (d *Document) SelectionSet() language.SelectionSet {
	if d == nil || d.Operation == nil {
		return nil
	}
	return d.Operation.SelectionSet
}

// Fragment looks up a fragment definition by name.
func (d *Document) Fragment(name string) *language.FragmentDefinition {
	if d == nil {
		return nil
	}
	for _, f := range d.Fragments {
		if f != nil && f.Name == name {
			return f
		}
	}
	return nil
}

// FragmentNames lists the attached fragment names in document order.
func (d *Document) FragmentNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Fragments))
	for _, f := range d.Fragments {
		names = append(names, f.Name)
	}
	return names
}

// String prints the document as GraphQL source, operation first.
func (d *Document) String() string {
	if d == nil || d.Operation == nil {
		return ""
	}
	return language.FormatQuery(&language.QueryDocument{
		Operations: language.OperationList{d.Operation},
		Fragments:  d.Fragments,
	})
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Operation: CloneOperation(d.Operation)}
	if d.Fragments != nil {
		out.Fragments = make(language.FragmentDefinitionList, len(d.Fragments))
		for i, f := range d.Fragments {
			out.Fragments[i] = CloneFragment(f)
		}
	}
	return out
}

// HasVariable reports whether the operation declares $name.
func (d *Document) HasVariable(name string) bool {
	return slices.ContainsFunc(d.Variables(), func(v *language.VariableDefinition) bool {
		return v.Variable == name
	})
}
