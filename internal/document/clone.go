package document

import (
	language "github.com/hanpama/fieldtimer/internal/language"
)

// The clone helpers copy the syntactic part of the AST. Validation-only
// links (Definition, ObjectDefinition, ExpectedType) are not carried since
// documents here are never validated against a schema.

func CloneOperation(op *language.OperationDefinition) *language.OperationDefinition {
	if op == nil {
		return nil
	}
	return &language.OperationDefinition{
		Operation:           op.Operation,
		Name:                op.Name,
		VariableDefinitions: CloneVariables(op.VariableDefinitions),
		Directives:          CloneDirectives(op.Directives),
		SelectionSet:        CloneSelectionSet(op.SelectionSet),
		Position:            clonePosition(op.Position),
	}
}

func CloneFragments(list language.FragmentDefinitionList) language.FragmentDefinitionList {
	if list == nil {
		return nil
	}
	out := make(language.FragmentDefinitionList, len(list))
	for i, f := range list {
		out[i] = CloneFragment(f)
	}
	return out
}

func CloneFragment(f *language.FragmentDefinition) *language.FragmentDefinition {
	if f == nil {
		return nil
	}
	return &language.FragmentDefinition{
		Name:               f.Name,
		VariableDefinition: CloneVariables(f.VariableDefinition),
		TypeCondition:      f.TypeCondition,
		Directives:         CloneDirectives(f.Directives),
		SelectionSet:       CloneSelectionSet(f.SelectionSet),
		Position:           clonePosition(f.Position),
	}
}

func CloneVariables(list language.VariableDefinitionList) language.VariableDefinitionList {
	if list == nil {
		return nil
	}
	out := make(language.VariableDefinitionList, len(list))
	for i, v := range list {
		out[i] = &language.VariableDefinition{
			Variable:     v.Variable,
			Type:         cloneType(v.Type),
			DefaultValue: cloneValue(v.DefaultValue),
			Directives:   CloneDirectives(v.Directives),
			Position:     clonePosition(v.Position),
		}
	}
	return out
}

func CloneSelectionSet(set language.SelectionSet) language.SelectionSet {
	if set == nil {
		return nil
	}
	out := make(language.SelectionSet, len(set))
	for i, s := range set {
		out[i] = CloneSelection(s)
	}
	return out
}

func CloneSelection(s language.Selection) language.Selection {
	switch s := s.(type) {
	case *language.Field:
		return &language.Field{
			Alias:        s.Alias,
			Name:         s.Name,
			Arguments:    cloneArguments(s.Arguments),
			Directives:   CloneDirectives(s.Directives),
			SelectionSet: CloneSelectionSet(s.SelectionSet),
			Position:     clonePosition(s.Position),
		}
	case *language.FragmentSpread:
		return &language.FragmentSpread{
			Name:       s.Name,
			Directives: CloneDirectives(s.Directives),
			Position:   clonePosition(s.Position),
		}
	case *language.InlineFragment:
		return &language.InlineFragment{
			TypeCondition: s.TypeCondition,
			Directives:    CloneDirectives(s.Directives),
			SelectionSet:  CloneSelectionSet(s.SelectionSet),
			Position:      clonePosition(s.Position),
		}
	}
	return s
}

func CloneDirectives(list language.DirectiveList) language.DirectiveList {
	if list == nil {
		return nil
	}
	out := make(language.DirectiveList, len(list))
	for i, d := range list {
		out[i] = &language.Directive{
			Name:      d.Name,
			Arguments: cloneArguments(d.Arguments),
			Position:  clonePosition(d.Position),
			Location:  d.Location,
		}
	}
	return out
}

func cloneArguments(list language.ArgumentList) language.ArgumentList {
	if list == nil {
		return nil
	}
	out := make(language.ArgumentList, len(list))
	for i, a := range list {
		out[i] = &language.Argument{
			Name:     a.Name,
			Value:    cloneValue(a.Value),
			Position: clonePosition(a.Position),
		}
	}
	return out
}

func cloneValue(v *language.Value) *language.Value {
	if v == nil {
		return nil
	}
	out := &language.Value{
		Raw:      v.Raw,
		Kind:     v.Kind,
		Position: clonePosition(v.Position),
	}
	if v.Children != nil {
		out.Children = make(language.ChildValueList, len(v.Children))
		for i, c := range v.Children {
			out.Children[i] = &language.ChildValue{
				Name:     c.Name,
				Value:    cloneValue(c.Value),
				Position: clonePosition(c.Position),
			}
		}
	}
	return out
}

func cloneType(t *language.Type) *language.Type {
	if t == nil {
		return nil
	}
	return &language.Type{
		NamedType: t.NamedType,
		Elem:      cloneType(t.Elem),
		NonNull:   t.NonNull,
		Position:  clonePosition(t.Position),
	}
}

func clonePosition(p *language.Position) *language.Position {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
