package document

import (
	language "github.com/hanpama/fieldtimer/internal/language"
)

// Lookup resolves a fragment name to its definition, or nil when the name is
// not defined.
type Lookup func(name string) *language.FragmentDefinition

// LookupIn resolves names against list. The first definition of a name wins.
func LookupIn(list language.FragmentDefinitionList) Lookup {
	return func(name string) *language.FragmentDefinition {
		for _, f := range list {
			if f != nil && f.Name == name {
				return f
			}
		}
		return nil
	}
}

// Reachable returns the names of every fragment reachable from sel by
// following spreads, directly or through other fragments. Each fragment is
// visited once, so shared and cyclic references terminate. Spreads of
// undefined fragments are skipped.
func Reachable(sel language.SelectionSet, lookup Lookup) []string {
	var names []string
	visited := map[string]bool{}
	stack := []language.SelectionSet{sel}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range cur {
			switch s := s.(type) {
			case *language.Field:
				if len(s.SelectionSet) > 0 {
					stack = append(stack, s.SelectionSet)
				}
			case *language.InlineFragment:
				stack = append(stack, s.SelectionSet)
			case *language.FragmentSpread:
				if visited[s.Name] {
					continue
				}
				visited[s.Name] = true
				def := lookup(s.Name)
				if def == nil {
					continue
				}
				names = append(names, s.Name)
				stack = append(stack, def.SelectionSet)
			}
		}
	}
	return names
}

// Closure returns the definitions reachable from sel, resolved through
// lookup and ordered as their names first appear in order.
func Closure(sel language.SelectionSet, lookup Lookup, order language.FragmentDefinitionList) language.FragmentDefinitionList {
	want := map[string]bool{}
	for _, name := range Reachable(sel, lookup) {
		want[name] = true
	}
	var out language.FragmentDefinitionList
	for _, f := range order {
		if f == nil || !want[f.Name] {
			continue
		}
		delete(want, f.Name)
		out = append(out, lookup(f.Name))
	}
	return out
}
