// Package isolate splits a Document into one derived Document per top-level
// field.
//
// Each derived Document keeps exactly one field of the root selection set,
// every variable definition of the original operation, the operation's
// directives, and precisely the fragments reachable from what is kept. The
// transformation is pure: the input Document is never modified and derived
// Documents share no AST nodes with it or with each other.
//
// Root-level fragment spreads and inline fragments are not timeable units
// themselves. They are expanded into the fields they contribute, and each of
// those fields keeps its wrapper chain so type conditions and directives
// still apply: an inline fragment wrapper is narrowed to the one field, a
// spread is kept and its fragment definition is narrowed to the one field.
package isolate

import (
	"fmt"
	"iter"
	"strings"

	document "github.com/hanpama/fieldtimer/internal/document"
	language "github.com/hanpama/fieldtimer/internal/language"
)

// Unit is one timeable top-level field and the derived Document that
// requests it alone.
type Unit struct {
	Index    int
	Field    document.FieldID
	Document *document.Document
}

// Count returns the number of units doc decomposes into.
func Count(doc *document.Document) int {
	return len(collectTargets(doc))
}

// Units eagerly isolates every top-level field of doc, in query order.
func Units(doc *document.Document) []Unit {
	targets := collectTargets(doc)
	out := make([]Unit, 0, len(targets))
	for i, t := range targets {
		out = append(out, build(doc, i, t))
	}
	return out
}

// All lazily yields the units of doc in query order. Each derived Document
// is built only when the consumer asks for it.
func All(doc *document.Document) iter.Seq[Unit] {
	return func(yield func(Unit) bool) {
		for i, t := range collectTargets(doc) {
			if !yield(build(doc, i, t)) {
				return
			}
		}
	}
}

// Isolate returns the derived Document for the unit at index.
func Isolate(doc *document.Document, index int) (*document.Document, error) {
	targets := collectTargets(doc)
	if index < 0 || index >= len(targets) {
		return nil, fmt.Errorf("isolate: field index %d out of range [0,%d)", index, len(targets))
	}
	return build(doc, index, targets[index]).Document, nil
}

// wrapper is one root-level fragment the target sits inside.
type wrapper struct {
	inline *language.InlineFragment
	spread *language.FragmentSpread
	def    *language.FragmentDefinition
}

// target is a top-level selection reached through zero or more wrappers.
// leaf is a *Field, or a *FragmentSpread that could not be expanded.
type target struct {
	path []wrapper
	leaf language.Selection
}

func (t target) id() document.FieldID {
	switch leaf := t.leaf.(type) {
	case *language.Field:
		return document.NewFieldID(leaf.Name, leaf.Alias)
	case *language.FragmentSpread:
		return document.FieldID{Name: "..." + leaf.Name}
	}
	return document.FieldID{}
}

func collectTargets(doc *document.Document) []target {
	var out []target
	var walk func(set language.SelectionSet, path []wrapper, active map[string]bool)
	walk = func(set language.SelectionSet, path []wrapper, active map[string]bool) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *language.Field:
				out = append(out, target{path: path, leaf: s})
			case *language.InlineFragment:
				walk(s.SelectionSet, appendPath(path, wrapper{inline: s}), active)
			case *language.FragmentSpread:
				def := doc.Fragment(s.Name)
				if def == nil || active[s.Name] {
					out = append(out, target{path: path, leaf: s})
					continue
				}
				active[s.Name] = true
				walk(def.SelectionSet, appendPath(path, wrapper{spread: s, def: def}), active)
				delete(active, s.Name)
			}
		}
	}
	walk(doc.SelectionSet(), nil, map[string]bool{})
	return out
}

func appendPath(path []wrapper, w wrapper) []wrapper {
	out := make([]wrapper, len(path), len(path)+1)
	copy(out, path)
	return append(out, w)
}

func build(doc *document.Document, index int, t target) Unit {
	leaf := document.CloneSelection(t.leaf)
	lookup := document.LookupIn(doc.Fragments)

	// A wrapper fragment that the field itself also spreads somewhere below
	// must stay whole, or the inner spread would see the narrowed copy.
	inner := map[string]bool{}
	for _, name := range document.Reachable(language.SelectionSet{leaf}, lookup) {
		inner[name] = true
	}

	narrowed := map[string]*language.FragmentDefinition{}
	set := language.SelectionSet{leaf}
	for i := len(t.path) - 1; i >= 0; i-- {
		w := t.path[i]
		if w.inline != nil {
			set = language.SelectionSet{&language.InlineFragment{
				TypeCondition: w.inline.TypeCondition,
				Directives:    document.CloneDirectives(w.inline.Directives),
				SelectionSet:  set,
			}}
			continue
		}
		if !inner[w.def.Name] {
			def := document.CloneFragment(w.def)
			def.SelectionSet = set
			narrowed[def.Name] = def
		}
		set = language.SelectionSet{document.CloneSelection(w.spread)}
	}

	resolve := func(name string) *language.FragmentDefinition {
		if def, ok := narrowed[name]; ok {
			return def
		}
		return lookup(name)
	}
	fragments := document.Closure(set, resolve, doc.Fragments)
	for i, f := range fragments {
		if _, ok := narrowed[f.Name]; !ok {
			fragments[i] = document.CloneFragment(f)
		}
	}

	id := t.id()
	op := doc.Operation
	derived := &document.Document{
		Operation: &language.OperationDefinition{
			Operation:           op.Operation,
			Name:                operationName(op.Name, id),
			VariableDefinitions: document.CloneVariables(op.VariableDefinitions),
			Directives:          document.CloneDirectives(op.Directives),
			SelectionSet:        set,
		},
		Fragments: fragments,
	}
	return Unit{Index: index, Field: id, Document: derived}
}

// operationName annotates the original name with the response key. Anonymous
// operations stay anonymous.
func operationName(base string, id document.FieldID) string {
	if base == "" {
		return ""
	}
	return base + "_" + strings.TrimPrefix(id.Key(), "...")
}
