package document

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsReachableFragmentsOnly(t *testing.T) {
	doc, err := Parse(`
		query Q($x: Int) { a(arg: $x) { ...A } }
		fragment Unused on T { z }
		fragment A on T { b ...B }
		fragment B on T { c }
	`, "")
	require.NoError(t, err)
	require.Equal(t, "Q", doc.Name())
	require.Equal(t, []string{"A", "B"}, doc.FragmentNames())
	require.True(t, doc.HasVariable("x"))
	require.False(t, doc.HasVariable("y"))
}

func TestParseSelectsOperation(t *testing.T) {
	src := `query One { a } query Two { b }`

	_, err := Parse(src, "")
	require.ErrorIs(t, err, ErrAmbiguousOperation)

	doc, err := Parse(src, "Two")
	require.NoError(t, err)
	require.Equal(t, "Two", doc.Name())

	_, err = Parse(src, "Three")
	require.ErrorIs(t, err, ErrUnknownOperation)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target error
	}{
		{name: "subscription", source: `subscription { ticks }`, target: ErrSubscription},
		{name: "fragments only", source: `fragment F on T { a }`, target: ErrNoOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.source, "")
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			require.ErrorIs(t, err, tt.target)
		})
	}
}

func TestParseSyntaxErrorHasPosition(t *testing.T) {
	_, err := Parse("{\n  a(\n}", "")
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	require.Equal(t, 3, pe.Line)
	require.Positive(t, pe.Column)
	require.Contains(t, pe.Error(), "parse error at 3:")
}

func TestParseAcceptsUndefinedFragment(t *testing.T) {
	doc, err := Parse(`{ a { ...Missing } }`, "")
	require.NoError(t, err)
	require.Empty(t, doc.Fragments)
}

func TestCloneIsDeep(t *testing.T) {
	doc, err := Parse(`query Q($x: [Int!] = [1]) { a(arg: {k: $x}) @skip(if: false) { ...F } } fragment F on T { b }`, "")
	require.NoError(t, err)

	cp := doc.Clone()
	if diff := cmp.Diff(doc, cp); diff != "" {
		t.Fatalf("clone mismatch (-orig +clone):\n%s", diff)
	}
	require.NotSame(t, doc.Operation, cp.Operation)
	require.NotSame(t, doc.Operation.SelectionSet[0], cp.Operation.SelectionSet[0])
	require.NotSame(t, doc.Fragments[0], cp.Fragments[0])

	cp.Fragments[0].Name = "G"
	require.Equal(t, "F", doc.Fragments[0].Name)
}

func TestStringReparses(t *testing.T) {
	doc, err := Parse(`query Q($x: Int) { a(arg: $x) { ...F } } fragment F on T { b }`, "")
	require.NoError(t, err)

	again, err := Parse(doc.String(), "")
	require.NoError(t, err)
	require.Equal(t, doc.String(), again.String())
}

func TestReachableTerminatesOnCycles(t *testing.T) {
	doc, err := Parse(`{ a { ...A } } fragment A on T { ...B } fragment B on T { ...A x }`, "")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"A", "B"}, Reachable(doc.SelectionSet(), LookupIn(doc.Fragments)))
}

func TestFieldID(t *testing.T) {
	require.Equal(t, "a", FieldID{Name: "a"}.Key())
	require.Equal(t, "x", FieldID{Name: "a", Alias: "x"}.Key())
	require.Equal(t, "x: a", FieldID{Name: "a", Alias: "x"}.String())
	require.Equal(t, "a", FieldID{Name: "a"}.String())

	require.Equal(t, FieldID{Name: "a"}, NewFieldID("a", "a"))
	require.Equal(t, FieldID{Name: "a"}, NewFieldID("a", ""))
	require.Equal(t, FieldID{Name: "a", Alias: "x"}, NewFieldID("a", "x"))
}
