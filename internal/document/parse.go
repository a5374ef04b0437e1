package document

import (
	"errors"
	"fmt"

	language "github.com/hanpama/fieldtimer/internal/language"
)

// Parse turns raw query text into a Document. When the text defines more
// than one operation, operationName selects which one; with a single
// operation the name may be empty. Fragments the chosen operation cannot
// reach are dropped.
//
// Only syntax is checked. A spread of an undefined fragment is accepted here
// and fails later, when the endpoint rejects it.
func Parse(source, operationName string) (*Document, error) {
	qd, err := language.ParseQuery(source)
	if err != nil {
		return nil, newParseError(err)
	}

	op, err := selectOperation(qd.Operations, operationName)
	if err != nil {
		return nil, &ParseError{Message: err.Error(), Err: err}
	}
	if op.Operation == language.Subscription {
		return nil, &ParseError{Message: ErrSubscription.Error(), Err: ErrSubscription}
	}

	doc := &Document{Operation: CloneOperation(op)}
	doc.Fragments = CloneFragments(Closure(doc.Operation.SelectionSet, LookupIn(qd.Fragments), qd.Fragments))
	return doc, nil
}

func selectOperation(ops language.OperationList, name string) (*language.OperationDefinition, error) {
	switch {
	case len(ops) == 0:
		return nil, ErrNoOperation
	case name != "":
		if op := ops.ForName(name); op != nil {
			return op, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	case len(ops) == 1:
		return ops[0], nil
	default:
		return nil, fmt.Errorf("%w (found %d)", ErrAmbiguousOperation, len(ops))
	}
}

func newParseError(err error) *ParseError {
	pe := &ParseError{Message: err.Error(), Err: err}
	var gqlErr *language.Error
	if errors.As(err, &gqlErr) {
		pe.Message = gqlErr.Message
		if len(gqlErr.Locations) > 0 {
			pe.Line = gqlErr.Locations[0].Line
			pe.Column = gqlErr.Locations[0].Column
		}
	}
	return pe
}
