// Package report ranks timing results and renders them for people (styled
// text) and for tools (JSON).
package report

import (
	"cmp"
	"slices"
	"time"

	document "github.com/hanpama/fieldtimer/internal/document"
	timing "github.com/hanpama/fieldtimer/internal/timing"
)

// Row is one ranked result.
type Row struct {
	Rank     int
	Index    int
	Field    document.FieldID
	Duration time.Duration
	Measured bool
	Outcome  timing.Outcome
	Status   int
	Message  string
	Query    string
}

// Failed reports whether the call did not succeed.
func (r Row) Failed() bool { return r.Outcome != timing.Success }

// Rank orders results by descending duration. Equal durations keep the
// original field order. Ranks start at 1. The input is not modified.
func Rank(results []timing.Result) []Row {
	rows := make([]Row, 0, len(results))
	for _, res := range results {
		rows = append(rows, Row{
			Index:    res.Index,
			Field:    res.Field,
			Duration: res.Duration,
			Measured: res.Measured,
			Outcome:  res.Outcome,
			Status:   res.Status,
			Message:  res.Message,
			Query:    res.Query,
		})
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.Duration, a.Duration); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// Summary counts rows per outcome.
type Summary struct {
	Fields          int
	Succeeded       int
	GraphQLErrors   int
	TransportErrors int
	Total           time.Duration
}

func Summarize(rows []Row) Summary {
	s := Summary{Fields: len(rows)}
	for _, r := range rows {
		switch r.Outcome {
		case timing.Success:
			s.Succeeded++
		case timing.GraphQLError:
			s.GraphQLErrors++
		case timing.TransportError:
			s.TransportErrors++
		}
		s.Total += r.Duration
	}
	return s
}
