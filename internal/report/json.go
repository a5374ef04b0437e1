package report

import (
	"encoding/json"
	"io"
)

// jsonRow is one element of the JSON report. Alias is omitted for
// unaliased fields, matching the "alias: name" form of the text report.
type jsonRow struct {
	Rank       int     `json:"rank"`
	Field      string  `json:"field"`
	Alias      string  `json:"alias,omitempty"`
	DurationMs float64 `json:"durationMs"`
	Measured   bool    `json:"measured"`
	Outcome    string  `json:"outcome"`
	Status     int     `json:"status,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// WriteJSON renders rows as an indented JSON array, in rank order.
func WriteJSON(w io.Writer, rows []Row) error {
	out := make([]jsonRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, jsonRow{
			Rank:       r.Rank,
			Field:      r.Field.Name,
			Alias:      r.Field.Alias,
			DurationMs: float64(r.Duration.Microseconds()) / 1000,
			Measured:   r.Measured,
			Outcome:    r.Outcome.String(),
			Status:     r.Status,
			Message:    r.Message,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
