package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
		return
	}

	switch v := data.(type) {
	case Reply:
		_, _ = fmt.Fprintln(o.w, v.Body)
	case HealthResult:
		_, _ = fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case StatsResult:
		_, _ = fmt.Fprintf(o.w, "Accounts:    %d\n", v.Accounts)
		_, _ = fmt.Fprintf(o.w, "Wish lists:  %d\n", v.WishLists)
		_, _ = fmt.Fprintf(o.w, "Sessions:    %d\n", v.Sessions)
		_, _ = fmt.Fprintf(o.w, "Connections: %d\n", v.Connections)
	default:
		o.printJSON(data)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	if _, ok := data.(Reply); !ok {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(data)
}

// HealthResult is the admin health response
type HealthResult struct {
	Status string `json:"status"`
}

// StatsResult is the admin stats response
type StatsResult struct {
	Accounts    int `json:"accounts"`
	WishLists   int `json:"wish_lists"`
	Sessions    int `json:"sessions"`
	Connections int `json:"connections"`
}
