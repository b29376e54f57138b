package dryrun

import (
	"encoding/json"
	"strconv"

	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

// Outcome is the structured result of one simulation. Type and Tables are
// always echoed from the impact, whatever happened during execution.
type Outcome struct {
	Successful   bool                    `json:"simulation_successful"`
	Type         sqlparser.StatementType `json:"statement_type"`
	Tables       []string                `json:"affected_tables"`
	RowsAffected *RowEstimate            `json:"estimated_rows_affected"`
	Error        string                  `json:"error,omitempty"`
	Note         string                  `json:"note,omitempty"`
	Preview      *Preview                `json:"preview,omitempty"`
	Alter        *AlterAnalysis          `json:"alter,omitempty"`
}

// Limited reports whether the simulation stopped on a known limitation
// (missing schema, destructive statement) rather than an engine failure.
func (o *Outcome) Limited() bool {
	return !o.Successful && o.Error == "" && o.Note != ""
}

// RowEstimate is either an exact row count or a qualitative description
type RowEstimate struct {
	count int64
	text  string
	exact bool
}

// ExactRows returns an estimate holding a known count
func ExactRows(n int64) *RowEstimate {
	return &RowEstimate{count: n, exact: true}
}

// QualitativeRows returns an estimate that can only be described
func QualitativeRows(text string) *RowEstimate {
	return &RowEstimate{text: text}
}

// Count returns the exact count and whether one is known
func (r *RowEstimate) Count() (int64, bool) {
	return r.count, r.exact
}

func (r *RowEstimate) String() string {
	if r.exact {
		return strconv.FormatInt(r.count, 10)
	}
	return r.text
}

// MarshalJSON encodes exact counts as numbers and everything else as strings.
func (r *RowEstimate) MarshalJSON() ([]byte, error) {
	if r.exact {
		return json.Marshal(r.count)
	}
	return json.Marshal(r.text)
}

// UnmarshalJSON accepts either a number or a string
func (r *RowEstimate) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*r = RowEstimate{count: n, exact: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = RowEstimate{text: s}
	return nil
}

// Preview holds a handful of rows read from the sandbox
type Preview struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}
