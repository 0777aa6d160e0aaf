// Package feature implements the deterministic borrower-record codec and
// schema reconciliation used by both training and inference.
package feature

// categoryField is one categorical column and its exhaustive value universe.
// The universe is fixed at design time and never inferred from data, so the
// encoder emits the same indicator columns for every batch.
type categoryField struct {
	name   string
	values []string
}

// categoryUniverse is the single source of truth for one-hot expansion.
// Order matters: indicator columns are emitted in this exact order.
var categoryUniverse = []categoryField{
	{
		name:   "person_home_ownership",
		values: []string{"MORTGAGE", "OTHER", "OWN", "RENT"},
	},
	{
		name: "loan_intent",
		values: []string{
			"DEBTCONSOLIDATION", "EDUCATION", "HOMEIMPROVEMENT",
			"MEDICAL", "PERSONAL", "VENTURE",
		},
	},
	{
		name:   "loan_grade",
		values: []string{"A", "B", "C", "D", "E", "F", "G"},
	},
	{
		name:   "cb_person_default_on_file",
		values: []string{"N", "Y"},
	},
}

// numericColumns are the raw numeric columns in wire order.
var numericColumns = []string{
	"person_age",
	"person_income",
	"person_emp_length",
	"loan_amnt",
	"loan_int_rate",
	"loan_percent_income",
	"cb_person_cred_hist_length",
}

// derivedColumns are computed from raw columns before one-hot expansion.
var derivedColumns = []string{
	"loan_to_income_ratio",
}

// CategoryValues returns the enumerated universe for a categorical column,
// or nil if the column is not categorical.
func CategoryValues(column string) []string {
	for _, f := range categoryUniverse {
		if f.name == column {
			out := make([]string, len(f.values))
			copy(out, f.values)
			return out
		}
	}
	return nil
}
