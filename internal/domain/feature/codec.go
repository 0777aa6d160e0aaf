package feature

import (
	"github.com/okian/crisk/internal/domain/model"
)

// Vector is an ordered feature mapping. Names and Values are parallel; order
// is significant because trained estimators consume columns positionally.
type Vector struct {
	Names  []string
	Values []float64
}

// Columns returns the full column list the codec produces, in emission order:
// raw numeric columns, derived ratios, then one indicator column per
// enumerated category value.
func Columns() []string {
	out := make([]string, 0, len(numericColumns)+len(derivedColumns)+indicatorCount())
	out = append(out, numericColumns...)
	out = append(out, derivedColumns...)
	for _, f := range categoryUniverse {
		for _, v := range f.values {
			out = append(out, f.name+"_"+v)
		}
	}
	return out
}

func indicatorCount() int {
	n := 0
	for _, f := range categoryUniverse {
		n += len(f.values)
	}
	return n
}

// Encode transforms a borrower record into its feature vector. Pure function
// of the record and the static category universe: encoding the same record
// twice yields bit-identical output.
//
// Unknown category values produce all-zero indicators for that group rather
// than an error. This mirrors how indicator expansion over a fixed universe
// behaves and is kept intentionally; see DESIGN.md for the open question.
func Encode(rec model.BorrowerRecord) Vector {
	names := Columns()
	values := make([]float64, 0, len(names))

	values = append(values,
		rec.PersonAge,
		rec.PersonIncome,
		rec.PersonEmpLength,
		rec.LoanAmnt,
		rec.LoanIntRate,
		rec.LoanPercentIncome,
		rec.CBPersonCredHistLen,
	)

	// Derived ratio. A zero income yields +Inf in float division; guard to 0
	// so a malformed record cannot poison the feature matrix.
	ratio := 0.0
	if rec.PersonIncome != 0 {
		ratio = rec.LoanAmnt / rec.PersonIncome
	}
	values = append(values, ratio)

	for _, f := range categoryUniverse {
		observed := categoricalValue(rec, f.name)
		for _, v := range f.values {
			if observed == v {
				values = append(values, 1)
			} else {
				values = append(values, 0)
			}
		}
	}

	return Vector{Names: names, Values: values}
}

// EncodeBatch encodes a batch of records into a feature matrix whose rows all
// share the codec's column order.
func EncodeBatch(recs []model.BorrowerRecord) ([]string, [][]float64) {
	names := Columns()
	rows := make([][]float64, len(recs))
	for i, r := range recs {
		rows[i] = Encode(r).Values
	}
	return names, rows
}

func categoricalValue(rec model.BorrowerRecord, column string) string {
	switch column {
	case "person_home_ownership":
		return rec.PersonHomeOwnership
	case "loan_intent":
		return rec.LoanIntent
	case "loan_grade":
		return rec.LoanGrade
	case "cb_person_default_on_file":
		return rec.CBPersonDefaultOnFile
	default:
		return ""
	}
}
