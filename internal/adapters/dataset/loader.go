// Package dataset loads the historical loan dataset used for initial training.
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/okian/crisk/internal/domain/model"
)

const labelColumn = "loan_status"

var numericColumns = map[string]bool{
	"person_age":                 true,
	"person_income":              true,
	"person_emp_length":          true,
	"loan_amnt":                  true,
	"loan_int_rate":              true,
	"loan_percent_income":        true,
	"cb_person_cred_hist_length": true,
}

var requiredColumns = []string{
	"person_age",
	"person_income",
	"person_home_ownership",
	"person_emp_length",
	"loan_intent",
	"loan_grade",
	"loan_amnt",
	"loan_int_rate",
	"loan_percent_income",
	"cb_person_default_on_file",
	"cb_person_cred_hist_length",
	labelColumn,
}

// Batch is the parsed dataset: one borrower record per row plus its observed
// loan status.
type Batch struct {
	Records []model.BorrowerRecord
	Labels  []int
	Skipped int
}

// Load reads the CSV at path. Rows with empty numeric cells are skipped and
// counted rather than failing the whole load; unparseable values fail fast.
func Load(ctx context.Context, path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f)
}

// Parse reads CSV rows from r. The first row must be a header naming every
// required column; extra columns are ignored.
func Parse(ctx context.Context, r io.Reader) (*Batch, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	batch := &Batch{}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load cancelled: %w", err)
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset row: %w", err)
		}
		line++

		rec, label, skip, err := parseRow(row, index, line)
		if err != nil {
			return nil, err
		}
		if skip {
			batch.Skipped++
			continue
		}
		batch.Records = append(batch.Records, rec)
		batch.Labels = append(batch.Labels, label)
	}
	return batch, nil
}

func parseRow(row []string, index map[string]int, line int) (model.BorrowerRecord, int, bool, error) {
	var rec model.BorrowerRecord

	cell := func(name string) string {
		i := index[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	values := make(map[string]float64, len(numericColumns)+1)
	for name := range numericColumns {
		raw := cell(name)
		if raw == "" {
			return rec, 0, true, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rec, 0, false, &RowError{Line: line, Column: name, Err: err}
		}
		values[name] = v
	}

	rawLabel := cell(labelColumn)
	label, err := strconv.Atoi(rawLabel)
	if err != nil || (label != model.StatusRepaid && label != model.StatusDefault) {
		return rec, 0, false, &RowError{
			Line:   line,
			Column: labelColumn,
			Err:    fmt.Errorf("want 0 or 1, got %q", rawLabel),
		}
	}

	rec = model.BorrowerRecord{
		PersonAge:             values["person_age"],
		PersonIncome:          values["person_income"],
		PersonHomeOwnership:   cell("person_home_ownership"),
		PersonEmpLength:       values["person_emp_length"],
		LoanIntent:            cell("loan_intent"),
		LoanGrade:             cell("loan_grade"),
		LoanAmnt:              values["loan_amnt"],
		LoanIntRate:           values["loan_int_rate"],
		LoanPercentIncome:     values["loan_percent_income"],
		CBPersonDefaultOnFile: cell("cb_person_default_on_file"),
		CBPersonCredHistLen:   values["cb_person_cred_hist_length"],
	}
	return rec, label, false, nil
}
