// Package validate implements the ingestion gate that feedback batches must
// pass before reaching the retraining orchestrator. The gate only inspects;
// it never mutates persisted state.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/okian/crisk/internal/domain/model"
)

// Default gate thresholds, taken from the retraining contract.
const (
	DefaultMinSamples          = 5
	DefaultMinMinorityFraction = 0.1
)

// RequiredFields are the raw columns every feedback record must carry.
// predicted_status and probabilities are recorded but not gated on.
var RequiredFields = []string{
	"person_age", "person_income", "person_home_ownership",
	"person_emp_length", "loan_intent", "loan_grade",
	"loan_amnt", "loan_int_rate", "loan_percent_income",
	"cb_person_default_on_file", "cb_person_cred_hist_length",
	"actual_status",
}

// RawRecord is one feedback record as decoded from the wire or the feedback
// log, before the gate has admitted it. Map form preserves which fields were
// actually present.
type RawRecord map[string]any

// Batch is a validated feedback set, ready for encoding and training.
type Batch struct {
	Records []model.FeedbackRecord
	Labels  []int

	// ClassBalance is the label distribution observed before duplicate
	// collapsing, keyed by label.
	ClassBalance map[int]float64

	// Collapsed is how many exact duplicates were removed.
	Collapsed int
}

// Gate enforces the structural, type, volume, and balance invariants for
// retraining input.
type Gate struct {
	minSamples          int
	minMinorityFraction float64
}

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithMinSamples overrides the minimum admissible batch size.
func WithMinSamples(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.minSamples = n
		}
	}
}

// WithMinMinorityFraction overrides the class-balance threshold.
func WithMinMinorityFraction(f float64) Option {
	return func(g *Gate) {
		if f > 0 && f < 1 {
			g.minMinorityFraction = f
		}
	}
}

// New creates a Gate with the default thresholds.
func New(opts ...Option) *Gate {
	g := &Gate{
		minSamples:          DefaultMinSamples,
		minMinorityFraction: DefaultMinMinorityFraction,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Validate runs the gate checks in order and returns the admitted batch.
// Checks: field presence, label type and domain, minimum volume, class
// balance, duplicate collapse, then minimum volume again. The first failing
// check aborts with its typed error.
func (g *Gate) Validate(ctx context.Context, batch []RawRecord) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("validation cancelled: %w", err)
	}
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	// Structural completeness: collect every required field absent from any
	// record so the caller sees the whole problem at once.
	if missing := missingFields(batch); len(missing) > 0 {
		return nil, &MissingFieldError{Fields: missing}
	}

	// Label type and domain.
	labels := make([]int, len(batch))
	var bad []string
	for i, rec := range batch {
		label, ok := numericLabel(rec["actual_status"])
		if !ok {
			bad = append(bad, fmt.Sprintf("%v", rec["actual_status"]))
			continue
		}
		labels[i] = label
	}
	if len(bad) > 0 {
		return nil, &InvalidLabelError{Found: dedupeStrings(bad)}
	}

	// Minimum volume.
	if len(batch) < g.minSamples {
		return nil, &InsufficientDataError{Required: g.minSamples, Got: len(batch)}
	}

	// Class balance, computed on the raw batch. The comparator is strict
	// less-than: a minority fraction of exactly the threshold passes.
	balance := classBalance(labels)
	if len(balance) == 2 && minFraction(balance) < g.minMinorityFraction {
		return nil, &ClassImbalanceError{Balance: balance, Threshold: g.minMinorityFraction}
	}

	// Collapse exact duplicates, ignoring labels, then re-check volume.
	kept, keptLabels := collapseDuplicates(batch, labels)
	if len(kept) < g.minSamples {
		return nil, &InsufficientDataError{
			Required:    g.minSamples,
			Got:         len(kept),
			AfterDedupe: true,
		}
	}

	records, err := decodeRecords(kept, keptLabels)
	if err != nil {
		return nil, err
	}

	return &Batch{
		Records:      records,
		Labels:       keptLabels,
		ClassBalance: balance,
		Collapsed:    len(batch) - len(kept),
	}, nil
}

func missingFields(batch []RawRecord) []string {
	missing := map[string]bool{}
	for _, rec := range batch {
		for _, f := range RequiredFields {
			if _, ok := rec[f]; !ok {
				missing[f] = true
			}
		}
	}
	out := make([]string, 0, len(missing))
	for f := range missing {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// numericLabel accepts a JSON number equal to 0 or 1.
func numericLabel(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok {
		// json.Number shows up when callers decode with UseNumber.
		if n, isNum := v.(json.Number); isNum {
			parsed, err := n.Float64()
			if err != nil {
				return 0, false
			}
			f = parsed
		} else {
			return 0, false
		}
	}
	if f != math.Trunc(f) {
		return 0, false
	}
	label := int(f)
	if label != model.StatusRepaid && label != model.StatusDefault {
		return 0, false
	}
	return label, true
}

func classBalance(labels []int) map[int]float64 {
	counts := map[int]int{}
	for _, l := range labels {
		counts[l]++
	}
	balance := make(map[int]float64, len(counts))
	for l, c := range counts {
		balance[l] = float64(c) / float64(len(labels))
	}
	return balance
}

func minFraction(balance map[int]float64) float64 {
	m := math.Inf(1)
	for _, f := range balance {
		if f < m {
			m = f
		}
	}
	return m
}

// collapseDuplicates keeps the first occurrence of each distinct feature
// tuple. Labels are excluded from the identity so the same borrower reported
// twice with conflicting outcomes still collapses to the first report.
func collapseDuplicates(batch []RawRecord, labels []int) ([]RawRecord, []int) {
	seen := map[string]bool{}
	kept := make([]RawRecord, 0, len(batch))
	keptLabels := make([]int, 0, len(labels))
	for i, rec := range batch {
		key := featureKey(rec)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, rec)
		keptLabels = append(keptLabels, labels[i])
	}
	return kept, keptLabels
}

// featureKey serializes the required feature fields (everything but the
// outcome label) in a fixed order.
func featureKey(rec RawRecord) string {
	parts := make([]any, 0, len(RequiredFields)-1)
	for _, f := range RequiredFields {
		if f == "actual_status" {
			continue
		}
		parts = append(parts, rec[f])
	}
	raw, err := json.Marshal(parts)
	if err != nil {
		return fmt.Sprintf("%v", parts)
	}
	return string(raw)
}

// decodeRecords converts the admitted raw maps into typed feedback records.
func decodeRecords(batch []RawRecord, labels []int) ([]model.FeedbackRecord, error) {
	records := make([]model.FeedbackRecord, len(batch))
	for i, rec := range batch {
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode feedback record %d: %w", i, err)
		}
		if err := json.Unmarshal(raw, &records[i]); err != nil {
			return nil, fmt.Errorf("decode feedback record %d: %w", i, err)
		}
		records[i].ActualStatus = labels[i]
	}
	return records, nil
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
