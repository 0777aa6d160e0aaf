// Package model contains domain models passed between layers.
package model

// BorrowerRecord represents one loan application as received from clients.
// Fields mirror the OpenAPI schema for /predict. A record is immutable once
// received.
type BorrowerRecord struct {
	PersonAge             float64 `json:"person_age"`
	PersonIncome          float64 `json:"person_income"`
	PersonHomeOwnership   string  `json:"person_home_ownership"`
	PersonEmpLength       float64 `json:"person_emp_length"`
	LoanIntent            string  `json:"loan_intent"`
	LoanGrade             string  `json:"loan_grade"`
	LoanAmnt              float64 `json:"loan_amnt"`
	LoanIntRate           float64 `json:"loan_int_rate"`
	LoanPercentIncome     float64 `json:"loan_percent_income"`
	CBPersonDefaultOnFile string  `json:"cb_person_default_on_file"`
	CBPersonCredHistLen   float64 `json:"cb_person_cred_hist_length"`
}

// Loan status labels. The positive class (1) is a default.
const (
	StatusRepaid  = 0
	StatusDefault = 1
)

// FeedbackRecord is a BorrowerRecord plus the model's prediction at scoring
// time and the observed outcome. Created at the inference boundary, consumed
// only by the retraining orchestrator. Append-only; never mutated.
type FeedbackRecord struct {
	BorrowerRecord

	PredictedStatus int `json:"predicted_status"`
	ActualStatus    int `json:"actual_status"`

	// Optional probabilities reported at scoring time.
	ProbabilityRepaid  *float64 `json:"probability_repaid,omitempty"`
	ProbabilityDefault *float64 `json:"probability_default,omitempty"`
}

// Prediction is the outcome of scoring a single borrower record.
type Prediction struct {
	Label              int     `json:"prediction"`
	Status             string  `json:"status"`
	Decision           string  `json:"decision"`
	ProbabilityRepaid  float64 `json:"probability_repaid"`
	ProbabilityDefault float64 `json:"probability_default"`
}

// Attribution is a single feature's contribution toward the default
// probability, relative to the background sample's base value.
type Attribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Explanation wraps a prediction with per-feature attributions.
type Explanation struct {
	Prediction

	BaseValue    float64       `json:"base_value"`
	Attributions []Attribution `json:"attributions"`
	Summary      []string      `json:"summary"`
	ImageBase64  string        `json:"image_base64,omitempty"`
}

// StatusName maps a numeric label to its wire name.
func StatusName(label int) string {
	if label == StatusDefault {
		return "default"
	}
	return "repaid"
}

// DecisionName maps a numeric label to the lending decision.
func DecisionName(label int) string {
	if label == StatusDefault {
		return "reject"
	}
	return "approve"
}
