package smoketest

import "time"

// Config holds configuration for the scoring smoke test
type Config struct {
	BaseURL          string        // Base URL of the service
	NumBorrowers     int           // Number of borrowers to generate
	Workers          int           // Number of concurrent workers
	Timeout          time.Duration // HTTP request timeout
	FeedbackFraction float64       // Fraction of predictions to feed back
	OutputFile       string        // Output file for borrowers
	LogFile          string        // Log file for test output
	Verbose          bool          // Enable verbose logging
}

// Borrower represents a loan application to be scored
type Borrower struct {
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

// Prediction represents the response from /predict
type Prediction struct {
	Label              int     `json:"prediction"`
	Status             string  `json:"status"`
	Decision           string  `json:"decision"`
	ProbabilityRepaid  float64 `json:"probability_repaid"`
	ProbabilityDefault float64 `json:"probability_default"`
}

// Feedback represents the body for POST /feedback
type Feedback struct {
	Borrower

	PredictedStatus int `json:"predicted_status"`
	ActualStatus    int `json:"actual_status"`
}

// FeedbackAck represents the response from feedback submission
type FeedbackAck struct {
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate"`
	Pending   int  `json:"pending"`
}

// TrainResult represents the response from /train and /retrain
type TrainResult struct {
	Status       string `json:"status"`
	ModelVersion string `json:"model_version"`
}

// CompareReport represents the response from /compare
type CompareReport struct {
	Results []struct {
		Model    string  `json:"model"`
		Accuracy float64 `json:"accuracy"`
		AUC      float64 `json:"auc"`
	} `json:"results"`
	TrainSamples int `json:"train_samples"`
	TestSamples  int `json:"test_samples"`
}

// Stats holds test statistics
type Stats struct {
	BorrowersGenerated int
	PredictionsSent    int
	PredictionsOK      int
	PredictionsFailed  int
	Approved           int
	Rejected           int
	FeedbackSent       int
	FeedbackAccepted   int
	FeedbackDuplicate  int
	Retrains           int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
