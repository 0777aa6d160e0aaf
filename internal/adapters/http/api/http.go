// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/crisk/internal/app"
	"github.com/okian/crisk/internal/domain/model"
	"github.com/okian/crisk/internal/domain/training"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Predict(ctx context.Context, rec model.BorrowerRecord) (*model.Prediction, error)
	Explain(ctx context.Context, rec model.BorrowerRecord) (*model.Explanation, error)
	SubmitFeedback(ctx context.Context, rec model.FeedbackRecord) (*service.FeedbackStatus, error)
	Retrain(ctx context.Context) (*training.Result, error)
	TrainFromDataset(ctx context.Context) (*training.Result, error)
	Compare(ctx context.Context) (*training.Report, error)
	ModelReady() bool
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	predictHandler  *PredictHandler
	explainHandler  *ExplainHandler
	feedbackHandler *FeedbackHandler
	trainHandler    *TrainHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(statsProvider),
		predictHandler:  NewPredictHandler(deps),
		explainHandler:  NewExplainHandler(deps),
		feedbackHandler: NewFeedbackHandler(deps),
		trainHandler:    NewTrainHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/explain", MetricsMiddleware(s.explainHandler.HandleExplain, "explain"))
	mux.HandleFunc("/feedback", MetricsMiddleware(s.feedbackHandler.HandlePostFeedback, "feedback"))
	mux.HandleFunc("/train", MetricsMiddleware(s.trainHandler.HandleTrain, "train"))
	mux.HandleFunc("/retrain", MetricsMiddleware(s.trainHandler.HandleRetrain, "retrain"))
	mux.HandleFunc("/compare", MetricsMiddleware(s.trainHandler.HandleCompare, "compare"))
}

// borrowerRequest mirrors the OpenAPI schema for POST /predict.
type borrowerRequest struct {
	PersonAge             *float64 `json:"person_age"`
	PersonIncome          *float64 `json:"person_income"`
	PersonHomeOwnership   string   `json:"person_home_ownership"`
	PersonEmpLength       *float64 `json:"person_emp_length"`
	LoanIntent            string   `json:"loan_intent"`
	LoanGrade             string   `json:"loan_grade"`
	LoanAmnt              *float64 `json:"loan_amnt"`
	LoanIntRate           *float64 `json:"loan_int_rate"`
	LoanPercentIncome     *float64 `json:"loan_percent_income"`
	CBPersonDefaultOnFile string   `json:"cb_person_default_on_file"`
	CBPersonCredHistLen   *float64 `json:"cb_person_cred_hist_length"`
}

func (b borrowerRequest) validate() error {
	var missing []string
	numeric := []struct {
		name  string
		value *float64
	}{
		{"person_age", b.PersonAge},
		{"person_income", b.PersonIncome},
		{"person_emp_length", b.PersonEmpLength},
		{"loan_amnt", b.LoanAmnt},
		{"loan_int_rate", b.LoanIntRate},
		{"loan_percent_income", b.LoanPercentIncome},
		{"cb_person_cred_hist_length", b.CBPersonCredHistLen},
	}
	for _, f := range numeric {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	categorical := []struct {
		name  string
		value string
	}{
		{"person_home_ownership", b.PersonHomeOwnership},
		{"loan_intent", b.LoanIntent},
		{"loan_grade", b.LoanGrade},
		{"cb_person_default_on_file", b.CBPersonDefaultOnFile},
	}
	for _, f := range categorical {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.New("missing fields: " + strings.Join(missing, ", "))
	}

	switch {
	case *b.PersonAge <= 0:
		return errors.New("person_age must be positive")
	case *b.PersonIncome <= 0:
		return errors.New("person_income must be positive")
	case *b.LoanAmnt <= 0:
		return errors.New("loan_amnt must be positive")
	case *b.PersonEmpLength < 0:
		return errors.New("person_emp_length must not be negative")
	case *b.CBPersonCredHistLen < 0:
		return errors.New("cb_person_cred_hist_length must not be negative")
	}
	return nil
}

func (b borrowerRequest) record() model.BorrowerRecord {
	return model.BorrowerRecord{
		PersonAge:             *b.PersonAge,
		PersonIncome:          *b.PersonIncome,
		PersonHomeOwnership:   b.PersonHomeOwnership,
		PersonEmpLength:       *b.PersonEmpLength,
		LoanIntent:            b.LoanIntent,
		LoanGrade:             b.LoanGrade,
		LoanAmnt:              *b.LoanAmnt,
		LoanIntRate:           *b.LoanIntRate,
		LoanPercentIncome:     *b.LoanPercentIncome,
		CBPersonDefaultOnFile: b.CBPersonDefaultOnFile,
		CBPersonCredHistLen:   *b.CBPersonCredHistLen,
	}
}

type errorResponse struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
