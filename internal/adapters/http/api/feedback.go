// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/crisk/internal/domain/model"
)

// feedbackRequest mirrors the OpenAPI schema for POST /feedback.
type feedbackRequest struct {
	borrowerRequest

	PredictedStatus    *int     `json:"predicted_status"`
	ActualStatus       *int     `json:"actual_status"`
	ProbabilityRepaid  *float64 `json:"probability_repaid"`
	ProbabilityDefault *float64 `json:"probability_default"`
}

func (f feedbackRequest) validateFeedback() error {
	if err := f.borrowerRequest.validate(); err != nil {
		return err
	}
	if f.ActualStatus == nil {
		return errors.New("missing fields: actual_status")
	}
	if *f.ActualStatus != model.StatusRepaid && *f.ActualStatus != model.StatusDefault {
		return errors.New("actual_status must be 0 or 1")
	}
	if f.PredictedStatus != nil && *f.PredictedStatus != model.StatusRepaid && *f.PredictedStatus != model.StatusDefault {
		return errors.New("predicted_status must be 0 or 1")
	}
	return nil
}

func (f feedbackRequest) feedbackRecord() model.FeedbackRecord {
	rec := model.FeedbackRecord{
		BorrowerRecord:     f.record(),
		ActualStatus:       *f.ActualStatus,
		ProbabilityRepaid:  f.ProbabilityRepaid,
		ProbabilityDefault: f.ProbabilityDefault,
	}
	if f.PredictedStatus != nil {
		rec.PredictedStatus = *f.PredictedStatus
	}
	return rec
}

// FeedbackHandler handles outcome feedback submissions.
type FeedbackHandler struct {
	deps Dependencies
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(deps Dependencies) *FeedbackHandler {
	return &FeedbackHandler{deps: deps}
}

// HandlePostFeedback handles POST /feedback requests.
func (h *FeedbackHandler) HandlePostFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_feedback"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validateFeedback(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	status, err := h.deps.SubmitFeedback(r.Context(), req.feedbackRecord())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if status.Duplicate {
		writeJSON(w, http.StatusOK, status)
		return
	}
	writeJSON(w, http.StatusAccepted, status)
}
