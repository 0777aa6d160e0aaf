// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/crisk/internal/domain/training"
)

// retrainResponse is the wire shape for POST /retrain. Accuracy is measured
// on the accumulated feedback the model was just refit on.
type retrainResponse struct {
	Status             string             `json:"status"`
	SamplesUsed        int                `json:"samples_used"`
	ModelVersion       string             `json:"model_version"`
	AccuracyOnFeedback float64            `json:"accuracy_on_feedback"`
	ClassBalance       map[string]float64 `json:"class_balance,omitempty"`
	Collapsed          int                `json:"collapsed_duplicates,omitempty"`
}

func newRetrainResponse(res *training.Result) retrainResponse {
	return retrainResponse{
		Status:             res.Status,
		SamplesUsed:        res.SamplesUsed,
		ModelVersion:       res.ModelVersion,
		AccuracyOnFeedback: res.Accuracy,
		ClassBalance:       res.ClassBalance,
		Collapsed:          res.Collapsed,
	}
}

// TrainHandler handles training, retraining and model comparison requests.
type TrainHandler struct {
	deps Dependencies
}

// NewTrainHandler creates a new train handler.
func NewTrainHandler(deps Dependencies) *TrainHandler {
	return &TrainHandler{deps: deps}
}

// HandleTrain handles POST /train requests. Fits a fresh ensemble on the
// configured reference dataset and publishes it as the current model.
func (h *TrainHandler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	const op = "api.train"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.TrainFromDataset(r.Context())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRetrain handles POST /retrain requests. Refits on all accumulated
// feedback and publishes the new model version.
func (h *TrainHandler) HandleRetrain(w http.ResponseWriter, r *http.Request) {
	const op = "api.retrain"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.Retrain(r.Context())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newRetrainResponse(res))
}

// HandleCompare handles GET /compare requests. Scores each candidate
// estimator on a holdout split of the reference dataset.
func (h *TrainHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	report, err := h.deps.Compare(r.Context())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
