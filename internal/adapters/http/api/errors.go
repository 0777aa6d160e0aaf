// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	service "github.com/okian/crisk/internal/app"
	"github.com/okian/crisk/internal/domain/training"
	"github.com/okian/crisk/internal/domain/validate"
	"github.com/okian/crisk/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrServe      = errors.New("swagger serve failed")
	ErrBadRequest = errors.New("bad request")
)

// NewKind annotates a sentinel kind with the failing operation.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind annotates a sentinel kind and its cause with the failing operation.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// writeDomainError maps service and gate errors to client responses. Gate
// failures are client errors with actionable detail; everything else is a 500
// carrying only a correlation id, with the detail in logs.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.As(err, new(*validate.MissingFieldError)):
		writeError(w, http.StatusBadRequest, "missing_field", err)
	case errors.As(err, new(*validate.InvalidLabelError)):
		writeError(w, http.StatusBadRequest, "invalid_label", err)
	case errors.As(err, new(*validate.InsufficientDataError)):
		writeError(w, http.StatusBadRequest, "insufficient_data", err)
	case errors.As(err, new(*validate.ClassImbalanceError)):
		writeError(w, http.StatusBadRequest, "class_imbalance", err)
	case errors.Is(err, validate.ErrEmptyBatch):
		writeError(w, http.StatusBadRequest, "empty_batch", err)
	case errors.Is(err, service.ErrModelNotReady):
		writeError(w, http.StatusServiceUnavailable, "model_not_ready", err)
	case errors.Is(err, training.ErrNoTrainingData):
		writeError(w, http.StatusBadRequest, "no_training_data", err)
	default:
		writeInternalError(w, op, err)
	}
}

// writeInternalError emits a 500 with a correlation id and logs the detail.
func writeInternalError(w http.ResponseWriter, op string, err error) {
	id := uuid.NewString()
	logger.Named("api").Error(context.Background(), "internal error",
		logger.String("op", op),
		logger.String("correlationID", id),
		logger.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Code:          "internal",
		Message:       "internal error",
		CorrelationID: id,
	})
}
