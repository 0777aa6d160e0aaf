// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/crisk/internal/adapters/artifact"
	"github.com/okian/crisk/internal/adapters/dataset"
	"github.com/okian/crisk/internal/adapters/feedback"
	"github.com/okian/crisk/internal/domain/dedupe"
	"github.com/okian/crisk/internal/domain/estimator"
	"github.com/okian/crisk/internal/domain/explain"
	"github.com/okian/crisk/internal/domain/feature"
	"github.com/okian/crisk/internal/domain/model"
	"github.com/okian/crisk/internal/domain/training"
	"github.com/okian/crisk/internal/domain/validate"
	"github.com/okian/crisk/pkg/logger"
	"github.com/okian/crisk/pkg/metrics"
)

// FeedbackStatus reports what happened to a feedback submission.
type FeedbackStatus struct {
	Accepted  bool             `json:"accepted"`
	Duplicate bool             `json:"duplicate"`
	Pending   int              `json:"pending"`
	Retrained *training.Result `json:"retrained,omitempty"`
}

// Service implements the API dependencies for the credit scoring system.
type Service struct {
	mu sync.Mutex

	// Core components
	store        artifact.Store
	feedbackLog  *feedback.Log
	orchestrator *training.Orchestrator
	deduper      dedupe.Deduper
	explainer    *explain.Explainer
	snapshot     atomic.Pointer[artifact.Snapshot]

	// Configuration
	dataPath             string
	artifactDir          string
	feedbackPath         string
	minSamples           int
	minMinorityFraction  float64
	autoRetrainThreshold int
	backgroundSize       int
	topFeatures          int
	fitWorkers           int
	seed                 int64
	dedupeSize           int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataPath:             "data/credit_risk_dataset.csv",
		artifactDir:          "artifacts",
		feedbackPath:         "data/feedback.jsonl",
		minSamples:           validate.DefaultMinSamples,
		minMinorityFraction:  validate.DefaultMinMinorityFraction,
		autoRetrainThreshold: 10,
		backgroundSize:       training.DefaultBackgroundSize,
		topFeatures:          explain.DefaultTopFeatures,
		fitWorkers:           runtime.NumCPU(),
		seed:                 estimator.DefaultSeed,
		dedupeSize:           500_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components and warms the snapshot cache from
// any previously committed artifacts.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting scoring service...")

	store, err := artifact.NewFileStore(s.artifactDir)
	if err != nil {
		return err
	}
	s.store = store

	log, err := feedback.Open(s.feedbackPath)
	if err != nil {
		return err
	}
	s.feedbackLog = log

	gate := validate.New(
		validate.WithMinSamples(s.minSamples),
		validate.WithMinMinorityFraction(s.minMinorityFraction),
	)
	s.orchestrator = training.New(s.store,
		training.WithGate(gate),
		training.WithSeed(s.seed),
		training.WithWorkers(s.fitWorkers),
		training.WithBackgroundSize(s.backgroundSize),
	)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.explainer = explain.New(
		explain.WithTopFeatures(s.topFeatures),
	)

	if err := s.reloadSnapshot(ctx); err != nil {
		if errors.Is(err, artifact.ErrNoModel) {
			s.logger.Info(ctx, "no committed model yet, waiting for training")
		} else {
			// A broken triple is recoverable: the next training run
			// replaces it.
			s.logger.Warn(ctx, "could not load committed model", logger.Error(err))
		}
	}

	metrics.UpdateFeedbackPending(s.feedbackLog.Count())
	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.String("artifactDir", s.artifactDir),
		logger.String("feedbackPath", s.feedbackPath),
		logger.Int("pendingFeedback", s.feedbackLog.Count()),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service...")
	if s.feedbackLog != nil {
		if err := s.feedbackLog.Close(); err != nil {
			s.logger.Warn(ctx, "closing feedback log", logger.Error(err))
		}
	}
	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

// reloadSnapshot republishes the snapshot cache from the store. Readers pick
// up the new pointer immediately; in-flight requests finish on the old one.
func (s *Service) reloadSnapshot(ctx context.Context) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	s.snapshot.Store(snap)
	metrics.UpdateModelAccuracy(snap.Meta.Accuracy)
	metrics.UpdateModelSamplesUsed(snap.Meta.SamplesUsed)
	return nil
}

// currentSnapshot returns the cached snapshot, or ErrModelNotReady.
func (s *Service) currentSnapshot() (*artifact.Snapshot, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrModelNotReady
	}
	return snap, nil
}

// Predict scores a single borrower record against the current model.
func (s *Service) Predict(ctx context.Context, rec model.BorrowerRecord) (*model.Prediction, error) {
	start := time.Now()
	snap, err := s.currentSnapshot()
	if err != nil {
		return nil, err
	}

	row := s.encodeFor(snap, rec)
	pred := predictWith(snap, row)

	metrics.RecordPrediction()
	metrics.RecordPredictionLatency(float64(time.Since(start).Milliseconds()))
	return pred, nil
}

// predictWith scores an aligned row against one snapshot. Callers that also
// run attribution pass the same snapshot here so the prediction and the
// attributions never come from different model versions.
func predictWith(snap *artifact.Snapshot, row []float64) *model.Prediction {
	proba := snap.Ensemble.PredictProba([][]float64{row})[0]

	label := model.StatusRepaid
	if proba[1] >= 0.5 {
		label = model.StatusDefault
	}

	return &model.Prediction{
		Label:              label,
		Status:             model.StatusName(label),
		Decision:           model.DecisionName(label),
		ProbabilityRepaid:  proba[0],
		ProbabilityDefault: proba[1],
	}
}

// Explain scores a record and attributes the default probability to the
// strongest features, with a rendered chart.
func (s *Service) Explain(ctx context.Context, rec model.BorrowerRecord) (*model.Explanation, error) {
	start := time.Now()
	snap, err := s.currentSnapshot()
	if err != nil {
		return nil, err
	}

	row := s.encodeFor(snap, rec)
	pred := predictWith(snap, row)
	res, err := s.explainer.Explain(ctx, snap.Ensemble.ProbabilityFn(), snap.Schema, row, snap.Background)
	if err != nil {
		return nil, err
	}

	out := &model.Explanation{
		Prediction:   *pred,
		BaseValue:    res.BaseValue,
		Attributions: res.Attributions,
		Summary:      explain.Summarize(res.Attributions),
	}

	img, err := explain.RenderChart(res.Attributions, res.BaseValue)
	if err != nil {
		// The numbers are the contract; the chart is best-effort.
		s.logger.Warn(ctx, "attribution chart rendering failed", logger.Error(err))
	} else {
		out.ImageBase64 = img
	}

	metrics.RecordExplanation()
	metrics.RecordExplanationLatency(float64(time.Since(start).Milliseconds()))
	return out, nil
}

// encodeFor encodes a record and aligns it to the snapshot's schema.
func (s *Service) encodeFor(snap *artifact.Snapshot, rec model.BorrowerRecord) []float64 {
	v := feature.Encode(rec)
	return feature.Align(v, snap.Schema).Values
}

// SubmitFeedback appends an outcome observation, once per distinct content.
// Crossing the accumulation threshold triggers a synchronous retrain; a
// retrain failure is reported in logs but does not reject the feedback.
func (s *Service) SubmitFeedback(ctx context.Context, rec model.FeedbackRecord) (*FeedbackStatus, error) {
	fp := dedupe.Fingerprint(rec)
	if s.deduper.SeenAndRecord(ctx, fp) {
		metrics.RecordFeedbackDuplicate()
		return &FeedbackStatus{Duplicate: true, Pending: s.feedbackLog.Count()}, nil
	}

	if err := s.feedbackLog.Append(ctx, rec); err != nil {
		s.deduper.Unrecord(ctx, fp)
		return nil, err
	}

	pending := s.feedbackLog.Count()
	metrics.RecordFeedbackReceived()
	metrics.UpdateFeedbackPending(pending)

	status := &FeedbackStatus{Accepted: true, Pending: pending}
	if s.autoRetrainThreshold > 0 && pending >= s.autoRetrainThreshold {
		s.logger.Info(ctx, "feedback threshold reached, retraining",
			logger.Int("pending", pending),
			logger.Int("threshold", s.autoRetrainThreshold),
		)
		res, err := s.Retrain(ctx)
		if err != nil {
			s.logger.Warn(ctx, "automatic retrain failed", logger.Error(err))
		} else {
			status.Retrained = res
		}
	}
	return status, nil
}

// Retrain re-fits the model on the full feedback history and publishes the
// new version.
func (s *Service) Retrain(ctx context.Context) (*training.Result, error) {
	start := time.Now()
	raw, err := s.feedbackLog.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.orchestrator.Retrain(ctx, raw)
	if err != nil {
		s.recordTrainingFailure(err)
		return nil, err
	}
	return s.publish(ctx, res, start)
}

// TrainFromDataset fits the initial model on the historical loan dataset.
func (s *Service) TrainFromDataset(ctx context.Context) (*training.Result, error) {
	start := time.Now()
	batch, err := dataset.Load(ctx, s.dataPath)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "historical dataset loaded",
		logger.Int("rows", len(batch.Records)),
		logger.Int("skipped", batch.Skipped),
	)

	res, err := s.orchestrator.Train(ctx, batch.Records, batch.Labels)
	if err != nil {
		s.recordTrainingFailure(err)
		return nil, err
	}
	return s.publish(ctx, res, start)
}

// Compare runs the offline model comparison on the historical dataset.
func (s *Service) Compare(ctx context.Context) (*training.Report, error) {
	batch, err := dataset.Load(ctx, s.dataPath)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.Compare(ctx, batch.Records, batch.Labels)
}

func (s *Service) publish(ctx context.Context, res *training.Result, start time.Time) (*training.Result, error) {
	if err := s.reloadSnapshot(ctx); err != nil {
		return nil, err
	}
	metrics.RecordRetrain()
	metrics.RecordArtifactCommit()
	metrics.RecordRetrainDuration(float64(time.Since(start).Milliseconds()))
	s.logger.Info(ctx, "model version published",
		logger.String("version", res.ModelVersion),
		logger.String("status", res.Status),
		logger.Float64("accuracy", res.Accuracy),
		logger.Int("samples", res.SamplesUsed),
	)
	return res, nil
}

func (s *Service) recordTrainingFailure(err error) {
	switch {
	case errors.As(err, new(*validate.MissingFieldError)):
		metrics.RecordValidationFailure("missing_field")
	case errors.As(err, new(*validate.InvalidLabelError)):
		metrics.RecordValidationFailure("invalid_label")
	case errors.As(err, new(*validate.InsufficientDataError)):
		metrics.RecordValidationFailure("insufficient_data")
	case errors.As(err, new(*validate.ClassImbalanceError)):
		metrics.RecordValidationFailure("class_imbalance")
	case errors.Is(err, validate.ErrEmptyBatch):
		metrics.RecordValidationFailure("empty_batch")
	case errors.Is(err, artifact.ErrArtifact):
		metrics.RecordArtifactIOError()
		metrics.RecordRetrainFailure()
	default:
		metrics.RecordRetrainFailure()
	}
}

// ModelReady reports whether a committed model is available for inference.
func (s *Service) ModelReady() bool {
	return s.snapshot.Load() != nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	stats := map[string]interface{}{
		"started": started,
	}
	if !started {
		return stats
	}

	stats["pending_feedback"] = s.feedbackLog.Count()
	stats["dedupe_size"] = s.deduper.Size()
	stats["auto_retrain_threshold"] = s.autoRetrainThreshold

	if snap := s.snapshot.Load(); snap != nil {
		stats["model_version"] = snap.Version
		stats["model_accuracy"] = snap.Meta.Accuracy
		stats["model_samples_used"] = snap.Meta.SamplesUsed
		stats["model_trained_at"] = snap.Meta.TrainedAt
		stats["feature_count"] = len(snap.Schema)
		stats["background_rows"] = len(snap.Background)
	} else {
		stats["model_version"] = ""
	}
	return stats
}
