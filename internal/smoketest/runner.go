package smoketest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/crisk/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete scoring smoke test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting crisk smoke test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("borrowers", config.NumBorrowers),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Float64("feedbackFraction", config.FeedbackFraction),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Train on the reference dataset if no model is published yet
	if err := ensureModel(ctx, config); err != nil {
		return fmt.Errorf("initial training failed: %w", err)
	}

	// Step 3: Generate synthetic borrowers
	borrowers, err := generateBorrowers(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("borrower generation failed: %w", err)
	}

	// Step 4: Score them concurrently
	outcomes, err := scoreBorrowers(ctx, config, borrowers, stats)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	// Step 5: Explain one prediction
	if err := explainSample(ctx, config, outcomes); err != nil {
		log.Printf("Explanation check warning: %v", err)
	}

	// Step 6: Feed back outcomes for a fraction of the borrowers
	if err := submitFeedback(ctx, config, outcomes, stats); err != nil {
		return fmt.Errorf("feedback submission failed: %w", err)
	}

	// Step 7: Force a retrain on the accumulated feedback
	time.Sleep(TrainSettleDelay)
	if err := forceRetrain(ctx, config, stats); err != nil {
		log.Printf("Retrain warning: %v", err)
	}

	// Step 8: Compare candidate models
	if err := compareModels(ctx, config); err != nil {
		log.Printf("Compare warning: %v", err)
	}

	// Step 9: Verify results
	if err := verifyResults(ctx, config, outcomes, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 10: Save borrowers to file
	if err := saveBorrowersToFile(ctx, config, borrowers); err != nil {
		logger.Get().Warn(ctx, "failed to save borrowers to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "smoke test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// ensureModel trains on the reference dataset when no model is published.
func ensureModel(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/stats")
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	var stats struct {
		ModelVersion string `json:"model_version"`
	}
	if err := json.Unmarshal(body, &stats); err != nil {
		return fmt.Errorf("failed to parse stats: %w", err)
	}
	if stats.ModelVersion != "" {
		log.Printf("Model already published: %s", stats.ModelVersion)
		return nil
	}

	log.Println("No model published, training on the reference dataset...")
	trainResp, err := client.Post(ctx, config.BaseURL+"/train", nil)
	if err != nil {
		return fmt.Errorf("failed to trigger training: %w", err)
	}
	trainBody, err := readResponseBody(trainResp)
	if err != nil {
		return fmt.Errorf("failed to read training response: %w", err)
	}
	if trainResp.StatusCode != StatusOK {
		return fmt.Errorf("training returned status %d: %s", trainResp.StatusCode, string(trainBody))
	}

	var result TrainResult
	if err := json.Unmarshal(trainBody, &result); err != nil {
		return fmt.Errorf("failed to parse training response: %w", err)
	}
	log.Printf("Trained model %s", result.ModelVersion)
	return nil
}

// explainSample requests an explanation for the first scored borrower.
func explainSample(ctx context.Context, config *Config, outcomes []predictionOutcome) error {
	var sample *predictionOutcome
	for i := range outcomes {
		if outcomes[i].ok {
			sample = &outcomes[i]
			break
		}
	}
	if sample == nil {
		return fmt.Errorf("no successful prediction to explain")
	}

	client := newHTTPClient(config.Timeout)
	resp, err := client.Post(ctx, config.BaseURL+"/explain", sample.borrower)
	if err != nil {
		return fmt.Errorf("failed to request explanation: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read explanation: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("explain returned status %d: %s", resp.StatusCode, string(body))
	}

	var exp struct {
		Attributions []struct {
			Feature string  `json:"feature"`
			Value   float64 `json:"value"`
		} `json:"attributions"`
		Summary []string `json:"summary"`
	}
	if err := json.Unmarshal(body, &exp); err != nil {
		return fmt.Errorf("failed to parse explanation: %w", err)
	}
	if len(exp.Attributions) == 0 {
		return fmt.Errorf("explanation has no attributions")
	}

	log.Printf("Top attribution: %s (%.3f)", exp.Attributions[0].Feature, exp.Attributions[0].Value)
	for _, line := range exp.Summary {
		log.Printf("   %s", line)
	}
	return nil
}

// forceRetrain triggers a synchronous retrain on accumulated feedback.
func forceRetrain(ctx context.Context, config *Config, stats *Stats) error {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Post(ctx, config.BaseURL+"/retrain", nil)
	if err != nil {
		return fmt.Errorf("failed to trigger retrain: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read retrain response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("retrain returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Status             string  `json:"status"`
		ModelVersion       string  `json:"model_version"`
		SamplesUsed        int     `json:"samples_used"`
		AccuracyOnFeedback float64 `json:"accuracy_on_feedback"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse retrain response: %w", err)
	}

	stats.Retrains++
	log.Printf("Retrained model %s on %d samples (accuracy %.3f)",
		result.ModelVersion, result.SamplesUsed, result.AccuracyOnFeedback)
	return nil
}

// compareModels fetches the candidate comparison report.
func compareModels(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/compare")
	if err != nil {
		return fmt.Errorf("failed to fetch comparison: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read comparison: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("compare returned status %d: %s", resp.StatusCode, string(body))
	}

	var report CompareReport
	if err := json.Unmarshal(body, &report); err != nil {
		return fmt.Errorf("failed to parse comparison: %w", err)
	}

	log.Printf("Model comparison (%d train / %d test):", report.TrainSamples, report.TestSamples)
	for _, r := range report.Results {
		log.Printf("   %-16s accuracy=%.3f auc=%.3f", r.Model, r.Accuracy, r.AUC)
	}
	return nil
}

// saveBorrowersToFile saves the generated borrowers to a JSON file.
func saveBorrowersToFile(ctx context.Context, config *Config, borrowers []Borrower) error {
	if len(borrowers) == 0 {
		return fmt.Errorf("no borrowers to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_borrowers_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(borrowers); err != nil {
		return fmt.Errorf("failed to encode borrowers: %w", err)
	}

	logger.Get().Info(ctx, "borrowers saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, perSecond float64

	if stats.PredictionsSent > 0 {
		successRate = float64(stats.PredictionsOK) / float64(stats.PredictionsSent) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		perSecond = float64(stats.PredictionsSent) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("borrowersGenerated", stats.BorrowersGenerated),
		logger.Int("predictionsSent", stats.PredictionsSent),
		logger.Int("predictionsOK", stats.PredictionsOK),
		logger.Int("predictionsFailed", stats.PredictionsFailed),
		logger.Int("approved", stats.Approved),
		logger.Int("rejected", stats.Rejected),
		logger.Int("feedbackSent", stats.FeedbackSent),
		logger.Int("feedbackAccepted", stats.FeedbackAccepted),
		logger.Int("feedbackDuplicate", stats.FeedbackDuplicate),
		logger.Int("retrains", stats.Retrains),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("predictionsPerSecond", perSecond))
}
