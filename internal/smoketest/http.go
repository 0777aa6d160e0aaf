package smoketest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	var buf io.Reader = http.NoBody
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		buf = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// predictionOutcome pairs a borrower with its scored prediction.
type predictionOutcome struct {
	index      int
	borrower   Borrower
	prediction Prediction
	ok         bool
}

// scoreBorrowers submits predictions concurrently using a worker pool.
func scoreBorrowers(ctx context.Context, config *Config, borrowers []Borrower, stats *Stats) ([]predictionOutcome, error) {
	log.Printf("Scoring %d borrowers with %d workers...", len(borrowers), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/predict"

	var (
		sent     int64
		ok       int64
		failed   int64
		approved int64
		rejected int64
	)

	outcomes := make([]predictionOutcome, len(borrowers))

	type job struct {
		index    int
		borrower Borrower
	}

	jobChan := make(chan job, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
					pred, err := scoreSingleBorrower(ctx, client, url, j.borrower)
					atomic.AddInt64(&sent, 1)
					outcome := predictionOutcome{index: j.index, borrower: j.borrower}
					if err != nil {
						atomic.AddInt64(&failed, 1)
					} else {
						atomic.AddInt64(&ok, 1)
						outcome.prediction = pred
						outcome.ok = true
						if pred.Decision == "approve" {
							atomic.AddInt64(&approved, 1)
						} else {
							atomic.AddInt64(&rejected, 1)
						}
					}
					outcomes[j.index] = outcome

					if config.Verbose {
						total := atomic.LoadInt64(&sent)
						log.Printf("Progress: %d/%d scored (ok: %d, failed: %d)",
							total, len(borrowers), atomic.LoadInt64(&ok), atomic.LoadInt64(&failed))
					}
				}
			}
		}()
	}

	go func() {
		defer close(jobChan)
		for i, b := range borrowers {
			select {
			case <-ctx.Done():
				return
			case jobChan <- job{index: i, borrower: b}:
			}
		}
	}()

	wg.Wait()

	stats.PredictionsSent = int(atomic.LoadInt64(&sent))
	stats.PredictionsOK = int(atomic.LoadInt64(&ok))
	stats.PredictionsFailed = int(atomic.LoadInt64(&failed))
	stats.Approved = int(atomic.LoadInt64(&approved))
	stats.Rejected = int(atomic.LoadInt64(&rejected))

	log.Printf(`Scoring completed:
   OK: %d
   Failed: %d
   Approved: %d
   Rejected: %d
`, stats.PredictionsOK, stats.PredictionsFailed, stats.Approved, stats.Rejected)

	return outcomes, nil
}

// scoreSingleBorrower submits one borrower to /predict.
func scoreSingleBorrower(ctx context.Context, client *HTTPClient, url string, b Borrower) (Prediction, error) {
	resp, err := client.Post(ctx, url, b)
	if err != nil {
		return Prediction{}, err
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Prediction{}, err
	}

	if resp.StatusCode != StatusOK {
		return Prediction{}, fmt.Errorf("predict returned status %d: %s", resp.StatusCode, string(body))
	}

	var pred Prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return Prediction{}, fmt.Errorf("failed to parse prediction: %w", err)
	}
	return pred, nil
}

// submitFeedback feeds observed outcomes back for a fraction of the scored
// borrowers. Distressed profiles report defaults, prime profiles repayment.
func submitFeedback(ctx context.Context, config *Config, outcomes []predictionOutcome, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/feedback"

	target := int(float64(len(outcomes)) * config.FeedbackFraction)
	if target == 0 {
		return nil
	}
	log.Printf("Submitting feedback for %d borrowers...", target)

	var sent, accepted, duplicate, retrains int64

	for _, out := range outcomes {
		if int(sent) >= target {
			break
		}
		if !out.ok {
			continue
		}

		fb := Feedback{
			Borrower:        out.borrower,
			PredictedStatus: out.prediction.Label,
			ActualStatus:    actualOutcome(out.borrower),
		}

		resp, err := client.Post(ctx, url, fb)
		if err != nil {
			continue
		}
		body, err := readResponseBody(resp)
		if err != nil {
			continue
		}
		sent++
		if resp.StatusCode != StatusOK && resp.StatusCode != StatusAccepted {
			continue
		}

		var ack struct {
			FeedbackAck
			Retrained *TrainResult `json:"retrained"`
		}
		if err := json.Unmarshal(body, &ack); err != nil {
			continue
		}
		switch {
		case ack.Duplicate:
			duplicate++
		case ack.Accepted:
			accepted++
		}
		if ack.Retrained != nil {
			retrains++
			log.Printf("Auto-retrain fired: version %s", ack.Retrained.ModelVersion)
		}
	}

	stats.FeedbackSent = int(sent)
	stats.FeedbackAccepted = int(accepted)
	stats.FeedbackDuplicate = int(duplicate)
	stats.Retrains = int(retrains)

	log.Printf(`Feedback completed:
   Sent: %d
   Accepted: %d
   Duplicate: %d
   Auto-retrains: %d
`, stats.FeedbackSent, stats.FeedbackAccepted, stats.FeedbackDuplicate, stats.Retrains)

	return nil
}

// actualOutcome invents a ground-truth label from the borrower's profile.
func actualOutcome(b Borrower) int {
	if b.CBPersonDefaultOnFile == "Y" || b.LoanIntRate >= subprimeRateMin {
		return 1
	}
	return 0
}
