package smoketest

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
)

// probabilityTolerance bounds how far the two class probabilities may drift
// from summing to one.
const probabilityTolerance = 1e-6

// verifyResults checks the internal consistency of the scored predictions.
func verifyResults(_ context.Context, config *Config, outcomes []predictionOutcome, _ *Stats) error {
	log.Println("Verifying results...")

	scored := make([]predictionOutcome, 0, len(outcomes))
	for _, out := range outcomes {
		if out.ok {
			scored = append(scored, out)
		}
	}
	if len(scored) == 0 {
		return fmt.Errorf("no predictions to verify")
	}

	var inconsistent int
	for _, out := range scored {
		p := out.prediction
		if math.Abs(p.ProbabilityRepaid+p.ProbabilityDefault-1) > probabilityTolerance {
			inconsistent++
			continue
		}
		if p.Label == 1 && p.Decision != "reject" {
			inconsistent++
			continue
		}
		if p.Label == 0 && p.Decision != "approve" {
			inconsistent++
		}
	}
	if inconsistent > 0 {
		return fmt.Errorf("%d of %d predictions are internally inconsistent", inconsistent, len(scored))
	}
	log.Printf("All %d predictions are internally consistent", len(scored))

	displayRiskiest(scored, config.Verbose)

	log.Println("Result verification completed")
	return nil
}

// displayRiskiest shows the highest default probabilities observed.
func displayRiskiest(scored []predictionOutcome, verbose bool) {
	sorted := make([]predictionOutcome, len(scored))
	copy(sorted, scored)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].prediction.ProbabilityDefault > sorted[j].prediction.ProbabilityDefault
	})

	topN := 10
	if len(sorted) < topN {
		topN = len(sorted)
	}

	log.Printf("Top %d riskiest borrowers:", topN)
	for i := 0; i < topN; i++ {
		out := sorted[i]
		log.Printf("   %d. grade=%s rate=%.1f%% income=%.0f - P(default)=%.3f (%s)",
			i+1, out.borrower.LoanGrade, out.borrower.LoanIntRate, out.borrower.PersonIncome,
			out.prediction.ProbabilityDefault, out.prediction.Decision)
	}

	if verbose {
		avg := 0.0
		for _, out := range sorted {
			avg += out.prediction.ProbabilityDefault
		}
		avg /= float64(len(sorted))

		log.Printf(`Default probability statistics:
   Average: %.3f
   Maximum: %.3f
   Minimum: %.3f
`, avg, sorted[0].prediction.ProbabilityDefault, sorted[len(sorted)-1].prediction.ProbabilityDefault)
	}
}
