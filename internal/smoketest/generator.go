package smoketest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/okian/crisk/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileDivisor     = 6
)

// Constants for borrower profile ranges.
const (
	primeIncomeMin      = 70000.0
	primeIncomeRange    = 80000.0
	primeRateMin        = 5.5
	primeRateRange      = 2.5
	nearPrimeIncomeMin  = 45000.0
	nearPrimeRange      = 30000.0
	nearPrimeRateMin    = 8.0
	nearPrimeRateRange  = 3.0
	subprimeIncomeMin   = 20000.0
	subprimeIncomeRng   = 20000.0
	subprimeRateMin     = 13.0
	subprimeRateRange   = 5.0
	distressedIncomeMin = 12000.0
	distressedIncomeRng = 10000.0
	distressedRateMin   = 17.0
	distressedRateRange = 6.0
	youngAgeMin         = 21.0
	youngAgeRange       = 9.0
	midAgeMin           = 30.0
	midAgeRange         = 20.0
	loanSmallMin        = 1000.0
	loanSmallRange      = 7000.0
	loanLargeMin        = 8000.0
	loanLargeRange      = 22000.0
)

// Constants for profile cases.
const (
	casePrime      = 0
	caseNearPrime  = 1
	caseSubprime   = 2
	caseDistressed = 3
	caseYoungThin  = 4
	caseMixed      = 5
)

var (
	ownerships = []string{"RENT", "OWN", "MORTGAGE", "OTHER"}
	intents    = []string{"PERSONAL", "EDUCATION", "MEDICAL", "VENTURE", "HOMEIMPROVEMENT", "DEBTCONSOLIDATION"}
	grades     = []string{"A", "B", "C", "D", "E", "F", "G"}
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// pick returns a random element of choices.
func pick(choices []string) string {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(choices))))
	return choices[n.Int64()]
}

// generateBorrowers creates the specified number of synthetic loan applications.
func generateBorrowers(ctx context.Context, config *Config, stats *Stats) ([]Borrower, error) {
	logger.Get().Info(ctx, "generating synthetic borrowers", logger.Int("numBorrowers", config.NumBorrowers))

	borrowers := make([]Borrower, config.NumBorrowers)

	type borrowerResult struct {
		index    int
		borrower Borrower
		err      error
	}

	resultChan := make(chan borrowerResult, config.NumBorrowers)

	// Use worker pool for borrower generation
	workerCount := minInt(config.Workers, config.NumBorrowers)
	perWorker := config.NumBorrowers / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * perWorker
		end := start + perWorker
		if worker == workerCount-1 {
			end = config.NumBorrowers // Last worker gets the remainder
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- borrowerResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- borrowerResult{index: i, borrower: generateSingleBorrower()}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumBorrowers; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during borrower generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate borrower %d: %w", result.index, result.err)
			}
			borrowers[result.index] = result.borrower
		}
	}

	stats.BorrowersGenerated = len(borrowers)
	logger.Get().Info(ctx, "generated borrowers successfully", logger.Int("count", len(borrowers)))

	return borrowers, nil
}

// generateSingleBorrower creates one application with a varied risk profile.
func generateSingleBorrower() Borrower {
	profile, _ := rand.Int(rand.Reader, big.NewInt(profileDivisor))

	var income, rate, age, amount float64
	grade := pick(grades)
	defaultOnFile := "N"

	switch profile.Int64() {
	case casePrime:
		// High income, low rate, good grade
		income = primeIncomeMin + getRandomFloat()*primeIncomeRange
		rate = primeRateMin + getRandomFloat()*primeRateRange
		age = midAgeMin + getRandomFloat()*midAgeRange
		amount = loanSmallMin + getRandomFloat()*loanSmallRange
		grade = pick([]string{"A", "B"})
	case caseNearPrime:
		income = nearPrimeIncomeMin + getRandomFloat()*nearPrimeRange
		rate = nearPrimeRateMin + getRandomFloat()*nearPrimeRateRange
		age = midAgeMin + getRandomFloat()*midAgeRange
		amount = loanSmallMin + getRandomFloat()*loanSmallRange
		grade = pick([]string{"B", "C"})
	case caseSubprime:
		income = subprimeIncomeMin + getRandomFloat()*subprimeIncomeRng
		rate = subprimeRateMin + getRandomFloat()*subprimeRateRange
		age = youngAgeMin + getRandomFloat()*youngAgeRange
		amount = loanLargeMin + getRandomFloat()*loanLargeRange
		grade = pick([]string{"D", "E"})
	case caseDistressed:
		// Low income, high rate, prior default on file
		income = distressedIncomeMin + getRandomFloat()*distressedIncomeRng
		rate = distressedRateMin + getRandomFloat()*distressedRateRange
		age = youngAgeMin + getRandomFloat()*youngAgeRange
		amount = loanLargeMin + getRandomFloat()*loanLargeRange
		grade = pick([]string{"E", "F", "G"})
		defaultOnFile = "Y"
	case caseYoungThin:
		// Young borrower with a thin credit history
		income = nearPrimeIncomeMin + getRandomFloat()*nearPrimeRange
		rate = nearPrimeRateMin + getRandomFloat()*nearPrimeRateRange
		age = youngAgeMin + getRandomFloat()*youngAgeRange
		amount = loanSmallMin + getRandomFloat()*loanSmallRange
	default:
		// Random across the full range
		income = distressedIncomeMin + getRandomFloat()*(primeIncomeMin+primeIncomeRange-distressedIncomeMin)
		rate = primeRateMin + getRandomFloat()*(distressedRateMin+distressedRateRange-primeRateMin)
		age = youngAgeMin + getRandomFloat()*(midAgeMin+midAgeRange-youngAgeMin)
		amount = loanSmallMin + getRandomFloat()*(loanLargeMin+loanLargeRange-loanSmallMin)
	}

	empLength := getRandomFloat() * (age - youngAgeMin + 1)
	histLength := 2 + getRandomFloat()*(age-youngAgeMin+2)

	return Borrower{
		PersonAge:             float64(int(age)),
		PersonIncome:          float64(int(income)),
		PersonHomeOwnership:   pick(ownerships),
		PersonEmpLength:       float64(int(empLength)),
		LoanIntent:            pick(intents),
		LoanGrade:             grade,
		LoanAmnt:              float64(int(amount)),
		LoanIntRate:           rate,
		LoanPercentIncome:     amount / income,
		CBPersonDefaultOnFile: defaultOnFile,
		CBPersonCredHistLen:   float64(int(histLength)),
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
