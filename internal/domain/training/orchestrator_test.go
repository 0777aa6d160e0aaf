package training_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/crisk/internal/adapters/artifact"
	"github.com/okian/crisk/internal/domain/feature"
	"github.com/okian/crisk/internal/domain/model"
	"github.com/okian/crisk/internal/domain/training"
	"github.com/okian/crisk/internal/domain/validate"
)

// borrower builds a record whose riskiness tracks the interest rate, so the
// learners have signal to find.
func borrower(i int, risky bool) model.BorrowerRecord {
	rec := model.BorrowerRecord{
		PersonAge:             30 + float64(i%20),
		PersonIncome:          80000 - float64(i%10)*1000,
		PersonHomeOwnership:   "MORTGAGE",
		PersonEmpLength:       8,
		LoanIntent:            "VENTURE",
		LoanGrade:             "A",
		LoanAmnt:              8000 + float64(i%7)*500,
		LoanIntRate:           6 + float64(i%5)*0.3,
		LoanPercentIncome:     0.1,
		CBPersonDefaultOnFile: "N",
		CBPersonCredHistLen:   12,
	}
	if risky {
		rec.PersonIncome = 14000 + float64(i%10)*500
		rec.PersonHomeOwnership = "RENT"
		rec.PersonEmpLength = 1
		rec.LoanIntent = "PERSONAL"
		rec.LoanGrade = "E"
		rec.LoanAmnt = 14000 + float64(i%7)*500
		rec.LoanIntRate = 17 + float64(i%5)*0.4
		rec.LoanPercentIncome = 0.6
		rec.CBPersonDefaultOnFile = "Y"
		rec.CBPersonCredHistLen = 3
	}
	return rec
}

func trainingSet(n int) ([]model.BorrowerRecord, []int) {
	records := make([]model.BorrowerRecord, n)
	labels := make([]int, n)
	for i := range records {
		risky := i%2 == 1
		records[i] = borrower(i, risky)
		if risky {
			labels[i] = model.StatusDefault
		}
	}
	return records, labels
}

func rawFeedback(n, defaults int) []validate.RawRecord {
	out := make([]validate.RawRecord, n)
	for i := range out {
		risky := i < defaults
		rec := borrower(i, risky)
		label := model.StatusRepaid
		if risky {
			label = model.StatusDefault
		}
		out[i] = validate.RawRecord{
			"person_age":                 rec.PersonAge,
			"person_income":              rec.PersonIncome,
			"person_home_ownership":      rec.PersonHomeOwnership,
			"person_emp_length":          rec.PersonEmpLength,
			"loan_intent":                rec.LoanIntent,
			"loan_grade":                 rec.LoanGrade,
			"loan_amnt":                  rec.LoanAmnt,
			"loan_int_rate":              rec.LoanIntRate,
			"loan_percent_income":        rec.LoanPercentIncome,
			"cb_person_default_on_file":  rec.CBPersonDefaultOnFile,
			"cb_person_cred_hist_length": rec.CBPersonCredHistLen,
			"actual_status":              float64(label),
		}
	}
	return out
}

func newStore(t *testing.T) *artifact.FileStore {
	t.Helper()
	store, err := artifact.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return store
}

func TestTrain(t *testing.T) {
	ctx := context.Background()

	Convey("Given an orchestrator over an empty store", t, func() {
		store := newStore(t)
		orch := training.New(store, training.WithWorkers(2))

		Convey("When training on the historical set", func() {
			records, labels := trainingSet(40)
			res, err := orch.Train(ctx, records, labels)
			So(err, ShouldBeNil)

			Convey("Then the run is summarized", func() {
				So(res.Status, ShouldEqual, "trained")
				So(res.SamplesUsed, ShouldEqual, 40)
				So(res.ModelVersion, ShouldNotBeEmpty)
				So(res.Accuracy, ShouldBeGreaterThan, 0.9)
			})

			Convey("Then the committed snapshot carries the codec schema", func() {
				snap, err := store.Load(ctx)
				So(err, ShouldBeNil)
				So(snap.Version, ShouldEqual, res.ModelVersion)
				So(snap.Schema, ShouldResemble, feature.Columns())
				So(len(snap.Background), ShouldEqual, 40)
				So(snap.Meta.Accuracy, ShouldEqual, res.Accuracy)
				So(snap.Ensemble.Fitted(), ShouldBeTrue)
			})
		})

		Convey("When training with no data", func() {
			_, err := orch.Train(ctx, nil, nil)

			Convey("Then it refuses", func() {
				So(errors.Is(err, training.ErrNoTrainingData), ShouldBeTrue)
			})
		})

		Convey("When training with mismatched labels", func() {
			records, _ := trainingSet(10)
			_, err := orch.Train(ctx, records, []int{0, 1})

			Convey("Then it refuses", func() {
				So(errors.Is(err, training.ErrNoTrainingData), ShouldBeTrue)
			})
		})

		Convey("When the background cap is smaller than the set", func() {
			orch := training.New(store, training.WithWorkers(2), training.WithBackgroundSize(10))
			records, labels := trainingSet(40)
			_, err := orch.Train(ctx, records, labels)
			So(err, ShouldBeNil)

			Convey("Then the persisted background is capped", func() {
				snap, err := store.Load(ctx)
				So(err, ShouldBeNil)
				So(len(snap.Background), ShouldEqual, 10)
			})
		})
	})
}

func TestRetrain(t *testing.T) {
	ctx := context.Background()

	Convey("Given an orchestrator over an empty store", t, func() {
		store := newStore(t)
		orch := training.New(store, training.WithWorkers(2))

		Convey("When retraining cold from admissible feedback", func() {
			res, err := orch.Retrain(ctx, rawFeedback(20, 8))
			So(err, ShouldBeNil)

			Convey("Then a first version is committed with the codec schema", func() {
				So(res.Status, ShouldEqual, "retrained")
				So(res.SamplesUsed, ShouldEqual, 20)
				So(res.ClassBalance["1"], ShouldAlmostEqual, 0.4)
				So(res.ClassBalance["0"], ShouldAlmostEqual, 0.6)

				snap, err := store.Load(ctx)
				So(err, ShouldBeNil)
				So(snap.Schema, ShouldResemble, feature.Columns())
			})
		})

		Convey("When feedback fails validation", func() {
			_, err := orch.Retrain(ctx, rawFeedback(4, 2))

			Convey("Then the gate error surfaces and nothing is committed", func() {
				var insufficient *validate.InsufficientDataError
				So(errors.As(err, &insufficient), ShouldBeTrue)

				_, err := store.CurrentVersion(ctx)
				So(errors.Is(err, artifact.ErrNoModel), ShouldBeTrue)
			})
		})

		Convey("When a model already exists", func() {
			records, labels := trainingSet(40)
			first, err := orch.Train(ctx, records, labels)
			So(err, ShouldBeNil)

			Convey("And feedback fails validation afterwards", func() {
				_, err := orch.Retrain(ctx, []validate.RawRecord{})

				Convey("Then the committed version is untouched", func() {
					So(errors.Is(err, validate.ErrEmptyBatch), ShouldBeTrue)

					current, err := store.CurrentVersion(ctx)
					So(err, ShouldBeNil)
					So(current, ShouldEqual, first.ModelVersion)
				})
			})

			Convey("And admissible feedback arrives", func() {
				res, err := orch.Retrain(ctx, rawFeedback(12, 5))
				So(err, ShouldBeNil)

				Convey("Then the pointer advances to a new version", func() {
					So(res.ModelVersion, ShouldNotEqual, first.ModelVersion)
					current, err := store.CurrentVersion(ctx)
					So(err, ShouldBeNil)
					So(current, ShouldEqual, res.ModelVersion)
				})

				Convey("Then the new snapshot keeps the persisted schema", func() {
					snap, err := store.Load(ctx)
					So(err, ShouldBeNil)
					So(snap.Schema, ShouldResemble, feature.Columns())
					So(snap.Meta.SamplesUsed, ShouldEqual, 12)
				})
			})
		})

		Convey("When identical feedback is retrained twice", func() {
			raw := rawFeedback(20, 8)
			first, err := orch.Retrain(ctx, raw)
			So(err, ShouldBeNil)
			second, err := orch.Retrain(ctx, raw)
			So(err, ShouldBeNil)

			Convey("Then the reported accuracy is reproducible", func() {
				So(second.Accuracy, ShouldEqual, first.Accuracy)
			})
		})

		Convey("When the batch contains duplicates", func() {
			raw := rawFeedback(10, 4)
			raw = append(raw, raw[0], raw[1])
			res, err := orch.Retrain(ctx, raw)
			So(err, ShouldBeNil)

			Convey("Then balance counts the raw batch and samples the kept one", func() {
				So(res.Collapsed, ShouldEqual, 2)
				So(res.SamplesUsed, ShouldEqual, 10)
				So(res.ClassBalance["1"], ShouldAlmostEqual, 0.5)
			})
		})
	})
}

func TestCompare(t *testing.T) {
	ctx := context.Background()

	Convey("Given a separable historical set", t, func() {
		store := newStore(t)
		orch := training.New(store, training.WithWorkers(2))
		records, labels := trainingSet(60)

		Convey("When comparing candidate models", func() {
			report, err := orch.Compare(ctx, records, labels)
			So(err, ShouldBeNil)

			Convey("Then every candidate is scored on the holdout", func() {
				names := make([]string, len(report.Results))
				for i, r := range report.Results {
					names[i] = r.Model
				}
				So(names, ShouldResemble, []string{
					"random_forest", "gradient_boost", "shallow_boost", "ensemble",
				})

				for _, r := range report.Results {
					So(r.Accuracy, ShouldBeGreaterThan, 0.8)
					So(r.AUC, ShouldBeGreaterThan, 0.8)
					So(r.AUC, ShouldBeLessThanOrEqualTo, 1.0)
				}
			})

			Convey("Then the split is a stratified 80/20", func() {
				So(report.TestSamples, ShouldEqual, 12)
				So(report.TrainSamples, ShouldEqual, 48)
			})

			Convey("Then the store is untouched", func() {
				_, err := store.CurrentVersion(ctx)
				So(errors.Is(err, artifact.ErrNoModel), ShouldBeTrue)
			})
		})

		Convey("When comparing with no data", func() {
			_, err := orch.Compare(ctx, nil, nil)

			Convey("Then it refuses", func() {
				So(errors.Is(err, training.ErrNoTrainingData), ShouldBeTrue)
			})
		})
	})
}
