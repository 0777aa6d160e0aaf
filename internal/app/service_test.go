package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/crisk/internal/app"
	"github.com/okian/crisk/internal/domain/model"
	"github.com/okian/crisk/internal/domain/validate"
	"github.com/okian/crisk/pkg/logger"
	"github.com/okian/crisk/pkg/metrics"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testBorrower(i int, risky bool) model.BorrowerRecord {
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

func writeDataset(t *testing.T, dir string, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("person_age,person_income,person_home_ownership,person_emp_length," +
		"loan_intent,loan_grade,loan_amnt,loan_int_rate,loan_percent_income," +
		"cb_person_default_on_file,cb_person_cred_hist_length,loan_status\n")
	for i := 0; i < rows; i++ {
		risky := i%2 == 1
		rec := testBorrower(i, risky)
		label := 0
		if risky {
			label = 1
		}
		fmt.Fprintf(&b, "%g,%g,%s,%g,%s,%s,%g,%g,%g,%s,%g,%d\n",
			rec.PersonAge, rec.PersonIncome, rec.PersonHomeOwnership, rec.PersonEmpLength,
			rec.LoanIntent, rec.LoanGrade, rec.LoanAmnt, rec.LoanIntRate, rec.LoanPercentIncome,
			rec.CBPersonDefaultOnFile, rec.CBPersonCredHistLen, label)
	}
	path := filepath.Join(dir, "loans.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func testFeedback(i int, risky bool) model.FeedbackRecord {
	label := model.StatusRepaid
	if risky {
		label = model.StatusDefault
	}
	return model.FeedbackRecord{
		BorrowerRecord:  testBorrower(i, risky),
		PredictedStatus: label,
		ActualStatus:    label,
	}
}

func newService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	dir := t.TempDir()
	base := []service.Option{
		service.WithDataPath(writeDataset(t, dir, 40)),
		service.WithArtifactDir(filepath.Join(dir, "artifacts")),
		service.WithFeedbackPath(filepath.Join(dir, "feedback.jsonl")),
		service.WithFitWorkers(2),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestPredictLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service without a model", t, func() {
		svc := newService(t)

		Convey("When predicting before training", func() {
			_, err := svc.Predict(ctx, testBorrower(1, false))

			Convey("Then it reports the model is not ready", func() {
				So(errors.Is(err, service.ErrModelNotReady), ShouldBeTrue)
				So(svc.ModelReady(), ShouldBeFalse)
			})
		})

		Convey("When trained from the historical dataset", func() {
			res, err := svc.TrainFromDataset(ctx)
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, "trained")
			So(svc.ModelReady(), ShouldBeTrue)

			Convey("Then a safe borrower is approved", func() {
				pred, err := svc.Predict(ctx, testBorrower(2, false))
				So(err, ShouldBeNil)
				So(pred.Label, ShouldEqual, model.StatusRepaid)
				So(pred.Decision, ShouldEqual, "approve")
				So(pred.ProbabilityRepaid+pred.ProbabilityDefault, ShouldAlmostEqual, 1.0)
			})

			Convey("Then a risky borrower is rejected", func() {
				pred, err := svc.Predict(ctx, testBorrower(3, true))
				So(err, ShouldBeNil)
				So(pred.Label, ShouldEqual, model.StatusDefault)
				So(pred.Status, ShouldEqual, "default")
				So(pred.Decision, ShouldEqual, "reject")
			})

			Convey("Then explanations carry ranked attributions and a chart", func() {
				exp, err := svc.Explain(ctx, testBorrower(3, true))
				So(err, ShouldBeNil)
				So(len(exp.Attributions), ShouldEqual, 5)
				So(len(exp.Summary), ShouldEqual, 5)
				So(exp.ImageBase64, ShouldNotBeEmpty)
				So(exp.BaseValue, ShouldBeBetween, 0.0, 1.0)

				for i := 1; i < len(exp.Attributions); i++ {
					prev := exp.Attributions[i-1].Value
					cur := exp.Attributions[i].Value
					So(abs(prev), ShouldBeGreaterThanOrEqualTo, abs(cur))
				}
			})

			Convey("Then stats describe the published model", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["model_version"], ShouldEqual, res.ModelVersion)
				So(stats["model_accuracy"], ShouldEqual, res.Accuracy)
				So(stats["feature_count"], ShouldEqual, 27)
			})
		})
	})
}

func counterValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestExplainScoresAgainstOneSnapshot(t *testing.T) {
	ctx := context.Background()

	Convey("Given a trained service", t, func() {
		svc := newService(t)
		_, err := svc.TrainFromDataset(ctx)
		So(err, ShouldBeNil)

		Convey("When a record is explained", func() {
			predBefore := counterValue(t, "crisk_scoring_predictions_total")
			expBefore := counterValue(t, "crisk_scoring_explanations_total")

			exp, err := svc.Explain(ctx, testBorrower(4, true))
			So(err, ShouldBeNil)

			// Explain must score with the snapshot it attributes against,
			// not re-enter Predict and risk loading a newer model.
			Convey("Then only the explanation counter moves", func() {
				So(counterValue(t, "crisk_scoring_explanations_total"), ShouldEqual, expBefore+1)
				So(counterValue(t, "crisk_scoring_predictions_total"), ShouldEqual, predBefore)
			})

			Convey("Then the embedded prediction matches the attributed model", func() {
				pred, err := svc.Predict(ctx, testBorrower(4, true))
				So(err, ShouldBeNil)
				So(exp.Prediction.ProbabilityDefault, ShouldAlmostEqual, pred.ProbabilityDefault)
				So(exp.Prediction.Label, ShouldEqual, pred.Label)
			})
		})
	})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestFeedbackFlow(t *testing.T) {
	ctx := context.Background()

	Convey("Given a trained service with a high retrain threshold", t, func() {
		svc := newService(t, service.WithAutoRetrainThreshold(100))
		_, err := svc.TrainFromDataset(ctx)
		So(err, ShouldBeNil)

		Convey("When feedback is submitted", func() {
			status, err := svc.SubmitFeedback(ctx, testFeedback(1, false))
			So(err, ShouldBeNil)

			Convey("Then it is accepted and counted", func() {
				So(status.Accepted, ShouldBeTrue)
				So(status.Duplicate, ShouldBeFalse)
				So(status.Pending, ShouldEqual, 1)
			})

			Convey("And the same submission again is a duplicate", func() {
				again, err := svc.SubmitFeedback(ctx, testFeedback(1, false))
				So(err, ShouldBeNil)
				So(again.Accepted, ShouldBeFalse)
				So(again.Duplicate, ShouldBeTrue)
				So(again.Pending, ShouldEqual, 1)
			})
		})

		Convey("When too little feedback exists for a manual retrain", func() {
			_, err := svc.SubmitFeedback(ctx, testFeedback(1, false))
			So(err, ShouldBeNil)
			_, err = svc.Retrain(ctx)

			Convey("Then the gate rejects it", func() {
				var insufficient *validate.InsufficientDataError
				So(errors.As(err, &insufficient), ShouldBeTrue)
			})
		})

		Convey("When enough balanced feedback accumulates", func() {
			for i := 0; i < 8; i++ {
				_, err := svc.SubmitFeedback(ctx, testFeedback(i, i%3 == 0))
				So(err, ShouldBeNil)
			}
			before := svc.GetStats()["model_version"]

			res, err := svc.Retrain(ctx)

			Convey("Then retraining publishes a new version", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, "retrained")
				So(res.SamplesUsed, ShouldEqual, 8)
				So(res.ModelVersion, ShouldNotEqual, before)
				So(svc.GetStats()["model_version"], ShouldEqual, res.ModelVersion)
			})
		})
	})

	Convey("Given a service with a low auto-retrain threshold", t, func() {
		svc := newService(t, service.WithAutoRetrainThreshold(6))
		_, err := svc.TrainFromDataset(ctx)
		So(err, ShouldBeNil)

		Convey("When the threshold is crossed", func() {
			var last *service.FeedbackStatus
			for i := 0; i < 6; i++ {
				last, err = svc.SubmitFeedback(ctx, testFeedback(i, i%3 == 0))
				So(err, ShouldBeNil)
			}

			Convey("Then the crossing submission reports the retrain", func() {
				So(last.Pending, ShouldEqual, 6)
				So(last.Retrained, ShouldNotBeNil)
				So(last.Retrained.Status, ShouldEqual, "retrained")
				So(svc.GetStats()["model_version"], ShouldEqual, last.Retrained.ModelVersion)
			})
		})
	})
}
