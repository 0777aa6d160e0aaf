package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/okian/crisk/internal/adapters/http/api"
	service "github.com/okian/crisk/internal/app"
	"github.com/okian/crisk/internal/domain/model"
	"github.com/okian/crisk/internal/domain/training"
	"github.com/okian/crisk/internal/domain/validate"
	"github.com/okian/crisk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// Mock implementation of api.Dependencies for handler-level testing.
type mockDeps struct {
	prediction  *model.Prediction
	explanation *model.Explanation
	feedback    *service.FeedbackStatus
	result      *training.Result
	report      *training.Report
	ready       bool
	err         error

	lastRecord   *model.BorrowerRecord
	lastFeedback *model.FeedbackRecord
}

func (m *mockDeps) Predict(ctx context.Context, rec model.BorrowerRecord) (*model.Prediction, error) {
	m.lastRecord = &rec
	if m.err != nil {
		return nil, m.err
	}
	return m.prediction, nil
}

func (m *mockDeps) Explain(ctx context.Context, rec model.BorrowerRecord) (*model.Explanation, error) {
	m.lastRecord = &rec
	if m.err != nil {
		return nil, m.err
	}
	return m.explanation, nil
}

func (m *mockDeps) SubmitFeedback(ctx context.Context, rec model.FeedbackRecord) (*service.FeedbackStatus, error) {
	m.lastFeedback = &rec
	if m.err != nil {
		return nil, m.err
	}
	return m.feedback, nil
}

func (m *mockDeps) Retrain(ctx context.Context) (*training.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockDeps) TrainFromDataset(ctx context.Context) (*training.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockDeps) Compare(ctx context.Context) (*training.Report, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockDeps) ModelReady() bool { return m.ready }

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"model_ready": true, "feature_count": 27}
}

func newTestServer(deps *mockDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

const validBorrower = `{
	"person_age": 35,
	"person_income": 60000,
	"person_home_ownership": "RENT",
	"person_emp_length": 5,
	"loan_intent": "EDUCATION",
	"loan_grade": "B",
	"loan_amnt": 10000,
	"loan_int_rate": 11.5,
	"loan_percent_income": 0.17,
	"cb_person_default_on_file": "N",
	"cb_person_cred_hist_length": 8
}`

func TestPredictEndpoint(t *testing.T) {
	Convey("Given a server with a ready model", t, func() {
		deps := &mockDeps{
			ready: true,
			prediction: &model.Prediction{
				Label:              model.StatusRepaid,
				Status:             "repaid",
				Decision:           "approve",
				ProbabilityRepaid:  0.8,
				ProbabilityDefault: 0.2,
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When posting a valid borrower", func() {
			resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(validBorrower))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the prediction is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got model.Prediction
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Label, ShouldEqual, model.StatusRepaid)
				So(got.Status, ShouldEqual, "repaid")
				So(got.Decision, ShouldEqual, "approve")
				So(deps.lastRecord, ShouldNotBeNil)
				So(deps.lastRecord.LoanIntent, ShouldEqual, "EDUCATION")
			})
		})

		Convey("When a required field is missing", func() {
			body := `{"person_age": 35, "person_income": 60000}`
			resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then a 400 names the missing fields", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				var got map[string]string
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got["code"], ShouldEqual, "bad_request")
				So(got["message"], ShouldContainSubstring, "loan_intent")
			})
		})

		Convey("When the body is not JSON", func() {
			resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader("not json"))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When using GET instead of POST", func() {
			resp, err := http.Get(srv.URL + "/predict")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a server without a trained model", t, func() {
		deps := &mockDeps{err: service.ErrModelNotReady}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When posting a valid borrower", func() {
			resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(validBorrower))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then a 503 model_not_ready is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
				var got map[string]string
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got["code"], ShouldEqual, "model_not_ready")
			})
		})
	})
}

func TestExplainEndpoint(t *testing.T) {
	Convey("Given a server with a ready model", t, func() {
		deps := &mockDeps{
			ready: true,
			explanation: &model.Explanation{
				Prediction: model.Prediction{Label: model.StatusDefault, Status: "default", Decision: "reject"},
				BaseValue:  0.2,
				Attributions: []model.Attribution{
					{Feature: "loan_int_rate", Value: 0.12},
				},
				Summary: []string{"loan_int_rate: 11.50 (+0.120) raises risk"},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When posting a valid borrower", func() {
			resp, err := http.Post(srv.URL+"/explain", "application/json", strings.NewReader(validBorrower))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the explanation is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got model.Explanation
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Prediction.Decision, ShouldEqual, "reject")
				So(got.Attributions, ShouldHaveLength, 1)
				So(got.Summary[0], ShouldContainSubstring, "raises risk")
			})
		})
	})
}

func TestFeedbackEndpoint(t *testing.T) {
	Convey("Given a feedback endpoint", t, func() {
		feedbackBody := strings.TrimSuffix(validBorrower, "\n}") + `,
	"predicted_status": 0,
	"actual_status": 1
}`

		Convey("When submitting new feedback", func() {
			deps := &mockDeps{feedback: &service.FeedbackStatus{Accepted: true, Pending: 3}}
			srv := newTestServer(deps)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/feedback", "application/json", strings.NewReader(feedbackBody))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it is accepted with the pending count", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				var got service.FeedbackStatus
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Accepted, ShouldBeTrue)
				So(got.Pending, ShouldEqual, 3)
				So(deps.lastFeedback.ActualStatus, ShouldEqual, model.StatusDefault)
			})
		})

		Convey("When submitting a duplicate", func() {
			deps := &mockDeps{feedback: &service.FeedbackStatus{Duplicate: true, Pending: 3}}
			srv := newTestServer(deps)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/feedback", "application/json", strings.NewReader(feedbackBody))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it returns 200 and flags the duplicate", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got service.FeedbackStatus
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Duplicate, ShouldBeTrue)
			})
		})

		Convey("When actual_status is missing", func() {
			deps := &mockDeps{}
			srv := newTestServer(deps)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/feedback", "application/json", strings.NewReader(validBorrower))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then a 400 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				var got map[string]string
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got["message"], ShouldContainSubstring, "actual_status")
			})
		})

		Convey("When actual_status is out of range", func() {
			deps := &mockDeps{}
			srv := newTestServer(deps)
			defer srv.Close()

			body := strings.TrimSuffix(validBorrower, "\n}") + `, "actual_status": 2}`
			resp, err := http.Post(srv.URL+"/feedback", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestTrainEndpoints(t *testing.T) {
	Convey("Given training endpoints", t, func() {
		result := &training.Result{
			Status:       "retrained",
			ModelVersion: "v-test",
			Accuracy:     0.91,
			SamplesUsed:  40,
			ClassBalance: map[string]float64{"0": 0.5, "1": 0.5},
		}

		Convey("When posting to /retrain", func() {
			deps := &mockDeps{result: result}
			srv := newTestServer(deps)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/retrain", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the result reports accuracy on feedback", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got map[string]any
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got["status"], ShouldEqual, "retrained")
				So(got["model_version"], ShouldEqual, "v-test")
				So(got["accuracy_on_feedback"], ShouldAlmostEqual, 0.91)
				So(got["samples_used"], ShouldAlmostEqual, 40)
			})
		})

		Convey("When retraining with too little feedback", func() {
			deps := &mockDeps{err: &validate.InsufficientDataError{Required: 5, Got: 2}}
			srv := newTestServer(deps)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/retrain", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then a 400 insufficient_data is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				var got map[string]string
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got["code"], ShouldEqual, "insufficient_data")
			})
		})

		Convey("When posting to /train", func() {
			deps := &mockDeps{result: &training.Result{Status: "trained", ModelVersion: "v-init", Accuracy: 0.93, SamplesUsed: 100}}
			srv := newTestServer(deps)
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/train", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the training result is returned as-is", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got training.Result
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Status, ShouldEqual, "trained")
				So(got.ModelVersion, ShouldEqual, "v-init")
			})
		})

		Convey("When getting /compare", func() {
			deps := &mockDeps{report: &training.Report{
				Results: []training.ModelReport{
					{Model: "random_forest", Accuracy: 0.9, AUC: 0.95},
					{Model: "ensemble", Accuracy: 0.92, AUC: 0.96},
				},
				TrainSamples: 80,
				TestSamples:  20,
			}}
			srv := newTestServer(deps)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/compare")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then all candidate scores are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got training.Report
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Results, ShouldHaveLength, 2)
				So(got.TestSamples, ShouldEqual, 20)
			})
		})

		Convey("When using GET on /retrain", func() {
			deps := &mockDeps{}
			srv := newTestServer(deps)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/retrain")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given a running server", t, func() {
		deps := &mockDeps{ready: true}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When requesting /healthz as JSON", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the health status reports model readiness", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got map[string]any
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got["status"], ShouldEqual, "ok")
				So(got["model_ready"], ShouldEqual, true)
			})
		})

		Convey("When requesting /healthz with a text Accept header", func() {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
			So(err, ShouldBeNil)
			req.Header.Set("Accept", "text/plain")
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then Prometheus metrics are served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldNotContainSubstring, "application/json")
			})
		})

		Convey("When requesting /stats", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then service statistics are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got map[string]any
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got["feature_count"], ShouldAlmostEqual, 27)
			})
		})
	})
}
