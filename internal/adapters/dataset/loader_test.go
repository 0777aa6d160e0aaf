package dataset_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/crisk/internal/adapters/dataset"
)

const sampleHeader = "person_age,person_income,person_home_ownership,person_emp_length," +
	"loan_intent,loan_grade,loan_amnt,loan_int_rate,loan_percent_income," +
	"cb_person_default_on_file,cb_person_cred_hist_length,loan_status"

func TestParse(t *testing.T) {
	ctx := context.Background()

	Convey("Given a well-formed dataset", t, func() {
		csv := sampleHeader + "\n" +
			"25,48000,RENT,3,EDUCATION,B,9000,11.2,0.19,N,4,0\n" +
			"44,120000,MORTGAGE,12,VENTURE,A,20000,7.5,0.17,N,18,0\n" +
			"22,15000,RENT,1,PERSONAL,D,8000,16.9,0.53,Y,2,1\n"

		Convey("When parsed", func() {
			batch, err := dataset.Parse(ctx, strings.NewReader(csv))
			So(err, ShouldBeNil)

			Convey("Then every row becomes a record with its label", func() {
				So(len(batch.Records), ShouldEqual, 3)
				So(batch.Labels, ShouldResemble, []int{0, 0, 1})
				So(batch.Skipped, ShouldEqual, 0)

				So(batch.Records[0].PersonIncome, ShouldEqual, 48000)
				So(batch.Records[0].LoanGrade, ShouldEqual, "B")
				So(batch.Records[2].CBPersonDefaultOnFile, ShouldEqual, "Y")
			})
		})
	})

	Convey("Given a dataset with empty numeric cells", t, func() {
		csv := sampleHeader + "\n" +
			"25,48000,RENT,,EDUCATION,B,9000,11.2,0.19,N,4,0\n" +
			"44,120000,MORTGAGE,12,VENTURE,A,20000,7.5,0.17,N,18,0\n"

		Convey("When parsed", func() {
			batch, err := dataset.Parse(ctx, strings.NewReader(csv))

			Convey("Then incomplete rows are skipped, not fatal", func() {
				So(err, ShouldBeNil)
				So(len(batch.Records), ShouldEqual, 1)
				So(batch.Skipped, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a dataset with extra columns and padding", t, func() {
		csv := "extra," + sampleHeader + "\n" +
			"x,25, 48000,RENT,3,EDUCATION,B,9000,11.2,0.19,N,4,0\n"

		Convey("When parsed", func() {
			batch, err := dataset.Parse(ctx, strings.NewReader(csv))

			Convey("Then unknown columns are ignored", func() {
				So(err, ShouldBeNil)
				So(len(batch.Records), ShouldEqual, 1)
				So(batch.Records[0].PersonIncome, ShouldEqual, 48000)
			})
		})
	})

	Convey("Given a dataset missing a required column", t, func() {
		csv := "person_age,person_income\n25,48000\n"

		Convey("When parsed", func() {
			_, err := dataset.Parse(ctx, strings.NewReader(csv))

			Convey("Then the missing column is reported", func() {
				So(errors.Is(err, dataset.ErrMissingColumn), ShouldBeTrue)
			})
		})
	})

	Convey("Given a dataset with a garbage numeric value", t, func() {
		csv := sampleHeader + "\n" +
			"old,48000,RENT,3,EDUCATION,B,9000,11.2,0.19,N,4,0\n"

		Convey("When parsed", func() {
			_, err := dataset.Parse(ctx, strings.NewReader(csv))

			Convey("Then the row and column are reported", func() {
				var rowErr *dataset.RowError
				So(errors.As(err, &rowErr), ShouldBeTrue)
				So(rowErr.Line, ShouldEqual, 2)
				So(rowErr.Column, ShouldEqual, "person_age")
			})
		})
	})

	Convey("Given a dataset with a label outside {0,1}", t, func() {
		csv := sampleHeader + "\n" +
			"25,48000,RENT,3,EDUCATION,B,9000,11.2,0.19,N,4,2\n"

		Convey("When parsed", func() {
			_, err := dataset.Parse(ctx, strings.NewReader(csv))

			Convey("Then the label is rejected", func() {
				So(errors.Is(err, dataset.ErrBadValue), ShouldBeTrue)
			})
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a dataset file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "loans.csv")
		csv := sampleHeader + "\n" +
			"25,48000,RENT,3,EDUCATION,B,9000,11.2,0.19,N,4,0\n"
		So(os.WriteFile(path, []byte(csv), 0o644), ShouldBeNil)

		Convey("When loaded", func() {
			batch, err := dataset.Load(context.Background(), path)

			Convey("Then it parses like the in-memory path", func() {
				So(err, ShouldBeNil)
				So(len(batch.Records), ShouldEqual, 1)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := dataset.Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))

			Convey("Then opening fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
