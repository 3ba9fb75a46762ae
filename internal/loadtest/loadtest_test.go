package loadtest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/cutline/internal/adapters/http/api"
	service "github.com/okian/cutline/internal/app"
	"github.com/okian/cutline/internal/loadtest"
	"github.com/okian/cutline/internal/scenario"
	"github.com/okian/cutline/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWithWriter(os.Stderr, "text"); err != nil {
		panic(err)
	}
}

func thresholdServer(ctx context.Context) (*httptest.Server, func()) {
	season, err := scenario.Load("../scenario/testdata/small.yaml")
	So(err, ShouldBeNil)

	svc := service.New(service.WithWorkerCount(2), service.WithSeason(season))
	So(svc.Start(ctx), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	return srv, func() {
		srv.Close()
		svc.Stop()
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running threshold service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		srv, stop := thresholdServer(ctx)
		defer stop()

		out := filepath.Join(t.TempDir(), "answers.json")
		cfg := &loadtest.Config{
			BaseURL:    srv.URL,
			Requests:   20,
			Workers:    4,
			Timeout:    30 * time.Second,
			OutputFile: out,
		}

		Convey("When the load run completes", func() {
			stats, err := loadtest.Run(ctx, cfg)

			Convey("Then every answer agrees with the baseline", func() {
				So(err, ShouldBeNil)
				So(stats.Sent, ShouldEqual, 20)
				So(stats.Succeeded, ShouldEqual, 20)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Rejected, ShouldEqual, 0)
			})

			Convey("Then the answers are saved", func() {
				data, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				var answers []loadtest.Answer
				So(json.Unmarshal(data, &answers), ShouldBeNil)
				So(len(answers), ShouldEqual, 21)
				So(answers[0].Response.Threshold, ShouldEqual, 50)
			})
		})
	})

	Convey("Given a service whose answers drift", t, func() {
		calls := 0
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {})
		mux.HandleFunc("/thresholds", func(w http.ResponseWriter, _ *http.Request) {
			calls++
			_ = json.NewEncoder(w).Encode(loadtest.Response{
				RunID:           "r",
				EliminationRank: 1,
				Found:           true,
				Threshold:       int64(calls),
				Outcomes:        []loadtest.Outcome{{Competitor: "A", Status: "optimal", Value: int64(calls)}},
			})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := &loadtest.Config{BaseURL: srv.URL, Requests: 1, Workers: 1, Timeout: time.Second}

		Convey("Then the run reports the inconsistency", func() {
			_, err := loadtest.Run(context.Background(), cfg)
			So(errors.Is(err, loadtest.ErrInconsistent), ShouldBeTrue)
		})
	})

	Convey("Given a baseline that contradicts its outcomes", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {})
		mux.HandleFunc("/thresholds", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(loadtest.Response{
				Found:     true,
				Threshold: 99,
				Outcomes:  []loadtest.Outcome{{Competitor: "A", Status: "optimal", Value: 10}},
			})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		_, err := loadtest.Run(context.Background(), &loadtest.Config{BaseURL: srv.URL, Requests: 1, Workers: 1, Timeout: time.Second})
		So(errors.Is(err, loadtest.ErrInconsistent), ShouldBeTrue)
	})

	Convey("Given no service", t, func() {
		_, err := loadtest.Run(context.Background(), &loadtest.Config{BaseURL: "http://127.0.0.1:1", Requests: 1, Workers: 1, Timeout: time.Second})
		So(err, ShouldNotBeNil)
	})
}
