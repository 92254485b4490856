package smoke_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/sopchecker/internal/adapters/http/api"
	repository "github.com/okian/sopchecker/internal/adapters/repository"
	service "github.com/okian/sopchecker/internal/app"
	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/okian/sopchecker/internal/smoke"
	"github.com/okian/sopchecker/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithOutput(nopWriter{})); err != nil {
		panic(err)
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newServer(store repository.Store) *httptest.Server {
	svc := service.New(service.WithStore(store))
	return httptest.NewServer(api.NewServer(svc, nil).Handler(context.Background()))
}

func TestRun(t *testing.T) {
	Convey("Given a running API over an in-memory store", t, func() {
		store := repository.NewMemStore(
			repository.WithRows("auth_user", model.Row{"id": 1, "username": "admin"}),
			repository.WithDefaults("sop_items", model.Row{"is_checked": false, "checked_at": nil}),
		)
		srv := newServer(store)
		defer srv.Close()

		cfg := &smoke.Config{
			BaseURL: srv.URL,
			Runs:    6,
			Workers: 3,
			Timeout: 5 * time.Second,
			UserID:  1,
			Verbose: true,
		}

		Convey("When the smoke runs execute", func() {
			stats, err := smoke.Run(context.Background(), cfg)

			Convey("Then every run should pass and clean up after itself", func() {
				So(err, ShouldBeNil)
				So(stats.Passed, ShouldEqual, 6)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Requests, ShouldBeGreaterThan, 6*10)
				So(store.Rows("sop_lists"), ShouldBeEmpty)
			})
		})

		Convey("When toggles are broken on the server", func() {
			store.FailOn(repository.OperationUpdate, "sop_items", errors.New("read only replica"))
			stats, err := smoke.Run(context.Background(), cfg)

			Convey("Then every run should be reported as failed", func() {
				So(errors.Is(err, smoke.ErrFailed), ShouldBeTrue)
				So(stats.Failed, ShouldEqual, 6)
				So(stats.Failures[0], ShouldContainSubstring, "read only replica")
			})
		})
	})

	Convey("Given a server whose store is down", t, func() {
		store := repository.NewMemStore()
		_ = store.Close()
		srv := newServer(store)
		defer srv.Close()

		Convey("Then the health check should stop the run", func() {
			_, err := smoke.Run(context.Background(), &smoke.Config{BaseURL: srv.URL, Runs: 1, Workers: 1, Timeout: time.Second})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})

	Convey("Given nothing listening", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("Then Run should fail fast", func() {
			_, err := smoke.Run(context.Background(), &smoke.Config{BaseURL: url, Runs: 1, Workers: 1, Timeout: time.Second})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestNewCommand(t *testing.T) {
	Convey("Given the sop-smoke command", t, func() {
		cmd := smoke.NewCommand()

		Convey("Then its flags should carry defaults", func() {
			url, err := cmd.Flags().GetString("url")
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "http://localhost:8000")
			runs, err := cmd.Flags().GetInt("runs")
			So(err, ShouldBeNil)
			So(runs, ShouldEqual, 10)
		})

		Convey("When run against a live server", func() {
			srv := newServer(repository.NewMemStore())
			defer srv.Close()
			cmd.SetArgs([]string{"--url", srv.URL, "--runs", "2", "--workers", "2"})
			err := cmd.ExecuteContext(context.Background())

			Convey("Then it should succeed", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}
