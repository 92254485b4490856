package repository_test

import (
	"context"
	"errors"
	"testing"

	repository "github.com/okian/sopchecker/internal/adapters/repository"
	"github.com/okian/sopchecker/internal/config"
	"github.com/okian/sopchecker/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOpen(t *testing.T) {
	Convey("Given a default config", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		Convey("When no store settings are present", func() {
			s, err := repository.Open(ctx, cfg, nil)

			Convey("Then an in-memory store with item defaults should be returned", func() {
				So(err, ShouldBeNil)
				_, ok := s.(*repository.MemStore)
				So(ok, ShouldBeTrue)

				rows, err := s.Insert(ctx, cfg.Tables.Items, model.Row{"sop_list_id": 1, "text": "a", "order": 0})
				So(err, ShouldBeNil)
				So(rows[0]["is_checked"], ShouldEqual, false)
				So(rows[0], ShouldContainKey, "checked_at")
			})
		})

		Convey("When a project URL and key are set", func() {
			cfg.Store.URL = "http://localhost:54321"
			cfg.Store.Key = "anon"
			s, err := repository.Open(ctx, cfg, nil)

			Convey("Then a REST store should be returned", func() {
				So(err, ShouldBeNil)
				_, ok := s.(*repository.PostgRESTStore)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the driver is unknown", func() {
			cfg.Store.Driver = "mongo"
			_, err := repository.Open(ctx, cfg, nil)

			Convey("Then ErrUnsupportedDriver should be returned", func() {
				So(errors.Is(err, repository.ErrUnsupportedDriver), ShouldBeTrue)
			})
		})
	})
}
