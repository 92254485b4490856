package repository

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/okian/sopchecker/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestSQLBuilders(t *testing.T) {
	Convey("Given the SQL statement builders", t, func() {
		Convey("When inserting rows with different columns", func() {
			query, args, err := buildInsert("sop_items", []model.Row{
				{"sop_list_id": 1, "text": "a", "order": 0},
				{"sop_list_id": 1, "text": "b"},
			})

			Convey("Then missing columns should fall back to DEFAULT", func() {
				So(err, ShouldBeNil)
				So(query, ShouldEqual, `INSERT INTO "sop_items" ("order", "sop_list_id", "text") VALUES (?, ?, ?), (DEFAULT, ?, ?) RETURNING *`)
				So(args, ShouldResemble, []any{0, 1, "a", 1, "b"})
			})
		})

		Convey("When inserting an empty row", func() {
			query, args, err := buildInsert("sop_lists", []model.Row{{}})

			Convey("Then DEFAULT VALUES should be used", func() {
				So(err, ShouldBeNil)
				So(query, ShouldEqual, `INSERT INTO "sop_lists" DEFAULT VALUES RETURNING *`)
				So(args, ShouldBeEmpty)
			})

			Convey("Then a batch of empty rows should be refused", func() {
				_, _, err := buildInsert("sop_lists", []model.Row{{}, {}})
				So(errors.Is(err, ErrInvalidQuery), ShouldBeTrue)
			})
		})

		Convey("When updating with eq and in filters", func() {
			query, args, err := buildUpdate("public.sop_items",
				model.Row{"is_checked": true, "checked_at": nil},
				[]Filter{Eq("id", 7), In("sop_list_id", 1, 2)})

			Convey("Then SET columns should be sorted and the table schema-qualified", func() {
				So(err, ShouldBeNil)
				So(query, ShouldEqual, `UPDATE "public"."sop_items" SET "checked_at" = ?, "is_checked" = ? WHERE "id" = ? AND "sop_list_id" IN ? RETURNING *`)
				So(args, ShouldResemble, []any{nil, true, 7, []any{1, 2}})
			})
		})

		Convey("When a write has no filters", func() {
			_, _, errU := buildUpdate("sop_lists", model.Row{"title": "x"}, nil)
			_, _, errD := buildDelete("sop_lists", nil)

			Convey("Then it should be refused", func() {
				So(errors.Is(errU, ErrInvalidQuery), ShouldBeTrue)
				So(errors.Is(errD, ErrInvalidQuery), ShouldBeTrue)
			})
		})

		Convey("When deleting with an empty IN list", func() {
			query, args, err := buildDelete("sop_items", []Filter{In("sop_list_id")})

			Convey("Then nothing should match", func() {
				So(err, ShouldBeNil)
				So(query, ShouldEqual, `DELETE FROM "sop_items" WHERE FALSE RETURNING *`)
				So(args, ShouldBeEmpty)
			})
		})

		Convey("When an update has no values", func() {
			_, _, err := buildUpdate("sop_lists", model.Row{}, []Filter{Eq("id", 1)})
			So(errors.Is(err, ErrInvalidQuery), ShouldBeTrue)
		})
	})
}

func TestGormLogger(t *testing.T) {
	Convey("Given the gorm logger bridge", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.WithOutput(&buf)), ShouldBeNil)
		l := newGormLogger(logger.Get())
		ctx := context.Background()
		sql := func() (string, int64) { return `SELECT * FROM "sop_lists"`, 2 }

		Convey("When a statement fails", func() {
			l.Trace(ctx, time.Now(), sql, errors.New("relation does not exist"))

			Convey("Then the statement and error should be logged", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "sql failed")
				So(out, ShouldContainSubstring, "relation does not exist")
				So(out, ShouldContainSubstring, "logger=sql")
			})
		})

		Convey("When a record is simply not found", func() {
			l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)

			Convey("Then nothing should be logged at the default level", func() {
				So(buf.String(), ShouldBeEmpty)
			})
		})

		Convey("When a statement is slow", func() {
			l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)

			Convey("Then a warning should be logged", func() {
				So(buf.String(), ShouldContainSubstring, "slow sql")
			})
		})

		Convey("When the mode is silent", func() {
			l.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), sql, errors.New("boom"))

			Convey("Then nothing should be logged", func() {
				So(strings.TrimSpace(buf.String()), ShouldBeEmpty)
			})
		})
	})
}
