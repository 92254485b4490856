package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	repository "github.com/okian/sopchecker/internal/adapters/repository"
	"github.com/okian/sopchecker/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type observation struct {
	table, op string
	rows      int
	err       error
}

type fakeRecorder struct {
	mu  sync.Mutex
	obs []observation
}

func (f *fakeRecorder) RecordStoreOperation(table, operation string, rows int, _ float64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, observation{table: table, op: operation, rows: rows, err: err})
}

func TestInstrumented(t *testing.T) {
	Convey("Given an instrumented MemStore", t, func() {
		ctx := context.Background()
		mem := seededStore()
		rec := &fakeRecorder{}
		s := repository.NewInstrumented(mem, rec)

		Convey("When every operation runs once", func() {
			_, _ = s.Select(ctx, repository.From("sop_items"))
			_, _ = s.Insert(ctx, "sop_items", model.Row{"sop_list_id": 10, "text": "c"})
			_, _ = s.Update(ctx, "sop_items", model.Row{"text": "z"}, repository.Eq("id", 100))
			_, _ = s.Delete(ctx, "sop_items", repository.Eq("id", 999))
			_ = s.Ping(ctx)

			Convey("Then each call should be observed with its row count", func() {
				So(rec.obs, ShouldHaveLength, 5)
				So(rec.obs[0], ShouldResemble, observation{table: "sop_items", op: "select", rows: 3})
				So(rec.obs[1], ShouldResemble, observation{table: "sop_items", op: "insert", rows: 1})
				So(rec.obs[2], ShouldResemble, observation{table: "sop_items", op: "update", rows: 1})
				So(rec.obs[3], ShouldResemble, observation{table: "sop_items", op: "delete", rows: 0})
				So(rec.obs[4].op, ShouldEqual, "ping")
			})
		})

		Convey("When the inner store fails", func() {
			boom := errors.New("boom")
			mem.FailOn(repository.OperationSelect, "sop_lists", boom)
			_, err := s.Select(ctx, repository.From("sop_lists"))

			Convey("Then the error should pass through and be recorded", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				So(rec.obs, ShouldHaveLength, 1)
				So(errors.Is(rec.obs[0].err, boom), ShouldBeTrue)
			})
		})

		Convey("Then Unwrap should return the inner store", func() {
			So(s.Unwrap(), ShouldEqual, mem)
		})
	})
}
