package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	repository "github.com/okian/sopchecker/internal/adapters/repository"
	"github.com/okian/sopchecker/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a service over an instrumented MemStore", t, func() {
		ctx := context.Background()
		svc := newService(repository.NewInstrumented(seededStore(), nil))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When many checklists are created concurrently", func() {
			const workers = 20
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := svc.CreateChecklist(ctx, model.Row{
						"title": fmt.Sprintf("list-%d", i),
						"items": []any{"a", "b"},
					})
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)

			Convey("Then all should succeed and each should own exactly its items", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				lists, err := svc.ListChecklists(ctx)
				So(err, ShouldBeNil)
				So(lists, ShouldHaveLength, 3+workers)
				for _, l := range lists[3:] {
					So(itemTexts(l), ShouldResemble, []string{"a", "b"})
				}
			})
		})

		Convey("When the same item is toggled an even number of times concurrently", func() {
			const toggles = 10
			var wg sync.WaitGroup
			var mu sync.Mutex
			var failures int
			for i := 0; i < toggles; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := svc.ToggleItem(ctx, 100); err != nil {
						mu.Lock()
						failures++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then every toggle should succeed and checked_at should match is_checked", func() {
				So(failures, ShouldEqual, 0)
				list, err := svc.GetChecklist(ctx, 10)
				So(err, ShouldBeNil)
				for _, it := range list["items"].([]model.Row) {
					So(it.Bool("is_checked"), ShouldEqual, it["checked_at"] != nil)
				}
			})
		})
	})
}
