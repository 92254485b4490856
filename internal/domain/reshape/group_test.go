package reshape_test

import (
	"testing"

	"github.com/okian/sopchecker/internal/domain/model"
	"github.com/okian/sopchecker/internal/domain/reshape"
	. "github.com/smartystreets/goconvey/convey"
)

func item(id, listID, order int, text string) model.Row {
	return model.Row{"id": id, "sop_list_id": listID, "order": order, "text": text}
}

func texts(rows any) []string {
	var out []string
	for _, r := range rows.([]model.Row) {
		out = append(out, r["text"].(string))
	}
	return out
}

func TestGroupBy(t *testing.T) {
	Convey("Given items fetched ordered by list and position", t, func() {
		items := []model.Row{
			item(1, 1, 0, "a"),
			item(2, 1, 1, "b"),
			item(3, 2, 0, "x"),
			item(4, 1, 2, "c"),
		}

		Convey("When grouping by list id", func() {
			groups := reshape.GroupBy(items, model.ColSOPListID)

			Convey("Then each list should keep its input order", func() {
				So(len(groups), ShouldEqual, 2)
				So(texts(groups["1"]), ShouldResemble, []string{"a", "b", "c"})
				So(texts(groups["2"]), ShouldResemble, []string{"x"})
			})
		})

		Convey("When keys arrive as different numeric types", func() {
			mixed := []model.Row{
				{"sop_list_id": float64(5), "text": "f"},
				{"sop_list_id": int64(5), "text": "i"},
			}
			groups := reshape.GroupBy(mixed, model.ColSOPListID)

			Convey("Then they should land in one group", func() {
				So(len(groups), ShouldEqual, 1)
				So(len(groups["5"]), ShouldEqual, 2)
			})
		})
	})
}

func TestAttach(t *testing.T) {
	Convey("Given lists and a flat item set", t, func() {
		lists := []model.Row{{"id": 1, "title": "open"}, {"id": 2, "title": "close"}, {"id": 3, "title": "empty"}}
		items := []model.Row{
			item(1, 1, 0, "a"),
			item(2, 1, 1, "b"),
			item(3, 2, 0, "x"),
			item(9, 99, 0, "orphan"),
		}

		Convey("When attaching items", func() {
			reshape.Attach(lists, items, model.ColSOPListID, model.RelItems)

			Convey("Then every list should carry its items", func() {
				So(texts(lists[0]["items"]), ShouldResemble, []string{"a", "b"})
				So(texts(lists[1]["items"]), ShouldResemble, []string{"x"})
			})

			Convey("Then a list without items should get an empty slice", func() {
				So(lists[2]["items"], ShouldNotBeNil)
				So(lists[2]["items"], ShouldBeEmpty)
			})

			Convey("Then orphan items should not appear anywhere", func() {
				for _, l := range lists {
					for _, it := range l["items"].([]model.Row) {
						So(it["text"], ShouldNotEqual, "orphan")
					}
				}
			})
		})

		Convey("When there are no parents", func() {
			var none []model.Row
			reshape.Attach(none, items, model.ColSOPListID, model.RelItems)

			Convey("Then nothing should happen", func() {
				So(none, ShouldBeEmpty)
			})
		})
	})
}

func TestSortBy(t *testing.T) {
	Convey("Given unordered items with a tie", t, func() {
		rows := []model.Row{
			item(1, 1, 2, "c"),
			item(2, 1, 0, "a"),
			item(3, 1, 1, "b1"),
			item(4, 1, 1, "b2"),
		}
		reshape.SortBy(rows, model.ColOrder)

		Convey("Then they should be ascending and stable", func() {
			So(texts(rows), ShouldResemble, []string{"a", "b1", "b2", "c"})
		})
	})
}

func TestEnsureSlice(t *testing.T) {
	Convey("Given embedded children in store-specific shapes", t, func() {
		Convey("When they come back as []any from JSON", func() {
			row := model.Row{"items": []any{
				map[string]any{"order": float64(1), "text": "b"},
				map[string]any{"order": float64(0), "text": "a"},
			}}
			reshape.EnsureSlice(row, model.RelItems, model.ColOrder)

			Convey("Then they should be rows sorted by position", func() {
				So(texts(row["items"]), ShouldResemble, []string{"a", "b"})
			})
		})

		Convey("When they come back as []map[string]any", func() {
			row := model.Row{"items": []map[string]any{{"order": 0, "text": "a"}}}
			reshape.EnsureSlice(row, model.RelItems, model.ColOrder)

			Convey("Then they should be converted", func() {
				So(texts(row["items"]), ShouldResemble, []string{"a"})
			})
		})

		Convey("When the field is missing or null", func() {
			missing := model.Row{}
			null := model.Row{"items": nil}
			reshape.EnsureSlice(missing, model.RelItems, model.ColOrder)
			reshape.EnsureSlice(null, model.RelItems, model.ColOrder)

			Convey("Then it should become an empty slice", func() {
				So(missing["items"], ShouldResemble, []model.Row{})
				So(null["items"], ShouldResemble, []model.Row{})
			})
		})
	})
}
