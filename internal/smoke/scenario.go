package smoke

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/okian/sopchecker/pkg/logger"
)

// missingID is never handed out by a sequence in practice.
const missingID = math.MaxInt64

var itemTexts = []string{"a", "b", "c"}

// scenario drives one checklist through its whole life and checks every
// response along the way.
type scenario struct {
	client *HTTPClient
	cfg    *Config
	log    logger.Logger
	title  string
}

func newScenario(client *HTTPClient, cfg *Config, run int) *scenario {
	title := "smoke-" + uuid.NewString()
	return &scenario{
		client: client,
		cfg:    cfg,
		log:    logger.Get().Named("smoke").With(logger.Int("run", run), logger.String("title", title)),
		title:  title,
	}
}

func (s *scenario) step(ctx context.Context, name string) {
	if s.cfg.Verbose {
		s.log.Info(ctx, "step", logger.String("step", name))
	}
}

func (s *scenario) run(ctx context.Context) error {
	s.step(ctx, "create")
	created, err := s.create(ctx)
	if err != nil {
		return err
	}
	listPath := fmt.Sprintf("/lists/%d/", created.ID)

	s.step(ctx, "detail")
	var detail checklist
	resp, err := s.client.expect(ctx, http.StatusOK, http.MethodGet, listPath, nil)
	if err != nil {
		return err
	}
	if err := resp.decode(&detail); err != nil {
		return err
	}
	if err := checkItems(detail.Items); err != nil {
		return fmt.Errorf("detail: %w", err)
	}

	s.step(ctx, "toggle")
	if err := s.toggleTwice(ctx, detail.Items[0].ID); err != nil {
		return err
	}

	s.step(ctx, "update")
	if err := s.update(ctx, listPath, created); err != nil {
		return err
	}

	s.step(ctx, "list all")
	if err := s.findIn(ctx, "/lists/", created.ID); err != nil {
		return err
	}
	if s.cfg.UserID > 0 {
		s.step(ctx, "user lists")
		if err := s.findIn(ctx, fmt.Sprintf("/users/%d/lists/", s.cfg.UserID), created.ID); err != nil {
			return err
		}
	}

	s.step(ctx, "delete")
	for j := 0; j < 2; j++ {
		resp, err := s.client.expect(ctx, http.StatusOK, http.MethodDelete, fmt.Sprintf("/lists/%d/delete/", created.ID), nil)
		if err != nil {
			return err
		}
		var msg messageBody
		if err := resp.decode(&msg); err != nil {
			return err
		}
		if msg.Message != "List deleted successfully" {
			return fmt.Errorf("delete: unexpected message %q", msg.Message)
		}
	}

	s.step(ctx, "not found")
	return s.notFound(ctx, listPath)
}

func (s *scenario) create(ctx context.Context) (checklist, error) {
	payload := map[string]any{
		"title":       s.title,
		"description": "created by sop-smoke",
		"items":       itemTexts,
	}
	if s.cfg.UserID > 0 {
		payload["assigned_user_id"] = s.cfg.UserID
		payload["created_by_id"] = s.cfg.UserID
	}
	var created checklist
	resp, err := s.client.expect(ctx, http.StatusCreated, http.MethodPost, "/lists/create/", payload)
	if err != nil {
		return created, err
	}
	if err := resp.decode(&created); err != nil {
		return created, err
	}
	if created.Title != s.title {
		return created, fmt.Errorf("create: title %q, want %q", created.Title, s.title)
	}
	if err := checkItems(created.Items); err != nil {
		return created, fmt.Errorf("create: %w", err)
	}
	return created, nil
}

// checkItems verifies the items created from itemTexts came back in order.
func checkItems(items []item) error {
	if len(items) != len(itemTexts) {
		return fmt.Errorf("want %d items, got %d", len(itemTexts), len(items))
	}
	for i, it := range items {
		if it.Text != itemTexts[i] || it.Order != i {
			return fmt.Errorf("item %d: got text %q order %d", i, it.Text, it.Order)
		}
	}
	return nil
}

func (s *scenario) toggleTwice(ctx context.Context, itemID int64) error {
	path := fmt.Sprintf("/items/%d/toggle/", itemID)
	for _, want := range []bool{true, false} {
		var got item
		resp, err := s.client.expect(ctx, http.StatusOK, http.MethodPost, path, nil)
		if err != nil {
			return err
		}
		if err := resp.decode(&got); err != nil {
			return err
		}
		if got.IsChecked != want {
			return fmt.Errorf("toggle: is_checked %v, want %v", got.IsChecked, want)
		}
		if want != (got.CheckedAt != nil) {
			return fmt.Errorf("toggle: checked_at %v with is_checked %v", got.CheckedAt, got.IsChecked)
		}
	}
	return nil
}

func (s *scenario) update(ctx context.Context, listPath string, before checklist) error {
	newTitle := s.title + "-renamed"
	var after checklist
	resp, err := s.client.expect(ctx, http.StatusOK, http.MethodPut, listPath+"update/", map[string]any{"title": newTitle})
	if err != nil {
		return err
	}
	if err := resp.decode(&after); err != nil {
		return err
	}
	if after.Title != newTitle {
		return fmt.Errorf("update: title %q, want %q", after.Title, newTitle)
	}
	if after.ID != before.ID || !equalPtr(after.CreatedByID, before.CreatedByID) || !equalPtr(after.Description, before.Description) {
		return fmt.Errorf("update: untouched fields changed")
	}
	s.title = newTitle
	return nil
}

func (s *scenario) findIn(ctx context.Context, path string, id int64) error {
	var lists []checklist
	resp, err := s.client.expect(ctx, http.StatusOK, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := resp.decode(&lists); err != nil {
		return err
	}
	i := slices.IndexFunc(lists, func(l checklist) bool { return l.ID == id })
	if i < 0 {
		return fmt.Errorf("%s: list %d missing", path, id)
	}
	for _, l := range lists {
		if l.Items == nil {
			return fmt.Errorf("%s: list %d has no items field", path, l.ID)
		}
		if !slices.IsSortedFunc(l.Items, func(a, b item) int { return a.Order - b.Order }) {
			return fmt.Errorf("%s: items of list %d out of order", path, l.ID)
		}
	}
	return checkItems(lists[i].Items)
}

func (s *scenario) notFound(ctx context.Context, listPath string) error {
	checks := []struct {
		method, path, message string
		body                  any
	}{
		{http.MethodGet, listPath, "List not found", nil},
		{http.MethodPut, listPath + "update/", "List not found", map[string]any{"title": "x"}},
		{http.MethodPost, fmt.Sprintf("/items/%d/toggle/", int64(missingID)), "Item not found", nil},
	}
	for _, c := range checks {
		resp, err := s.client.expect(ctx, http.StatusNotFound, c.method, c.path, c.body)
		if err != nil {
			return err
		}
		var body errorBody
		if err := resp.decode(&body); err != nil {
			return err
		}
		if body.Error != c.message {
			return fmt.Errorf("%s %s: error %q, want %q", c.method, c.path, body.Error, c.message)
		}
	}
	return nil
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
