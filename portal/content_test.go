package portal

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-puthelp/core"
)

func TestContentService_ListPublished(t *testing.T) {
	e := newEnv(t)
	e.rec.respond(map[string]any{
		"content":       []map[string]any{{"id": 1, "title": "Rejestracja na przedmioty", "type": "GUIDE"}},
		"totalElements": 1,
		"totalPages":    1,
		"size":          10,
		"number":        0,
		"first":         true,
		"last":          true,
	})

	page, err := e.services.Content.ListPublished(context.Background(), PublishedContentQuery{Type: core.ContentTypeGuide})
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if len(page.Content) != 1 || page.Content[0].Title != "Rejestracja na przedmioty" || !page.Last {
		t.Fatalf("unexpected page %+v", page)
	}
	got := e.rec.last(t)
	if got.Method != http.MethodGet || got.Path != "/content/public" {
		t.Fatalf("unexpected request %s %s", got.Method, got.Path)
	}
	expectQuery(t, got.Query, map[string]string{
		"page":    "0",
		"size":    "10",
		"sortBy":  "createdAt",
		"sortDir": "desc",
		"type":    "GUIDE",
	})
	if e.metrics.Counter("puthelp.content_list_published.total") != 1 {
		t.Fatalf("expected operation to be observed")
	}
}

func TestContentService_PublicLookups(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		call  func() error
		path  string
		query map[string]string
	}{
		{
			name: "published by id",
			call: func() error {
				_, err := e.services.Content.GetPublished(ctx, 7)
				return err
			},
			path: "/content/public/7",
		},
		{
			name: "by field of study",
			call: func() error {
				_, err := e.services.Content.ListByFieldOfStudy(ctx, 3, PageRequest{Page: 1, Size: 20})
				return err
			},
			path:  "/content/public/kierunek/3",
			query: map[string]string{"page": "1", "size": "20", "sortBy": ""},
		},
		{
			name: "by category",
			call: func() error {
				_, err := e.services.Content.ListByCategory(ctx, 4, PageRequest{})
				return err
			},
			path:  "/content/public/category/4",
			query: map[string]string{"page": "0", "size": "10"},
		},
		{
			name: "search",
			call: func() error {
				_, err := e.services.Content.Search(ctx, "  stypendium ", PageRequest{})
				return err
			},
			path:  "/content/public/search",
			query: map[string]string{"q": "stypendium", "page": "0", "size": "10"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); err != nil {
				t.Fatalf("call: %v", err)
			}
			got := e.rec.last(t)
			if got.Method != http.MethodGet || got.Path != tc.path {
				t.Fatalf("expected GET %s, got %s %s", tc.path, got.Method, got.Path)
			}
			expectQuery(t, got.Query, tc.query)
		})
	}
}

func TestContentService_Authoring(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	categoryID := int64(2)
	req := core.ContentRequest{
		Title:      "Jak zdobyć stypendium",
		Body:       "Wniosek składa się w systemie eKursy.",
		Type:       core.ContentTypeTutorial,
		CategoryID: &categoryID,
	}

	e.rec.respond(map[string]any{"id": 11, "title": req.Title, "status": "DRAFT"})
	created, err := e.services.Content.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 11 || created.Status != core.ContentStatusDraft {
		t.Fatalf("unexpected content %+v", created)
	}
	got := e.rec.last(t)
	if got.Method != http.MethodPost || got.Path != "/content" {
		t.Fatalf("unexpected request %s %s", got.Method, got.Path)
	}
	if got.Body["title"] != req.Title || got.Body["type"] != "TUTORIAL" || got.Body["categoryId"] != float64(2) {
		t.Fatalf("unexpected body %v", got.Body)
	}

	if _, err := e.services.Content.Update(ctx, 11, req); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := e.rec.last(t); got.Method != http.MethodPut || got.Path != "/content/11" {
		t.Fatalf("unexpected update request %s %s", got.Method, got.Path)
	}

	if _, err := e.services.Content.Publish(ctx, 11); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := e.rec.last(t); got.Method != http.MethodPost || got.Path != "/content/11/publish" || got.Body == nil {
		t.Fatalf("unexpected publish request %+v", got)
	}

	if _, err := e.services.Content.Get(ctx, 11); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := e.rec.last(t); got.Method != http.MethodGet || got.Path != "/content/11" {
		t.Fatalf("unexpected get request %s %s", got.Method, got.Path)
	}

	e.rec.respond(map[string]any{"message": "Content deleted successfully!"})
	resp, err := e.services.Content.Delete(ctx, 11)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.Message != "Content deleted successfully!" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if got := e.rec.last(t); got.Method != http.MethodDelete || got.Path != "/content/11" {
		t.Fatalf("unexpected delete request %s %s", got.Method, got.Path)
	}
}

func TestContentService_ListMine(t *testing.T) {
	e := newEnv(t)
	_, err := e.services.Content.ListMine(context.Background(), MyContentQuery{
		PageRequest: PageRequest{Page: 1},
		Search:      "erasmus",
		Status:      core.ContentStatusPublished,
	})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	got := e.rec.last(t)
	if got.Path != "/content/my" {
		t.Fatalf("unexpected path %s", got.Path)
	}
	expectQuery(t, got.Query, map[string]string{
		"page":    "1",
		"size":    "10",
		"sortBy":  "createdAt",
		"sortDir": "desc",
		"search":  "erasmus",
		"status":  "PUBLISHED",
		"type":    "",
	})
	if got.User != "alice" {
		t.Fatalf("expected authenticated request, got user %q", got.User)
	}
}

func TestContentService_RejectsBeforeSending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"empty content request", func() error {
			_, err := e.services.Content.Create(ctx, core.ContentRequest{})
			return err
		}},
		{"unknown type", func() error {
			_, err := e.services.Content.Create(ctx, core.ContentRequest{Title: "t", Body: "b", Type: "POEM"})
			return err
		}},
		{"zero id", func() error {
			_, err := e.services.Content.Get(ctx, 0)
			return err
		}},
		{"negative update id", func() error {
			_, err := e.services.Content.Update(ctx, -1, core.ContentRequest{Title: "t", Body: "b", Type: core.ContentTypeFAQ})
			return err
		}},
		{"blank search", func() error {
			_, err := e.services.Content.Search(ctx, "   ", PageRequest{})
			return err
		}},
		{"bad status filter", func() error {
			_, err := e.services.Content.ListMine(ctx, MyContentQuery{Status: "LOST"})
			return err
		}},
		{"bad category id", func() error {
			_, err := e.services.Content.ListByCategory(ctx, 0, PageRequest{})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectBadInput(t, tc.call())
		})
	}
	if e.rec.count() != 0 {
		t.Fatalf("expected no request to reach the backend, got %d", e.rec.count())
	}
}
