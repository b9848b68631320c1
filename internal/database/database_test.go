package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/WebblyCMS/Webbly/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return db
}

// TestCreateAndGetContent round-trips an item through the store
func TestCreateAndGetContent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateContent(ctx, models.ContentItem{
		Title:   "Hello World",
		Body:    "<p>First post</p>",
		Visible: true,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Error("create should assign an ID")
	}
	if created.Slug != "hello-world" {
		t.Errorf("create should derive slug, got %q", created.Slug)
	}
	if created.Kind != models.KindPost {
		t.Errorf("kind should default to post, got %q", created.Kind)
	}

	got, err := db.GetContent(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Title != "Hello World" || got.Body != "<p>First post</p>" || !got.Visible {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

// TestListContentItemsVisibility honors the visibleOnly flag
func TestListContentItemsVisibility(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.CreateContent(ctx, models.ContentItem{Title: "Published", Visible: true})
	db.CreateContent(ctx, models.ContentItem{Title: "Draft", Visible: false})

	visible, err := db.ListContentItems(ctx, true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(visible) != 1 || visible[0].Title != "Published" {
		t.Errorf("expected only published item, got %v", visible)
	}

	all, err := db.ListContentItems(ctx, false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected both items, got %d", len(all))
	}
}

// TestUpdateContent bumps the update time and rewrites fields
func TestUpdateContent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, _ := db.CreateContent(ctx, models.ContentItem{Title: "Before", Visible: false})
	time.Sleep(10 * time.Millisecond)

	created.Title = "After"
	created.Visible = true
	updated, err := db.UpdateContent(ctx, created)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.UpdatedAt.After(created.CreatedAt) {
		t.Error("update should bump UpdatedAt")
	}

	got, _ := db.GetContent(ctx, created.ID)
	if got.Title != "After" || !got.Visible {
		t.Errorf("update not persisted: %+v", got)
	}
}

// TestDeleteContent removes the item and reports absence afterwards
func TestDeleteContent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, _ := db.CreateContent(ctx, models.ContentItem{Title: "Doomed"})
	if err := db.DeleteContent(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := db.GetContent(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := db.DeleteContent(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}

// TestCountContent counts all items regardless of visibility
func TestCountContent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.CreateContent(ctx, models.ContentItem{Title: "One", Visible: true})
	db.CreateContent(ctx, models.ContentItem{Title: "Two", Visible: false})

	count, err := db.CountContent(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2, got %d", count)
	}
}

// TestSlugify covers common title shapes
func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"  Spaces  Everywhere  ", "spaces-everywhere"},
		{"Ünïcode & Punctuation!", "n-code-punctuation"},
		{"already-slugged", "already-slugged"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.title); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
