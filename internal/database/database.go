package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/WebblyCMS/Webbly/internal/models"
)

// ErrNotFound is returned when the requested content item does not exist.
var ErrNotFound = errors.New("content not found")

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New opens the SQLite content store at path.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; keep the pool small.
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ SQLite content store opened")

	return &DB{db}, nil
}

// Initialize creates all required tables
func (db *DB) Initialize() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS content (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL CHECK (kind IN ('post', 'page')),
			title      TEXT NOT NULL,
			slug       TEXT NOT NULL UNIQUE,
			body       TEXT NOT NULL DEFAULT '',
			summary    TEXT NOT NULL DEFAULT '',
			visible    INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_content_kind ON content(kind);
		CREATE INDEX IF NOT EXISTS idx_content_visible ON content(visible);
		CREATE INDEX IF NOT EXISTS idx_content_updated ON content(updated_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

const contentColumns = "id, kind, title, slug, body, summary, visible, created_at, updated_at"

// ListContentItems returns all content items, optionally restricted to
// published ones. This is the collaborator interface the search service
// reads from.
func (db *DB) ListContentItems(ctx context.Context, visibleOnly bool) ([]models.ContentItem, error) {
	query := "SELECT " + contentColumns + " FROM content"
	if visibleOnly {
		query += " WHERE visible = 1"
	}
	query += " ORDER BY updated_at DESC"

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetContent returns one item by ID.
func (db *DB) GetContent(ctx context.Context, id string) (models.ContentItem, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+contentColumns+" FROM content WHERE id = ?", id)

	item, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ContentItem{}, ErrNotFound
	}
	return item, err
}

// CreateContent inserts a new item, assigning an ID and slug when absent.
func (db *DB) CreateContent(ctx context.Context, item models.ContentItem) (models.ContentItem, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Slug == "" {
		item.Slug = Slugify(item.Title)
	}
	if item.Kind == "" {
		item.Kind = models.KindPost
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := db.ExecContext(ctx,
		"INSERT INTO content ("+contentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		item.ID, item.Kind, item.Title, item.Slug, item.Body, item.Summary,
		boolToInt(item.Visible), item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return models.ContentItem{}, fmt.Errorf("failed to create content: %w", err)
	}
	return item, nil
}

// UpdateContent rewrites an existing item and bumps its update time.
func (db *DB) UpdateContent(ctx context.Context, item models.ContentItem) (models.ContentItem, error) {
	item.UpdatedAt = time.Now().UTC()

	res, err := db.ExecContext(ctx,
		`UPDATE content SET kind = ?, title = ?, slug = ?, body = ?, summary = ?,
			visible = ?, updated_at = ? WHERE id = ?`,
		item.Kind, item.Title, item.Slug, item.Body, item.Summary,
		boolToInt(item.Visible), item.UpdatedAt, item.ID)
	if err != nil {
		return models.ContentItem{}, fmt.Errorf("failed to update content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ContentItem{}, ErrNotFound
	}
	return item, nil
}

// DeleteContent removes one item.
func (db *DB) DeleteContent(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM content WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountContent returns the number of stored items.
func (db *DB) CountContent(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM content").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count content: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (models.ContentItem, error) {
	var (
		item    models.ContentItem
		kind    string
		visible int
	)
	err := row.Scan(&item.ID, &kind, &item.Title, &item.Slug, &item.Body,
		&item.Summary, &visible, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return models.ContentItem{}, err
	}
	item.Kind = models.ContentKind(kind)
	item.Visible = visible != 0
	return item, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var slugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title.
func Slugify(title string) string {
	slug := slugChars.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}
