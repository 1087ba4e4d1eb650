package reviews

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openshelf/critique/pkg/httputil"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE
		);

		CREATE TABLE titles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			year INTEGER NOT NULL
		);

		CREATE TABLE reviews (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title_id INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			score INTEGER NOT NULL CHECK (score BETWEEN 1 AND 10),
			pub_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(title_id, author_id)
		);

		CREATE TABLE comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			review_id INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
			author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			pub_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// seedStore creates two users (ids 1 and 2) and two titles (ids 1 and 2)
func seedStore(t *testing.T) *Store {
	t.Helper()
	db := setupTestDB(t)

	for _, name := range []string{"alice", "bob"} {
		if _, err := db.Exec(`INSERT INTO users (username) VALUES ($1)`, name); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"Solaris", "Duck Soup"} {
		if _, err := db.Exec(`INSERT INTO titles (name, year) VALUES ($1, 1961)`, name); err != nil {
			t.Fatal(err)
		}
	}
	return NewStore(db)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}
	var verr *httputil.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
}

func TestCreateAndGetReview(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	r, err := s.CreateReview(ctx, 1, 1, "remarkable", 9)
	if err != nil {
		t.Fatal(err)
	}
	if r.Author != "alice" || r.Score != 9 || r.Text != "remarkable" {
		t.Errorf("review = %+v", r)
	}
	if r.OwnerID() != 1 {
		t.Errorf("owner = %d, want 1", r.OwnerID())
	}
	if r.PubDate.IsZero() {
		t.Error("publication date not set")
	}

	got, err := s.GetReview(ctx, 1, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != r.ID || got.Author != "alice" {
		t.Errorf("got = %+v", got)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	_, err := s.CreateReview(ctx, 1, 1, "", 5)
	assertValidationError(t, err)

	_, err = s.CreateReview(ctx, 1, 1, "ok", 0)
	assertValidationError(t, err)

	_, err = s.CreateReview(ctx, 1, 1, "ok", 11)
	assertValidationError(t, err)

	// Missing parent title is a not-found outcome, not a validation error.
	_, err = s.CreateReview(ctx, 99, 1, "ok", 5)
	if !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("missing title = %v, want not found", err)
	}
}

// The one-review-per-author rule holds even when the duplicate lands straight
// on the uniqueness constraint rather than any pre-check.
func TestDuplicateReviewRejected(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	if _, err := s.CreateReview(ctx, 1, 1, "first", 8); err != nil {
		t.Fatal(err)
	}

	_, err := s.CreateReview(ctx, 1, 1, "second", 3)
	assertValidationError(t, err)

	// The same author may still review a different title, and another author
	// the same title.
	if _, err := s.CreateReview(ctx, 2, 1, "other title", 6); err != nil {
		t.Errorf("same author, other title: %v", err)
	}
	if _, err := s.CreateReview(ctx, 1, 2, "other author", 6); err != nil {
		t.Errorf("other author, same title: %v", err)
	}

	reviews, total, err := s.ListReviews(ctx, 1, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(reviews) != 2 {
		t.Errorf("title 1 review count = %d, want 2", total)
	}
}

func TestReviewParentChain(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	r, err := s.CreateReview(ctx, 1, 1, "text", 5)
	if err != nil {
		t.Fatal(err)
	}

	// Right review id, wrong title.
	if _, err := s.GetReview(ctx, 2, r.ID); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("review under wrong title = %v, want not found", err)
	}
	if _, _, err := s.ListReviews(ctx, 99, 10, 0); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("list under missing title = %v, want not found", err)
	}
	if err := s.DeleteReview(ctx, 2, r.ID); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("delete under wrong title = %v, want not found", err)
	}
}

func TestUpdateReview(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	r, err := s.CreateReview(ctx, 1, 1, "first impression", 5)
	if err != nil {
		t.Fatal(err)
	}

	score := 8
	got, err := s.UpdateReview(ctx, 1, r.ID, &ReviewPatch{Score: &score})
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 8 || got.Text != "first impression" {
		t.Errorf("partial update result = %+v", got)
	}

	bad := 0
	_, err = s.UpdateReview(ctx, 1, r.ID, &ReviewPatch{Score: &bad})
	assertValidationError(t, err)

	empty := ""
	_, err = s.UpdateReview(ctx, 1, r.ID, &ReviewPatch{Text: &empty})
	assertValidationError(t, err)
}

func TestDeleteReviewCascadesComments(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	r, err := s.CreateReview(ctx, 1, 1, "text", 5)
	if err != nil {
		t.Fatal(err)
	}
	c, err := s.CreateComment(ctx, 1, r.ID, 2, "agreed")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteReview(ctx, 1, r.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetComment(ctx, 1, r.ID, c.ID); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("comment after review delete = %v, want not found", err)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("orphaned comments = %d, want 0", n)
	}
}

func TestCommentLifecycle(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	r, err := s.CreateReview(ctx, 1, 1, "text", 5)
	if err != nil {
		t.Fatal(err)
	}

	c, err := s.CreateComment(ctx, 1, r.ID, 2, "agreed")
	if err != nil {
		t.Fatal(err)
	}
	if c.Author != "bob" || c.Text != "agreed" {
		t.Errorf("comment = %+v", c)
	}
	if c.OwnerID() != 2 {
		t.Errorf("owner = %d, want 2", c.OwnerID())
	}

	comments, total, err := s.ListComments(ctx, 1, r.ID, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(comments) != 1 {
		t.Fatalf("comment count = %d, want 1", total)
	}

	got, err := s.UpdateComment(ctx, 1, r.ID, c.ID, "strongly agreed")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "strongly agreed" {
		t.Errorf("text = %q", got.Text)
	}

	if err := s.DeleteComment(ctx, 1, r.ID, c.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteComment(ctx, 1, r.ID, c.ID); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("second delete = %v, want not found", err)
	}
}

func TestCommentParentChain(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	r1, err := s.CreateReview(ctx, 1, 1, "text", 5)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := s.CreateReview(ctx, 2, 1, "text", 5)
	if err != nil {
		t.Fatal(err)
	}
	c, err := s.CreateComment(ctx, 1, r1.ID, 2, "agreed")
	if err != nil {
		t.Fatal(err)
	}

	// Right comment, wrong review.
	if _, err := s.GetComment(ctx, 2, r2.ID, c.ID); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("comment under wrong review = %v, want not found", err)
	}
	// Right review, wrong title.
	if _, err := s.GetComment(ctx, 2, r1.ID, c.ID); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("comment under wrong title = %v, want not found", err)
	}
	if _, err := s.CreateComment(ctx, 1, 99, 2, "x"); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("comment under missing review = %v, want not found", err)
	}
	if _, _, err := s.ListComments(ctx, 1, 99, 10, 0); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("list under missing review = %v, want not found", err)
	}

	_, err = s.CreateComment(ctx, 1, r1.ID, 2, "")
	assertValidationError(t, err)
}
