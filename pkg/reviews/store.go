package reviews

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/openshelf/critique/pkg/httputil"
	"github.com/openshelf/critique/pkg/storage/postgres"
)

// Store handles review and comment persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new review store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) titleExists(ctx context.Context, titleID int64) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM titles WHERE id = $1)`, titleID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check title: %w", err)
	}
	if !exists {
		return fmt.Errorf("title %d: %w", titleID, httputil.ErrNotFound)
	}
	return nil
}

// reviewExists checks the review against its claimed parent title, so a valid
// review id under the wrong title is still a miss.
func (s *Store) reviewExists(ctx context.Context, titleID, reviewID int64) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE id = $1 AND title_id = $2)`,
		reviewID, titleID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check review: %w", err)
	}
	if !exists {
		return fmt.Errorf("review %d under title %d: %w", reviewID, titleID, httputil.ErrNotFound)
	}
	return nil
}

const reviewColumns = `r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.pub_date`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReview(row rowScanner) (*Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.TitleID, &r.AuthorID, &r.Author, &r.Text, &r.Score, &r.PubDate)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReview inserts a review under the given title. A second review by the
// same author for the same title is a validation error, no matter how the two
// submissions interleave.
func (s *Store) CreateReview(ctx context.Context, titleID, authorID int64, text string, score int) (*Review, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if err := ValidateScore(score); err != nil {
		return nil, err
	}
	if err := s.titleExists(ctx, titleID); err != nil {
		return nil, err
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO reviews (title_id, author_id, text, score, pub_date) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		titleID, authorID, text, score, time.Now().UTC(),
	).Scan(&id)
	if postgres.IsUniqueViolation(err) {
		return nil, httputil.NewValidationError("only one review per work per author")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return s.GetReview(ctx, titleID, id)
}

// GetReview retrieves a review by id under the given title
func (s *Store) GetReview(ctx context.Context, titleID, reviewID int64) (*Review, error) {
	if err := s.titleExists(ctx, titleID); err != nil {
		return nil, err
	}

	query := `SELECT ` + reviewColumns + `
		FROM reviews r
		JOIN users u ON u.id = r.author_id
		WHERE r.id = $1 AND r.title_id = $2`

	r, err := scanReview(s.db.QueryRowContext(ctx, query, reviewID, titleID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review %d under title %d: %w", reviewID, titleID, httputil.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return r, nil
}

// ListReviews returns a page of the title's reviews plus the unpaginated total
func (s *Store) ListReviews(ctx context.Context, titleID int64, limit, offset int) ([]*Review, int, error) {
	if err := s.titleExists(ctx, titleID); err != nil {
		return nil, 0, err
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE title_id = $1`, titleID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	query := `SELECT ` + reviewColumns + `
		FROM reviews r
		JOIN users u ON u.id = r.author_id
		WHERE r.title_id = $1
		ORDER BY r.pub_date DESC, r.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, titleID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var out []*Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// UpdateReview applies a partial update to a review and returns the updated
// record. Authorship and publication date are immutable.
func (s *Store) UpdateReview(ctx context.Context, titleID, reviewID int64, p *ReviewPatch) (*Review, error) {
	r, err := s.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	if p.Text != nil {
		if err := ValidateText(*p.Text); err != nil {
			return nil, err
		}
		r.Text = *p.Text
	}
	if p.Score != nil {
		if err := ValidateScore(*p.Score); err != nil {
			return nil, err
		}
		r.Score = *p.Score
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE reviews SET text = $1, score = $2 WHERE id = $3`,
		r.Text, r.Score, reviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	return r, nil
}

// DeleteReview removes a review along with its comments
func (s *Store) DeleteReview(ctx context.Context, titleID, reviewID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reviews WHERE id = $1 AND title_id = $2`, reviewID, titleID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("review %d under title %d: %w", reviewID, titleID, httputil.ErrNotFound)
	}
	return nil
}

const commentColumns = `c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date`

func scanComment(row rowScanner) (*Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Author, &c.Text, &c.PubDate)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateComment inserts a comment under the given review
func (s *Store) CreateComment(ctx context.Context, titleID, reviewID, authorID int64, text string) (*Comment, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if err := s.reviewExists(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO comments (review_id, author_id, text, pub_date) VALUES ($1, $2, $3, $4) RETURNING id`,
		reviewID, authorID, text, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return s.GetComment(ctx, titleID, reviewID, id)
}

// GetComment retrieves a comment by id under the given title and review
func (s *Store) GetComment(ctx context.Context, titleID, reviewID, commentID int64) (*Comment, error) {
	if err := s.reviewExists(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	query := `SELECT ` + commentColumns + `
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $1 AND c.review_id = $2`

	c, err := scanComment(s.db.QueryRowContext(ctx, query, commentID, reviewID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("comment %d under review %d: %w", commentID, reviewID, httputil.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

// ListComments returns a page of the review's comments plus the unpaginated
// total.
func (s *Store) ListComments(ctx context.Context, titleID, reviewID int64, limit, offset int) ([]*Comment, int, error) {
	if err := s.reviewExists(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE review_id = $1`, reviewID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	query := `SELECT ` + commentColumns + `
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.review_id = $1
		ORDER BY c.pub_date, c.id
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, reviewID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var out []*Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// UpdateComment replaces a comment's text and returns the updated record
func (s *Store) UpdateComment(ctx context.Context, titleID, reviewID, commentID int64, text string) (*Comment, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	c, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `UPDATE comments SET text = $1 WHERE id = $2`, text, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	c.Text = text
	return c, nil
}

// DeleteComment removes a comment
func (s *Store) DeleteComment(ctx context.Context, titleID, reviewID, commentID int64) error {
	if err := s.reviewExists(ctx, titleID, reviewID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM comments WHERE id = $1 AND review_id = $2`, commentID, reviewID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("comment %d under review %d: %w", commentID, reviewID, httputil.ErrNotFound)
	}
	return nil
}
