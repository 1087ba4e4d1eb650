// Package reviews holds authored feedback on titles: scored reviews and the
// comment threads under them. Every record is addressed through its parent
// chain, so a review is only reachable under its own title and a comment only
// under its own review.
package reviews

import (
	"time"

	"github.com/openshelf/critique/pkg/httputil"
)

const (
	// ScoreMin and ScoreMax bound a review score, inclusive.
	ScoreMin = 1
	ScoreMax = 10
)

// Review is an authored, scored opinion on a title. An author gets at most
// one review per title.
type Review struct {
	ID       int64     `json:"id"`
	TitleID  int64     `json:"-"`
	AuthorID int64     `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	Score    int       `json:"score"`
	PubDate  time.Time `json:"pub_date"`
}

// OwnerID identifies the review's author for authorization decisions
func (r *Review) OwnerID() int64 { return r.AuthorID }

// Comment is a reply in the thread under a review.
type Comment struct {
	ID       int64     `json:"id"`
	ReviewID int64     `json:"-"`
	AuthorID int64     `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`
}

// OwnerID identifies the comment's author for authorization decisions
func (c *Comment) OwnerID() int64 { return c.AuthorID }

// ReviewPatch carries a partial review update. Nil fields are left untouched.
type ReviewPatch struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

// ValidateText checks review and comment bodies
func ValidateText(text string) error {
	if text == "" {
		return httputil.NewValidationError("text must not be empty")
	}
	return nil
}

// ValidateScore checks a review score
func ValidateScore(score int) error {
	if score < ScoreMin || score > ScoreMax {
		return httputil.NewValidationError("score must be between %d and %d", ScoreMin, ScoreMax)
	}
	return nil
}
