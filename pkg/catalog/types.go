// Package catalog holds the browsable content model: categories, genres and
// the titles they classify. Titles carry a rating derived from review scores;
// the catalog never stores it.
package catalog

import (
	"regexp"
	"time"

	"github.com/openshelf/critique/pkg/httputil"
)

const (
	// NameMaxLength bounds display names of catalog records.
	NameMaxLength = 256
	// SlugMaxLength bounds the URL-safe identifiers.
	SlugMaxLength = 50
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Category is a broad kind of work, such as books or films. The slug is the
// stable identifier used in URLs.
type Category struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Genre is a classification tag a title can carry any number of.
type Genre struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Classifier is the shared shape of categories and genres. The store's
// common helpers work in terms of it.
type Classifier struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ClassifierPatch carries a partial category or genre update. Nil fields are
// left untouched.
type ClassifierPatch struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

// Title is a single reviewable work.
type Title struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	Rating      *float64  `json:"rating"`
	Description string    `json:"description"`
	Category    *Category `json:"category"`
	Genres      []Genre   `json:"genre"`
}

// TitleInput carries the writable fields of a title. Category and genres are
// referenced by slug.
type TitleInput struct {
	Name         string   `json:"name"`
	Year         int      `json:"year"`
	Description  string   `json:"description"`
	CategorySlug string   `json:"category"`
	GenreSlugs   []string `json:"genre"`
}

// TitlePatch carries a partial title update. Nil fields are left untouched.
type TitlePatch struct {
	Name         *string   `json:"name"`
	Year         *int      `json:"year"`
	Description  *string   `json:"description"`
	CategorySlug *string   `json:"category"`
	GenreSlugs   *[]string `json:"genre"`
}

// TitleFilter narrows a title listing. Zero values mean no constraint.
type TitleFilter struct {
	CategorySlug string
	GenreSlug    string
	Name         string
	Year         int
}

// ValidateName checks a catalog display name
func ValidateName(name string) error {
	if name == "" {
		return httputil.NewValidationError("name must not be empty")
	}
	if len(name) > NameMaxLength {
		return httputil.NewValidationError("name must be at most %d characters", NameMaxLength)
	}
	return nil
}

// ValidateSlug checks a URL-safe identifier
func ValidateSlug(slug string) error {
	if slug == "" {
		return httputil.NewValidationError("slug must not be empty")
	}
	if len(slug) > SlugMaxLength {
		return httputil.NewValidationError("slug must be at most %d characters", SlugMaxLength)
	}
	if !slugPattern.MatchString(slug) {
		return httputil.NewValidationError("slug may only contain letters, digits, hyphens and underscores")
	}
	return nil
}

// ValidateYear rejects release years in the future
func ValidateYear(year int) error {
	if current := time.Now().Year(); year > current {
		return httputil.NewValidationError("year %d is in the future", year)
	}
	return nil
}
