package catalog

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

		CREATE TABLE categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE
		);

		CREATE TABLE genres (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE
		);

		CREATE TABLE titles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			year INTEGER NOT NULL,
			description TEXT,
			category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL
		);

		CREATE TABLE title_genres (
			title_id INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			genre_id INTEGER NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
			UNIQUE(title_id, genre_id)
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
	`)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
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

func seedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(setupTestDB(t))
	ctx := context.Background()

	for _, c := range []Category{
		{Name: "Books", Slug: "books"},
		{Name: "Films", Slug: "films"},
	} {
		if err := s.CreateCategory(ctx, &c); err != nil {
			t.Fatal(err)
		}
	}
	for _, g := range []Genre{
		{Name: "Drama", Slug: "drama"},
		{Name: "Comedy", Slug: "comedy"},
		{Name: "Sci-Fi", Slug: "sci-fi"},
	} {
		if err := s.CreateGenre(ctx, &g); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestCategoryLifecycle(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	cats, total, err := s.ListCategories(ctx, "", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(cats) != 2 {
		t.Fatalf("got %d categories, want 2", total)
	}
	// Ordered by slug.
	if cats[0].Slug != "books" || cats[1].Slug != "films" {
		t.Errorf("order = %v", cats)
	}

	if err := s.DeleteCategory(ctx, "films"); err != nil {
		t.Fatal(err)
	}
	_, total, err = s.ListCategories(ctx, "", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("total after delete = %d, want 1", total)
	}

	if err := s.DeleteCategory(ctx, "films"); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("second delete = %v, want not found", err)
	}
}

func TestGetAndUpdateClassifier(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	got, err := s.GetCategory(ctx, "books")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Books" {
		t.Errorf("category = %+v", got)
	}
	if _, err := s.GetCategory(ctx, "nope"); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("missing category = %v, want not found", err)
	}

	name := "Printed Books"
	updated, err := s.UpdateCategory(ctx, "books", &ClassifierPatch{Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != name || updated.Slug != "books" {
		t.Errorf("updated = %+v", updated)
	}

	// Renaming a slug onto an existing one is rejected.
	slug := "films"
	_, err = s.UpdateCategory(ctx, "books", &ClassifierPatch{Slug: &slug})
	assertValidationError(t, err)

	badSlug := "no spaces"
	_, err = s.UpdateGenre(ctx, "drama", &ClassifierPatch{Slug: &badSlug})
	assertValidationError(t, err)
}

func TestCategoryDuplicateSlug(t *testing.T) {
	s := seedStore(t)
	err := s.CreateCategory(context.Background(), &Category{Name: "Other Books", Slug: "books"})
	assertValidationError(t, err)
}

func TestClassifierValidation(t *testing.T) {
	s := NewStore(setupTestDB(t))
	ctx := context.Background()

	assertValidationError(t, s.CreateCategory(ctx, &Category{Name: "", Slug: "ok"}))
	assertValidationError(t, s.CreateCategory(ctx, &Category{Name: "Ok", Slug: ""}))
	assertValidationError(t, s.CreateCategory(ctx, &Category{Name: "Ok", Slug: "no spaces"}))
	assertValidationError(t, s.CreateGenre(ctx, &Genre{Name: "Ok", Slug: "bad!slug"}))
}

func TestClassifierSearch(t *testing.T) {
	s := seedStore(t)

	genres, total, err := s.ListGenres(context.Background(), "dra", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(genres) != 1 || genres[0].Slug != "drama" {
		t.Errorf("search result = %v (total %d)", genres, total)
	}

	// Case-insensitive.
	_, total, err = s.ListGenres(context.Background(), "COMEDY", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("case-insensitive search total = %d, want 1", total)
	}
}

func TestCreateAndGetTitle(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	created, err := s.CreateTitle(ctx, &TitleInput{
		Name:         "Solaris",
		Year:         1961,
		Description:  "A planet that thinks",
		CategorySlug: "books",
		GenreSlugs:   []string{"sci-fi", "drama"},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetTitle(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Solaris" || got.Year != 1961 {
		t.Errorf("title = %+v", got)
	}
	if got.Category == nil || got.Category.Slug != "books" {
		t.Errorf("category = %+v", got.Category)
	}
	if len(got.Genres) != 2 {
		t.Fatalf("genres = %v", got.Genres)
	}
	if got.Rating != nil {
		t.Errorf("rating with no reviews = %v, want null", *got.Rating)
	}
}

func TestCreateTitleValidation(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	_, err := s.CreateTitle(ctx, &TitleInput{Name: "", Year: 2000, CategorySlug: "books"})
	assertValidationError(t, err)

	_, err = s.CreateTitle(ctx, &TitleInput{Name: "Tomorrow", Year: 9999, CategorySlug: "books"})
	assertValidationError(t, err)

	// Category is optional on create.
	uncategorized, err := s.CreateTitle(ctx, &TitleInput{Name: "Ok", Year: 2000})
	if err != nil {
		t.Fatal(err)
	}
	if uncategorized.Category != nil {
		t.Errorf("category = %+v, want nil", uncategorized.Category)
	}

	_, err = s.CreateTitle(ctx, &TitleInput{Name: "Ok 2", Year: 2000, CategorySlug: "nope"})
	assertValidationError(t, err)

	_, err = s.CreateTitle(ctx, &TitleInput{Name: "Ok", Year: 2000, CategorySlug: "books", GenreSlugs: []string{"nope"}})
	assertValidationError(t, err)
}

func TestTitleRating(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	title, err := s.CreateTitle(ctx, &TitleInput{Name: "Solaris", Year: 1961, CategorySlug: "books"})
	if err != nil {
		t.Fatal(err)
	}

	for i, score := range []int{8, 6, 7} {
		if _, err := s.db.Exec(`INSERT INTO users (username) VALUES ($1)`, "u"+string(rune('a'+i))); err != nil {
			t.Fatal(err)
		}
		if _, err := s.db.Exec(
			`INSERT INTO reviews (title_id, author_id, text, score) VALUES ($1, $2, $3, $4)`,
			title.ID, int64(i+1), "review", score,
		); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetTitle(ctx, title.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rating == nil {
		t.Fatal("rating is null after three reviews")
	}
	if *got.Rating != 7.0 {
		t.Errorf("rating = %v, want 7.0", *got.Rating)
	}
}

func TestListTitlesFilters(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	seed := []TitleInput{
		{Name: "Solaris", Year: 1961, CategorySlug: "books", GenreSlugs: []string{"sci-fi"}},
		{Name: "Solaris", Year: 1972, CategorySlug: "films", GenreSlugs: []string{"sci-fi", "drama"}},
		{Name: "Duck Soup", Year: 1933, CategorySlug: "films", GenreSlugs: []string{"comedy"}},
	}
	for i := range seed {
		if _, err := s.CreateTitle(ctx, &seed[i]); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		name   string
		filter TitleFilter
		want   int
	}{
		{"all", TitleFilter{}, 3},
		{"by category", TitleFilter{CategorySlug: "films"}, 2},
		{"by genre", TitleFilter{GenreSlug: "sci-fi"}, 2},
		{"by year", TitleFilter{Year: 1972}, 1},
		{"by name substring", TitleFilter{Name: "sol"}, 2},
		{"combined", TitleFilter{CategorySlug: "films", GenreSlug: "drama"}, 1},
		{"no match", TitleFilter{CategorySlug: "books", Year: 1933}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			titles, total, err := s.ListTitles(ctx, c.filter, 10, 0)
			if err != nil {
				t.Fatal(err)
			}
			if total != c.want || len(titles) != c.want {
				t.Errorf("total = %d (len %d), want %d", total, len(titles), c.want)
			}
		})
	}

	// Pagination still reports the full total.
	titles, total, err := s.ListTitles(ctx, TitleFilter{}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(titles) != 2 {
		t.Errorf("page: total = %d len = %d, want 3/2", total, len(titles))
	}
}

func TestUpdateTitlePartial(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	title, err := s.CreateTitle(ctx, &TitleInput{
		Name:         "Solaris",
		Year:         1961,
		CategorySlug: "books",
		GenreSlugs:   []string{"sci-fi"},
	})
	if err != nil {
		t.Fatal(err)
	}

	name := "Solaris (revised)"
	got, err := s.UpdateTitle(ctx, title.ID, &TitlePatch{Name: &name})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != name {
		t.Errorf("name = %q", got.Name)
	}
	// Untouched fields survive.
	if got.Category == nil || got.Category.Slug != "books" || len(got.Genres) != 1 {
		t.Errorf("update clobbered category/genres: %+v", got)
	}

	genres := []string{"drama", "comedy"}
	got, err = s.UpdateTitle(ctx, title.ID, &TitlePatch{GenreSlugs: &genres})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Genres) != 2 {
		t.Fatalf("genres after replace = %v", got.Genres)
	}
	for _, g := range got.Genres {
		if g.Slug == "sci-fi" {
			t.Error("old genre link survived a replace")
		}
	}

	badYear := 9999
	_, err = s.UpdateTitle(ctx, title.ID, &TitlePatch{Year: &badYear})
	assertValidationError(t, err)

	_, err = s.UpdateTitle(ctx, 9999, &TitlePatch{Name: &name})
	if !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("update of missing title = %v, want not found", err)
	}
}

func TestDeleteCategoryClearsTitles(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	title, err := s.CreateTitle(ctx, &TitleInput{Name: "Solaris", Year: 1961, CategorySlug: "books"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteCategory(ctx, "books"); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetTitle(ctx, title.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Category != nil {
		t.Errorf("category after delete = %+v, want nil", got.Category)
	}
}

func TestDeleteTitle(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	title, err := s.CreateTitle(ctx, &TitleInput{Name: "Solaris", Year: 1961, CategorySlug: "books"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.TitleExists(ctx, title.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTitle(ctx, title.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.TitleExists(ctx, title.ID); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("exists after delete = %v, want not found", err)
	}
	if err := s.DeleteTitle(ctx, title.ID); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("second delete = %v, want not found", err)
	}
	if _, err := s.GetTitle(ctx, title.ID); !errors.Is(err, httputil.ErrNotFound) {
		t.Errorf("get after delete = %v, want not found", err)
	}
}
