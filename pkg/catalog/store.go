package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/openshelf/critique/pkg/httputil"
	"github.com/openshelf/critique/pkg/storage/postgres"
)

// Store handles catalog persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new catalog store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// classifier CRUD is identical for categories and genres, so both surfaces
// share these helpers parameterized by table name.

func (s *Store) createClassifier(ctx context.Context, table, name, slug string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ValidateSlug(slug); err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (name, slug) VALUES ($1, $2)`, table)
	_, err := s.db.ExecContext(ctx, query, name, slug)
	if postgres.IsUniqueViolation(err) {
		return httputil.NewValidationError("slug %q already in use", slug)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s record: %w", table, err)
	}
	return nil
}

func (s *Store) listClassifiers(ctx context.Context, table, search string, limit, offset int) ([]Classifier, int, error) {
	where := ""
	countArgs := []interface{}{}
	pageArgs := []interface{}{}
	if search != "" {
		where = ` WHERE LOWER(name) LIKE '%' || LOWER($1) || '%'`
		countArgs = append(countArgs, search)
		pageArgs = append(pageArgs, search, limit, offset)
	} else {
		pageArgs = append(pageArgs, limit, offset)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table) + where
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s records: %w", table, err)
	}

	query := fmt.Sprintf(`SELECT name, slug FROM %s`, table) + where + ` ORDER BY slug`
	if search != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}

	rows, err := s.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s records: %w", table, err)
	}
	defer rows.Close()

	var out []Classifier
	for rows.Next() {
		var c Classifier
		if err := rows.Scan(&c.Name, &c.Slug); err != nil {
			return nil, 0, fmt.Errorf("failed to scan %s record: %w", table, err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (s *Store) getClassifier(ctx context.Context, table, slug string) (*Classifier, error) {
	query := fmt.Sprintf(`SELECT name, slug FROM %s WHERE slug = $1`, table)

	var c Classifier
	err := s.db.QueryRowContext(ctx, query, slug).Scan(&c.Name, &c.Slug)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %q: %w", strings.TrimSuffix(table, "s"), slug, httputil.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record: %w", table, err)
	}
	return &c, nil
}

func (s *Store) updateClassifier(ctx context.Context, table, slug string, p *ClassifierPatch) (*Classifier, error) {
	c, err := s.getClassifier(ctx, table, slug)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		if err := ValidateName(*p.Name); err != nil {
			return nil, err
		}
		c.Name = *p.Name
	}
	if p.Slug != nil {
		if err := ValidateSlug(*p.Slug); err != nil {
			return nil, err
		}
		c.Slug = *p.Slug
	}

	query := fmt.Sprintf(`UPDATE %s SET name = $1, slug = $2 WHERE slug = $3`, table)
	_, err = s.db.ExecContext(ctx, query, c.Name, c.Slug, slug)
	if postgres.IsUniqueViolation(err) {
		return nil, httputil.NewValidationError("slug %q already in use", c.Slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s record: %w", table, err)
	}
	return c, nil
}

func (s *Store) deleteClassifier(ctx context.Context, table, slug string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE slug = $1`, table)
	res, err := s.db.ExecContext(ctx, query, slug)
	if err != nil {
		return fmt.Errorf("failed to delete %s record: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", strings.TrimSuffix(table, "s"), slug, httputil.ErrNotFound)
	}
	return nil
}

// CreateCategory inserts a new category
func (s *Store) CreateCategory(ctx context.Context, c *Category) error {
	return s.createClassifier(ctx, "categories", c.Name, c.Slug)
}

// ListCategories returns a page of categories plus the unpaginated total. A
// non-empty search term matches names case-insensitively.
func (s *Store) ListCategories(ctx context.Context, search string, limit, offset int) ([]Category, int, error) {
	rows, total, err := s.listClassifiers(ctx, "categories", search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Category, len(rows))
	for i, r := range rows {
		out[i] = Category(r)
	}
	return out, total, nil
}

// GetCategory retrieves a category by slug
func (s *Store) GetCategory(ctx context.Context, slug string) (*Category, error) {
	c, err := s.getClassifier(ctx, "categories", slug)
	if err != nil {
		return nil, err
	}
	out := Category(*c)
	return &out, nil
}

// UpdateCategory applies a partial update to the category with the given slug
func (s *Store) UpdateCategory(ctx context.Context, slug string, p *ClassifierPatch) (*Category, error) {
	c, err := s.updateClassifier(ctx, "categories", slug, p)
	if err != nil {
		return nil, err
	}
	out := Category(*c)
	return &out, nil
}

// DeleteCategory removes the category with the given slug. Titles keep
// existing with their category cleared.
func (s *Store) DeleteCategory(ctx context.Context, slug string) error {
	return s.deleteClassifier(ctx, "categories", slug)
}

// CreateGenre inserts a new genre
func (s *Store) CreateGenre(ctx context.Context, g *Genre) error {
	return s.createClassifier(ctx, "genres", g.Name, g.Slug)
}

// ListGenres returns a page of genres plus the unpaginated total
func (s *Store) ListGenres(ctx context.Context, search string, limit, offset int) ([]Genre, int, error) {
	rows, total, err := s.listClassifiers(ctx, "genres", search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Genre, len(rows))
	for i, r := range rows {
		out[i] = Genre(r)
	}
	return out, total, nil
}

// GetGenre retrieves a genre by slug
func (s *Store) GetGenre(ctx context.Context, slug string) (*Genre, error) {
	g, err := s.getClassifier(ctx, "genres", slug)
	if err != nil {
		return nil, err
	}
	out := Genre(*g)
	return &out, nil
}

// UpdateGenre applies a partial update to the genre with the given slug
func (s *Store) UpdateGenre(ctx context.Context, slug string, p *ClassifierPatch) (*Genre, error) {
	g, err := s.updateClassifier(ctx, "genres", slug, p)
	if err != nil {
		return nil, err
	}
	out := Genre(*g)
	return &out, nil
}

// DeleteGenre removes the genre with the given slug
func (s *Store) DeleteGenre(ctx context.Context, slug string) error {
	return s.deleteClassifier(ctx, "genres", slug)
}

func (s *Store) categoryIDBySlug(ctx context.Context, slug string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE slug = $1`, slug).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, httputil.NewValidationError("unknown category %q", slug)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve category: %w", err)
	}
	return id, nil
}

func (s *Store) genreIDsBySlugs(ctx context.Context, slugs []string) ([]int64, error) {
	ids := make([]int64, 0, len(slugs))
	for _, slug := range slugs {
		var id int64
		err := s.db.QueryRowContext(ctx, `SELECT id FROM genres WHERE slug = $1`, slug).Scan(&id)
		if err == sql.ErrNoRows {
			return nil, httputil.NewValidationError("unknown genre %q", slug)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve genre: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CreateTitle inserts a new title with its genre links and returns the full
// record. Category and genre slugs must name existing records.
func (s *Store) CreateTitle(ctx context.Context, in *TitleInput) (*Title, error) {
	if err := ValidateName(in.Name); err != nil {
		return nil, err
	}
	if err := ValidateYear(in.Year); err != nil {
		return nil, err
	}

	// Both classifiers are optional; a slug given must resolve.
	var categoryID interface{}
	if in.CategorySlug != "" {
		resolved, err := s.categoryIDBySlug(ctx, in.CategorySlug)
		if err != nil {
			return nil, err
		}
		categoryID = resolved
	}
	genreIDs, err := s.genreIDsBySlugs(ctx, in.GenreSlugs)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO titles (name, year, description, category_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		in.Name, in.Year, in.Description, categoryID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create title: %w", err)
	}

	for _, genreID := range genreIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO title_genres (title_id, genre_id) VALUES ($1, $2)`,
			id, genreID,
		); err != nil && !postgres.IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to link genre: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit title: %w", err)
	}
	return s.GetTitle(ctx, id)
}

const titleColumns = `
	t.id, t.name, t.year, t.description,
	c.name, c.slug,
	(SELECT AVG(r.score) FROM reviews r WHERE r.title_id = t.id)
`

func scanTitle(row interface{ Scan(...interface{}) error }) (*Title, error) {
	var t Title
	var description sql.NullString
	var categoryName, categorySlug sql.NullString
	var rating sql.NullFloat64

	err := row.Scan(&t.ID, &t.Name, &t.Year, &description, &categoryName, &categorySlug, &rating)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	if categorySlug.Valid {
		t.Category = &Category{Name: categoryName.String, Slug: categorySlug.String}
	}
	if rating.Valid {
		v := rating.Float64
		t.Rating = &v
	}
	t.Genres = []Genre{}
	return &t, nil
}

// GetTitle retrieves a title by id with its category, genres and current
// rating.
func (s *Store) GetTitle(ctx context.Context, id int64) (*Title, error) {
	query := `SELECT` + titleColumns + `
		FROM titles t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.id = $1`

	t, err := scanTitle(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("title %d: %w", id, httputil.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get title: %w", err)
	}

	if err := s.loadGenres(ctx, []*Title{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTitles returns a filtered page of titles plus the unpaginated total
func (s *Store) ListTitles(ctx context.Context, f TitleFilter, limit, offset int) ([]*Title, int, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CategorySlug != "" {
		conds = append(conds, `c.slug = `+arg(f.CategorySlug))
	}
	if f.GenreSlug != "" {
		conds = append(conds, `t.id IN (
			SELECT tg.title_id FROM title_genres tg
			JOIN genres g ON g.id = tg.genre_id
			WHERE g.slug = `+arg(f.GenreSlug)+`)`)
	}
	if f.Name != "" {
		conds = append(conds, `LOWER(t.name) LIKE '%' || LOWER(`+arg(f.Name)+`) || '%'`)
	}
	if f.Year != 0 {
		conds = append(conds, `t.year = `+arg(f.Year))
	}

	where := ""
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, " AND ")
	}
	from := ` FROM titles t LEFT JOIN categories c ON c.id = t.category_id` + where

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count titles: %w", err)
	}

	query := `SELECT` + titleColumns + from +
		` ORDER BY t.name, t.id LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list titles: %w", err)
	}
	defer rows.Close()

	var out []*Title
	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan title: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := s.loadGenres(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// loadGenres attaches genre lists to the given titles in one query
func (s *Store) loadGenres(ctx context.Context, titles []*Title) error {
	if len(titles) == 0 {
		return nil
	}

	byID := make(map[int64]*Title, len(titles))
	placeholders := make([]string, len(titles))
	args := make([]interface{}, len(titles))
	for i, t := range titles {
		byID[t.ID] = t
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = t.ID
	}

	query := `
		SELECT tg.title_id, g.name, g.slug
		FROM title_genres tg
		JOIN genres g ON g.id = tg.genre_id
		WHERE tg.title_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY g.slug`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var titleID int64
		var g Genre
		if err := rows.Scan(&titleID, &g.Name, &g.Slug); err != nil {
			return fmt.Errorf("failed to scan genre link: %w", err)
		}
		if t := byID[titleID]; t != nil {
			t.Genres = append(t.Genres, g)
		}
	}
	return rows.Err()
}

// UpdateTitle applies a partial update to the title with the given id and
// returns the updated record. A genre list in the patch replaces the existing
// links wholesale.
func (s *Store) UpdateTitle(ctx context.Context, id int64, p *TitlePatch) (*Title, error) {
	current, err := s.GetTitle(ctx, id)
	if err != nil {
		return nil, err
	}

	name := current.Name
	if p.Name != nil {
		if err := ValidateName(*p.Name); err != nil {
			return nil, err
		}
		name = *p.Name
	}
	year := current.Year
	if p.Year != nil {
		if err := ValidateYear(*p.Year); err != nil {
			return nil, err
		}
		year = *p.Year
	}
	description := current.Description
	if p.Description != nil {
		description = *p.Description
	}

	var categoryID interface{}
	if p.CategorySlug != nil {
		resolved, err := s.categoryIDBySlug(ctx, *p.CategorySlug)
		if err != nil {
			return nil, err
		}
		categoryID = resolved
	} else if current.Category != nil {
		resolved, err := s.categoryIDBySlug(ctx, current.Category.Slug)
		if err != nil {
			return nil, err
		}
		categoryID = resolved
	}

	var genreIDs []int64
	if p.GenreSlugs != nil {
		genreIDs, err = s.genreIDsBySlugs(ctx, *p.GenreSlugs)
		if err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE titles SET name = $1, year = $2, description = $3, category_id = $4 WHERE id = $5`,
		name, year, description, categoryID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update title: %w", err)
	}

	if p.GenreSlugs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM title_genres WHERE title_id = $1`, id); err != nil {
			return nil, fmt.Errorf("failed to clear genre links: %w", err)
		}
		for _, genreID := range genreIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO title_genres (title_id, genre_id) VALUES ($1, $2)`,
				id, genreID,
			); err != nil && !postgres.IsUniqueViolation(err) {
				return nil, fmt.Errorf("failed to link genre: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit title update: %w", err)
	}
	return s.GetTitle(ctx, id)
}

// DeleteTitle removes the title with the given id along with its reviews
func (s *Store) DeleteTitle(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM titles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete title: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("title %d: %w", id, httputil.ErrNotFound)
	}
	return nil
}

// TitleExists reports whether a title with the given id exists. Review and
// comment routes use it for parent checks.
func (s *Store) TitleExists(ctx context.Context, id int64) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM titles WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check title: %w", err)
	}
	if !exists {
		return fmt.Errorf("title %d: %w", id, httputil.ErrNotFound)
	}
	return nil
}
