package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the full schema as ordered migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(150) NOT NULL UNIQUE,
					email VARCHAR(254) NOT NULL UNIQUE,
					first_name VARCHAR(150),
					last_name VARCHAR(150),
					bio TEXT,
					role VARCHAR(10) NOT NULL DEFAULT 'user',
					is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
					last_login_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_users_username ON users(username);
				CREATE INDEX idx_users_email ON users(email);
			`,
		},
		{
			Version:     2,
			Description: "Create categories and genres tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS categories (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(256) NOT NULL,
					slug VARCHAR(50) NOT NULL UNIQUE
				);

				CREATE TABLE IF NOT EXISTS genres (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(256) NOT NULL,
					slug VARCHAR(50) NOT NULL UNIQUE
				);

				CREATE INDEX idx_categories_name ON categories(name);
				CREATE INDEX idx_genres_name ON genres(name);
			`,
		},
		{
			Version:     3,
			Description: "Create titles and title_genres tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS titles (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(256) NOT NULL,
					year INT NOT NULL,
					description TEXT,
					category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL
				);

				CREATE TABLE IF NOT EXISTS title_genres (
					title_id BIGINT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
					genre_id BIGINT NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
					UNIQUE(title_id, genre_id)
				);

				CREATE INDEX idx_titles_name ON titles(name);
				CREATE INDEX idx_titles_year ON titles(year);
				CREATE INDEX idx_titles_category_id ON titles(category_id);
				CREATE INDEX idx_title_genres_title_id ON title_genres(title_id);
				CREATE INDEX idx_title_genres_genre_id ON title_genres(genre_id);
			`,
		},
		{
			Version:     4,
			Description: "Create reviews table with one-review-per-author constraint",
			SQL: `
				CREATE TABLE IF NOT EXISTS reviews (
					id BIGSERIAL PRIMARY KEY,
					title_id BIGINT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
					author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					text TEXT NOT NULL,
					score INT NOT NULL CHECK (score BETWEEN 1 AND 10),
					pub_date TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(title_id, author_id)
				);

				CREATE INDEX idx_reviews_title_id ON reviews(title_id);
				CREATE INDEX idx_reviews_author_id ON reviews(author_id);
				CREATE INDEX idx_reviews_pub_date ON reviews(pub_date);
			`,
		},
		{
			Version:     5,
			Description: "Create comments table",
			SQL: `
				CREATE TABLE IF NOT EXISTS comments (
					id BIGSERIAL PRIMARY KEY,
					review_id BIGINT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
					author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					text TEXT NOT NULL,
					pub_date TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_comments_review_id ON comments(review_id);
				CREATE INDEX idx_comments_author_id ON comments(author_id);
				CREATE INDEX idx_comments_pub_date ON comments(pub_date);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
