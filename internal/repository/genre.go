package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookhaven/bookstore-api/internal/model"
)

type GenreRepository interface {
	Create(ctx context.Context, genre *model.Genre) error
	GetByID(ctx context.Context, id int) (*model.Genre, error)
	GetByName(ctx context.Context, name string) (*model.Genre, error)
	List(ctx context.Context) ([]model.Genre, error)
}

type pgGenreRepo struct{ pool *pgxpool.Pool }

func NewGenreRepository(pool *pgxpool.Pool) GenreRepository {
	return &pgGenreRepo{pool: pool}
}

func (r *pgGenreRepo) Create(ctx context.Context, genre *model.Genre) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO genres (name) VALUES ($1) RETURNING genre_id`, genre.Name,
	).Scan(&genre.ID)
	if err != nil {
		return fmt.Errorf("create genre: %w", err)
	}
	return nil
}

func (r *pgGenreRepo) GetByID(ctx context.Context, id int) (*model.Genre, error) {
	genre := &model.Genre{}
	err := r.pool.QueryRow(ctx,
		`SELECT genre_id, name FROM genres WHERE genre_id = $1`, id,
	).Scan(&genre.ID, &genre.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get genre: %w", err)
	}
	return genre, nil
}

func (r *pgGenreRepo) GetByName(ctx context.Context, name string) (*model.Genre, error) {
	genre := &model.Genre{}
	err := r.pool.QueryRow(ctx,
		`SELECT genre_id, name FROM genres WHERE name = $1`, name,
	).Scan(&genre.ID, &genre.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get genre by name: %w", err)
	}
	return genre, nil
}

func (r *pgGenreRepo) List(ctx context.Context) ([]model.Genre, error) {
	rows, err := r.pool.Query(ctx, `SELECT genre_id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	var genres []model.Genre
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, nil
}
