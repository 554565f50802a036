package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookhaven/bookstore-api/internal/model"
)

type AuthorRepository interface {
	Create(ctx context.Context, author *model.Author) error
	GetByID(ctx context.Context, id int) (*model.Author, error)
	List(ctx context.Context) ([]model.Author, error)
}

type pgAuthorRepo struct{ pool *pgxpool.Pool }

func NewAuthorRepository(pool *pgxpool.Pool) AuthorRepository {
	return &pgAuthorRepo{pool: pool}
}

func (r *pgAuthorRepo) Create(ctx context.Context, author *model.Author) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO authors (first_name, last_name, bio) VALUES ($1, $2, $3) RETURNING author_id`,
		author.FirstName, author.LastName, author.Bio,
	).Scan(&author.ID)
	if err != nil {
		return fmt.Errorf("create author: %w", err)
	}
	return nil
}

func (r *pgAuthorRepo) GetByID(ctx context.Context, id int) (*model.Author, error) {
	author := &model.Author{}
	err := r.pool.QueryRow(ctx,
		`SELECT author_id, first_name, last_name, bio FROM authors WHERE author_id = $1`, id,
	).Scan(&author.ID, &author.FirstName, &author.LastName, &author.Bio)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get author: %w", err)
	}
	return author, nil
}

func (r *pgAuthorRepo) List(ctx context.Context) ([]model.Author, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT author_id, first_name, last_name, bio FROM authors ORDER BY last_name, first_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	var authors []model.Author
	for rows.Next() {
		var a model.Author
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Bio); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, a)
	}
	return authors, nil
}
