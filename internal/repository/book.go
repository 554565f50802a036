package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookhaven/bookstore-api/internal/model"
)

// ListBooksParams filters the catalog listing. GenreID 0 means all genres,
// Search "" matches everything.
type ListBooksParams struct {
	Limit   int
	Offset  int
	GenreID int
	Search  string
}

type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	GetByID(ctx context.Context, id int) (*model.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*model.Book, error)
	GetDetail(ctx context.Context, id int) (*model.BookDetail, error)
	List(ctx context.Context, params ListBooksParams) ([]model.BookDetail, int, error)
	ListRelated(ctx context.Context, genreID, excludeID, limit int) ([]model.BookDetail, error)
	ListFeatured(ctx context.Context, limit int) ([]model.BookDetail, error)
	QuickSearch(ctx context.Context, query string, limit int) ([]model.BookDetail, error)
	Update(ctx context.Context, book *model.Book) error
	Delete(ctx context.Context, id int) error
}

type pgBookRepo struct{ pool *pgxpool.Pool }

func NewBookRepository(pool *pgxpool.Pool) BookRepository {
	return &pgBookRepo{pool: pool}
}

const bookDetailColumns = `b.book_id, b.title, b.description, b.price, b.stock_quantity,
	b.author_id, b.genre_id, b.isbn, b.published_date, b.image_url, b.created_at,
	a.first_name || ' ' || a.last_name, g.name`

func scanBookDetail(row pgx.Row) (*model.BookDetail, error) {
	d := &model.BookDetail{}
	err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.Price, &d.Stock,
		&d.AuthorID, &d.GenreID, &d.ISBN, &d.PublishedDate, &d.ImageURL, &d.CreatedAt,
		&d.AuthorName, &d.GenreName,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *pgBookRepo) Create(ctx context.Context, book *model.Book) error {
	query := `INSERT INTO books (title, description, price, stock_quantity, author_id, genre_id, isbn, published_date, image_url, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			  RETURNING book_id, created_at`
	err := r.pool.QueryRow(ctx, query,
		book.Title, book.Description, book.Price, book.Stock,
		book.AuthorID, book.GenreID, book.ISBN, book.PublishedDate, book.ImageURL,
	).Scan(&book.ID, &book.CreatedAt)
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (r *pgBookRepo) GetByID(ctx context.Context, id int) (*model.Book, error) {
	query := `SELECT book_id, title, description, price, stock_quantity, author_id, genre_id, isbn, published_date, image_url, created_at
			  FROM books WHERE book_id = $1`
	b := &model.Book{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Title, &b.Description, &b.Price, &b.Stock,
		&b.AuthorID, &b.GenreID, &b.ISBN, &b.PublishedDate, &b.ImageURL, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (r *pgBookRepo) GetByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	query := `SELECT book_id, title, description, price, stock_quantity, author_id, genre_id, isbn, published_date, image_url, created_at
			  FROM books WHERE isbn = $1`
	b := &model.Book{}
	err := r.pool.QueryRow(ctx, query, isbn).Scan(
		&b.ID, &b.Title, &b.Description, &b.Price, &b.Stock,
		&b.AuthorID, &b.GenreID, &b.ISBN, &b.PublishedDate, &b.ImageURL, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get book by isbn: %w", err)
	}
	return b, nil
}

func (r *pgBookRepo) GetDetail(ctx context.Context, id int) (*model.BookDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM books b
		JOIN authors a ON a.author_id = b.author_id
		JOIN genres g ON g.genre_id = b.genre_id
		WHERE b.book_id = $1`, bookDetailColumns)
	d, err := scanBookDetail(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get book detail: %w", err)
	}
	return d, nil
}

func (r *pgBookRepo) List(ctx context.Context, params ListBooksParams) ([]model.BookDetail, int, error) {
	var total int
	countQ := `SELECT COUNT(*) FROM books b
		WHERE ($1 = 0 OR b.genre_id = $1)
		  AND ($2 = '' OR b.title ILIKE '%' || $2 || '%')`
	if err := r.pool.QueryRow(ctx, countQ, params.GenreID, params.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM books b
		JOIN authors a ON a.author_id = b.author_id
		JOIN genres g ON g.genre_id = b.genre_id
		WHERE ($1 = 0 OR b.genre_id = $1)
		  AND ($2 = '' OR b.title ILIKE '%%' || $2 || '%%')
		ORDER BY b.title LIMIT $3 OFFSET $4`, bookDetailColumns)

	rows, err := r.pool.Query(ctx, query, params.GenreID, params.Search, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books, err := collectBookDetails(rows)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *pgBookRepo) ListRelated(ctx context.Context, genreID, excludeID, limit int) ([]model.BookDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM books b
		JOIN authors a ON a.author_id = b.author_id
		JOIN genres g ON g.genre_id = b.genre_id
		WHERE b.genre_id = $1 AND b.book_id <> $2
		ORDER BY b.book_id DESC LIMIT $3`, bookDetailColumns)

	rows, err := r.pool.Query(ctx, query, genreID, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list related books: %w", err)
	}
	defer rows.Close()
	return collectBookDetails(rows)
}

func (r *pgBookRepo) ListFeatured(ctx context.Context, limit int) ([]model.BookDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM books b
		JOIN authors a ON a.author_id = b.author_id
		JOIN genres g ON g.genre_id = b.genre_id
		ORDER BY b.book_id DESC LIMIT $1`, bookDetailColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list featured books: %w", err)
	}
	defer rows.Close()
	return collectBookDetails(rows)
}

func (r *pgBookRepo) QuickSearch(ctx context.Context, query string, limit int) ([]model.BookDetail, error) {
	q := fmt.Sprintf(`SELECT %s FROM books b
		JOIN authors a ON a.author_id = b.author_id
		JOIN genres g ON g.genre_id = b.genre_id
		WHERE b.title ILIKE '%%' || $1 || '%%' OR b.description ILIKE '%%' || $1 || '%%'
		ORDER BY b.title LIMIT $2`, bookDetailColumns)

	rows, err := r.pool.Query(ctx, q, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()
	return collectBookDetails(rows)
}

func (r *pgBookRepo) Update(ctx context.Context, book *model.Book) error {
	query := `UPDATE books SET title=$2, description=$3, price=$4, stock_quantity=$5,
			  author_id=$6, genre_id=$7, isbn=$8, published_date=$9, image_url=$10
			  WHERE book_id=$1`
	_, err := r.pool.Exec(ctx, query,
		book.ID, book.Title, book.Description, book.Price, book.Stock,
		book.AuthorID, book.GenreID, book.ISBN, book.PublishedDate, book.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func (r *pgBookRepo) Delete(ctx context.Context, id int) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM books WHERE book_id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrBookReferenced
		}
		return fmt.Errorf("delete book: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func collectBookDetails(rows pgx.Rows) ([]model.BookDetail, error) {
	var books []model.BookDetail
	for rows.Next() {
		d, err := scanBookDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *d)
	}
	return books, nil
}
