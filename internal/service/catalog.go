package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bookhaven/bookstore-api/internal/dto"
	"github.com/bookhaven/bookstore-api/internal/model"
	"github.com/bookhaven/bookstore-api/internal/repository"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrGenreNotFound  = errors.New("genre not found")
	ErrAuthorNotFound = errors.New("author not found")
	ErrDuplicateISBN  = errors.New("isbn already exists")
	ErrDuplicateGenre = errors.New("genre already exists")
	ErrInvalidPrice   = errors.New("price must be positive")
	ErrBookReferenced = errors.New("book referenced by existing orders")
)

const (
	bookCacheTTL     = 60 * time.Second
	featuredCount    = 8
	relatedCount     = 4
	quickSearchLimit = 10
)

type CatalogService struct {
	bookRepo    repository.BookRepository
	authorRepo  repository.AuthorRepository
	genreRepo   repository.GenreRepository
	redisClient *redis.Client
}

func NewCatalogService(
	bookRepo repository.BookRepository,
	authorRepo repository.AuthorRepository,
	genreRepo repository.GenreRepository,
	redisClient *redis.Client,
) *CatalogService {
	return &CatalogService{
		bookRepo:    bookRepo,
		authorRepo:  authorRepo,
		genreRepo:   genreRepo,
		redisClient: redisClient,
	}
}

func (s *CatalogService) CreateBook(ctx context.Context, req dto.CreateBookRequest) (*dto.BookResponse, error) {
	if !req.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	author, err := s.authorRepo.GetByID(ctx, req.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}
	if author == nil {
		return nil, ErrAuthorNotFound
	}

	genre, err := s.genreRepo.GetByID(ctx, req.GenreID)
	if err != nil {
		return nil, fmt.Errorf("get genre: %w", err)
	}
	if genre == nil {
		return nil, ErrGenreNotFound
	}

	existing, err := s.bookRepo.GetByISBN(ctx, req.ISBN)
	if err != nil {
		return nil, fmt.Errorf("check isbn: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateISBN
	}

	book := &model.Book{
		Title:         req.Title,
		Description:   req.Description,
		Price:         req.Price,
		Stock:         req.Stock,
		AuthorID:      req.AuthorID,
		GenreID:       req.GenreID,
		ISBN:          req.ISBN,
		PublishedDate: req.PublishedDate,
		ImageURL:      req.ImageURL,
	}
	if book.ImageURL == "" {
		book.ImageURL = "/static/images/book-placeholder.jpg"
	}
	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	resp := toBookResponse(&model.BookDetail{Book: *book, AuthorName: author.FullName(), GenreName: genre.Name})
	return &resp, nil
}

func (s *CatalogService) GetBook(ctx context.Context, id int) (*dto.BookDetailResponse, error) {
	detail, err := s.getBookDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	related, err := s.bookRepo.ListRelated(ctx, detail.GenreID, detail.ID, relatedCount)
	if err != nil {
		return nil, fmt.Errorf("list related: %w", err)
	}

	resp := &dto.BookDetailResponse{Book: toBookResponse(detail)}
	for _, b := range related {
		resp.Related = append(resp.Related, toBookSummary(&b))
	}
	return resp, nil
}

func (s *CatalogService) getBookDetail(ctx context.Context, id int) (*model.BookDetail, error) {
	cacheKey := bookCacheKey(id)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var detail model.BookDetail
			if json.Unmarshal([]byte(cached), &detail) == nil {
				return &detail, nil
			}
		}
	}

	detail, err := s.bookRepo.GetDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if detail == nil {
		return nil, ErrBookNotFound
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(detail); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, bookCacheTTL)
		}
	}
	return detail, nil
}

func (s *CatalogService) List(ctx context.Context, req dto.ListBooksRequest) (*dto.BookListResponse, error) {
	offset := (req.Page - 1) * req.Limit
	books, total, err := s.bookRepo.List(ctx, repository.ListBooksParams{
		Limit:   req.Limit,
		Offset:  offset,
		GenreID: req.Genre,
		Search:  req.Search,
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	var items []dto.BookResponse
	for _, b := range books {
		items = append(items, toBookResponse(&b))
	}
	return &dto.BookListResponse{Books: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *CatalogService) Featured(ctx context.Context) ([]dto.BookSummary, error) {
	books, err := s.bookRepo.ListFeatured(ctx, featuredCount)
	if err != nil {
		return nil, fmt.Errorf("list featured: %w", err)
	}
	return toBookSummaries(books), nil
}

func (s *CatalogService) QuickSearch(ctx context.Context, query string) ([]dto.BookSummary, error) {
	if query == "" {
		return []dto.BookSummary{}, nil
	}
	books, err := s.bookRepo.QuickSearch(ctx, query, quickSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return toBookSummaries(books), nil
}

func (s *CatalogService) UpdateBook(ctx context.Context, id int, req dto.UpdateBookRequest) (*dto.BookResponse, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Description != nil {
		book.Description = *req.Description
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, ErrInvalidPrice
		}
		book.Price = *req.Price
	}
	if req.Stock != nil {
		book.Stock = *req.Stock
	}
	if req.AuthorID != nil {
		book.AuthorID = *req.AuthorID
	}
	if req.GenreID != nil {
		book.GenreID = *req.GenreID
	}
	if req.ImageURL != nil {
		book.ImageURL = *req.ImageURL
	}
	if req.PublishedDate != nil {
		book.PublishedDate = req.PublishedDate
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	s.InvalidateBook(ctx, id)

	detail, err := s.bookRepo.GetDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload book: %w", err)
	}
	resp := toBookResponse(detail)
	return &resp, nil
}

func (s *CatalogService) DeleteBook(ctx context.Context, id int) error {
	if err := s.bookRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBookReferenced) {
			return ErrBookReferenced
		}
		return fmt.Errorf("delete book: %w", err)
	}
	s.InvalidateBook(ctx, id)
	return nil
}

func (s *CatalogService) Genres(ctx context.Context) ([]dto.GenreResponse, error) {
	genres, err := s.genreRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	var items []dto.GenreResponse
	for _, g := range genres {
		items = append(items, dto.GenreResponse{ID: g.ID, Name: g.Name})
	}
	return items, nil
}

func (s *CatalogService) CreateGenre(ctx context.Context, req dto.CreateGenreRequest) (*dto.GenreResponse, error) {
	existing, err := s.genreRepo.GetByName(ctx, req.Name)
	if err != nil {
		return nil, fmt.Errorf("check genre: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateGenre
	}

	genre := &model.Genre{Name: req.Name}
	if err := s.genreRepo.Create(ctx, genre); err != nil {
		return nil, fmt.Errorf("create genre: %w", err)
	}
	return &dto.GenreResponse{ID: genre.ID, Name: genre.Name}, nil
}

func (s *CatalogService) CreateAuthor(ctx context.Context, req dto.CreateAuthorRequest) (*dto.AuthorResponse, error) {
	author := &model.Author{FirstName: req.FirstName, LastName: req.LastName, Bio: req.Bio}
	if err := s.authorRepo.Create(ctx, author); err != nil {
		return nil, fmt.Errorf("create author: %w", err)
	}
	return &dto.AuthorResponse{
		ID: author.ID, FirstName: author.FirstName, LastName: author.LastName, Bio: author.Bio,
	}, nil
}

// InvalidateBook drops the cached detail for a book; also used by the
// fulfillment worker after stock changes.
func (s *CatalogService) InvalidateBook(ctx context.Context, id int) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, bookCacheKey(id))
	}
}

func bookCacheKey(id int) string {
	return fmt.Sprintf("book:%d", id)
}

func toBookResponse(d *model.BookDetail) dto.BookResponse {
	return dto.BookResponse{
		ID:            d.ID,
		Title:         d.Title,
		Description:   d.Description,
		Author:        d.AuthorName,
		Genre:         d.GenreName,
		Price:         d.Price,
		Stock:         d.Stock,
		ISBN:          d.ISBN,
		PublishedDate: d.PublishedDate,
		Image:         d.ImageURL,
		InStock:       d.InStock(),
		CreatedAt:     d.CreatedAt,
	}
}

func toBookSummary(d *model.BookDetail) dto.BookSummary {
	return dto.BookSummary{
		ID:      d.ID,
		Title:   d.Title,
		Author:  d.AuthorName,
		Price:   d.Price,
		Image:   d.ImageURL,
		InStock: d.InStock(),
	}
}

func toBookSummaries(books []model.BookDetail) []dto.BookSummary {
	items := make([]dto.BookSummary, 0, len(books))
	for _, b := range books {
		items = append(items, toBookSummary(&b))
	}
	return items
}
