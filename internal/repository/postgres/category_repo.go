package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

const categoryColumns = `c.id, c.name, c.type, c.created_at, c.updated_at`

// CategoryRepository implements domain.CategoryRepository using PostgreSQL
type CategoryRepository struct {
	db DBTX
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(db DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var (
		c    domain.Category
		kind string
	)
	if err := row.Scan(&c.ID, &c.Name, &kind, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Type = domain.CategoryType(kind)
	return &c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	return scanCategory(r.db.QueryRow(ctx,
		`INSERT INTO categories AS c (name, type) VALUES ($1, $2) RETURNING `+categoryColumns,
		category.Name, string(category.Type)))
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrCategoryNotFound, id)
		}
		return nil, err
	}
	return c, nil
}

// List returns all categories, optionally only those of one type
func (r *CategoryRepository) List(ctx context.Context, categoryType *domain.CategoryType) ([]*domain.Category, error) {
	var filter *string
	if categoryType != nil {
		s := string(*categoryType)
		filter = &s
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+categoryColumns+` FROM categories c
		WHERE $1::text IS NULL OR c.type = $1
		ORDER BY c.name, c.id`, filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *CategoryRepository) Rename(ctx context.Context, id int32, name string) (*domain.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx,
		`UPDATE categories AS c SET name = $2, updated_at = now() WHERE c.id = $1 RETURNING `+categoryColumns,
		id, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrCategoryNotFound, id)
		}
		return nil, err
	}
	return c, nil
}
