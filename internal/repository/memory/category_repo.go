package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
)

type categoryRepo struct {
	v view
}

func (r *categoryRepo) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	var out domain.Category
	err := r.v.write(func(st *state, now time.Time) error {
		c := *category
		c.ID = st.nextID("categories")
		c.CreatedAt = now
		c.UpdatedAt = now
		st.categories[c.ID] = c
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *categoryRepo) GetByID(ctx context.Context, id int32) (*domain.Category, error) {
	var out domain.Category
	err := r.v.read(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return fmt.Errorf("%w: id %d", domain.ErrCategoryNotFound, id)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *categoryRepo) List(ctx context.Context, categoryType *domain.CategoryType) ([]*domain.Category, error) {
	var out []*domain.Category
	err := r.v.read(func(st *state) error {
		for _, c := range st.categories {
			if categoryType != nil && c.Type != *categoryType {
				continue
			}
			c := c
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *categoryRepo) Rename(ctx context.Context, id int32, name string) (*domain.Category, error) {
	var out domain.Category
	err := r.v.write(func(st *state, now time.Time) error {
		c, ok := st.categories[id]
		if !ok {
			return fmt.Errorf("%w: id %d", domain.ErrCategoryNotFound, id)
		}
		c.Name = name
		c.UpdatedAt = now
		st.categories[id] = c
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
