package persistence

import (
	"context"
	"errors"
	"reflect"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps gorm errors onto the domain taxonomy. Anything not
// recognised is passed through untouched and is treated as a transport error.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrConflict
	}
	return err
}

// findByID loads a single model by primary key
func findByID[M any](ctx context.Context, db *gorm.DB, id uuid.UUID) (*M, error) {
	var model M
	if err := db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &model, nil
}

// findAll lists models matching filter. Filter keys must be whitelisted.
func findAll[M any](ctx context.Context, db *gorm.DB, filter shared.Filter, fields map[string]bool) ([]M, error) {
	if filter.HasEmptyMembership() {
		return []M{}, nil
	}
	var model M
	query, err := applyFilter(db.WithContext(ctx).Model(&model), filter, fields)
	if err != nil {
		return nil, err
	}
	var rows []M
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

// countAll counts models matching filter
func countAll[M any](ctx context.Context, db *gorm.DB, filter shared.Filter, fields map[string]bool) (int64, error) {
	if filter.HasEmptyMembership() {
		return 0, nil
	}
	var model M
	query, err := applyPredicates(db.WithContext(ctx).Model(&model), filter, fields)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

// applyFilter applies predicates, ordering and pagination
func applyFilter(query *gorm.DB, filter shared.Filter, fields map[string]bool) (*gorm.DB, error) {
	query, err := applyPredicates(query, filter, fields)
	if err != nil {
		return nil, err
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, fields, "created_at")
	return query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir)), nil
}

// applyPredicates turns equality and membership filters into WHERE clauses.
// A nil value matches NULL.
func applyPredicates(query *gorm.DB, filter shared.Filter, fields map[string]bool) (*gorm.DB, error) {
	for field, value := range filter.Filters {
		if !fields[field] {
			return nil, shared.Validationf("unsupported filter field %q", field)
		}
		switch {
		case isNil(value):
			query = query.Where(field + " IS NULL")
		case isSlice(value):
			query = query.Where(field+" IN ?", value)
		default:
			query = query.Where(field+" = ?", value)
		}
	}
	return query, nil
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func isSlice(v interface{}) bool {
	return reflect.ValueOf(v).Kind() == reflect.Slice
}
