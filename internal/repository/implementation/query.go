package implementation

import (
	"context"
	"errors"

	"mnp-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
)

// scoped binds ctx and folds every specification into the query.
func scoped(ctx context.Context, db *gorm.DB, specs []specification.Specification) *gorm.DB {
	db = db.WithContext(ctx)
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// first returns nil, nil when no row matches.
func first[M any, E any](query *gorm.DB, toEntity func(*M) *E) (*E, error) {
	var m M
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toEntity(&m), nil
}

func all[M any, E any](query *gorm.DB, toEntity func(*M) *E) ([]*E, error) {
	var models []*M
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*E, len(models))
	for i, m := range models {
		out[i] = toEntity(m)
	}
	return out, nil
}

func count(query *gorm.DB) (int64, error) {
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
