package repository

import (
	"context"
	"errors"
	"fmt"

	appErr "github.com/desp-aas/project-management/pkg/errors"
	"gorm.io/gorm"
)

// BaseRepository defines common CRUD operations.
type BaseRepository[T any] interface {
	Create(ctx context.Context, obj *T) error
	GetByID(ctx context.Context, id any, dest *T) error
	List(ctx context.Context) ([]T, error)
	Update(ctx context.Context, obj *T) error
	Patch(ctx context.Context, id any, patch any, dest *T) error
	Delete(ctx context.Context, id any) error
}

type baseRepository[T any] struct {
	db   *gorm.DB
	name string
}

// NewBaseRepository returns CRUD operations for T; name is used in error messages.
func NewBaseRepository[T any](db *gorm.DB, name string) BaseRepository[T] {
	return &baseRepository[T]{db: db, name: name}
}

func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Create(obj).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return appErr.Wrap(err, appErr.CodeAlreadyExists, r.name+" already exists")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "create "+r.name+" failed")
	}
	return nil
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id any, dest *T) error {
	if err := r.db.WithContext(ctx).First(dest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, r.name+" not found").WithMeta("id", fmt.Sprint(id))
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get "+r.name+" failed")
	}
	return nil
}

func (r *baseRepository[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list "+r.name+" failed")
	}
	return out, nil
}

func (r *baseRepository[T]) Update(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Save(obj).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "update "+r.name+" failed")
	}
	return nil
}

// Patch applies the non-nil fields of patch to the row and reloads it into dest.
func (r *baseRepository[T]) Patch(ctx context.Context, id any, patch any, dest *T) error {
	if err := r.GetByID(ctx, id, dest); err != nil {
		return err
	}
	cols, err := Columns(patch)
	if err != nil {
		return err
	}
	if len(cols) > 0 {
		var zero T
		if err := r.db.WithContext(ctx).Model(&zero).Where("id = ?", id).Updates(cols).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "update "+r.name+" failed")
		}
	}
	return r.GetByID(ctx, id, dest)
}

func (r *baseRepository[T]) Delete(ctx context.Context, id any) error {
	var t T
	res := r.db.WithContext(ctx).Delete(&t, "id = ?", id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return appErr.Wrap(res.Error, appErr.CodeConflict, r.name+" is still in use")
		}
		return appErr.Wrap(res.Error, appErr.CodeInternal, "delete "+r.name+" failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, fmt.Sprintf("%s %v not found", r.name, id))
	}
	return nil
}
