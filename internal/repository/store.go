package repository

import (
	"context"

	"github.com/yukikurage/workspace-api/internal/database"
	"github.com/yukikurage/workspace-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Query describes a filtered, ordered, optionally paginated read.
type Query struct {
	Where    map[string]interface{}
	Order    interface{}
	Preload  []string
	Page     int
	PageSize int
	// Unscoped includes soft-deleted rows.
	Unscoped bool
}

// Store is the CRUD surface shared by records that need nothing beyond it.
type Store[T any] interface {
	Create(ctx context.Context, record *T) error
	FindByID(ctx context.Context, id uint64, preload ...string) (*T, error)
	FindOne(ctx context.Context, where map[string]interface{}) (*T, error)
	List(ctx context.Context, q Query) ([]T, int64, error)
	Update(ctx context.Context, record *T) error
	Delete(ctx context.Context, record *T) error
	DeleteWhere(ctx context.Context, where map[string]interface{}) (int64, error)
	Pluck(ctx context.Context, column string, q Query, dest interface{}) error
	Upsert(ctx context.Context, record *T, conflict []string, update []string) error
}

// GormStore is a GORM implementation of Store
type GormStore[T any] struct {
	db *gorm.DB
}

// NewStore creates a new Store for T
func NewStore[T any](db *gorm.DB) Store[T] {
	return &GormStore[T]{db: db}
}

func (s *GormStore[T]) Create(ctx context.Context, record *T) error {
	return translate(s.db.WithContext(ctx).Create(record).Error)
}

func (s *GormStore[T]) FindByID(ctx context.Context, id uint64, preload ...string) (*T, error) {
	var record T
	query := s.db.WithContext(ctx)
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindOne returns the first row matching where. Map conditions are used so
// that column names such as "key" are quoted by the dialect.
func (s *GormStore[T]) FindOne(ctx context.Context, where map[string]interface{}) (*T, error) {
	var record T
	if err := s.db.WithContext(ctx).Where(where).Take(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *GormStore[T]) List(ctx context.Context, q Query) ([]T, int64, error) {
	query := s.query(ctx, q)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if q.Order != nil {
		query = query.Order(q.Order)
	}
	for _, p := range q.Preload {
		query = query.Preload(p)
	}
	if q.Page > 0 && q.PageSize > 0 {
		query = query.Scopes(pageScope(q.Page, q.PageSize))
	}

	records := []T{}
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *GormStore[T]) Update(ctx context.Context, record *T) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Save(record).Error)
}

func (s *GormStore[T]) Delete(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Delete(record).Error
}

// DeleteWhere deletes every row matching where and reports how many went.
// An empty condition is refused by gorm rather than wiping the table.
func (s *GormStore[T]) DeleteWhere(ctx context.Context, where map[string]interface{}) (int64, error) {
	result := s.db.WithContext(ctx).Where(where).Delete(new(T))
	return result.RowsAffected, result.Error
}

func (s *GormStore[T]) Pluck(ctx context.Context, column string, q Query, dest interface{}) error {
	return s.query(ctx, q).Pluck(column, dest).Error
}

// pageScope selects one page. Callers have already clamped the sizes.
func pageScope(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return database.Paginate(utils.PaginationParams{
		Page:   page,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
}

func (s *GormStore[T]) query(ctx context.Context, q Query) *gorm.DB {
	query := s.db.WithContext(ctx).Model(new(T))
	if q.Unscoped {
		query = query.Unscoped()
	}
	if len(q.Where) > 0 {
		query = query.Where(q.Where)
	}
	return query
}

// Upsert inserts record or, when a row with the same conflict columns
// exists, overwrites the update columns.
func (s *GormStore[T]) Upsert(ctx context.Context, record *T, conflict []string, update []string) error {
	columns := make([]clause.Column, len(conflict))
	for i, name := range conflict {
		columns[i] = clause.Column{Name: name}
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: columns, DoUpdates: clause.AssignmentColumns(update)}).
		Create(record).Error
}
