package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gigmarket/internal/database"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pgForeignKeyViolation is raised when user_id references a missing user.
const pgForeignKeyViolation = "23503"

type Repository interface {
	Create(ctx context.Context, l *Listing) error
	GetByID(ctx context.Context, id int64) (*Listing, error)
	GetByIDWithOwner(ctx context.Context, id int64) (*Listing, error)
	Update(ctx context.Context, l *Listing) error
	ListByOwner(ctx context.Context, ownerID int64) ([]Listing, error)
	Search(ctx context.Context, term, category string) ([]Listing, error)
	ListAllImages(ctx context.Context) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, l *Listing) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(l).Error
	return classify(err)
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Listing, error) {
	var l Listing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) GetByIDWithOwner(ctx context.Context, id int64) (*Listing, error) {
	var l Listing
	err := r.db.WithContext(ctx).
		Preload("CreatedBy").
		Where("id = ?", id).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Update replaces every column of the row identified by l.ID.
func (r *repository) Update(ctx context.Context, l *Listing) error {
	l.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).
		Model(&Listing{}).
		Where("id = ?", l.ID).
		Select("title", "description", "category", "features", "price",
			"short_desc", "delivery_time", "revisions", "images", "user_id", "updated_at").
		Updates(l)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID int64) ([]Listing, error) {
	listings := []Listing{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&listings).Error
	return listings, err
}

// Search matches term against title OR category against category, both as
// case-insensitive substrings. At least one argument must be non-empty.
func (r *repository) Search(ctx context.Context, term, category string) ([]Listing, error) {
	var (
		conds []string
		args  []interface{}
	)
	dialect := r.db.Dialector.Name()
	if term != "" {
		conds = append(conds, likeExpr(dialect, "title"))
		args = append(args, containsPattern(term))
	}
	if category != "" {
		conds = append(conds, likeExpr(dialect, "category"))
		args = append(args, containsPattern(category))
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("%w: search needs a term or a category", ErrValidation)
	}

	listings := []Listing{}
	err := r.db.WithContext(ctx).
		Preload("CreatedBy").
		Where("("+strings.Join(conds, " OR ")+")", args...).
		Order("id DESC").
		Find(&listings).Error
	return listings, err
}

// ListAllImages returns the images column of every listing, flattened.
func (r *repository) ListAllImages(ctx context.Context) ([]string, error) {
	var listings []Listing
	if err := r.db.WithContext(ctx).Select("id", "images").Find(&listings).Error; err != nil {
		return nil, err
	}
	var images []string
	for _, l := range listings {
		images = append(images, l.Images...)
	}
	return images, nil
}

// likeExpr is a case-insensitive substring match on column. Postgres folds
// case with ILIKE; SQLite needs the Unicode lower function because its LOWER
// and LIKE only fold ASCII.
func likeExpr(dialect, column string) string {
	switch dialect {
	case "postgres":
		return column + ` ILIKE ? ESCAPE '\'`
	case "sqlite":
		return database.SQLiteLowerFunc + "(" + column + `) LIKE ? ESCAPE '\'`
	default:
		return "LOWER(" + column + `) LIKE ? ESCAPE '\'`
	}
}

func containsPattern(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%w: %s", ErrOwnerNotFound, pgErr.ConstraintName)
	}
	return err
}
