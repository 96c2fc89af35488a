package cart

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
)

var cartLineConflictColumns = []clause.Column{{Name: "owner_id"}, {Name: "product_key"}}

// DocumentStore keeps each user's lines as rows in cart_lines. Writes are
// plain upserts, so two concurrent adds of the same product through the
// Accumulator's read-modify-write path can lose an increment. Use
// IncrementOrInsert when that matters.
type DocumentStore struct {
	db *gorm.DB
}

// NewDocumentStore binds the store to db.
func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Backend() enums.CartBackend { return enums.CartBackendDocument }

func (s *DocumentStore) RequiresSession() bool { return true }

func (s *DocumentStore) List(ctx context.Context, sess *identity.Session) ([]Line, error) {
	if !sess.Active() {
		return nil, ErrLoginRequired
	}
	var rows []models.CartLine
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", sess.UserID).
		Order("created_at ASC").
		Order("product_key ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lineFromModel(row))
	}
	return lines, nil
}

func (s *DocumentStore) Find(ctx context.Context, sess *identity.Session, key string) (*Line, error) {
	if !sess.Active() {
		return nil, ErrLoginRequired
	}
	var row models.CartLine
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND product_key = ?", sess.UserID, key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	line := lineFromModel(row)
	return &line, nil
}

func (s *DocumentStore) Put(ctx context.Context, sess *identity.Session, line Line) error {
	if !sess.Active() {
		return ErrLoginRequired
	}
	row := lineToModel(sess, line)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   cartLineConflictColumns,
			DoUpdates: clause.AssignmentColumns([]string{"name", "price", "quantity", "image_ref", "updated_at"}),
		}).
		Create(&row).Error
}

// IncrementOrInsert adds one unit in a single statement.
func (s *DocumentStore) IncrementOrInsert(ctx context.Context, sess *identity.Session, line Line) error {
	if !sess.Active() {
		return ErrLoginRequired
	}
	line.Quantity = 1
	row := lineToModel(sess, line)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: cartLineConflictColumns,
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_lines.quantity + 1"),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(&row).Error
}

func (s *DocumentStore) Delete(ctx context.Context, sess *identity.Session, key string) error {
	if !sess.Active() {
		return ErrLoginRequired
	}
	return s.db.WithContext(ctx).
		Where("owner_id = ? AND product_key = ?", sess.UserID, key).
		Delete(&models.CartLine{}).Error
}

func (s *DocumentStore) Clear(ctx context.Context, sess *identity.Session) error {
	if !sess.Active() {
		return ErrLoginRequired
	}
	return s.db.WithContext(ctx).
		Where("owner_id = ?", sess.UserID).
		Delete(&models.CartLine{}).Error
}

func lineFromModel(row models.CartLine) Line {
	return Line{
		Key:      row.ProductKey,
		Name:     row.Name,
		Price:    row.Price,
		Quantity: row.Quantity,
		ImageRef: row.ImageRef,
	}
}

func lineToModel(sess *identity.Session, line Line) models.CartLine {
	return models.CartLine{
		OwnerID:    sess.UserID,
		ProductKey: line.Key,
		Name:       line.Name,
		Price:      line.Price,
		Quantity:   line.Quantity,
		ImageRef:   line.ImageRef,
	}
}
