package portfolio

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"craftfolio/internal/database"
)

// TemplateStore reads the shared template catalog. Portfolios reference
// templates by id and never embed them; catalog writes are an admin concern.
type TemplateStore struct {
	db *gorm.DB
}

// NewTemplateStore returns a TemplateStore backed by db.
func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// ListActive returns the active templates, newest first.
func (s *TemplateStore) ListActive(ctx context.Context) ([]database.Template, error) {
	var templates []database.Template
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// GetActive returns one active template; deactivated and missing templates
// both surface as ErrNotFound.
func (s *TemplateStore) GetActive(ctx context.Context, id uint) (*database.Template, error) {
	var tpl database.Template
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}
