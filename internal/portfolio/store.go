package portfolio

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"craftfolio/internal/database"
)

// ItemStore persists portfolio items. Every operation checks that the acting
// user owns the enclosing portfolio; a failed check surfaces as ErrNotFound.
type ItemStore struct {
	db *gorm.DB
}

// NewItemStore returns an ItemStore backed by db.
func NewItemStore(db *gorm.DB) *ItemStore {
	return &ItemStore{db: db}
}

// ItemInput carries the client-mutable fields of an item. Nil pointers mean
// "leave unchanged" on update and "use the default" on create.
type ItemInput struct {
	Title       *string
	Description *string
	ContentType *string
	// ContentData is the decoded record; HasContentData distinguishes an
	// explicit empty record from an absent field.
	ContentData    ContentData
	HasContentData bool
	// HasAttachment is true when the request carries the file upload
	// matching the content type (video_file / pdf_file).
	HasAttachment bool
	Category      *string
	Tags          datatypes.JSON
	Order         *int
	ImageKey      *string
}

// fetchOwned loads the portfolio only when it belongs to userID. Missing and
// foreign portfolios are indistinguishable to the caller.
func (s *ItemStore) fetchOwned(ctx context.Context, portfolioID, userID uint) (*database.Portfolio, error) {
	var p database.Portfolio
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", portfolioID, userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// fetchOwnedItem loads the item only when its portfolio belongs to userID.
func (s *ItemStore) fetchOwnedItem(ctx context.Context, itemID, userID uint) (*database.PortfolioItem, error) {
	var item database.PortfolioItem
	err := s.db.WithContext(ctx).
		Joins("JOIN portfolios ON portfolios.id = portfolio_items.portfolio_id").
		Where("portfolio_items.id = ? AND portfolios.user_id = ?", itemID, userID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create validates and persists a new item in portfolioID. Order defaults to
// 0 when the caller does not supply one.
func (s *ItemStore) Create(ctx context.Context, userID, portfolioID uint, in ItemInput) (*database.PortfolioItem, error) {
	if _, err := s.fetchOwned(ctx, portfolioID, userID); err != nil {
		return nil, err
	}

	title := ""
	if in.Title != nil {
		title = *in.Title
	}
	title, err := ValidateTitle(title)
	if err != nil {
		return nil, err
	}

	contentType := ContentTypeImage
	if in.ContentType != nil {
		contentType = ContentType(*in.ContentType)
	}
	data := in.ContentData
	if data == nil {
		data = ContentData{}
	}
	if err := ValidateContentData(contentType, data, in.HasAttachment, false); err != nil {
		return nil, err
	}

	item := database.PortfolioItem{
		PortfolioID: portfolioID,
		Title:       title,
		ContentType: string(contentType),
		ContentData: data.JSON(),
		Tags:        datatypes.JSON([]byte("[]")),
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Category != nil {
		item.Category = *in.Category
	}
	if in.Order != nil {
		item.Order = *in.Order
	}
	if in.ImageKey != nil {
		item.ImageKey = *in.ImageKey
	}
	if len(in.Tags) > 0 {
		item.Tags = in.Tags
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Update applies in to the owned item. The content_type/content_data pair is
// re-validated even when content_type is unchanged, because content_data may
// change independently. Nothing is persisted unless every check passes.
func (s *ItemStore) Update(ctx context.Context, userID, itemID uint, in ItemInput) (*database.PortfolioItem, error) {
	item, err := s.fetchOwnedItem(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if in.Title != nil {
		title, err := ValidateTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}

	contentType := ContentType(item.ContentType)
	if in.ContentType != nil {
		contentType = ContentType(*in.ContentType)
		updates["content_type"] = string(contentType)
	}
	data := ParseContentData(item.ContentData)
	if in.HasContentData {
		data = in.ContentData
		if data == nil {
			data = ContentData{}
		}
		updates["content_data"] = data.JSON()
	}
	if err := ValidateContentData(contentType, data, in.HasAttachment, true); err != nil {
		return nil, err
	}

	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.Order != nil {
		updates["display_order"] = *in.Order
	}
	if in.ImageKey != nil {
		updates["image_key"] = *in.ImageKey
	}
	if len(in.Tags) > 0 {
		updates["tags"] = in.Tags
	}

	if len(updates) > 0 {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Model(&database.PortfolioItem{}).
				Where("id = ?", item.ID).
				Updates(updates).Error
		})
		if err != nil {
			return nil, err
		}
	}

	reloaded := database.PortfolioItem{}
	if err := s.db.WithContext(ctx).First(&reloaded, item.ID).Error; err != nil {
		return nil, err
	}
	return &reloaded, nil
}

// Delete removes the owned item permanently (no tombstone) and returns the
// deleted row so the caller can clean up its stored image.
func (s *ItemStore) Delete(ctx context.Context, userID, itemID uint) (*database.PortfolioItem, error) {
	item, err := s.fetchOwnedItem(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Unscoped().Delete(&database.PortfolioItem{}, item.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// List returns the owned portfolio's items in display sequence: order
// ascending, creation time breaking ties. contentType, when non-empty,
// narrows the result to one type.
func (s *ItemStore) List(ctx context.Context, userID, portfolioID uint, contentType string) ([]database.PortfolioItem, error) {
	if _, err := s.fetchOwned(ctx, portfolioID, userID); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("display_order ASC, created_at ASC")
	if contentType != "" {
		query = query.Where("content_type = ?", contentType)
	}

	var items []database.PortfolioItem
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListForPortfolio returns a portfolio's items in display sequence without
// an ownership check, for the read-only viewer.
func (s *ItemStore) ListForPortfolio(ctx context.Context, portfolioID uint) ([]database.PortfolioItem, error) {
	var items []database.PortfolioItem
	err := s.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("display_order ASC, created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
