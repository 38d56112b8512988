package portfolio

import (
	"context"

	"gorm.io/gorm"

	"craftfolio/internal/database"
)

// Reorder assigns each listed item the 0-based position it holds in ids.
//
// Policy, preserved exactly from the original editor:
//   - zero ids are skipped but still consume their position;
//   - ids not belonging to the portfolio are silently dropped, never an error;
//   - when the same id appears twice, the last occurrence's position wins;
//   - items absent from ids keep their previous order untouched.
//
// Runs in one transaction so a failure partway leaves no partial resequence.
// Returns the number of items actually updated. The only failure modes are a
// portfolio the caller does not own (ErrNotFound) and storage errors.
func (s *ItemStore) Reorder(ctx context.Context, userID, portfolioID uint, ids []uint) (int, error) {
	if _, err := s.fetchOwned(ctx, portfolioID, userID); err != nil {
		return 0, err
	}

	idToOrder := make(map[uint]int, len(ids))
	for position, id := range ids {
		if id == 0 {
			continue
		}
		idToOrder[id] = position
	}
	if len(idToOrder) == 0 {
		return 0, nil
	}

	keys := make([]uint, 0, len(idToOrder))
	for id := range idToOrder {
		keys = append(keys, id)
	}

	updated := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []database.PortfolioItem
		if err := tx.
			Where("portfolio_id = ? AND id IN ?", portfolioID, keys).
			Find(&items).Error; err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.Model(&database.PortfolioItem{}).
				Where("id = ?", item.ID).
				Update("display_order", idToOrder[item.ID]).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
