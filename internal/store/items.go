package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/trentd187/fifa-roster/internal/models"
)

// ListItems returns the card catalog (every item with its player), ordered by player name.
// The web client uses it as the pick list when adding cards to a team.
func (s *Store) ListItems(ctx context.Context) ([]models.PlayerCard, error) {
	var items []models.PlayerCard
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Table("items i").
			Select(playerCardColumns).
			Joins("JOIN players p ON p.player_id = i.player_id").
			Order("p.name").Order("i.item_id").
			Scan(&items).Error
	})
	if err != nil {
		return []models.PlayerCard{}, classify(err, "")
	}
	return nonNil(items), nil
}
