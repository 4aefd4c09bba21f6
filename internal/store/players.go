package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/trentd187/fifa-roster/internal/apperr"
	"github.com/trentd187/fifa-roster/internal/models"
)

// playerCardColumns selects a PlayerCard from players p joined to items i.
const playerCardColumns = "p.player_id, p.name, p.nationality, p.position, p.imagedir, i.item_id, i.ovr"

// PlayerInput carries the editable fields of a player and its card.
// A nil Imagedir on update leaves the stored image path untouched.
type PlayerInput struct {
	Name        string
	Nationality string
	Position    string
	Ovr         int
	Imagedir    *string
}

// Validate checks the fields the store enforces, so callers can reject a request
// before doing side effects such as saving an upload.
func (in PlayerInput) Validate() error {
	if in.Name == "" {
		return apperr.Invalid("name is required")
	}
	if in.Ovr < models.MinOvr || in.Ovr > models.MaxOvr {
		return apperr.Invalid(fmt.Sprintf("ovr must be between %d and %d", models.MinOvr, models.MaxOvr))
	}
	return nil
}

// playerCards starts a players ⋈ items query. Players without an item are excluded.
func playerCards(db *gorm.DB) *gorm.DB {
	return db.Table("players p").
		Select(playerCardColumns).
		Joins("JOIN items i ON i.player_id = p.player_id")
}

// ListPlayers returns every player with its card, ordered by name.
func (s *Store) ListPlayers(ctx context.Context) ([]models.PlayerCard, error) {
	var cards []models.PlayerCard
	err := s.read(ctx, func(db *gorm.DB) error {
		return playerCards(db).Order("p.name").Order("p.player_id").Scan(&cards).Error
	})
	if err != nil {
		return []models.PlayerCard{}, classify(err, "")
	}
	return nonNil(cards), nil
}

// GetPlayer returns one player with its card, or NotFound.
func (s *Store) GetPlayer(ctx context.Context, id uint) (*models.PlayerCard, error) {
	var card models.PlayerCard
	var found int64
	err := s.read(ctx, func(db *gorm.DB) error {
		res := playerCards(db).Where("p.player_id = ?", id).Limit(1).Scan(&card)
		found = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return nil, classify(err, "")
	}
	if found == 0 {
		return nil, apperr.Missing("Player not found")
	}
	return &card, nil
}

// CreatePlayer inserts the Player row and its Item row as one unit.
func (s *Store) CreatePlayer(ctx context.Context, in PlayerInput) (*models.PlayerCard, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	player := models.Player{
		Name:        in.Name,
		Nationality: in.Nationality,
		Position:    in.Position,
	}
	if in.Imagedir != nil {
		player.Imagedir = *in.Imagedir
	}
	var item models.Item

	err := s.write(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&player).Error; err != nil {
			return err
		}
		item = models.Item{Ovr: in.Ovr, PlayerID: player.ID}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, classify(err, "Player already exists")
	}

	return &models.PlayerCard{
		PlayerID:    player.ID,
		Name:        player.Name,
		Nationality: player.Nationality,
		Position:    player.Position,
		Imagedir:    player.Imagedir,
		ItemID:      item.ID,
		Ovr:         item.Ovr,
	}, nil
}

// UpdatePlayer rewrites a player's fields and its card's ovr in one transaction.
// Teams holding the card get their average rating recomputed.
func (s *Store) UpdatePlayer(ctx context.Context, id uint, in PlayerInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	fields := map[string]any{
		"name":        in.Name,
		"nationality": in.Nationality,
		"position":    in.Position,
	}
	if in.Imagedir != nil {
		fields["imagedir"] = *in.Imagedir
	}

	err := s.write(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Player{}).Where("player_id = ?", id).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Missing("Player not found")
		}

		if err := tx.Model(&models.Item{}).Where("player_id = ?", id).Update("ovr", in.Ovr).Error; err != nil {
			return err
		}

		teamIDs, err := teamsHoldingPlayer(tx, id)
		if err != nil {
			return err
		}
		return recomputeTeamRatings(tx, teamIDs)
	})
	return classify(err, "Player update conflicts with existing data")
}

// DeletePlayer removes the player's roster links, then its card, then the player.
func (s *Store) DeletePlayer(ctx context.Context, id uint) error {
	err := s.write(ctx, func(tx *gorm.DB) error {
		teamIDs, err := teamsHoldingPlayer(tx, id)
		if err != nil {
			return err
		}

		itemIDs := tx.Model(&models.Item{}).Select("item_id").Where("player_id = ?", id)
		if err := tx.Where("item_id IN (?)", itemIDs).Delete(&models.Club{}).Error; err != nil {
			return err
		}
		if err := tx.Where("player_id = ?", id).Delete(&models.Item{}).Error; err != nil {
			return err
		}

		res := tx.Where("player_id = ?", id).Delete(&models.Player{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Missing("Player not found")
		}

		return recomputeTeamRatings(tx, teamIDs)
	})
	return classify(err, "Player is still referenced")
}

// teamsHoldingPlayer lists the teams whose roster includes the player's card.
func teamsHoldingPlayer(tx *gorm.DB, playerID uint) ([]uint, error) {
	var teamIDs []uint
	err := tx.Table("clubs c").
		Joins("JOIN items i ON i.item_id = c.item_id").
		Where("i.player_id = ?", playerID).
		Distinct().
		Pluck("c.team_id", &teamIDs).Error
	return teamIDs, err
}
