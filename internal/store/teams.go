package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/trentd187/fifa-roster/internal/apperr"
	"github.com/trentd187/fifa-roster/internal/models"
)

// TeamInput carries the editable fields of a team.
type TeamInput struct {
	TeamName  string
	Formation string
	UserID    uint
}

// recomputeAvgSQL sets avg_ovr to the mean ovr of each team's roster (0 when empty).
// The correlated subquery is portable across Postgres and SQLite.
const recomputeAvgSQL = `UPDATE teams SET avg_ovr = COALESCE((
	SELECT AVG(i.ovr) FROM clubs c JOIN items i ON i.item_id = c.item_id
	WHERE c.team_id = teams.team_id), 0)`

// ListTeams returns the teams owned by userID, ordered by name.
func (s *Store) ListTeams(ctx context.Context, userID uint) ([]models.Team, error) {
	var teams []models.Team
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Where("user_id = ?", userID).Order("team_name").Order("team_id").Find(&teams).Error
	})
	if err != nil {
		return []models.Team{}, classify(err, "")
	}
	return nonNil(teams), nil
}

// GetTeam returns one team, or NotFound.
func (s *Store) GetTeam(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Take(&team, "team_id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Missing("Team not found")
	}
	if err != nil {
		return nil, classify(err, "")
	}
	return &team, nil
}

// CreateTeam inserts an empty team (avg_ovr 0).
func (s *Store) CreateTeam(ctx context.Context, in TeamInput) (*models.Team, error) {
	if in.TeamName == "" {
		return nil, apperr.Invalid("team_name is required")
	}

	team := models.Team{TeamName: in.TeamName, Formation: in.Formation, UserID: in.UserID}
	err := s.write(ctx, func(tx *gorm.DB) error {
		return tx.Create(&team).Error
	})
	if err != nil {
		return nil, classify(err, "Unknown user")
	}
	return &team, nil
}

// UpdateTeam renames a team and/or changes its formation. Ownership does not move.
func (s *Store) UpdateTeam(ctx context.Context, id uint, in TeamInput) error {
	if in.TeamName == "" {
		return apperr.Invalid("team_name is required")
	}

	err := s.write(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Team{}).Where("team_id = ?", id).Updates(map[string]any{
			"team_name": in.TeamName,
			"formation": in.Formation,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Missing("Team not found")
		}
		return nil
	})
	return classify(err, "")
}

// DeleteTeam removes a team and its roster links. A team still used by a match
// cannot be deleted (Conflict).
func (s *Store) DeleteTeam(ctx context.Context, id uint) error {
	err := s.write(ctx, func(tx *gorm.DB) error {
		var fixtures int64
		if err := tx.Model(&models.Match{}).Where("home_team_id = ? OR away_team_id = ?", id, id).Count(&fixtures).Error; err != nil {
			return err
		}
		if fixtures > 0 {
			return apperr.New(apperr.Conflict, "Team is used by a match")
		}
		if err := tx.Where("team_id = ?", id).Delete(&models.Club{}).Error; err != nil {
			return err
		}
		res := tx.Where("team_id = ?", id).Delete(&models.Team{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Missing("Team not found")
		}
		return nil
	})
	return classify(err, "Team is used by a match")
}

// ListTeamPlayers returns the cards on a team's roster, highest ovr first.
func (s *Store) ListTeamPlayers(ctx context.Context, teamID uint) ([]models.PlayerCard, error) {
	var cards []models.PlayerCard
	err := s.read(ctx, func(db *gorm.DB) error {
		return playerCards(db).
			Joins("JOIN clubs c ON c.item_id = i.item_id").
			Where("c.team_id = ?", teamID).
			Order("i.ovr DESC").Order("p.name").
			Scan(&cards).Error
	})
	if err != nil {
		return []models.PlayerCard{}, classify(err, "")
	}
	return nonNil(cards), nil
}

// AddItemToTeam puts an existing card on a team's roster and refreshes the team's average.
// The same card may sit on several teams, but only once per team.
func (s *Store) AddItemToTeam(ctx context.Context, teamID, itemID uint) error {
	err := s.write(ctx, func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Team{}, "team_id = ?", teamID, "Team not found"); err != nil {
			return err
		}
		if err := mustExist(tx, &models.Item{}, "item_id = ?", itemID, "Item not found"); err != nil {
			return err
		}
		var linked int64
		if err := tx.Model(&models.Club{}).Where("team_id = ? AND item_id = ?", teamID, itemID).Count(&linked).Error; err != nil {
			return err
		}
		if linked > 0 {
			return apperr.New(apperr.Conflict, "Item is already on this team")
		}
		if err := tx.Create(&models.Club{ItemID: itemID, TeamID: teamID}).Error; err != nil {
			return err
		}
		return recomputeTeamRatings(tx, []uint{teamID})
	})
	return classify(err, "Item is already on this team")
}

// RemoveItemFromTeam takes a card off a team's roster.
func (s *Store) RemoveItemFromTeam(ctx context.Context, teamID, itemID uint) error {
	err := s.write(ctx, func(tx *gorm.DB) error {
		res := tx.Where("team_id = ? AND item_id = ?", teamID, itemID).Delete(&models.Club{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Missing("Item is not on this team")
		}
		return recomputeTeamRatings(tx, []uint{teamID})
	})
	return classify(err, "")
}

// RefreshTeamRatings recomputes avg_ovr for every team and reports how many rows it touched.
func (s *Store) RefreshTeamRatings(ctx context.Context) (int64, error) {
	var n int64
	err := s.write(ctx, func(tx *gorm.DB) error {
		res := tx.Exec(recomputeAvgSQL)
		n = res.RowsAffected
		return res.Error
	})
	return n, classify(err, "")
}

func recomputeTeamRatings(tx *gorm.DB, teamIDs []uint) error {
	if len(teamIDs) == 0 {
		return nil
	}
	return tx.Exec(recomputeAvgSQL+" WHERE team_id IN ?", teamIDs).Error
}

func mustExist(tx *gorm.DB, model any, cond string, id uint, msg string) error {
	var n int64
	if err := tx.Model(model).Where(cond, id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.Missing(msg)
	}
	return nil
}
