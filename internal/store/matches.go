package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/trentd187/fifa-roster/internal/apperr"
	"github.com/trentd187/fifa-roster/internal/models"
)

// matchSummaries joins matches to teams twice to resolve both names.
func matchSummaries(db *gorm.DB) *gorm.DB {
	return db.Table("matches m").
		Select("m.match_id, m.home_team_id, m.away_team_id, " +
			"t1.team_name AS home_team_name, t2.team_name AS away_team_name").
		Joins("JOIN teams t1 ON t1.team_id = m.home_team_id").
		Joins("JOIN teams t2 ON t2.team_id = m.away_team_id")
}

// ListMatches returns every match with both team names.
func (s *Store) ListMatches(ctx context.Context) ([]models.MatchSummary, error) {
	var matches []models.MatchSummary
	err := s.read(ctx, func(db *gorm.DB) error {
		return matchSummaries(db).Order("m.match_id").Scan(&matches).Error
	})
	if err != nil {
		return []models.MatchSummary{}, classify(err, "")
	}
	return nonNil(matches), nil
}

// GetMatch returns one match with both team names, or NotFound.
func (s *Store) GetMatch(ctx context.Context, id uint) (*models.MatchSummary, error) {
	var match models.MatchSummary
	var found int64
	err := s.read(ctx, func(db *gorm.DB) error {
		res := matchSummaries(db).Where("m.match_id = ?", id).Limit(1).Scan(&match)
		found = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return nil, classify(err, "")
	}
	if found == 0 {
		return nil, apperr.Missing("Match not found")
	}
	return &match, nil
}

// CreateMatch schedules home against away. The two ids may be equal; a team id
// that does not exist is rejected by the foreign keys as a Conflict.
func (s *Store) CreateMatch(ctx context.Context, homeTeamID, awayTeamID uint) (*models.Match, error) {
	match := models.Match{HomeTeamID: homeTeamID, AwayTeamID: awayTeamID}
	err := s.write(ctx, func(tx *gorm.DB) error {
		return tx.Create(&match).Error
	})
	if err != nil {
		return nil, classify(err, "Unknown team")
	}
	return &match, nil
}

// DeleteMatch removes a match. Deleting an id that does not exist is not an error.
func (s *Store) DeleteMatch(ctx context.Context, id uint) error {
	err := s.write(ctx, func(tx *gorm.DB) error {
		return tx.Where("match_id = ?", id).Delete(&models.Match{}).Error
	})
	return classify(err, "")
}

// GetMatchTeams returns both team ids of a match and the combined roster from the
// team_players view, ordered by ovr descending (so each team's own players are
// also in descending order).
func (s *Store) GetMatchTeams(ctx context.Context, matchID uint) (*models.MatchRoster, error) {
	var match models.Match
	var players []models.TeamPlayer

	err := s.read(ctx, func(db *gorm.DB) error {
		if err := db.Take(&match, "match_id = ?", matchID).Error; err != nil {
			return err
		}
		return db.Where("team_id IN ?", []uint{match.HomeTeamID, match.AwayTeamID}).
			Order("ovr DESC").Order("team_id").Order("name").
			Find(&players).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Missing("Match not found")
	}
	if err != nil {
		return nil, classify(err, "")
	}

	return &models.MatchRoster{
		HomeTeamID: match.HomeTeamID,
		AwayTeamID: match.AwayTeamID,
		Players:    nonNil(players),
	}, nil
}
