package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/fifa-roster/internal/events"
	"github.com/trentd187/fifa-roster/internal/store"
)

// matchBody is the JSON body of POST /api/matches. Home and away may name the same team.
type matchBody struct {
	HomeTeamID uint `json:"home_team_id" validate:"required"`
	AwayTeamID uint `json:"away_team_id" validate:"required"`
}

// ListMatches handles GET /api/matches.
func ListMatches(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		matches, err := s.ListMatches(c.UserContext())
		return listOrEmpty(c, matches, err)
	}
}

// GetMatch handles GET /api/matches/:id.
func GetMatch(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}

		match, err := s.GetMatch(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(match)
	}
}

// CreateMatch handles POST /api/matches.
func CreateMatch(s *store.Store, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body matchBody
		if err := parseBody(c, &body, "home_team_id and away_team_id required"); err != nil {
			return err
		}

		match, err := s.CreateMatch(c.UserContext(), body.HomeTeamID, body.AwayTeamID)
		if err != nil {
			return err
		}
		events.Emit(c.UserContext(), pub, events.MatchCreated, match)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "matchId": match.ID})
	}
}

// DeleteMatch handles DELETE /api/matches/:id. Deleting an unknown id still succeeds.
func DeleteMatch(s *store.Store, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}

		if err := s.DeleteMatch(c.UserContext(), id); err != nil {
			return err
		}
		events.Emit(c.UserContext(), pub, events.MatchDeleted, fiber.Map{"match_id": id})

		return c.JSON(fiber.Map{"success": true})
	}
}

// GetMatchTeams handles GET /api/matches/:id/teams: both rosters merged, highest ovr first.
func GetMatchTeams(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}

		roster, err := s.GetMatchTeams(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success":      true,
			"home_team_id": roster.HomeTeamID,
			"away_team_id": roster.AwayTeamID,
			"players":      roster.Players,
		})
	}
}
