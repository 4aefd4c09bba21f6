package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/fifa-roster/internal/events"
	"github.com/trentd187/fifa-roster/internal/models"
	"github.com/trentd187/fifa-roster/internal/store"
)

// teamBody is the JSON body of POST and PUT /api/teams.
// user_id is optional and defaults to models.DefaultUserID; PUT ignores it.
type teamBody struct {
	TeamName  string `json:"team_name" validate:"required"`
	Formation string `json:"formation"`
	UserID    uint   `json:"user_id"`
}

func (b teamBody) input() store.TeamInput {
	userID := b.UserID
	if userID == 0 {
		userID = models.DefaultUserID
	}
	return store.TeamInput{TeamName: b.TeamName, Formation: b.Formation, UserID: userID}
}

// addItemBody is the JSON body of POST /api/teams/:id/items.
type addItemBody struct {
	ItemID uint `json:"item_id" validate:"required"`
}

// ListTeams handles GET /api/teams?userId=N. Without userId the default user's teams are listed.
func ListTeams(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := models.DefaultUserID
		if n := c.QueryInt("userId", 0); n > 0 {
			userID = uint(n)
		}

		teams, err := s.ListTeams(c.UserContext(), userID)
		return listOrEmpty(c, teams, err)
	}
}

// GetTeam handles GET /api/teams/:id.
func GetTeam(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}

		team, err := s.GetTeam(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(team)
	}
}

// CreateTeam handles POST /api/teams.
func CreateTeam(s *store.Store, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body teamBody
		if err := parseBody(c, &body, ""); err != nil {
			return err
		}

		team, err := s.CreateTeam(c.UserContext(), body.input())
		if err != nil {
			return err
		}
		events.Emit(c.UserContext(), pub, events.TeamCreated, team)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "teamId": team.ID})
	}
}

// UpdateTeam handles PUT /api/teams/:id.
func UpdateTeam(s *store.Store, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}

		var body teamBody
		if err := parseBody(c, &body, ""); err != nil {
			return err
		}

		if err := s.UpdateTeam(c.UserContext(), id, body.input()); err != nil {
			return err
		}
		events.Emit(c.UserContext(), pub, events.TeamUpdated, fiber.Map{
			"team_id":   id,
			"team_name": body.TeamName,
			"formation": body.Formation,
		})

		return c.JSON(fiber.Map{"success": true})
	}
}

// DeleteTeam handles DELETE /api/teams/:id.
func DeleteTeam(s *store.Store, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}

		if err := s.DeleteTeam(c.UserContext(), id); err != nil {
			return err
		}
		events.Emit(c.UserContext(), pub, events.TeamDeleted, fiber.Map{"team_id": id})

		return c.JSON(fiber.Map{"success": true})
	}
}

// ListTeamPlayers handles GET /api/teams/:id/players.
func ListTeamPlayers(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return listOrEmpty[models.PlayerCard](c, nil, err)
		}

		players, err := s.ListTeamPlayers(c.UserContext(), id)
		return listOrEmpty(c, players, err)
	}
}

// AddItemToTeam handles POST /api/teams/:id/items.
func AddItemToTeam(s *store.Store, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		teamID, err := idParam(c, "id")
		if err != nil {
			return err
		}

		var body addItemBody
		if err := parseBody(c, &body, "item_id required"); err != nil {
			return err
		}

		if err := s.AddItemToTeam(c.UserContext(), teamID, body.ItemID); err != nil {
			return err
		}
		events.Emit(c.UserContext(), pub, events.TeamItemAdded, fiber.Map{"team_id": teamID, "item_id": body.ItemID})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
	}
}

// RemoveItemFromTeam handles DELETE /api/teams/:id/items/:itemId.
func RemoveItemFromTeam(s *store.Store, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		teamID, err := idParam(c, "id")
		if err != nil {
			return err
		}
		itemID, err := idParam(c, "itemId")
		if err != nil {
			return err
		}

		if err := s.RemoveItemFromTeam(c.UserContext(), teamID, itemID); err != nil {
			return err
		}
		events.Emit(c.UserContext(), pub, events.TeamItemRemoved, fiber.Map{"team_id": teamID, "item_id": itemID})

		return c.JSON(fiber.Map{"success": true})
	}
}
