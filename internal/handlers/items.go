package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/fifa-roster/internal/store"
)

// ListItems handles GET /api/items, the catalog of cards that can be put on a team.
// Unlike the other lists it reports failures as {success:false, message}.
func ListItems(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := s.ListItems(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(items)
	}
}
