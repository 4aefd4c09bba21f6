package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/fifa-roster/internal/apperr"
	"github.com/trentd187/fifa-roster/internal/events"
	"github.com/trentd187/fifa-roster/internal/media"
	"github.com/trentd187/fifa-roster/internal/store"
)

// playerForm is the body of POST and PUT /api/players. The web client sends it as
// multipart/form-data (with the portrait in the "image" part); PUT also accepts JSON.
type playerForm struct {
	Name        string `json:"name" form:"name" validate:"required"`
	Nationality string `json:"nationality" form:"nationality"`
	Position    string `json:"position" form:"position"`
	// A pointer so a missing ovr is told apart from ovr=0.
	Ovr *int `json:"ovr" form:"ovr" validate:"required,min=0,max=99"`
	// Only read on update: the path to keep when no new image is uploaded.
	// Absent means the stored path stays as it is.
	Imagedir *string `json:"imagedir" form:"imagedir"`
}

func (f playerForm) input(imagedir *string) store.PlayerInput {
	return store.PlayerInput{
		Name:        f.Name,
		Nationality: f.Nationality,
		Position:    f.Position,
		Ovr:         *f.Ovr,
		Imagedir:    imagedir,
	}
}

// ListPlayers handles GET /api/players.
func ListPlayers(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		players, err := s.ListPlayers(c.UserContext())
		return listOrEmpty(c, players, err)
	}
}

// GetPlayer handles GET /api/players/:id.
// An unknown or malformed id is not an error for this route: the body is JSON null.
func GetPlayer(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return c.JSON(nil)
		}

		player, err := s.GetPlayer(c.UserContext(), id)
		if apperr.Is(err, apperr.NotFound) {
			return c.JSON(nil)
		}
		if err != nil {
			return err
		}
		return c.JSON(player)
	}
}

// CreatePlayer handles POST /api/players.
// The image is required. It is only written to storage once the other fields are valid.
func CreatePlayer(s *store.Store, images media.Store, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		file, err := c.FormFile("image")
		if err != nil {
			return apperr.Wrap(apperr.Validation, "Image required", err)
		}

		var form playerForm
		if err := parseBody(c, &form, ""); err != nil {
			return err
		}
		in := form.input(nil)
		if err := in.Validate(); err != nil {
			return err
		}

		imagedir, err := images.Save(c.UserContext(), file)
		if err != nil {
			return apperr.Wrap(apperr.Storage, "Could not store image", err)
		}
		in.Imagedir = &imagedir

		player, err := s.CreatePlayer(c.UserContext(), in)
		if err != nil {
			return err
		}
		events.Emit(c.UserContext(), pub, events.PlayerCreated, player)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":  true,
			"imagedir": player.Imagedir,
			"playerId": player.PlayerID,
			"itemId":   player.ItemID,
		})
	}
}

// UpdatePlayer handles PUT /api/players/:id.
// An uploaded image replaces the stored one. Without one, a supplied imagedir field is
// saved as given, and with neither the stored imagedir is kept.
func UpdatePlayer(s *store.Store, images media.Store, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}

		var form playerForm
		if err := parseBody(c, &form, ""); err != nil {
			return err
		}
		in := form.input(form.Imagedir)
		if err := in.Validate(); err != nil {
			return err
		}

		// FormFile fails for JSON bodies and for multipart bodies without an image part;
		// both mean "no new upload".
		if file, err := c.FormFile("image"); err == nil {
			imagedir, err := images.Save(c.UserContext(), file)
			if err != nil {
				return apperr.Wrap(apperr.Storage, "Could not store image", err)
			}
			in.Imagedir = &imagedir
		}

		if err := s.UpdatePlayer(c.UserContext(), id, in); err != nil {
			return err
		}
		events.Emit(c.UserContext(), pub, events.PlayerUpdated, fiber.Map{"player_id": id, "ovr": in.Ovr})

		return c.JSON(fiber.Map{"success": true})
	}
}

// DeletePlayer handles DELETE /api/players/:id.
// The stored image is left in place; another player may share the same file name.
func DeletePlayer(s *store.Store, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}

		if err := s.DeletePlayer(c.UserContext(), id); err != nil {
			return err
		}
		events.Emit(c.UserContext(), pub, events.PlayerDeleted, fiber.Map{"player_id": id})

		return c.JSON(fiber.Map{"success": true})
	}
}
