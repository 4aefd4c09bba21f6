package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/fifa-roster/internal/apperr"
	"github.com/trentd187/fifa-roster/internal/events"
	"github.com/trentd187/fifa-roster/internal/middleware"
	"github.com/trentd187/fifa-roster/internal/models"
	"github.com/trentd187/fifa-roster/internal/store"
)

// credentials is the JSON body of POST /api/auth/register and /api/auth/login.
type credentials struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

const missingCredentials = "Username and password required"

// authResponse is the body both auth routes return. The token is only present when
// token issuance is configured.
func authResponse(tokens *middleware.Tokens, user *models.User) (fiber.Map, error) {
	body := fiber.Map{
		"success":  true,
		"userId":   user.ID,
		"username": user.Username,
	}
	if tokens != nil {
		token, err := tokens.Issue(user.ID, user.Username)
		if err != nil {
			return nil, apperr.Wrap(apperr.Storage, "Could not issue token", err)
		}
		body["token"] = token
	}
	return body, nil
}

// Register handles POST /api/auth/register.
// 201 on success, 400 when a field is missing or the username is taken.
func Register(s *store.Store, tokens *middleware.Tokens, pub events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentials
		if err := parseBody(c, &req, missingCredentials); err != nil {
			return err
		}

		user, err := s.Register(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return err
		}
		events.Emit(c.UserContext(), pub, events.UserRegistered, fiber.Map{"user_id": user.ID, "username": user.Username})

		body, err := authResponse(tokens, user)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(body)
	}
}

// Login handles POST /api/auth/login.
// 401 for an unknown username or a wrong password; the response does not say which.
func Login(s *store.Store, tokens *middleware.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentials
		if err := parseBody(c, &req, missingCredentials); err != nil {
			return err
		}

		user, err := s.Login(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return err
		}

		body, err := authResponse(tokens, user)
		if err != nil {
			return err
		}
		return c.JSON(body)
	}
}

// Me handles GET /api/auth/me. It must run behind middleware.RequireToken.
func Me(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := middleware.UserID(c)
		if !ok {
			return apperr.New(apperr.Unauthorized, "Not signed in")
		}

		user, err := s.GetUser(c.UserContext(), userID)
		if err != nil {
			// A valid token for a since-deleted user is still not a session.
			if apperr.Is(err, apperr.NotFound) {
				return apperr.Wrap(apperr.Unauthorized, "Invalid token", err)
			}
			return err
		}
		return c.JSON(fiber.Map{"success": true, "userId": user.ID, "username": user.Username})
	}
}
