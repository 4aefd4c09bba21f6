// Package handlers contains the HTTP route handlers for the roster API.
// Each handler reads the request, calls one store operation, and writes JSON.
//
// Handlers never write error responses themselves. They return an error, and
// ErrorHandler (installed as Fiber's ErrorHandler) turns it into
// {"success": false, "message": ...} with the status for its apperr.Kind.
package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/trentd187/fifa-roster/internal/apperr"
)

// ErrorHandler is the single place errors become HTTP responses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// An apperr.Error is checked first: it may wrap a *fiber.Error (a body that failed
	// to parse), and its kind decides the status.
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		// Fiber's own errors (unknown route, body too large, ...) keep their status.
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message})
		}
	}

	kind := apperr.KindOf(err)
	message := "Database error"
	if appErr != nil {
		message = appErr.Message
	}

	logFailure(c, kind, err)
	return c.Status(kind.Status()).JSON(fiber.Map{"success": false, "message": message})
}

// listOrEmpty writes rows, or on failure an empty JSON array with the error's status.
// The web client renders list endpoints straight into tables and expects [] on failure.
func listOrEmpty[T any](c *fiber.Ctx, rows []T, err error) error {
	if err != nil {
		kind := apperr.KindOf(err)
		logFailure(c, kind, err)
		return c.Status(kind.Status()).JSON([]T{})
	}
	return c.JSON(rows)
}

func logFailure(c *fiber.Ctx, kind apperr.Kind, err error) {
	event := log.Warn()
	if kind == apperr.Storage {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", requestID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("kind", kind.String()).
		Msg("request failed")
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

// --- request parsing ---

var validate = newValidator()

// newValidator reports field names by their json tag ("team_name", not "TeamName").
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// parseBody decodes the body into dst and validates it. Any failure is a Validation error.
// A non-empty message is reported instead of the parser or field-level detail.
func parseBody(c *fiber.Ctx, dst any, message string) error {
	if err := c.BodyParser(dst); err != nil {
		if message == "" {
			message = "Invalid request body"
		}
		return apperr.Wrap(apperr.Validation, message, err)
	}
	if err := validate.StructCtx(c.UserContext(), dst); err != nil {
		if message == "" {
			message = describeValidation(err)
		}
		return apperr.Wrap(apperr.Validation, message, err)
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min", "max":
		return fmt.Sprintf("%s is out of range (%s %s)", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// idParam reads a positive integer path parameter.
func idParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("Invalid " + name)
	}
	return uint(id), nil
}
