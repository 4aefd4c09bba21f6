package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/fifa-roster/internal/events"
	"github.com/trentd187/fifa-roster/internal/media"
	"github.com/trentd187/fifa-roster/internal/middleware"
	"github.com/trentd187/fifa-roster/internal/store"
)

// Deps is everything the routes need. Tokens may be nil (token issuance disabled) and
// Events may be nil (events.Nop is used).
type Deps struct {
	DB             *gorm.DB
	Store          *store.Store
	Images         media.Store
	Events         events.Publisher
	Tokens         *middleware.Tokens
	AllowedOrigins string        // Comma-separated CORS origins, "*" for any
	RequestTimeout time.Duration // Zero disables the per-request deadline
	UploadDir      string        // Served under /images when non-empty
	BodyLimit      int           // Bytes; zero keeps Fiber's default (4 MB)
}

// NewApp builds the Fiber app with global middleware and every route registered.
// cmd/server calls Listen on it; tests call app.Test.
func NewApp(d Deps) *fiber.App {
	if d.Events == nil {
		d.Events = events.Nop{}
	}

	app := fiber.New(fiber.Config{
		AppName:      "FIFA Roster API",
		ErrorHandler: ErrorHandler,
		BodyLimit:    d.BodyLimit,
	})

	// --- Global middleware ---
	// recover turns a panic in a handler into a 500 instead of killing the process.
	app.Use(recover.New())
	// requestid tags every request; the id is echoed in X-Request-ID and in error logs.
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{AllowOrigins: d.AllowedOrigins}))

	// --- Public, non-API routes ---
	app.Get("/health", HealthCheck)
	app.Get("/health/ready", ReadyCheck(d.DB))
	if d.UploadDir != "" {
		// imagedir values look like "images/<file>", so the browser requests /images/<file>.
		app.Static("/images", d.UploadDir)
	}

	api := app.Group("/api")
	if d.RequestTimeout > 0 {
		api.Use(middleware.RequestTimeout(d.RequestTimeout))
	}

	// Auth
	api.Post("/auth/register", Register(d.Store, d.Tokens, d.Events))
	api.Post("/auth/login", Login(d.Store, d.Tokens))
	api.Get("/auth/me", middleware.RequireToken(d.Tokens), Me(d.Store))

	// Players: a player and its rated card are created, edited and deleted together
	api.Get("/players", ListPlayers(d.Store))
	api.Get("/players/:id", GetPlayer(d.Store))
	api.Post("/players", CreatePlayer(d.Store, d.Images, d.Events))
	api.Put("/players/:id", UpdatePlayer(d.Store, d.Images, d.Events))
	api.Delete("/players/:id", DeletePlayer(d.Store, d.Events))

	// Teams and their rosters
	api.Get("/teams", ListTeams(d.Store))
	api.Get("/teams/:id", GetTeam(d.Store))
	api.Post("/teams", CreateTeam(d.Store, d.Events))
	api.Put("/teams/:id", UpdateTeam(d.Store, d.Events))
	api.Delete("/teams/:id", DeleteTeam(d.Store, d.Events))
	api.Get("/teams/:id/players", ListTeamPlayers(d.Store))
	api.Post("/teams/:id/items", AddItemToTeam(d.Store, d.Events))
	api.Delete("/teams/:id/items/:itemId", RemoveItemFromTeam(d.Store, d.Events))

	// Item catalog
	api.Get("/items", ListItems(d.Store))

	// Matches
	api.Get("/matches", ListMatches(d.Store))
	api.Get("/matches/:id", GetMatch(d.Store))
	api.Post("/matches", CreateMatch(d.Store, d.Events))
	api.Delete("/matches/:id", DeleteMatch(d.Store, d.Events))
	api.Get("/matches/:id/teams", GetMatchTeams(d.Store))

	return app
}
