package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trentd187/fifa-roster/internal/handlers"
	"github.com/trentd187/fifa-roster/internal/media"
	"github.com/trentd187/fifa-roster/internal/middleware"
	"github.com/trentd187/fifa-roster/internal/store"
	"github.com/trentd187/fifa-roster/internal/store/storetest"
)

// recorder captures published events.
type recorder struct{ types []string }

func (r *recorder) Publish(_ context.Context, eventType string, _ any) error {
	r.types = append(r.types, eventType)
	return nil
}

type testServer struct {
	app    *fiber.App
	db     *gorm.DB
	events *recorder
}

func newServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	images, err := media.NewLocal(dir, "images")
	require.NoError(t, err)

	db := storetest.New(t)
	rec := &recorder{}
	app := handlers.NewApp(handlers.Deps{
		DB:             db,
		Store:          store.New(db),
		Images:         images,
		Events:         rec,
		Tokens:         middleware.NewTokens("test-secret", time.Hour),
		AllowedOrigins: "*",
		RequestTimeout: 5 * time.Second,
		UploadDir:      dir,
	})
	return &testServer{app: app, db: db, events: rec}
}

// do sends req and decodes a JSON response body into out (when out is non-nil).
func (s *testServer) do(t *testing.T, req *http.Request, out any) int {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, out), "body: %s", body)
	}
	return resp.StatusCode
}

func (s *testServer) json(t *testing.T, method, path string, in, out any) int {
	t.Helper()
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return s.do(t, req, out)
}

// multipartRequest builds a player form. An empty fileName leaves out the image part.
func multipartRequest(t *testing.T, method, path string, fields map[string]string, fileName string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("image", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

type result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
	Imagedir string `json:"imagedir"`
	PlayerID uint   `json:"playerId"`
	ItemID   uint   `json:"itemId"`
	TeamID   uint   `json:"teamId"`
	MatchID  uint   `json:"matchId"`
}

// createPlayer posts a valid player and returns the response.
func (s *testServer) createPlayer(t *testing.T, name string, ovr int) result {
	t.Helper()
	var res result
	status := s.do(t, multipartRequest(t, fiber.MethodPost, "/api/players", map[string]string{
		"name":        name,
		"nationality": "Italy",
		"position":    "CM",
		"ovr":         strconv.Itoa(ovr),
	}, name+".png"), &res)
	require.Equal(t, fiber.StatusCreated, status, res.Message)
	return res
}

func (s *testServer) createTeam(t *testing.T, name string, userID uint) uint {
	t.Helper()
	var res result
	body := map[string]any{"team_name": name, "formation": "4-4-2"}
	if userID != 0 {
		body["user_id"] = userID
	}
	status := s.json(t, fiber.MethodPost, "/api/teams", body, &res)
	require.Equal(t, fiber.StatusCreated, status, res.Message)
	return res.TeamID
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	var body map[string]string

	assert.Equal(t, fiber.StatusOK, s.do(t, httptest.NewRequest(fiber.MethodGet, "/health", nil), &body))
	assert.Equal(t, "ok", body["status"])

	assert.Equal(t, fiber.StatusOK, s.do(t, httptest.NewRequest(fiber.MethodGet, "/health/ready", nil), &body))
}

func TestRegisterAndLogin(t *testing.T) {
	s := newServer(t)
	creds := map[string]string{"username": "pirlo", "password": "regista"}

	var first result
	require.Equal(t, fiber.StatusCreated, s.json(t, fiber.MethodPost, "/api/auth/register", creds, &first))
	assert.True(t, first.Success)
	assert.Equal(t, "pirlo", first.Username)
	assert.NotEmpty(t, first.Token)

	var second result
	assert.Equal(t, fiber.StatusBadRequest, s.json(t, fiber.MethodPost, "/api/auth/register", creds, &second))
	assert.False(t, second.Success)
	assert.Equal(t, "Username exists", second.Message)

	var login result
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodPost, "/api/auth/login", creds, &login))
	assert.Equal(t, first.UserID, login.UserID)

	var bad result
	wrong := map[string]string{"username": "pirlo", "password": "libero"}
	assert.Equal(t, fiber.StatusUnauthorized, s.json(t, fiber.MethodPost, "/api/auth/login", wrong, &bad))
	assert.False(t, bad.Success)

	assert.Equal(t, fiber.StatusUnauthorized, s.json(t, fiber.MethodPost, "/api/auth/login",
		map[string]string{"username": "nobody", "password": "x"}, nil))

	req := httptest.NewRequest(fiber.MethodGet, "/api/auth/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+login.Token)
	var me result
	require.Equal(t, fiber.StatusOK, s.do(t, req, &me))
	assert.Equal(t, first.UserID, me.UserID)

	assert.Equal(t, 1, countOf(s.events.types, "user.registered"))
}

func TestRegisterMissingFields(t *testing.T) {
	s := newServer(t)
	var res result
	assert.Equal(t, fiber.StatusBadRequest,
		s.json(t, fiber.MethodPost, "/api/auth/register", map[string]string{"username": "solo"}, &res))
	assert.Equal(t, "Username and password required", res.Message)

	assert.Equal(t, fiber.StatusBadRequest,
		s.json(t, fiber.MethodPost, "/api/auth/login", map[string]string{}, &res))
}

func TestCreatePlayerRequiresImage(t *testing.T) {
	s := newServer(t)
	var res result
	status := s.do(t, multipartRequest(t, fiber.MethodPost, "/api/players", map[string]string{
		"name": "Baggio", "nationality": "Italy", "position": "CF", "ovr": "90",
	}, ""), &res)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Image required", res.Message)
	assert.Empty(t, s.events.types)
}

func TestCreatePlayerRejectsBadOvr(t *testing.T) {
	s := newServer(t)
	for _, ovr := range []string{"100", "-1", "great"} {
		var res result
		status := s.do(t, multipartRequest(t, fiber.MethodPost, "/api/players", map[string]string{
			"name": "Baggio", "ovr": ovr,
		}, "baggio.png"), &res)
		assert.Equal(t, fiber.StatusBadRequest, status, "ovr=%s", ovr)
	}
}

func TestPlayerLifecycle(t *testing.T) {
	s := newServer(t)

	created := s.createPlayer(t, "Roberto Baggio", 90)
	assert.True(t, created.Success)
	assert.Equal(t, "images/roberto-baggio.png", created.Imagedir)
	assert.NotZero(t, created.PlayerID)

	// The upload is served back from the static route.
	img := s.do(t, httptest.NewRequest(fiber.MethodGet, "/"+created.Imagedir, nil), nil)
	assert.Equal(t, fiber.StatusOK, img)

	path := "/api/players/" + strconv.Itoa(int(created.PlayerID))
	var player map[string]any
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, path, nil, &player))
	assert.Equal(t, "Roberto Baggio", player["name"])
	assert.EqualValues(t, 90, player["ovr"])

	// Update without an image keeps the stored path.
	var res result
	require.Equal(t, fiber.StatusOK, s.do(t, multipartRequest(t, fiber.MethodPut, path, map[string]string{
		"name": "Roberto Baggio", "nationality": "Italy", "position": "CF", "ovr": "93",
	}, ""), &res), res.Message)
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, path, nil, &player))
	assert.EqualValues(t, 93, player["ovr"])
	assert.Equal(t, "images/roberto-baggio.png", player["imagedir"])

	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodDelete, path, nil, &res))
	assert.True(t, res.Success)

	// Unknown players are JSON null, not an error.
	var gone any = "sentinel"
	assert.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, path, nil, &gone))
	assert.Nil(t, gone)

	assert.Equal(t, fiber.StatusNotFound, s.json(t, fiber.MethodDelete, path, nil, nil))
	assert.Equal(t, []string{"player.created", "player.updated", "player.deleted"}, s.events.types)
}

func TestListTeamsDefaultsToUserOne(t *testing.T) {
	s := newServer(t)
	var other result
	require.Equal(t, fiber.StatusCreated, s.json(t, fiber.MethodPost, "/api/auth/register",
		map[string]string{"username": "cruyff", "password": "totaal"}, &other))

	s.createTeam(t, "Azzurri", 0)
	s.createTeam(t, "Oranje", other.UserID)

	var teams []map[string]any
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, "/api/teams", nil, &teams))
	require.Len(t, teams, 1)
	assert.Equal(t, "Azzurri", teams[0]["team_name"])

	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, "/api/teams?userId="+strconv.Itoa(int(other.UserID)), nil, &teams))
	require.Len(t, teams, 1)
	assert.Equal(t, "Oranje", teams[0]["team_name"])
}

func TestTeamCRUD(t *testing.T) {
	s := newServer(t)

	var res result
	assert.Equal(t, fiber.StatusBadRequest, s.json(t, fiber.MethodPost, "/api/teams", map[string]any{"formation": "3-5-2"}, &res))
	assert.Equal(t, "team_name is required", res.Message)

	id := s.createTeam(t, "Milan", 0)
	path := "/api/teams/" + strconv.Itoa(int(id))

	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodPut, path, map[string]any{"team_name": "AC Milan", "formation": "4-3-1-2"}, &res))

	var team map[string]any
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, path, nil, &team))
	assert.Equal(t, "AC Milan", team["team_name"])
	assert.Equal(t, "4-3-1-2", team["formation"])

	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodDelete, path, nil, &res))
	assert.Equal(t, fiber.StatusNotFound, s.json(t, fiber.MethodGet, path, nil, &res))
	assert.Equal(t, fiber.StatusNotFound, s.json(t, fiber.MethodPut, path, map[string]any{"team_name": "x"}, &res))
}

func TestTeamRosterRoundTrip(t *testing.T) {
	s := newServer(t)
	teamID := s.createTeam(t, "Juve", 0)
	a := s.createPlayer(t, "Del Piero", 88)
	b := s.createPlayer(t, "Zidane", 94)
	s.createPlayer(t, "Bench Warmer", 60)

	base := "/api/teams/" + strconv.Itoa(int(teamID))
	var res result
	assert.Equal(t, fiber.StatusBadRequest, s.json(t, fiber.MethodPost, base+"/items", map[string]any{}, &res))
	assert.Equal(t, "item_id required", res.Message)

	for _, itemID := range []uint{a.ItemID, b.ItemID} {
		require.Equal(t, fiber.StatusCreated, s.json(t, fiber.MethodPost, base+"/items", map[string]any{"item_id": itemID}, &res), res.Message)
	}

	var roster []map[string]any
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, base+"/players", nil, &roster))
	require.Len(t, roster, 2)
	assert.Equal(t, "Zidane", roster[0]["name"])
	assert.Equal(t, "Del Piero", roster[1]["name"])

	var team map[string]any
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, base, nil, &team))
	assert.InDelta(t, 91.0, team["avg_ovr"], 0.001)

	itemPath := base + "/items/" + strconv.Itoa(int(a.ItemID))
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodDelete, itemPath, nil, &res))
	assert.Equal(t, fiber.StatusNotFound, s.json(t, fiber.MethodDelete, itemPath, nil, &res))

	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, base+"/players", nil, &roster))
	assert.Len(t, roster, 1)
}

func TestListsReturnEmptyArrays(t *testing.T) {
	s := newServer(t)
	for _, path := range []string{"/api/players", "/api/teams", "/api/matches", "/api/items", "/api/teams/1/players"} {
		var rows []any
		require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, path, nil, &rows), path)
		assert.NotNil(t, rows, path)
		assert.Empty(t, rows, path)
	}
}

func TestItemsCatalog(t *testing.T) {
	s := newServer(t)
	s.createPlayer(t, "Zoff", 85)
	s.createPlayer(t, "Baresi", 91)

	var items []map[string]any
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, "/api/items", nil, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Baresi", items[0]["name"])
}

func TestMatches(t *testing.T) {
	s := newServer(t)
	home := s.createTeam(t, "Inter", 0)
	away := s.createTeam(t, "Roma", 0)

	for name, ovr := range map[string]int{"Zanetti": 86, "Totti": 92} {
		p := s.createPlayer(t, name, ovr)
		team := home
		if name == "Totti" {
			team = away
		}
		require.Equal(t, fiber.StatusCreated,
			s.json(t, fiber.MethodPost, "/api/teams/"+strconv.Itoa(int(team))+"/items", map[string]any{"item_id": p.ItemID}, nil))
	}

	var res result
	assert.Equal(t, fiber.StatusBadRequest, s.json(t, fiber.MethodPost, "/api/matches", map[string]any{"home_team_id": home}, &res))

	require.Equal(t, fiber.StatusCreated,
		s.json(t, fiber.MethodPost, "/api/matches", map[string]any{"home_team_id": home, "away_team_id": away}, &res))
	matchPath := "/api/matches/" + strconv.Itoa(int(res.MatchID))

	var summary map[string]any
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, matchPath, nil, &summary))
	assert.Equal(t, "Inter", summary["home_team_name"])
	assert.Equal(t, "Roma", summary["away_team_name"])

	var lineup struct {
		Success    bool             `json:"success"`
		HomeTeamID uint             `json:"home_team_id"`
		AwayTeamID uint             `json:"away_team_id"`
		Players    []map[string]any `json:"players"`
	}
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, matchPath+"/teams", nil, &lineup))
	assert.True(t, lineup.Success)
	assert.Equal(t, home, lineup.HomeTeamID)
	assert.Equal(t, away, lineup.AwayTeamID)
	require.Len(t, lineup.Players, 2)
	assert.Equal(t, "Totti", lineup.Players[0]["name"])

	// A team in a match cannot be deleted.
	assert.Equal(t, fiber.StatusBadRequest, s.json(t, fiber.MethodDelete, "/api/teams/"+strconv.Itoa(int(home)), nil, &res))

	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodDelete, matchPath, nil, &res))
	assert.Equal(t, fiber.StatusNotFound, s.json(t, fiber.MethodGet, matchPath+"/teams", nil, &res))
	assert.Equal(t, "Match not found", res.Message)
}

func TestMatchTeamsUnknownMatch(t *testing.T) {
	s := newServer(t)
	var res result
	assert.Equal(t, fiber.StatusNotFound, s.json(t, fiber.MethodGet, "/api/matches/999/teams", nil, &res))
	assert.False(t, res.Success)
}

func TestInvalidPathID(t *testing.T) {
	s := newServer(t)
	var res result
	assert.Equal(t, fiber.StatusBadRequest, s.json(t, fiber.MethodGet, "/api/teams/abc", nil, &res))
	assert.Equal(t, "Invalid id", res.Message)
}

func TestUnparseableBodiesAreValidationErrors(t *testing.T) {
	s := newServer(t)

	// No Content-Type at all: the body parser cannot pick a decoder.
	var res result
	req := httptest.NewRequest(fiber.MethodPost, "/api/auth/register", nil)
	assert.Equal(t, fiber.StatusBadRequest, s.do(t, req, &res))
	assert.False(t, res.Success)
	assert.Equal(t, "Username and password required", res.Message)

	req = httptest.NewRequest(fiber.MethodPost, "/api/auth/login", strings.NewReader("username=pirlo"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
	assert.Equal(t, fiber.StatusBadRequest, s.do(t, req, &res))
	assert.Equal(t, "Username and password required", res.Message)

	req = httptest.NewRequest(fiber.MethodPost, "/api/teams", strings.NewReader("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	assert.Equal(t, fiber.StatusBadRequest, s.do(t, req, &res))
	assert.Equal(t, "Invalid request body", res.Message)
}

func TestUpdatePlayerImagedir(t *testing.T) {
	s := newServer(t)
	created := s.createPlayer(t, "Totti", 92)
	path := "/api/players/" + strconv.Itoa(int(created.PlayerID))
	fields := map[string]string{"name": "Totti", "nationality": "Italy", "position": "CF", "ovr": "92"}

	// A supplied imagedir is saved when no file is uploaded.
	fields["imagedir"] = "images/custom.png"
	var res result
	require.Equal(t, fiber.StatusOK, s.do(t, multipartRequest(t, fiber.MethodPut, path, fields, ""), &res), res.Message)
	var player map[string]any
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, path, nil, &player))
	assert.Equal(t, "images/custom.png", player["imagedir"])

	// JSON bodies carry it the same way.
	body := map[string]any{"name": "Totti", "ovr": 92, "imagedir": "images/json.png"}
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodPut, path, body, &res), res.Message)
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, path, nil, &player))
	assert.Equal(t, "images/json.png", player["imagedir"])

	// An upload wins over the field.
	require.Equal(t, fiber.StatusOK, s.do(t, multipartRequest(t, fiber.MethodPut, path, fields, "New Totti.png"), &res), res.Message)
	require.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, path, nil, &player))
	assert.Equal(t, "images/new-totti.png", player["imagedir"])
}

func TestGetPlayerMalformedID(t *testing.T) {
	s := newServer(t)
	var got any = "sentinel"
	assert.Equal(t, fiber.StatusOK, s.json(t, fiber.MethodGet, "/api/players/abc", nil, &got))
	assert.Nil(t, got)
}

func TestUnknownReferencesConflict(t *testing.T) {
	s := newServer(t)

	var res result
	assert.Equal(t, fiber.StatusBadRequest,
		s.json(t, fiber.MethodPost, "/api/teams", map[string]any{"team_name": "Ghosts", "user_id": 42}, &res))
	assert.Equal(t, "Unknown user", res.Message)

	home := s.createTeam(t, "Lazio", 0)
	assert.Equal(t, fiber.StatusBadRequest,
		s.json(t, fiber.MethodPost, "/api/matches", map[string]any{"home_team_id": home, "away_team_id": home + 50}, &res))
	assert.Equal(t, "Unknown team", res.Message)
	assert.NotContains(t, s.events.types, "match.created")
}

func TestStorageFailures(t *testing.T) {
	s := newServer(t)
	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	for _, path := range []string{"/api/players", "/api/teams", "/api/matches", "/api/teams/1/players"} {
		req := httptest.NewRequest(fiber.MethodGet, path, nil)
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode, path)
		assert.JSONEq(t, "[]", string(body), path)
	}

	var res result
	assert.Equal(t, fiber.StatusInternalServerError, s.json(t, fiber.MethodGet, "/api/items", nil, &res))
	assert.False(t, res.Success)
	assert.Equal(t, "Database error", res.Message)

	var health map[string]string
	assert.Equal(t, fiber.StatusServiceUnavailable, s.do(t, httptest.NewRequest(fiber.MethodGet, "/health/ready", nil), &health))
	assert.Equal(t, "unavailable", health["status"])

	// Liveness does not touch the database.
	assert.Equal(t, fiber.StatusOK, s.do(t, httptest.NewRequest(fiber.MethodGet, "/health", nil), nil))
}

func TestMeRejectsBadTokens(t *testing.T) {
	s := newServer(t)
	var reg result
	require.Equal(t, fiber.StatusCreated, s.json(t, fiber.MethodPost, "/api/auth/register",
		map[string]string{"username": "maldini", "password": "capitano"}, &reg))

	forged, err := middleware.NewTokens("someone-else", time.Hour).Issue(reg.UserID, "maldini")
	require.NoError(t, err)
	expired, err := middleware.NewTokens("test-secret", -time.Minute).Issue(reg.UserID, "maldini")
	require.NoError(t, err)

	for name, header := range map[string]string{
		"forged":  "Bearer " + forged,
		"expired": "Bearer " + expired,
		"garbage": "Bearer not.a.token",
		"scheme":  "Basic " + reg.Token,
		"missing": "",
	} {
		req := httptest.NewRequest(fiber.MethodGet, "/api/auth/me", nil)
		if header != "" {
			req.Header.Set(fiber.HeaderAuthorization, header)
		}
		var res result
		assert.Equal(t, fiber.StatusUnauthorized, s.do(t, req, &res), name)
		assert.False(t, res.Success, name)
	}
}

func countOf(list []string, want string) int {
	n := 0
	for _, s := range list {
		if s == want {
			n++
		}
	}
	return n
}
