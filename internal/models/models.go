// Package models defines the data structures that map to database tables.
// GORM uses these structs to generate SQL and map rows back to Go values.
//
// The data model is a FIFA-style roster manager:
//   - A Player is a real footballer; its Item is the rated card (ovr) for that player, one-to-one
//   - A User owns Teams; a Club row places an Item on a Team's roster
//   - A Match pits a home Team against an away Team
//   - TeamPlayer is a read-only row of the team_players view (Club ⋈ Item ⋈ Player)
//
// The JSON tags are the wire contract the web client already relies on, so column names
// (player_id, team_name, imagedir, ...) are used verbatim rather than Go-style names.
package models

// User is a registered account. Password holds a bcrypt hash, never the plaintext.
type User struct {
	ID       uint   `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	Username string `gorm:"uniqueIndex;not null;size:64" json:"username"`
	Password string `gorm:"not null" json:"-"`
}

func (User) TableName() string { return "users" }

// Player is a footballer's identity. Imagedir is the relative path (or URL) of their portrait.
type Player struct {
	ID          uint   `gorm:"column:player_id;primaryKey;autoIncrement" json:"player_id"`
	Name        string `gorm:"not null;size:100" json:"name"`
	Nationality string `gorm:"size:64" json:"nationality"`
	Position    string `gorm:"size:8" json:"position"`
	Imagedir    string `gorm:"column:imagedir;not null;default:''" json:"imagedir"`
}

func (Player) TableName() string { return "players" }

// Item is the rated card for a Player. One Item per Player.
type Item struct {
	ID       uint `gorm:"column:item_id;primaryKey;autoIncrement" json:"item_id"`
	Ovr      int  `gorm:"not null" json:"ovr"`
	PlayerID uint `gorm:"uniqueIndex;not null" json:"player_id"`
}

func (Item) TableName() string { return "items" }

// MinOvr and MaxOvr bound an Item's overall rating.
const (
	MinOvr = 0
	MaxOvr = 99
)

// Club links an Item to a Team's roster. The composite primary key stops the same
// card being added to one team twice; the same card may still sit on several teams.
type Club struct {
	ItemID uint `gorm:"primaryKey;autoIncrement:false" json:"item_id"`
	TeamID uint `gorm:"primaryKey;autoIncrement:false;index" json:"team_id"`
}

func (Club) TableName() string { return "clubs" }

// Team is a user's squad. AvgOvr is the mean ovr of the Items on its roster,
// kept current on roster changes and by the periodic refresher.
type Team struct {
	ID        uint    `gorm:"column:team_id;primaryKey;autoIncrement" json:"team_id"`
	TeamName  string  `gorm:"not null;size:100" json:"team_name"`
	Formation string  `gorm:"size:16" json:"formation"`
	UserID    uint    `gorm:"not null;index" json:"user_id"`
	AvgOvr    float64 `gorm:"not null;default:0" json:"avg_ovr"`
}

func (Team) TableName() string { return "teams" }

// DefaultUserID is the owner assumed when a request does not name one.
// The web client is single-tenant and always acts as user 1.
const DefaultUserID uint = 1

// Match is a fixture between two teams. Home and away may be the same team.
type Match struct {
	ID         uint `gorm:"column:match_id;primaryKey;autoIncrement" json:"match_id"`
	HomeTeamID uint `gorm:"not null;index" json:"home_team_id"`
	AwayTeamID uint `gorm:"not null;index" json:"away_team_id"`
}

func (Match) TableName() string { return "matches" }

// --- Read rows ---
// These are never written; they are the shapes of joined SELECTs.

// PlayerCard is a Player joined with its Item. It is the row returned by the player
// listing, the single-player lookup, a team's roster, and the item catalog.
type PlayerCard struct {
	PlayerID    uint   `json:"player_id"`
	Name        string `json:"name"`
	Nationality string `json:"nationality"`
	Position    string `json:"position"`
	Imagedir    string `json:"imagedir"`
	ItemID      uint   `json:"item_id"`
	Ovr         int    `json:"ovr"`
}

// TeamPlayer is one row of the team_players view: a PlayerCard plus the team it plays for.
type TeamPlayer struct {
	TeamID      uint   `json:"team_id"`
	PlayerID    uint   `json:"player_id"`
	Name        string `json:"name"`
	Nationality string `json:"nationality"`
	Position    string `json:"position"`
	Imagedir    string `json:"imagedir"`
	ItemID      uint   `json:"item_id"`
	Ovr         int    `json:"ovr"`
}

func (TeamPlayer) TableName() string { return "team_players" }

// MatchSummary is a Match with both team names resolved.
type MatchSummary struct {
	MatchID      uint   `json:"match_id"`
	HomeTeamID   uint   `json:"home_team_id"`
	AwayTeamID   uint   `json:"away_team_id"`
	HomeTeamName string `json:"home_team_name"`
	AwayTeamName string `json:"away_team_name"`
}

// MatchRoster is the combined lineup for a match: both team ids and every card on
// either roster, highest ovr first.
type MatchRoster struct {
	HomeTeamID uint         `json:"home_team_id"`
	AwayTeamID uint         `json:"away_team_id"`
	Players    []TeamPlayer `json:"players"`
}
