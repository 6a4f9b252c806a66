package nhl

// Upstream shapes from api-web.nhle.com. Only the fields the cup cares
// about are declared; BoxscoreRaw carries the full payload for live
// subscribers.

type ScheduleResponse struct {
	GameWeek []ScheduleDay `json:"gameWeek"`
}

type ScheduleDay struct {
	Date  string          `json:"date"`
	Games []ScheduledGame `json:"games"`
}

type ScheduledGame struct {
	ID       int64        `json:"id"`
	HomeTeam ScheduleTeam `json:"homeTeam"`
	AwayTeam ScheduleTeam `json:"awayTeam"`
}

type ScheduleTeam struct {
	Abbrev string `json:"abbrev"`
}

type GameBoxscore struct {
	ID        int64        `json:"id"`
	GameState string       `json:"gameState"`
	GameType  int          `json:"gameType"`
	HomeTeam  BoxscoreTeam `json:"homeTeam"`
	AwayTeam  BoxscoreTeam `json:"awayTeam"`
}

type BoxscoreTeam struct {
	Abbrev string `json:"abbrev"`
	Score  int    `json:"score"`
}

// GameTypeRegular is the upstream competition-type value for regular
// season play. 1 is preseason, 3 playoffs. A zero value means the field
// was absent from the payload.
const GameTypeRegular = 2

// Boxscore is the normalized shape consumed by the settlement engine.
type Boxscore struct {
	GameState  string
	GameType   int
	HomeAbbrev string
	AwayAbbrev string
	HomeScore  int
	AwayScore  int
}

// Normalize flattens the upstream boxscore into the fixed engine shape.
func (g *GameBoxscore) Normalize() Boxscore {
	return Boxscore{
		GameState:  g.GameState,
		GameType:   g.GameType,
		HomeAbbrev: g.HomeTeam.Abbrev,
		AwayAbbrev: g.AwayTeam.Abbrev,
		HomeScore:  g.HomeTeam.Score,
		AwayScore:  g.AwayTeam.Score,
	}
}
