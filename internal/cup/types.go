package cup

import "time"

// GameOptions is the singleton record holding the current champion team and
// the game id being watched for completion. A zero GameID means no game is
// tracked.
type GameOptions struct {
	Champion  string    `json:"champion,omitempty"`
	GameID    int64     `json:"gameID,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// GameRecord is one settled game. Immutable once created; creation is
// guarded by a conditional write so a game settles at most once.
type GameRecord struct {
	ID      int64     `json:"id"`
	WTeam   string    `json:"wTeam"`
	WScore  int       `json:"wScore"`
	LTeam   string    `json:"lTeam"`
	LScore  int       `json:"lScore"`
	SavedAt time.Time `json:"savedAt"`
}

// Player is one cup participant and the teams they drafted.
type Player struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Teams          []string  `json:"teams,omitempty"`
	TitleDefenses  int       `json:"titleDefenses"`
	Championships  int       `json:"championships"`
	DaysAsChampion int       `json:"daysAsChampion"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TickResult reports the outcome of one settlement tick. Anomaly is set for
// non-fatal data gaps (a winning team with no recorded owner).
type TickResult struct {
	Message string `json:"message"`
	GameID  int64  `json:"gameID,omitempty"`
	Settled bool   `json:"settled,omitempty"`
	Winner  string `json:"winner,omitempty"`
	Anomaly string `json:"anomaly,omitempty"`
}
