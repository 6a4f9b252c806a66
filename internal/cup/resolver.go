package cup

import (
	"context"
	"time"

	"github.com/inseasoncup/cup-server/internal/nhl"
)

const dateLayout = "2006-01-02"

// Resolver finds the tracked team's game id in the upstream schedule.
// Candidate dates are "today" then "yesterday" in the cup's local timezone,
// which tolerates clock skew between the scheduler trigger and the sports
// calendar around local midnight.
type Resolver struct {
	api *nhl.Client
	loc *time.Location
	now func() time.Time
}

func NewResolver(api *nhl.Client, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{api: api, loc: loc, now: time.Now}
}

// CandidateDates returns the ordered dates to try, formatted for the
// schedule endpoint.
func (r *Resolver) CandidateDates() []string {
	local := r.now().In(r.loc)
	return []string{
		local.Format(dateLayout),
		local.AddDate(0, 0, -1).Format(dateLayout),
	}
}

// ResolveGameID returns the id of team's game on the first candidate date
// that has one, plus the matched date. A zero id with nil error means no
// game was found, which is not an error.
func (r *Resolver) ResolveGameID(ctx context.Context, team string) (int64, string, error) {
	for _, date := range r.CandidateDates() {
		id, err := r.findOnDate(ctx, team, date)
		if err != nil {
			return 0, "", err
		}
		if id != 0 {
			return id, date, nil
		}
	}
	return 0, "", nil
}

// FindOnDate scans the schedule for one date only. The /champion read path
// uses this for its today-only refresh.
func (r *Resolver) FindOnDate(ctx context.Context, team, date string) (int64, error) {
	return r.findOnDate(ctx, team, date)
}

func (r *Resolver) findOnDate(ctx context.Context, team, date string) (int64, error) {
	sched, err := r.api.Schedule(ctx, date)
	if err != nil {
		return 0, err
	}
	for _, day := range sched.GameWeek {
		if day.Date != date {
			continue
		}
		for _, g := range day.Games {
			if g.HomeTeam.Abbrev == team || g.AwayTeam.Abbrev == team {
				return g.ID, nil
			}
		}
	}
	return 0, nil
}
