// Package jobs runs background maintenance on a schedule.
// Right now there is one job: recomputing every team's avg_ovr. Roster writes already keep
// the average current, so the job only repairs drift from rows edited outside the API.
package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RatingStore is the store method the refresher calls.
type RatingStore interface {
	RefreshTeamRatings(ctx context.Context) (int64, error)
}

// RatingRefresher owns the scheduler that runs the team rating job.
type RatingRefresher struct {
	sched gocron.Scheduler
}

// NewRatingRefresher schedules store.RefreshTeamRatings every interval, starting immediately.
// timeout bounds each run. Runs never overlap: a run still going when the next is due
// pushes that one back.
func NewRatingRefresher(store RatingStore, interval, timeout time.Duration, clock clockwork.Clock) (*RatingRefresher, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := clock.Now()
			n, err := store.RefreshTeamRatings(ctx)
			if err != nil {
				log.Error().Err(err).Msg("team rating refresh failed")
				return
			}
			log.Debug().Int64("teams", n).Dur("took", clock.Since(start)).Msg("team ratings refreshed")
		}),
		gocron.WithName("refresh-team-ratings"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	return &RatingRefresher{sched: sched}, nil
}

// Start begins running the job in the background.
func (r *RatingRefresher) Start() {
	r.sched.Start()
}

// Shutdown stops scheduling and waits for a running refresh to finish.
func (r *RatingRefresher) Shutdown() error {
	return r.sched.Shutdown()
}
