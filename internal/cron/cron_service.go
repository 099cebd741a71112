package cron

import (
	"context"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/state"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/usecase"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/mileusna/crontab"
)

type CronService struct {
	facade *usecase.TileDeliveryFacade
	mru    *usecase.MRUList
	state  state.Store
	logger logger.Logger
}

func NewService(f *usecase.TileDeliveryFacade, mru *usecase.MRUList, s state.Store, l logger.Logger) *CronService {
	return &CronService{
		facade: f,
		mru:    mru,
		state:  s,
		logger: l,
	}
}

// Start registers the periodic jobs: saving the recent sources list on schedule
// and logging cache statistics every minute.
func (cs *CronService) Start(ctx context.Context, ctab *crontab.Crontab, schedule string) error {
	if err := ctab.AddJob(schedule, func() {
		cs.saveRecentSources(ctx)
	}); err != nil {
		return err
	}

	return ctab.AddJob("* * * * *", cs.logStats)
}

func (cs *CronService) saveRecentSources(ctx context.Context) {
	if err := cs.mru.Save(ctx, cs.state); err != nil {
		cs.logger.Warn("cron: unable to save recent sources", "error", err)
	}
}

func (cs *CronService) logStats() {
	st := cs.facade.Status()
	cs.logger.Info("tile engine stats",
		"source", st.Source,
		"pending", st.Pending,
		"cache_entries", st.Cache.Entries,
		"cache_bytes", st.Cache.Bytes,
		"cache_hits", st.Cache.Hits,
		"cache_misses", st.Cache.Misses,
		"failures", st.Failures,
	)
}
