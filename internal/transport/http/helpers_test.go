package http

import (
	"testing"
	"time"

	"ipormac/internal/app"
	"ipormac/internal/domain"
	"ipormac/internal/infra/memory"
)

// fixedSource always issues the same labelled token.
type fixedSource struct {
	generated domain.GeneratedAddress
}

func (f fixedSource) Generate() domain.GeneratedAddress { return f.generated }

func newTestService(t *testing.T, generated domain.GeneratedAddress) *app.DrillService {
	t.Helper()
	sites := app.NewSites(nil)
	managers := app.NewManagers(memory.NewScoreStores().Open, sites)
	return app.NewDrillService(memory.NewSessionStore(time.Minute), fixedSource{generated: generated}, managers, sites)
}
