package handlers

import (
	"net/http"
	"testing"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/services"
)

func TestActiveConfig(t *testing.T) {
	cfg := domain.MatchingConfig{ID: "cfg-1", IsActive: true, Strategy: domain.StrategyGeographic, MaxArtisansPerLead: 3}
	w := do(t, newTestRouter(New(nil, nil, nil, nil, &stubConfigs{cfg: cfg})), http.MethodGet, "/config", nil)
	body := decode[map[string]any](t, w)
	if w.Code != http.StatusOK || body["matching_strategy"] != "geographic" || body["max_artisans_per_lead"] != float64(3) {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}

	for err, status := range map[error]int{
		services.ErrConfigNotFound:  http.StatusNotFound,
		services.ErrInvalidStrategy: http.StatusConflict,
	} {
		w := do(t, newTestRouter(New(nil, nil, nil, nil, &stubConfigs{err: err})), http.MethodGet, "/config", nil)
		if w.Code != status {
			t.Fatalf("%v: status=%d want %d", err, w.Code, status)
		}
	}
}
