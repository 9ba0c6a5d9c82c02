package views

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var staleViewsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "festivo_stale_views",
	Help: "View documents older than the staleness threshold at last audit",
}, []string{"kind"})

// FreshnessAudit flags view documents whose rebuild timestamp is older than
// the threshold. Observability only: it reports, it does not self-heal.
func (e *Engine) FreshnessAudit(ctx context.Context, threshold time.Duration, limit int) ([]StaleView, error) {
	cutoff := e.now().UTC().Add(-threshold)
	stale, err := e.store.StaleViews(ctx, cutoff, limit)
	if err != nil {
		return nil, err
	}

	counts := map[string]float64{"client": 0, "supplier": 0}
	for _, sv := range stale {
		counts[sv.Kind]++
	}
	for kind, n := range counts {
		staleViewsGauge.WithLabelValues(kind).Set(n)
	}

	if len(stale) > 0 {
		log.Printf("[views] freshness audit: %d stale documents (threshold %s)", len(stale), threshold)
	}
	return stale, nil
}
