// Package metrics counts what a rating pass did and writes the counters in
// the Prometheus text format, for a node-exporter textfile collector to pick
// up after a batch run.
package metrics

import (
	"errors"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pable/fgc-elo/internal/model"
	"github.com/pable/fgc-elo/internal/rating"
)

const namespace = "fgcelo"

// Pass collects the counters of one pass. It satisfies aggregator.Observer.
type Pass struct {
	reg *prometheus.Registry

	applied     prometheus.Counter
	skipped     *prometheus.CounterVec
	delta       prometheus.Histogram
	snapshots   *prometheus.CounterVec
	issues      *prometheus.CounterVec
	players     prometheus.Gauge
	completedAt prometheus.Gauge
}

// NewPass registers the pass collectors on a fresh registry.
func NewPass() *Pass {
	p := &Pass{
		reg: prometheus.NewRegistry(),
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_applied_total",
			Help:      "Matches folded into the rating state.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_skipped_total",
			Help:      "Matches that never reached the update rule, by reason.",
		}, []string{"reason"}),
		delta: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rating_change_abs",
			Help:      "Absolute rating change per rated match side.",
			Buckets:   []float64{1, 2, 4, 8, 12, 16, 24, 32, 48},
		}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Pre-event snapshots emitted, by provisional status.",
		}, []string{"provisional"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_total",
			Help:      "Data-validation issues reported, by kind.",
		}, []string{"kind"}),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rated_players",
			Help:      "Players with a rating at the end of the pass.",
		}),
		completedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_completed_timestamp_seconds",
			Help:      "Unix time the last pass finished.",
		}),
	}
	p.reg.MustRegister(p.applied, p.skipped, p.delta, p.snapshots, p.issues, p.players, p.completedAt)
	return p
}

// Registry exposes the underlying registry, e.g. for tests.
func (p *Pass) Registry() *prometheus.Registry { return p.reg }

// MatchApplied implements aggregator.Observer.
func (p *Pass) MatchApplied(u rating.Update) {
	p.applied.Inc()
	if !u.Rated {
		return
	}
	p.delta.Observe(math.Abs(u.A.After.Rating - u.A.Before.Rating))
	p.delta.Observe(math.Abs(u.B.After.Rating - u.B.Before.Rating))
}

// MatchSkipped implements aggregator.Observer.
func (p *Pass) MatchSkipped(_ model.Match, err error) {
	reason := "malformed"
	if errors.Is(err, rating.ErrStreamHalted) {
		reason = "halted"
	}
	p.skipped.WithLabelValues(reason).Inc()
}

// SnapshotEmitted implements aggregator.Observer.
func (p *Pass) SnapshotEmitted(s model.RatingSnapshot) {
	label := "false"
	if s.IsProvisional {
		label = "true"
	}
	p.snapshots.WithLabelValues(label).Inc()
}

// Finish records end-of-pass totals.
func (p *Pass) Finish(issues []model.Issue, players int, at time.Time) {
	for _, is := range issues {
		p.issues.WithLabelValues(string(is.Kind)).Inc()
	}
	p.players.Set(float64(players))
	p.completedAt.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes the registry to path.
func (p *Pass) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.reg)
}
