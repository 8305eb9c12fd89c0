package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeCacheHit = "cache_hit"
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeDenied   = "denied"
)

var (
	locationsDesc = prometheus.NewDesc(
		"shopmap_locations",
		"Current number of locations by category and status",
		[]string{"category", "status"},
		nil,
	)

	transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopmap_transitions_total",
		Help: "Moderation transitions by action and outcome",
	}, []string{"action", "outcome"})

	admissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopmap_admissions_total",
		Help: "Geofence admission checks by outcome",
	}, []string{"outcome"})

	geocodeLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopmap_geocode_lookups_total",
		Help: "Reverse geocode lookups by outcome",
	}, []string{"outcome"})

	liveSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shopmap_live_subscribers",
		Help: "Open live snapshot subscriptions",
	})
)

// StatusCount is one row of the per-category, per-status breakdown.
type StatusCount struct {
	Category string
	Status   string
	Count    int
}

// StatusSource reads the current location counts.
type StatusSource interface {
	CountLocationsByStatus(ctx context.Context) ([]StatusCount, error)
}

// StatusCollector is a custom Prometheus collector that reads location counts
// from the database on each scrape.
type StatusCollector struct {
	source  StatusSource
	timeout time.Duration
}

// NewStatusCollector creates a collector backed by source.
func NewStatusCollector(source StatusSource) *StatusCollector {
	return &StatusCollector{source: source, timeout: 5 * time.Second}
}

// Describe sends the metric descriptor to the channel.
func (c *StatusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- locationsDesc
}

// Collect queries the counts and emits them as gauges.
func (c *StatusCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	counts, err := c.source.CountLocationsByStatus(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to collect location metrics")
		return
	}
	for _, sc := range counts {
		ch <- prometheus.MustNewConstMetric(
			locationsDesc,
			prometheus.GaugeValue,
			float64(sc.Count),
			sc.Category,
			sc.Status,
		)
	}
}

var initOnce sync.Once

// Init registers the collectors with the default registry.
// Must be called once at startup.
func Init(source StatusSource) {
	initOnce.Do(func() {
		prometheus.MustRegister(
			NewStatusCollector(source),
			transitions,
			admissions,
			geocodeLookups,
			liveSubscribers,
		)
	})
}

// RecordTransition counts a moderation action.
func RecordTransition(action, outcome string) {
	transitions.WithLabelValues(action, outcome).Inc()
}

// RecordAdmission counts a geofence check.
func RecordAdmission(accepted bool) {
	if accepted {
		admissions.WithLabelValues(OutcomeAccepted).Inc()
		return
	}
	admissions.WithLabelValues(OutcomeRejected).Inc()
}

// RecordGeocodeLookup counts a reverse geocode lookup.
func RecordGeocodeLookup(outcome string) {
	geocodeLookups.WithLabelValues(outcome).Inc()
}

// SubscriberOpened and SubscriberClosed track live subscriptions.
func SubscriberOpened() { liveSubscribers.Inc() }

func SubscriberClosed() { liveSubscribers.Dec() }
