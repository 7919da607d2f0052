package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"org-lifecycle/internal/model"
)

// Recorder receives workflow and cleanup outcomes.
type Recorder interface {
	RequestCreated(kind model.RequestKind)
	RequestTransitioned(kind model.RequestKind, to model.RequestStatus)
	TransitionConflict(kind model.RequestKind)
	CleanupRun(report model.CleanupReport, err error)
}

type Nop struct{}

func (Nop) RequestCreated(model.RequestKind)                           {}
func (Nop) RequestTransitioned(model.RequestKind, model.RequestStatus) {}
func (Nop) TransitionConflict(model.RequestKind)                       {}
func (Nop) CleanupRun(model.CleanupReport, error)                      {}

type Prometheus struct {
	requestsCreated      *prometheus.CounterVec
	requestTransitions   *prometheus.CounterVec
	transitionConflicts  *prometheus.CounterVec
	cleanupRuns          *prometheus.CounterVec
	organizationsPurged  prometheus.Counter
	organizationFailures prometheus.Counter
	cleanupDuration      prometheus.Histogram
	cleanupLastSuccess   prometheus.Gauge
}

func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		requestsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifecycle_requests_created_total",
				Help: "Total number of approval requests filed",
			},
			[]string{"kind"},
		),
		requestTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifecycle_request_transitions_total",
				Help: "Total number of approval requests moved out of pending",
			},
			[]string{"kind", "status"},
		),
		transitionConflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifecycle_transition_conflicts_total",
				Help: "Transitions rejected because the request was missing or already processed",
			},
			[]string{"kind"},
		),
		cleanupRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifecycle_cleanup_runs_total",
				Help: "Archive cleanup runs by outcome",
			},
			[]string{"outcome"},
		),
		organizationsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "lifecycle_organizations_purged_total",
			Help: "Archived organizations permanently removed",
		}),
		organizationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "lifecycle_organization_purge_failures_total",
			Help: "Organizations whose cascade was rolled back",
		}),
		cleanupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lifecycle_cleanup_duration_seconds",
			Help:    "Duration of archive cleanup runs",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30, 60, 300},
		}),
		cleanupLastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lifecycle_cleanup_last_success_timestamp_seconds",
			Help: "Unix time of the last cleanup run that completed selection",
		}),
	}
}

func (p *Prometheus) RequestCreated(kind model.RequestKind) {
	p.requestsCreated.WithLabelValues(string(kind)).Inc()
}

func (p *Prometheus) RequestTransitioned(kind model.RequestKind, to model.RequestStatus) {
	p.requestTransitions.WithLabelValues(string(kind), string(to)).Inc()
}

func (p *Prometheus) TransitionConflict(kind model.RequestKind) {
	p.transitionConflicts.WithLabelValues(string(kind)).Inc()
}

func (p *Prometheus) CleanupRun(report model.CleanupReport, err error) {
	if err != nil {
		p.cleanupRuns.WithLabelValues("error").Inc()
		return
	}

	outcome := "ok"
	if len(report.Failed) > 0 {
		outcome = "partial"
	}
	p.cleanupRuns.WithLabelValues(outcome).Inc()
	p.organizationsPurged.Add(float64(report.Processed))
	p.organizationFailures.Add(float64(len(report.Failed)))
	if !report.FinishedAt.IsZero() {
		p.cleanupDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
		p.cleanupLastSuccess.Set(float64(report.FinishedAt.Unix()))
	}
}
