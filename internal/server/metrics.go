package server

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes used as the "outcome" label.
const (
	outcomeAccepted = "accepted"
	outcomeInvalid  = "invalid"
	outcomeError    = "error"
)

// Metrics holds the collector's Prometheus instruments.
type Metrics struct {
	submissions   *prometheus.CounterVec
	scoreRequests prometheus.Counter
	topRoles      *prometheus.CounterVec
}

// NewMetrics registers the collector metrics with reg. Metrics that are
// already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmcheck",
			Name:      "submissions_total",
			Help:      "Result submissions received, by outcome.",
		}, []string{"outcome"}),
		scoreRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pharmcheck",
			Name:      "score_requests_total",
			Help:      "Stateless scoring requests served.",
		}),
		topRoles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pharmcheck",
			Name:      "top_role_total",
			Help:      "Accepted submissions by highest-scoring role.",
		}, []string{"role"}),
	}

	var err error
	if m.submissions, err = register(reg, m.submissions); err != nil {
		return nil, err
	}
	if m.scoreRequests, err = register(reg, m.scoreRequests); err != nil {
		return nil, err
	}
	if m.topRoles, err = register(reg, m.topRoles); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (m *Metrics) submission(outcome, topRole string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if outcome == outcomeAccepted && topRole != "" {
		m.topRoles.WithLabelValues(topRole).Inc()
	}
}

func (m *Metrics) scored() {
	if m == nil {
		return
	}
	m.scoreRequests.Inc()
}
