package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersRegistered prometheus.Counter
	Logins          *prometheus.CounterVec
	FilesStored     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "iaset_users_registered_total",
			Help: "Total number of users registered in the system",
		}),
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iaset_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		FilesStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "iaset_files_stored_total",
			Help: "Documents persisted by category",
		}, []string{"category"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iaset_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// IncrementUsersRegistered increments the registered-users counter by 1.
func (m *Metrics) IncrementUsersRegistered() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
}

// IncrementLogins records a login attempt outcome ("success", "failure", "forbidden").
func (m *Metrics) IncrementLogins(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

// IncrementFilesStored records a persisted document by category.
func (m *Metrics) IncrementFilesStored(category string) {
	if m == nil {
		return
	}
	m.FilesStored.WithLabelValues(category).Inc()
}

// ObserveRequestDuration records request latency for a route pattern.
func (m *Metrics) ObserveRequestDuration(route string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
