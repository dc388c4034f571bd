package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the identity core.
type Metrics struct {
	Logins             *prometheus.CounterVec
	Signups            *prometheus.CounterVec
	PhoneVerifications *prometheus.CounterVec
	TokenReissues      *prometheus.CounterVec
	Withdrawals        prometheus.Counter
	UnlinkFailures     *prometheus.CounterVec
	MailboxScanSeconds prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petmily_logins_total",
			Help: "Login attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		Signups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petmily_signups_total",
			Help: "Completed signups by provider",
		}, []string{"provider"}),
		PhoneVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petmily_phone_verifications_total",
			Help: "Phone verification attempts by result",
		}, []string{"result"}),
		TokenReissues: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petmily_token_reissues_total",
			Help: "Access token reissue attempts by result",
		}, []string{"result"}),
		Withdrawals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petmily_withdrawals_total",
			Help: "Completed member withdrawals",
		}),
		UnlinkFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petmily_provider_unlink_failures_total",
			Help: "Best-effort provider unlink calls that did not succeed",
		}, []string{"provider"}),
		MailboxScanSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "petmily_mailbox_scan_duration_seconds",
			Help:    "Latency of mailbox verification scans",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
