package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptobazaar_settlements_total",
		Help: "Settlement outcomes by terminal status.",
	}, []string{"status"})

	WebhookRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cryptobazaar_webhook_rejected_total",
		Help: "Webhook deliveries rejected before settlement.",
	}, []string{"reason"})

	TransferSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cryptobazaar_chain_transfer_seconds",
		Help:    "Wall time of on-chain release transfers.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
