package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apsar_notifications_delivered_total",
		Help: "Notifications delivered, by channel.",
	}, []string{"channel"})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apsar_notifications_dropped_total",
		Help: "Messages dropped because the dispatch queue was full.",
	})

	failedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apsar_notification_failures_total",
		Help: "Delivery failures, by stage.",
	}, []string{"stage"})
)
