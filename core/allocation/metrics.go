package allocation

import "github.com/prometheus/client_golang/prometheus"

var notificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "allocation_index_notification_failures_total",
	Help: "Index update notifications that could not be enqueued",
})

func init() {
	prometheus.MustRegister(notificationFailures)
}
