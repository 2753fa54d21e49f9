package inventory

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var commandCount = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "inventory_command_count",
		Help: "Number of inventory commands executed by event type and outcome",
	},
	[]string{"event", "outcome"},
)

func recordCommand(eventType EventType, err error) {
	outcome := "applied"
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientInventory):
		outcome = "insufficient"
	case errors.Is(err, ErrInvalidQuantity):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	commandCount.WithLabelValues(string(eventType), outcome).Inc()
}

func init() {
	prometheus.MustRegister(commandCount)
}
