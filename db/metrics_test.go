package db

import (
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "ok", want: outcomeOK},
		{name: "no rows", err: errors.WithStack(pgx.ErrNoRows), want: outcomeMiss},
		{name: "failure", err: errors.New("connection reset"), want: outcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			operation := "TestMetricOutcome/" + tt.name
			StartMetric("test", operation).Complete(tt.err)

			got := promtest.ToFloat64(queries.WithLabelValues("test", operation, tt.want))
			if got != 1 {
				t.Errorf("unexpected %s count got=%v want=1", tt.want, got)
			}
		})
	}
}
