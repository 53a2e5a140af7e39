package driver

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/san-kum/flightsim/internal/driver"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
