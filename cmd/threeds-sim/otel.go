package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	goThreeDS "github.com/MrEthical07/goThreeDS"
	threedsotel "github.com/MrEthical07/goThreeDS/metrics/export/otel"
)

// collectOTel reads the session's metrics once through an OpenTelemetry
// meter backed by a manual reader.
func collectOTel(ctx context.Context, session *goThreeDS.Session) (map[string]int64, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(ctx)

	exporter, err := threedsotel.NewOTelExporter(provider.Meter("threeds-sim"), session)
	if err != nil {
		return nil, err
	}
	defer exporter.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect otel metrics: %w", err)
	}

	values := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] += dp.Value
				}
			}
		}
	}
	return values, nil
}

func printOTel(w io.Writer, values map[string]int64) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "otel %s %d\n", name, values[name])
	}
}
