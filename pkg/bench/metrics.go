package bench

import (
	"sync"

	api "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	meterProviderMu sync.Mutex
	meterProvider   *sdkmetric.MeterProvider

	AcquireCount   api.Int64Counter
	ContendedCount api.Int64Counter
	FailedCount    api.Int64Counter
	AcquireLatency api.Float64Histogram
	HoldTime       api.Float64Histogram
)

func RegisterMeterProvider(mp *sdkmetric.MeterProvider) {
	meterProviderMu.Lock()
	defer meterProviderMu.Unlock()
	meterProvider = mp
	createMetrics()
}

func createMetrics() {
	meter := meterProvider.Meter("padlock_bench")
	acquireCount, err := meter.Int64Counter("padlock_acquire_count")
	if err != nil {
		panic(err)
	}
	contendedCount, err := meter.Int64Counter("padlock_contended_count")
	if err != nil {
		panic(err)
	}
	failedCount, err := meter.Int64Counter("padlock_failed_count")
	if err != nil {
		panic(err)
	}
	acquireLatency, err := meter.Float64Histogram("padlock_acquire_latency", api.WithUnit("ns"))
	if err != nil {
		panic(err)
	}
	holdTime, err := meter.Float64Histogram("padlock_hold_time", api.WithUnit("ns"))
	if err != nil {
		panic(err)
	}

	AcquireCount = acquireCount
	ContendedCount = contendedCount
	FailedCount = failedCount
	AcquireLatency = acquireLatency
	HoldTime = holdTime
}

func init() {
	meterProviderMu.Lock()
	defer meterProviderMu.Unlock()
	if meterProvider == nil {
		meterProvider = sdkmetric.NewMeterProvider()
	}
	createMetrics()
}
