/*
Package observability turns interpreter lifecycle events into Prometheus metrics
and structured log lines.

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := domain.MergeHooks(metrics.Hooks(), observability.LoggingHooks(logger))
	eng := roboflow.New(device, roboflow.WithLifecycleHooks(hooks))
*/
package observability
