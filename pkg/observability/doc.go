/*
Package observability turns engine lifecycle hooks into logs and Prometheus
metrics.

Hooks from several sources are combined with Chain and passed to an engine
with engine.WithLifecycleHooks:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Chain(metrics.Hooks(), observability.LogHooks(logger))
	eng := engine.NewDependency(g, engine.WithLifecycleHooks(hooks))
*/
package observability
