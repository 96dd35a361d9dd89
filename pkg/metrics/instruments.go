package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instruments bundles the engine's metrics. A nil *Instruments disables
// instrumentation: every recording method is a no-op, so callers never
// need to branch.
type Instruments struct {
	// FunctionCalls counts dispatched function calls by definition name.
	FunctionCalls *prometheus.CounterVec

	// FetcherInvocations counts resolved fetcher invocations by fetcher
	// name.
	FetcherInvocations *prometheus.CounterVec

	// ConfigurationRenders counts GetAndRender calls on workspace
	// contexts.
	ConfigurationRenders prometheus.Counter

	// RenderDuration samples the wall-clock duration of rendering
	// operations, fetcher invocations included.
	RenderDuration prometheus.Histogram

	// ModuleLoads counts loaded modules by identifier.
	ModuleLoads *prometheus.CounterVec
}

// NewInstruments creates and registers the engine's instruments on the
// given registry. Pass an instance-based registry (prometheus.NewRegistry()),
// never the global one.
func NewInstruments(registry prometheus.Registerer) *Instruments {
	return &Instruments{
		FunctionCalls: NewCounterVec(registry,
			"workspace_function_calls_total",
			"Total function calls dispatched through the registry, by definition.",
			[]string{"definition"}),
		FetcherInvocations: NewCounterVec(registry,
			"workspace_fetcher_invocations_total",
			"Total template fetcher invocations, by fetcher.",
			[]string{"fetcher"}),
		ConfigurationRenders: NewCounter(registry,
			"workspace_configuration_renders_total",
			"Total configuration rendering operations."),
		RenderDuration: NewHistogram(registry,
			"workspace_configuration_render_duration_seconds",
			"Duration of configuration rendering operations in seconds."),
		ModuleLoads: NewCounterVec(registry,
			"workspace_module_loads_total",
			"Total module loads, by module.",
			[]string{"module"}),
	}
}

// RecordFunctionCall records one dispatched call of the named definition.
func (i *Instruments) RecordFunctionCall(definition string) {
	if i == nil {
		return
	}
	i.FunctionCalls.WithLabelValues(definition).Inc()
}

// RecordFetcherInvocation records one invocation of the named fetcher.
func (i *Instruments) RecordFetcherInvocation(fetcher string) {
	if i == nil {
		return
	}
	i.FetcherInvocations.WithLabelValues(fetcher).Inc()
}

// RecordConfigurationRender records one rendering operation.
func (i *Instruments) RecordConfigurationRender() {
	if i == nil {
		return
	}
	i.ConfigurationRenders.Inc()
}

// ObserveRenderDuration records how long a rendering operation took.
func (i *Instruments) ObserveRenderDuration(d time.Duration) {
	if i == nil {
		return
	}
	i.RenderDuration.Observe(d.Seconds())
}

// RecordModuleLoad records one load of the named module.
func (i *Instruments) RecordModuleLoad(module string) {
	if i == nil {
		return
	}
	i.ModuleLoads.WithLabelValues(module).Inc()
}
