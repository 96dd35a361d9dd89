// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IMPORTANT: All functions in this file accept a prometheus.Registerer parameter.
// NEVER use global prometheus.DefaultRegisterer or prometheus.DefaultGatherer.
//
// This ensures metrics can be garbage collected when the registry is discarded,
// which matters for a library whose consumers create and drop contexts freely.

// NewCounter creates and registers a counter metric.
//
// A counter is a cumulative metric that represents a single monotonically
// increasing value. Use counters for values that only increase, such as
// the number of function calls or rendered templates.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	renders := metrics.NewCounter(registry, "configuration_renders_total", "Total configuration renders")
//	renders.Inc()
func NewCounter(registry prometheus.Registerer, name, help string) prometheus.Counter {
	return promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: help,
	})
}

// NewCounterVec creates and registers a counter vector with labels.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	calls := metrics.NewCounterVec(registry, "function_calls_total", "Function calls by definition", []string{"definition"})
//	calls.WithLabelValues("Build").Inc()
func NewCounterVec(registry prometheus.Registerer, name, help string, labels []string) *prometheus.CounterVec {
	return promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, labels)
}

// NewHistogram creates and registers a histogram metric with default buckets.
//
// A histogram samples observations (e.g., durations) and counts them in
// configurable buckets.
func NewHistogram(registry prometheus.Registerer, name, help string) prometheus.Histogram {
	return promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: prometheus.DefBuckets,
	})
}
