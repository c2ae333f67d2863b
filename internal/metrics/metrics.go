package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_extractions_total",
			Help: "Total extraction runs by outcome",
		},
		[]string{"outcome"},
	)

	ItemsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_items_extracted_total",
			Help: "Total extracted items persisted",
		},
	)

	InjectionPatternsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_injection_patterns_total",
			Help: "Prompt-injection patterns detected in session content",
		},
		[]string{"pattern"},
	)

	GateFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_gate_failures_total",
			Help: "Quality gate batch failures by issue",
		},
		[]string{"issue"},
	)

	ReviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_reviews_total",
			Help: "Review transitions applied by resulting status",
		},
		[]string{"status"},
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "atlas_extraction_duration_seconds",
			Help: "Duration of a full session extraction",
		},
	)
)
