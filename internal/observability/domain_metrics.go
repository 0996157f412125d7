package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	filesParsedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tableask_files_parsed_total",
			Help: "Total number of uploaded files parsed successfully.",
		},
	)
	fileParseFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tableask_file_parse_failures_total",
			Help: "Total number of uploaded files rejected by the schema extractor.",
		},
	)
	relationLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tableask_relation_loads_total",
			Help: "Total number of relation load attempts by outcome.",
		},
		[]string{"outcome"},
	)
	generationLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tableask_generation_latency_seconds",
			Help:    "Remote query generation latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tableask_generations_total",
			Help: "Total number of query generation attempts by outcome.",
		},
		[]string{"outcome"},
	)
	ambiguousOutputsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tableask_ambiguous_outputs_total",
			Help: "Total number of generated responses that needed the fail-open fallback parse.",
		},
	)
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tableask_executions_total",
			Help: "Total number of statement executions by outcome.",
		},
		[]string{"outcome"},
	)
	reloadRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tableask_reload_retries_total",
			Help: "Total number of automatic relation re-load retries on the ephemeral target.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		filesParsedTotal,
		fileParseFailuresTotal,
		relationLoadsTotal,
		generationLatencySeconds,
		generationsTotal,
		ambiguousOutputsTotal,
		executionsTotal,
		reloadRetriesTotal,
	)
}

func ObserveFileParsed(err error) {
	if err != nil {
		fileParseFailuresTotal.Inc()
		return
	}
	filesParsedTotal.Inc()
}

func ObserveRelationLoad(err error) {
	relationLoadsTotal.WithLabelValues(outcome(err)).Inc()
}

func ObserveGeneration(elapsed time.Duration, err error, ambiguous bool) {
	generationLatencySeconds.Observe(elapsed.Seconds())
	generationsTotal.WithLabelValues(outcome(err)).Inc()
	if ambiguous {
		ambiguousOutputsTotal.Inc()
	}
}

func ObserveExecution(err error, retried bool) {
	executionsTotal.WithLabelValues(outcome(err)).Inc()
	if retried {
		reloadRetriesTotal.Inc()
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
