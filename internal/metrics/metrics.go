package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Intake metrics
	NotesReceived   *prometheus.CounterVec
	NotesClassified *prometheus.CounterVec

	// Confirmation metrics
	Confirmations *prometheus.CounterVec

	// Classifier latency (LLM calls dominate the tail)
	ClassifyLatency prometheus.Histogram
}

var globalMetrics *Metrics

// Init initializes the Prometheus metrics
func Init() *Metrics {
	metrics := &Metrics{
		// Notes received by source (counter - only goes up)
		NotesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diane_notes_received_total",
			Help: "Total number of notes received by source",
		}, []string{"source"}), // telegram_text, telegram_voice, telegram_document, telegram_image, api

		// Classification outcomes by kind and rule
		NotesClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diane_notes_classified_total",
			Help: "Total number of notes classified by kind and rule",
		}, []string{"kind", "rule"}), // rule: "tag", "llm", "heuristic"

		// Confirmation resolutions
		Confirmations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "diane_confirmations_total",
			Help: "Total number of confirmation resolutions by outcome",
		}, []string{"outcome"}), // saved, cancelled, expired

		// Classification latency histogram
		ClassifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "diane_classify_duration_seconds",
			Help:    "Classification latency in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60}, // LLM calls can be slow
		}),
	}

	globalMetrics = metrics
	return metrics
}

// Get returns the global metrics instance
func Get() *Metrics {
	return globalMetrics
}

// RecordNoteReceived records an incoming note
func (m *Metrics) RecordNoteReceived(source string) {
	m.NotesReceived.WithLabelValues(source).Inc()
}

// RecordClassification records a classification outcome
func (m *Metrics) RecordClassification(kind, rule string) {
	m.NotesClassified.WithLabelValues(kind, rule).Inc()
}

// RecordConfirmation records a confirmation resolution
func (m *Metrics) RecordConfirmation(outcome string) {
	m.Confirmations.WithLabelValues(outcome).Inc()
}

// RecordClassifyLatency records classification latency
func (m *Metrics) RecordClassifyLatency(seconds float64) {
	m.ClassifyLatency.Observe(seconds)
}
