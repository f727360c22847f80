// Package metrics provides Prometheus metrics for the dubbing pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// taskTotal records pipeline task outcomes.
	// Labels:
	//   - kind: Task kind (e.g., "transcribe", "replace", "tts", "courseware")
	//   - status: Terminal status ("completed" or "failed")
	taskTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revoice_tasks_total",
			Help: "Total number of pipeline tasks by kind and terminal status",
		},
		[]string{"kind", "status"},
	)

	// taskDuration records wall-clock task processing time.
	// Buckets: 0.1s to 5 minutes
	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "revoice_task_duration_seconds",
			Help:    "Duration of pipeline task processing in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"kind"},
	)

	// synthesisSeconds records seconds of audio produced per engine.
	synthesisSeconds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revoice_synthesized_audio_seconds_total",
			Help: "Total seconds of audio produced by synthesis engines",
		},
		[]string{"engine"},
	)

	// voiceQuality observes quality scores of processed voice samples.
	voiceQuality = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "revoice_voice_quality_score",
			Help:    "Quality scores of processed voice samples",
			Buckets: prometheus.LinearBuckets(0, 0.1, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(taskTotal)
	prometheus.MustRegister(taskDuration)
	prometheus.MustRegister(synthesisSeconds)
	prometheus.MustRegister(voiceQuality)
}

// RecordTask records a task reaching a terminal status.
func RecordTask(kind, status string) {
	taskTotal.WithLabelValues(kind, status).Inc()
}

// RecordTaskDuration records how long a task took to process.
func RecordTaskDuration(kind string, seconds float64) {
	taskDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordSynthesis records seconds of audio produced by an engine.
func RecordSynthesis(engine string, seconds float64) {
	synthesisSeconds.WithLabelValues(engine).Add(seconds)
}

// RecordVoiceQuality records the quality score of a processed voice sample.
func RecordVoiceQuality(score float64) {
	voiceQuality.Observe(score)
}
