package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the drill's Prometheus collectors.
type Metrics struct {
	QuestionsGenerated *prometheus.CounterVec
	GeneratorRerolls   *prometheus.CounterVec
	AnswersRecorded    *prometheus.CounterVec
	ScoresReset        prometheus.Counter
	StoreErrors        *prometheus.CounterVec
	ActiveConnections  prometheus.Gauge
}

// NewMetrics registers collectors with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers collectors with registry; tests pass a fresh prometheus.NewRegistry().
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		QuestionsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipormac_questions_generated_total",
				Help: "Questions generated, by address type",
			},
			[]string{"type"},
		),
		GeneratorRerolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipormac_generator_rerolls_total",
				Help: "Tokens regenerated because they collided with another family",
			},
			[]string{"type"},
		),
		AnswersRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipormac_answers_recorded_total",
				Help: "Answers recorded, by address type and outcome",
			},
			[]string{"type", "outcome"},
		),
		ScoresReset: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ipormac_scores_reset_total",
				Help: "Score histories reset by learners",
			},
		),
		StoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipormac_store_errors_total",
				Help: "Score store failures, by operation",
			},
			[]string{"op"},
		),
		ActiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ipormac_ws_connections",
				Help: "Open drill websocket connections",
			},
		),
	}

	registry.MustRegister(
		m.QuestionsGenerated,
		m.GeneratorRerolls,
		m.AnswersRecorded,
		m.ScoresReset,
		m.StoreErrors,
		m.ActiveConnections,
	)
	return m
}

// ObserveQuestion counts one generated question.
func (m *Metrics) ObserveQuestion(addressType string) {
	if m == nil {
		return
	}
	m.QuestionsGenerated.WithLabelValues(addressType).Inc()
}

// ObserveReroll counts one generator reroll.
func (m *Metrics) ObserveReroll(addressType string) {
	if m == nil {
		return
	}
	m.GeneratorRerolls.WithLabelValues(addressType).Inc()
}

// ObserveAnswer counts one recorded answer.
func (m *Metrics) ObserveAnswer(addressType string, correct bool) {
	if m == nil {
		return
	}
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	m.AnswersRecorded.WithLabelValues(addressType, outcome).Inc()
}

// ObserveReset counts one score reset.
func (m *Metrics) ObserveReset() {
	if m == nil {
		return
	}
	m.ScoresReset.Inc()
}

// ObserveStoreError counts one failed store operation.
func (m *Metrics) ObserveStoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}

// ConnectionOpened tracks a new drill websocket.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

// ConnectionClosed tracks a closed drill websocket.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}
