package api

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type moveRequestMetrics struct {
	logger       *log.Logger
	route        string
	start        time.Time
	authDuration time.Duration
	moveDuration time.Duration
	retries      int
	noOp         bool
	errorStage   string
}

func newMoveRequestMetrics(logger *log.Logger, route string) *moveRequestMetrics {
	return &moveRequestMetrics{
		logger: logger,
		route:  route,
		start:  time.Now(),
	}
}

func (m *moveRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *moveRequestMetrics) ObserveMove(duration time.Duration, retries int) {
	if duration > 0 {
		m.moveDuration = duration
	}
	if retries > 0 {
		m.retries = retries
	}
}

func (m *moveRequestMetrics) SetNoOp(noOp bool) {
	m.noOp = noOp
}

func (m *moveRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *moveRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":    m.route,
		"status":   status,
		"total_ms": durationToMillis(time.Since(m.start)),
		"retries":  m.retries,
		"no_op":    m.noOp,
	}

	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.moveDuration > 0 {
		fields["move_ms"] = durationToMillis(m.moveDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("move.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
