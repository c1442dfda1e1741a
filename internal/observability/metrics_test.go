package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ChatTurn("greeting")
	m.ChatTurn("greeting")
	m.IntentAnalyzed("heuristic")
	m.SearchStrategyHit("brand_and_type")
	m.Comparison("validation_error")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chatTurns.WithLabelValues("greeting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.intentSource.WithLabelValues("heuristic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchStrategy.WithLabelValues("brand_and_type")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.comparisons.WithLabelValues("validation_error")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ChatTurn("product")
		m.IntentAnalyzed("ai")
		m.SearchStrategyHit("flexible")
		m.Comparison("ok")
		m.GeneratorCall("gemini", errors.New("boom"), time.Second)
		m.HTTPRequest("GET", "/health", 200, time.Millisecond)
	})
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}

func TestClassifyStatus(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		204: "2xx",
		302: "3xx",
		404: "4xx",
		502: "5xx",
		42:  "unknown",
	}
	for code, want := range tests {
		assert.Equal(t, want, classifyStatus(code), "status %d", code)
	}
}
