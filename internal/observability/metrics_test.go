package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/tlmdecode/internal/assembler"
	"github.com/danmuck/tlmdecode/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("tlmdecode", "GET", "/health", 200, 12*time.Millisecond)
	RecordDecodeRun("beacon", 3*time.Millisecond, true)

	log.Debug().Msg("observability/metrics: registration idempotent and recording paths executed")
}

func TestInstrumentSinkCountsAndForwards(t *testing.T) {
	testlog.Start(t)
	var inner assembler.Collector
	s := InstrumentSink(&inner)

	msgs := decodedMessages.WithLabelValues("telemetry", "OBC_0")
	sigs := decodeSignals.WithLabelValues("telemetry", string(assembler.SignalChecksumInvalid))
	beforeMsgs, beforeSigs := counterValue(t, msgs), counterValue(t, sigs)

	d := assembler.Delivery{Pipeline: assembler.PipelineTelemetry}
	d.Message.TypeName = "OBC_0"
	if err := s.Message(d); err != nil {
		t.Fatalf("message: %v", err)
	}
	if err := s.Signal(assembler.Signal{Pipeline: assembler.PipelineTelemetry, Kind: assembler.SignalChecksumInvalid}); err != nil {
		t.Fatalf("signal: %v", err)
	}
	if got := counterValue(t, msgs) - beforeMsgs; got != 1 {
		t.Fatalf("messages delta=%v", got)
	}
	if got := counterValue(t, sigs) - beforeSigs; got != 1 {
		t.Fatalf("signals delta=%v", got)
	}
	if len(inner.Messages) != 1 || len(inner.Signals) != 1 {
		t.Fatalf("not forwarded: %+v", inner)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if id := w.Header().Get(RequestIDHeader); id == "" || id != w.Body.String() {
		t.Fatalf("generated id header=%q body=%q", id, w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc")
	r.ServeHTTP(w, req)
	if w.Body.String() != "abc" {
		t.Fatalf("inbound id not reused: %q", w.Body.String())
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
