package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/tlmdecode/internal/assembler"
	"github.com/danmuck/tlmdecode/internal/export"
	"github.com/danmuck/tlmdecode/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type decodeResponse struct {
	RequestID string          `json:"requestId"`
	Pipeline  string          `json:"pipeline"`
	Messages  []export.Record `json:"messages"`
	Signals   []export.Record `json:"signals"`
	State     string          `json:"state,omitempty"`
	Stats     any             `json:"stats,omitempty"`
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": "0.1.0",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	v1.GET("/beacons/state", s.beaconState)
	v1.POST("/beacons", s.decodeBeacons)
	v1.POST("/telemetry", s.decodeTelemetry)
}

func (s *Server) beaconState(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := gin.H{"state": s.beacons.State().String(), "containerSize": s.codec.Size()}
	if p, ok := s.beacons.Pending(); ok {
		body["pending"] = gin.H{
			"code":     p.TypeCode,
			"declared": p.Length,
			"have":     len(p.Payload),
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return body, true
}

// decodeBeacons takes a body of whole containers. ?reset=true drops any
// partial left over from an earlier request first.
func (s *Server) decodeBeacons(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty body"})
		return
	}
	reset, _ := strconv.ParseBool(c.Query("reset"))
	id := observability.RequestIDFrom(c)

	start := time.Now()
	var out assembler.Collector
	s.mu.Lock()
	if reset && s.beacons.Reset() {
		log.Info().Str("request_id", id).Msg("server.decodeBeacons dropped pending partial")
	}
	s.current.target = &out
	err := s.beacons.Run(c.Request.Context(), bytes.NewReader(body))
	s.current.target = nil
	state := s.beacons.State().String()
	s.mu.Unlock()
	observability.RecordDecodeRun(string(assembler.PipelineBeacon), time.Since(start), err == nil)

	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "requestId": id})
		return
	}
	resp := buildResponse(id, assembler.PipelineBeacon, &out)
	resp.State = state
	c.JSON(http.StatusOK, resp)
}

func (s *Server) decodeTelemetry(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	id := observability.RequestIDFrom(c)

	start := time.Now()
	var out assembler.Collector
	a := assembler.NewTelemetryAssembler(s.telemetry, observability.InstrumentSink(&out))
	sum, err := a.Run(c.Request.Context(), bytes.NewReader(body))
	observability.RecordDecodeRun(string(assembler.PipelineTelemetry), time.Since(start), err == nil)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "requestId": id})
		return
	}
	resp := buildResponse(id, assembler.PipelineTelemetry, &out)
	resp.Stats = gin.H{
		"signature":       sum.Header.SignatureString(),
		"version":         sum.Header.Version,
		"fileComplete":    sum.Header.FileComplete,
		"headerValid":     sum.HeaderErr == nil && sum.Header.ChecksumValid,
		"records":         sum.Stats.Records,
		"undecodable":     sum.Stats.Undecodable,
		"checksumInvalid": sum.Stats.ChecksumInvalid,
		"gaps":            sum.Stats.Gaps,
		"empty":           sum.Stats.Empty,
	}
	c.JSON(http.StatusOK, resp)
}

func buildResponse(id string, p assembler.Pipeline, out *assembler.Collector) decodeResponse {
	resp := decodeResponse{
		RequestID: id,
		Pipeline:  string(p),
		Messages:  make([]export.Record, 0, len(out.Messages)),
		Signals:   make([]export.Record, 0, len(out.Signals)),
	}
	for _, d := range out.Messages {
		resp.Messages = append(resp.Messages, export.MessageRecord(id, d))
	}
	for _, sig := range out.Signals {
		resp.Signals = append(resp.Signals, export.SignalRecord(id, sig))
	}
	return resp
}

func statusFor(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}
