package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/tlmdecode/internal/beacon"
	"github.com/danmuck/tlmdecode/internal/catalog"
	"github.com/danmuck/tlmdecode/internal/config"
	"github.com/danmuck/tlmdecode/internal/testutil/testlog"
	"github.com/danmuck/tlmdecode/internal/tlmlog"
	"github.com/gin-gonic/gin"
)

type decoded struct {
	RequestID string `json:"requestId"`
	State     string `json:"state"`
	Messages  []struct {
		Type     string           `json:"type"`
		Stitched bool             `json:"stitched"`
		Fields   map[string]int64 `json:"fields"`
	} `json:"messages"`
	Signals []struct {
		Signal string `json:"signal"`
		Code   uint16 `json:"code"`
	} `json:"signals"`
	Stats map[string]any `json:"stats"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	s, err := Appear(Config{Name: "tlmdecode-test", MaxBodyBytes: 4096}, config.Default())
	if err != nil {
		t.Fatalf("appear: %v", err)
	}
	s.RegisterRoutes()
	return s
}

func post(t *testing.T, s *Server, path string, body []byte) (*httptest.ResponseRecorder, decoded) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	s.HTTPRouter().ServeHTTP(rec, req)
	var out decoded
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response: %v body=%s", err, rec.Body.String())
		}
	}
	return rec, out
}

func ones(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestBeaconsStitchAcrossRequests(t *testing.T) {
	s := newTestServer(t)
	size := catalog.Beacon().Resolve(catalog.CodeTaskStats).Size()
	avail := beacon.DefaultContainerSize - beacon.HeaderSize - beacon.SubHeaderSize
	if size <= avail {
		t.Fatalf("TaskStats size %d fits one container", size)
	}

	first := beacon.NewBuilder(beacon.DefaultContainerSize, beacon.Header{Seq: 1}).
		Declared(catalog.CodeTaskStats, size, ones(avail)).
		Bytes()
	rec, out := post(t, s, "/v1/beacons", first)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if len(out.Messages) != 0 || out.State != "awaiting_continuation" {
		t.Fatalf("first response=%+v", out)
	}

	srec := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(srec, httptest.NewRequest(http.MethodGet, "/v1/beacons/state", nil))
	if srec.Code != http.StatusOK || !bytes.Contains(srec.Body.Bytes(), []byte(`"pending"`)) {
		t.Fatalf("state=%d %s", srec.Code, srec.Body.String())
	}

	second := beacon.NewBuilder(beacon.DefaultContainerSize, beacon.Header{Seq: 2}).
		Raw(ones(size - avail)).
		Bytes()
	rec, out = post(t, s, "/v1/beacons", second)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if len(out.Messages) != 1 || out.Messages[0].Type != "TaskStats" || !out.Messages[0].Stitched {
		t.Fatalf("second response=%+v", out)
	}
	if len(out.Messages[0].Fields) != catalog.MaxTasks || out.State != "idle" {
		t.Fatalf("fields=%d state=%s", len(out.Messages[0].Fields), out.State)
	}
	if out.RequestID == "" {
		t.Fatalf("missing request id")
	}
}

func TestBeaconsResetDropsPending(t *testing.T) {
	s := newTestServer(t)
	avail := beacon.DefaultContainerSize - beacon.HeaderSize - beacon.SubHeaderSize
	first := beacon.NewBuilder(beacon.DefaultContainerSize, beacon.Header{Seq: 1}).
		Declared(catalog.CodeTaskStats, 2*catalog.MaxTasks, ones(avail)).
		Bytes()
	if rec, _ := post(t, s, "/v1/beacons", first); rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	fresh := beacon.NewBuilder(beacon.DefaultContainerSize, beacon.Header{Seq: 9}).
		Message(catalog.CodeAOCSControlSysState, []byte{1, 2}).
		Bytes()
	rec, out := post(t, s, "/v1/beacons?reset=true", fresh)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if len(out.Messages) != 1 || out.Messages[0].Stitched {
		t.Fatalf("response=%+v", out)
	}
}

func TestBeaconsRejectsEmptyAndOversizedBodies(t *testing.T) {
	s := newTestServer(t)
	if rec, _ := post(t, s, "/v1/beacons", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty status=%d", rec.Code)
	}
	if rec, _ := post(t, s, "/v1/beacons", make([]byte, 5000)); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized status=%d", rec.Code)
	}
}

func TestTelemetryDecodesLog(t *testing.T) {
	s := newTestServer(t)
	var body bytes.Buffer
	body.Write(tlmlog.EncodeFileHeader(tlmlog.FileHeader{Version: 2, FileComplete: true}))
	for _, counter := range []uint8{1, 2, 4} {
		raw, err := tlmlog.EncodeRecord(tlmlog.RecordHeader{
			Timestamp:      1_700_000_000,
			RollingCounter: counter,
			TypeCode:       uint16(catalog.CodeAOCSControlSysState),
		}, []byte{counter, 0})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		body.Write(tlmlog.EncodeCOBS(raw))
	}

	rec, out := post(t, s, "/v1/telemetry", body.Bytes())
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if len(out.Messages) != 3 {
		t.Fatalf("messages=%d", len(out.Messages))
	}
	if len(out.Signals) != 1 || out.Signals[0].Signal != "dropped_frames" {
		t.Fatalf("signals=%+v", out.Signals)
	}
	if out.Stats["records"] != float64(3) || out.Stats["headerValid"] != true {
		t.Fatalf("stats=%v", out.Stats)
	}
}
