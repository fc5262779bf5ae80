package server

import (
	"sync"
	"time"

	"github.com/danmuck/tlmdecode/internal/assembler"
	"github.com/danmuck/tlmdecode/internal/beacon"
	"github.com/danmuck/tlmdecode/internal/config"
	"github.com/danmuck/tlmdecode/internal/datacache"
	"github.com/danmuck/tlmdecode/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	DefaultName         = "tlmdecode"
	DefaultAddr         = ":9300"
	DefaultMaxBodyBytes = 16 << 20
)

type Config struct {
	Name         string
	Addr         string
	CorsOrigins  []string
	MaxBodyBytes int64
}

func DefaultConfig() Config {
	return Config{Name: DefaultName, Addr: DefaultAddr, MaxBodyBytes: DefaultMaxBodyBytes}
}

// Server exposes the decoders over HTTP. Beacon requests share one
// assembler so a partial message at the end of one request is completed
// by the next.
type Server struct {
	Name     string
	Addr     string
	Appeared time.Time

	maxBody   int64
	codec     *beacon.Codec
	telemetry *datacache.Expander

	mu      sync.Mutex
	beacons *assembler.BeaconAssembler
	current *switchSink

	router *gin.Engine
}

func Appear(cfg Config, dc config.DecoderConfig) (*Server, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	codec, err := dc.BeaconCodec()
	if err != nil {
		return nil, err
	}
	tlmCat, err := dc.TelemetryCatalog()
	if err != nil {
		return nil, err
	}

	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(cfg.CorsOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", observability.RequestIDHeader},
		ExposeHeaders: []string{observability.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:      cfg.Name,
		Addr:      cfg.Addr,
		Appeared:  time.Now(),
		maxBody:   cfg.MaxBodyBytes,
		codec:     codec,
		telemetry: datacache.NewExpander(tlmCat),
		current:   &switchSink{},
		router:    r,
	}
	s.beacons = assembler.NewBeaconAssembler(
		codec,
		datacache.NewExpander(codec.Catalog()),
		observability.InstrumentSink(s.current),
	)
	return s, nil
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) Serve() error {
	s.RegisterRoutes()
	log.Info().Str("name", s.Name).Str("addr", s.Addr).Msg("server.Serve listening")
	return s.router.Run(s.Addr)
}

// switchSink routes the shared beacon assembler's output to the request
// currently holding the server lock.
type switchSink struct {
	target assembler.Sink
}

func (s *switchSink) Message(d assembler.Delivery) error {
	if s.target == nil {
		return nil
	}
	return s.target.Message(d)
}

func (s *switchSink) Signal(sig assembler.Signal) error {
	if s.target == nil {
		return nil
	}
	return s.target.Signal(sig)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
