// Command xtrieved runs the Btrieve 5.1-compatible record-manager server:
// it accepts TCP connections, frames each one as a sequence of
// wire.Request/wire.Response pairs, and dispatches them against a shared
// dispatch.Engine. Shape follows
// original_source/xtrieve-engine/src/main.rs's listener loop.
package main

import (
	"net"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/intellect4all/xtrieved/config"
	"github.com/intellect4all/xtrieved/dispatch"
	"github.com/intellect4all/xtrieved/ops"
	"github.com/intellect4all/xtrieved/status"
	"github.com/intellect4all/xtrieved/wire"
)

var (
	connectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xtrieved_connections_total",
		Help: "Total TCP connections accepted.",
	})
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xtrieved_requests_total",
		Help: "Total requests handled, by opcode and resulting status.",
	}, []string{"op", "status"})
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	engine, err := dispatch.New(cfg.CacheSize, cfg.DataDir, log)
	if err != nil {
		log.Fatalw("building engine", "error", err)
	}
	engine.Locks.Timeout = cfg.LockTimeout

	if cfg.MetricsListen != "" {
		go serveMetrics(cfg.MetricsListen, log)
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Fatalw("listen failed", "addr", cfg.Listen, "error", err)
	}
	log.Infow("xtrieved listening", "addr", cfg.Listen, "data_dir", cfg.DataDir)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Errorw("accept failed", "error", err)
			continue
		}
		connectionsTotal.Inc()
		go serve(engine, conn, log)
	}
}

func buildLogger(level string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func serveMetrics(addr string, log *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorw("metrics server stopped", "error", err)
	}
}

// serve owns one connection's lifetime: one session, a request/response
// loop, and session cleanup (released locks and aborted transactions) on
// disconnect.
func serve(engine *dispatch.Engine, conn net.Conn, log *zap.SugaredLogger) {
	traceID := uuid.NewString()
	defer conn.Close()

	session := engine.NewSession()
	defer engine.EndSession(session)

	connLog := log.With("trace_id", traceID, "remote", conn.RemoteAddr().String())
	connLog.Debugw("session started")

	for {
		req, err := wire.ReadFrom(conn)
		if err != nil {
			connLog.Debugw("session ended", "error", err)
			return
		}

		resp := engine.Execute(session, req)
		requestsTotal.WithLabelValues(opName(req.Operation), statusName(resp.Status)).Inc()

		if err := resp.WriteTo(conn); err != nil {
			connLog.Debugw("write failed, closing", "error", err)
			return
		}
	}
}

func opName(op uint16) string {
	return ops.Code(op).String()
}

func statusName(code uint16) string {
	return status.Code(code).String()
}
