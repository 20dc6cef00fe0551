// rtreedb_server exposes one spatial index directory over a small HTTP JSON
// API.
//
//	POST /api/data          {"command":"INSERT","point":[x,y],"payload":"..."}
//	                        {"command":"SEARCH","point":[x,y]}
//	POST /admin/checkpoint  API-key guarded session checkpoint
//	GET  /metrics           Prometheus scrape endpoint
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sushant-115/rtreedb/core/index/rtree"
	"github.com/sushant-115/rtreedb/core/indexmanager"
	"github.com/sushant-115/rtreedb/pkg/logger"
	"github.com/sushant-115/rtreedb/pkg/telemetry"
)

const adminKeyEnv = "RTREEDB_ADMIN_KEY"

// APIRequest represents a client request received by the server.
type APIRequest struct {
	Command string    `json:"command"`
	Point   []float64 `json:"point"`
	Payload string    `json:"payload,omitempty"`
}

// APIResponse represents a response sent back to the client.
type APIResponse struct {
	Status   string   `json:"status"` // OK, ERROR
	Message  string   `json:"message,omitempty"`
	ObjectID *int64   `json:"object_id,omitempty"`
	Results  []string `json:"results,omitempty"`
}

type apiService struct {
	manager  *indexmanager.SpatialIndexManager
	logger   *zap.Logger
	limiter  *rate.Limiter
	adminKey string
}

func main() {
	dir := flag.String("dir", "rtreedb_data", "index directory")
	listen := flag.String("listen", ":8090", "listen address")
	logLevel := flag.String("log-level", "info", "minimum log level")
	rps := flag.Float64("rps", 500, "request rate limit per second (0 disables)")
	flag.Parse()

	zapLogger, err := logger.New(logger.Config{Level: *logLevel, Format: "json", OutputFile: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	tel, telShutdown, err := telemetry.New(telemetry.Config{
		Enabled:     true,
		ServiceName: "rtreedb",
	})
	if err != nil {
		zapLogger.Fatal("failed to initialize telemetry", zap.Error(err))
	}

	manager, err := indexmanager.NewSpatialIndexManager(*dir, zapLogger, tel.Meter)
	if err != nil {
		zapLogger.Fatal("failed to open index", zap.String("dir", *dir), zap.Error(err))
	}

	svc := &apiService{
		manager:  manager,
		logger:   zapLogger,
		adminKey: os.Getenv(adminKeyEnv),
	}
	if *rps > 0 {
		burst := int(*rps)
		if burst < 1 {
			burst = 1
		}
		svc.limiter = rate.NewLimiter(rate.Limit(*rps), burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/data", svc.handleData)
	mux.HandleFunc("/admin/checkpoint", svc.handleCheckpoint)
	mux.Handle("/metrics", telemetry.Handler())

	server := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zapLogger.Info("serving HTTP API", zap.String("addr", *listen))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("http shutdown failed", zap.Error(err))
	}
	if err := manager.Close(); err != nil {
		zapLogger.Error("failed to close index", zap.Error(err))
	}
	if err := telShutdown(shutdownCtx); err != nil {
		zapLogger.Error("telemetry shutdown failed", zap.Error(err))
	}
}

func (s *apiService) handleData(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	log := s.logger.With(zap.String("request_id", requestID))

	if r.Method != http.MethodPost {
		writeResponse(w, http.StatusMethodNotAllowed, APIResponse{Status: "ERROR", Message: "POST only"})
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		writeResponse(w, http.StatusTooManyRequests, APIResponse{Status: "ERROR", Message: "rate limit exceeded"})
		return
	}

	var req APIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, APIResponse{Status: "ERROR", Message: "invalid JSON body"})
		return
	}

	switch req.Command {
	case "INSERT":
		res, err := s.manager.InsertPoint(r.Context(), req.Point, req.Payload)
		if err != nil {
			log.Warn("insert failed", zap.Error(err))
			writeResponse(w, statusFor(err), APIResponse{Status: "ERROR", Message: err.Error()})
			return
		}
		log.Info("insert", zap.Float64s("point", req.Point), zap.Int64("object_id", res.ObjectID))
		writeResponse(w, http.StatusOK, APIResponse{Status: "OK", ObjectID: &res.ObjectID})

	case "SEARCH":
		results, err := s.manager.SearchPoint(r.Context(), req.Point)
		if err != nil {
			log.Warn("search failed", zap.Error(err))
			writeResponse(w, statusFor(err), APIResponse{Status: "ERROR", Message: err.Error()})
			return
		}
		writeResponse(w, http.StatusOK, APIResponse{Status: "OK", Results: results})

	default:
		writeResponse(w, http.StatusBadRequest, APIResponse{Status: "ERROR", Message: fmt.Sprintf("unknown command %q", req.Command)})
	}
}

func (s *apiService) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeResponse(w, http.StatusMethodNotAllowed, APIResponse{Status: "ERROR", Message: "POST only"})
		return
	}
	if s.adminKey == "" || r.Header.Get("X-API-Key") != s.adminKey {
		writeResponse(w, http.StatusUnauthorized, APIResponse{Status: "ERROR", Message: "unauthorized"})
		return
	}
	if err := s.manager.Checkpoint(); err != nil {
		writeResponse(w, http.StatusInternalServerError, APIResponse{Status: "ERROR", Message: err.Error()})
		return
	}
	writeResponse(w, http.StatusOK, APIResponse{Status: "OK", Message: "session checkpointed"})
}

func statusFor(err error) int {
	if errors.Is(err, rtree.ErrDimensionMismatch) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeResponse(w http.ResponseWriter, code int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
