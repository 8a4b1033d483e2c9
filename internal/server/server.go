package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxBodyBytes bounds a call request body.
const maxBodyBytes = 64 << 10

// CallRequest is the body of a method call from the widget
type CallRequest struct {
	Method string `json:"method"`
	Params Params `json:"params"`
}

// CallResponse carries either a result or an error message
type CallResponse struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Server exposes the dispatcher to local widget processes over HTTP
type Server struct {
	dispatcher *Dispatcher
	limiter    *RateLimiter
	logger     *zap.Logger
	mux        *http.ServeMux
}

// NewServer creates a new query server; limiter may be nil to disable rate limiting
func NewServer(dispatcher *Dispatcher, limiter *RateLimiter, logger *zap.Logger) *Server {
	s := &Server{
		dispatcher: dispatcher,
		limiter:    limiter,
		logger:     logger,
		mux:        http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/v1/call", s.handleCall)
	s.mux.HandleFunc("/api/v1/health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.setCORSHeaders(w)

	// Handle preflight requests
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if s.limiter != nil && !s.limiter.Allow(r) {
		s.logger.Warn("Rate limit exceeded",
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)
		s.writeJSON(w, http.StatusTooManyRequests, CallResponse{Error: "Rate limit exceeded"})
		return
	}

	s.mux.ServeHTTP(w, r)
}

// setCORSHeaders lets the widget's webview call the server
func (s *Server) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CallRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		s.logger.Warn("Failed to decode call request", zap.Error(err))
		s.writeJSON(w, http.StatusBadRequest, CallResponse{Error: "Invalid request body"})
		return
	}
	if req.Method == "" {
		s.writeJSON(w, http.StatusBadRequest, CallResponse{Error: "Missing method"})
		return
	}

	result, err := s.dispatcher.Call(req.Method, req.Params)
	switch {
	case errors.Is(err, ErrMethodNotImplemented):
		s.logger.Warn("Unknown method requested", zap.String("method", req.Method))
		s.writeJSON(w, http.StatusNotImplemented, CallResponse{Error: err.Error()})
	case err != nil:
		s.logger.Error("Method call failed",
			zap.String("method", req.Method),
			zap.Error(err),
		)
		s.writeJSON(w, http.StatusInternalServerError, CallResponse{Error: "Method call failed"})
	default:
		s.writeJSON(w, http.StatusOK, CallResponse{Result: result})
	}
}

// handleHealth provides a health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"methods":   s.dispatcher.Methods(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}
