//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package api provides the HTTP server exposing the image and upload
// forwarders.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/config"
	"github.com/nifty-mvp/nifty/content"
	icontent "github.com/nifty-mvp/nifty/internal/content"
	"github.com/nifty-mvp/nifty/imagegen"
	"github.com/nifty-mvp/nifty/log"
	"github.com/nifty-mvp/nifty/pinning"
	"github.com/nifty-mvp/nifty/telemetry/metric"
)

// Route paths.
const (
	PathGenerate = "/api/generate"
	PathUpload   = "/api/ipfs-upload"
	PathContent  = "/ipfs/{cid}"
	PathHealth   = "/healthz"
	PathMetrics  = "/metrics"
)

// HeaderRequestID carries the request identifier.
const HeaderRequestID = "X-Request-ID"

// Server routes requests to the forwarders.
type Server struct {
	router  *mux.Router
	handler http.Handler

	generator *imagegen.Service
	uploader  *pinning.Service
	reader    content.Reader

	observer       metric.Observer
	gatherer       prometheus.Gatherer
	allowedOrigins []string
	maxBodyBytes   int64
}

// Option configures the Server instance.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. Defaults to all origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithMaxBodyBytes caps JSON request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithObserver records per-route request metrics.
func WithObserver(o metric.Observer) Option {
	return func(s *Server) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithMetricsGatherer exposes g at /metrics.
func WithMetricsGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithContentReader serves stored content at /ipfs/{cid}. When omitted the
// upload store is used if it can read content.
func WithContentReader(r content.Reader) Option {
	return func(s *Server) { s.reader = r }
}

// New creates a server for the two forwarders.
func New(generator *imagegen.Service, uploader *pinning.Service, opts ...Option) *Server {
	s := &Server{
		router:         mux.NewRouter(),
		generator:      generator,
		uploader:       uploader,
		observer:       metric.Nop,
		allowedOrigins: []string{"*"},
		maxBodyBytes:   config.DefaultMaxBodyBytes,
	}
	if r, ok := uploader.Store().(content.Reader); ok {
		s.reader = r
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(s.requestID, s.instrument)
	s.router.MethodNotAllowedHandler = s.requestID(http.HandlerFunc(s.handleMethodNotAllowed))
	s.router.NotFoundHandler = s.requestID(http.HandlerFunc(s.handleNotFound))
	s.registerRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", HeaderRequestID},
		ExposedHeaders: []string{"Content-Length", "Content-Type", HeaderRequestID},
	})
	s.handler = c.Handler(s.router)
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) registerRoutes() {
	s.router.HandleFunc(PathGenerate, s.handleGenerate).Methods(http.MethodPost)
	s.router.HandleFunc(PathUpload, s.handleUpload).Methods(http.MethodPost)
	s.router.HandleFunc(PathHealth, s.handleHealth).Methods(http.MethodGet)
	if s.reader != nil {
		s.router.HandleFunc(PathContent, s.handleContent).Methods(http.MethodGet, http.MethodHead)
	}
	if s.gatherer != nil {
		s.router.Handle(PathMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

// ---- Handlers -----------------------------------------------------------

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req imagegen.Request
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req pinning.Request
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.uploader.Upload(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	id, err := icontent.ParseCID(mux.Vars(r)["cid"])
	if err != nil {
		s.writeError(w, r, apierr.Validation("invalid content identifier"))
		return
	}
	c, err := s.reader.Get(r.Context(), id)
	if errors.Is(err, content.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "content not found"})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	mimeType := c.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(c.Data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("Etag", `"`+id+`"`)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(c.Data)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"image":   s.generator.Backend(),
		"storage": s.uploader.Store().Name(),
	})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	log.Infof("%s %s: method not allowed", r.Method, r.URL.Path)
	msg := "method not allowed"
	if strings.HasPrefix(r.URL.Path, "/api/") {
		msg = "POST only"
	}
	s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: msg})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
}

// ---- Middleware ---------------------------------------------------------

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
			r.Header.Set(HeaderRequestID, id)
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		log.Infof("%s %s request_id=%s", r.Method, route, r.Header.Get(HeaderRequestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.observer.RecordRequest(route, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// ---- Helpers ------------------------------------------------------------

type errorBody struct {
	Error string `json:"error"`
}

// decode reads a JSON body into v. An empty body leaves v untouched so
// field validation reports what is missing.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &tooLarge):
			return apierr.Validation("request body too large")
		default:
			return apierr.Validation("invalid JSON body")
		}
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apierr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s %s request_id=%s: %v", r.Method, r.URL.Path, r.Header.Get(HeaderRequestID), err)
	} else {
		log.Debugf("%s %s request_id=%s: %v", r.Method, r.URL.Path, r.Header.Get(HeaderRequestID), err)
	}
	s.writeJSON(w, status, errorBody{Error: apierr.MessageOf(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
