// Package server answers HTTP requests from an in-memory catalog.
package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/f4ah6o/magicserver-go/internal/catalog"
	"github.com/f4ah6o/magicserver-go/internal/config"
	"github.com/f4ah6o/magicserver-go/internal/logger"
	"github.com/f4ah6o/magicserver-go/internal/negotiate"
	"github.com/f4ah6o/magicserver-go/internal/resolver"
)

// NotFoundBody is written with every 404 response.
const NotFoundBody = "File not found"

// Request holds the parts of an HTTP request that affect the response.
type Request struct {
	Path           string
	AcceptEncoding string
	RemoteAddr     string
}

// Response is a fully determined HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Record describes a handled request for the access log.
type Record struct {
	RemoteAddr string
	// Path is the resolved catalog key, not the raw request path.
	Path  string
	Start time.Time
	Found bool
}

// Process resolves req against cat and negotiates the body to send.
// It has no side effects.
func Process(req Request, cat catalog.Lookuper, cfg *config.Config) (Response, Record) {
	rec := Record{RemoteAddr: req.RemoteAddr, Start: time.Now()}

	key := resolver.Resolve(req.Path, cfg.MenuItems, cfg.PageItems, cat)
	rec.Path = key

	v, err := negotiate.Select(key, req.AcceptEncoding, cat)
	if err != nil {
		return Response{
			Status: http.StatusNotFound,
			Header: http.Header{"Content-Type": {"text/plain"}},
			Body:   []byte(NotFoundBody),
		}, rec
	}

	h := http.Header{"Content-Type": {v.MediaType}}
	if v.Encoding != "" {
		h.Set("Content-Encoding", v.Encoding)
	}
	rec.Found = true
	return Response{Status: http.StatusOK, Header: h, Body: v.Bytes}, rec
}

// Handler serves a catalog. Every HTTP method is treated the same.
type Handler struct {
	cat catalog.Lookuper
	cfg *config.Config
	log *logger.Logger
}

// NewHandler returns a Handler for cat configured by cfg.
func NewHandler(cat catalog.Lookuper, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{cat: cat, cfg: cfg, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, rec := Process(Request{
		Path:           r.URL.Path,
		AcceptEncoding: r.Header.Get("Accept-Encoding"),
		RemoteAddr:     ClientAddr(r),
	}, h.cat, h.cfg)

	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
	// The client has the whole response before anything is logged.
	_ = http.NewResponseController(w).Flush()

	if !rec.Found {
		h.log.Errorf("could not find file with url: %s", rec.Path)
	}
	h.log.Request(rec.RemoteAddr, rec.Path, time.Since(rec.Start))
}

// ClientAddr returns X-Forwarded-For when present, else the peer address.
func ClientAddr(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
