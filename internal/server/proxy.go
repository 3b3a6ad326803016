package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coocood/freecache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/Mohsinsiddi/w3studio/internal/source"
)

var proxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "w3studio_proxy_requests_total",
	Help: "Fetch proxy requests by outcome",
}, []string{"outcome"})

// cacheSep separates the content type from the body in cache entries.
var cacheSep = []byte{0}

// allowedTarget parses raw and checks its host against the allow-list.
func (s *Server) allowedTarget(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("missing url parameter")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url")
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !s.allowed[strings.ToLower(u.Host)] {
		return nil, fmt.Errorf("host %s is not allowed", u.Host)
	}
	return u, nil
}

// handleProxy forwards GET /api/proxy?url=... to an allow-listed provider,
// adding the server credential to explorer requests that carry none.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(r) {
		proxyRequests.WithLabelValues("rate-limited").Inc()
		sendError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	target, err := s.allowedTarget(r.URL.Query().Get("url"))
	if err != nil {
		proxyRequests.WithLabelValues("rejected").Inc()
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := []byte(target.String())

	if s.cache != nil {
		if entry, err := s.cache.Get(key); err == nil {
			if i := bytes.Index(entry, cacheSep); i >= 0 {
				proxyRequests.WithLabelValues("hit").Inc()
				s.writeUpstream(w, http.StatusOK, string(entry[:i]), entry[i+1:], "HIT")
				return
			}
		}
	}

	resp, err := s.upstream.Get(r.Context(), target.String())
	if err != nil {
		proxyRequests.WithLabelValues("upstream-error").Inc()
		s.log.WithError(err).WithField("host", target.Host).Warn("proxy upstream failed")
		sendError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	proxyRequests.WithLabelValues("miss").Inc()

	if !cacheable(resp) {
		s.writeUpstream(w, resp.Status, resp.ContentType, resp.Body, "")
		return
	}
	if s.cache != nil {
		entry := make([]byte, 0, len(resp.ContentType)+1+len(resp.Body))
		entry = append(entry, resp.ContentType...)
		entry = append(entry, cacheSep...)
		entry = append(entry, resp.Body...)
		if err := s.cache.Set(key, entry, int(s.cfg.ProxyCacheTTL.Seconds())); err != nil {
			log := s.log.WithError(err).WithFields(logrus.Fields{"host": target.Host, "size": len(entry)})
			if errors.Is(err, freecache.ErrLargeEntry) {
				log.Warn("proxy response too large to cache")
			} else {
				log.Debug("proxy response not cached")
			}
		}
	}
	s.writeUpstream(w, resp.Status, resp.ContentType, resp.Body, "MISS")
}

// cacheable reports whether an upstream answer may be shared. Explorers
// report failures such as rate limits and bad keys as HTTP 200 with status
// "0", so only a JSON object with status "1", or without a status at all
// (Sourcify metadata), qualifies.
func cacheable(resp *source.Response) bool {
	if resp.Status != http.StatusOK {
		return false
	}
	var env struct {
		Status *string `json:"status"`
	}
	if json.Unmarshal(resp.Body, &env) != nil {
		return false
	}
	return env.Status == nil || *env.Status == "1"
}

// writeUpstream relays an upstream answer. An empty cacheState marks an
// answer that must not be cached anywhere.
func (s *Server) writeUpstream(w http.ResponseWriter, status int, contentType string, body []byte, cacheState string) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if cacheState == "" {
		w.Header().Set("Cache-Control", "no-store")
	} else {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.cfg.ProxyCacheTTL.Seconds())))
		w.Header().Set("X-Cache", cacheState)
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.log.WithFields(logrus.Fields{"error": err}).Debug("proxy response write failed")
	}
}
