// Zhmc is a client library for the IBM Z Hardware Management Console
// Web Services API.
// Copyright (C) 2025  Matthew Burns
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package metrics exposes Prometheus collectors for the HMC transport.
// Hosts that already serve /metrics can mount Handler() next to their own
// collectors; everything here is optional and has no effect otherwise.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu  sync.RWMutex
	reg *prometheus.Registry

	hmcRequests        *prometheus.CounterVec
	hmcRequestDuration *prometheus.HistogramVec
	hmcRetries         *prometheus.CounterVec
	sessionRenewals    prometheus.Counter
	jobPolls           prometheus.Counter
)

func init() {
	resetLocked()
}

// Reset clears and reinitializes all metrics collectors.
// Primarily used by tests to ensure clean state.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	resetLocked()
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
func Handler() http.Handler {
	mu.RLock()
	registry := reg
	mu.RUnlock()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveRequest records a completed HMC HTTP request attempt.
// code should be the HTTP status code; use negative values to indicate
// transport errors that produced no response.
func ObserveRequest(op string, code int, duration time.Duration) {
	labelOp := sanitizeLabel(op, "unknown")
	status := "error"
	if code >= 0 {
		status = strconv.Itoa(code)
	}

	mu.RLock()
	defer mu.RUnlock()
	if hmcRequests != nil {
		hmcRequests.WithLabelValues(labelOp, status).Inc()
	}
	if hmcRequestDuration != nil {
		hmcRequestDuration.WithLabelValues(labelOp).Observe(durationSeconds(duration))
	}
}

// IncRetry increments the transport retry counter for a given operation.
func IncRetry(op string) {
	labelOp := sanitizeLabel(op, "unknown")

	mu.RLock()
	defer mu.RUnlock()
	if hmcRetries != nil {
		hmcRetries.WithLabelValues(labelOp).Inc()
	}
}

// IncSessionRenewal counts one transparent re-logon after a session expiry.
func IncSessionRenewal() {
	mu.RLock()
	defer mu.RUnlock()
	if sessionRenewals != nil {
		sessionRenewals.Inc()
	}
}

// IncJobPoll counts one poll of an asynchronous job resource.
func IncJobPoll() {
	mu.RLock()
	defer mu.RUnlock()
	if jobPolls != nil {
		jobPolls.Inc()
	}
}

func resetLocked() {
	registry := prometheus.NewRegistry()

	reqTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zhmc",
		Subsystem: "client",
		Name:      "hmc_requests_total",
		Help:      "Total HMC HTTP requests grouped by operation and status code.",
	}, []string{"op", "code"})

	reqDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zhmc",
		Subsystem: "client",
		Name:      "hmc_request_duration_seconds",
		Help:      "Duration of HMC HTTP requests by operation.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"op"})

	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zhmc",
		Subsystem: "client",
		Name:      "hmc_retries_total",
		Help:      "Total number of transport-level retries by operation.",
	}, []string{"op"})

	renewals := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zhmc",
		Subsystem: "client",
		Name:      "session_renewals_total",
		Help:      "Total number of transparent session renewals after HTTP 403 reason 5.",
	})

	polls := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zhmc",
		Subsystem: "client",
		Name:      "job_polls_total",
		Help:      "Total number of status polls against asynchronous job resources.",
	})

	registry.MustRegister(reqTotal, reqDuration, retries, renewals, polls)

	reg = registry
	hmcRequests = reqTotal
	hmcRequestDuration = reqDuration
	hmcRetries = retries
	sessionRenewals = renewals
	jobPolls = polls
}

func sanitizeLabel(v string, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	var b strings.Builder
	for _, r := range v {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ':' || r == '.' || r == '-' || r == '_' || r == '/' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func durationSeconds(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return d.Seconds()
}
