// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package knot

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	partnerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knotlink_partner_requests_total",
		Help: "Outcome of partner session-create calls",
	}, []string{
		"outcome", // success|rejected|bad_response|unavailable|timeout
		"status",  // HTTP status, "0" when no response was received
	})

	partnerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "knotlink_partner_request_duration_seconds",
		Help:    "Latency of partner session-create calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
)

func observeCall(outcome string, status int, started time.Time) {
	partnerRequestsTotal.WithLabelValues(outcome, strconv.Itoa(status)).Inc()
	partnerRequestDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	var e *Error
	if !errors.As(err, &e) {
		return "unavailable"
	}
	switch e.Sentinel {
	case ErrRejected:
		return "rejected"
	case ErrBadResponse:
		return "bad_response"
	case ErrTimeout:
		return "timeout"
	default:
		return "unavailable"
	}
}
