//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package metric exports nifty's upstream and request metrics to
// Prometheus.
package metric

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nifty-mvp/nifty/apierr"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "nifty"

// Observer captures telemetry for forwarder operations.
type Observer interface {
	// RecordCall tracks one call to an external service.
	RecordCall(service, operation string, duration time.Duration, err error)
	// RecordUpload tracks one content upload and its size.
	RecordUpload(service string, duration time.Duration, sizeBytes int, err error)
	// RecordRequest tracks one inbound HTTP request.
	RecordRequest(route string, status int, duration time.Duration)
}

// Nop discards everything.
var Nop Observer = nopObserver{}

// PrometheusObserver exports metrics to Prometheus.
type PrometheusObserver struct {
	callDuration    *prometheus.HistogramVec
	callErrors      *prometheus.CounterVec
	uploadBytes     *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheusObserver registers the metrics on reg, which defaults to
// prometheus.DefaultRegisterer. Registering twice on the same registry
// reuses the existing collectors.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of calls to external services.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		callErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Count of failed calls to external services.",
		}, []string{"service", "operation", "kind"}),
		uploadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative payload size successfully uploaded to content storage.",
		}, []string{"service"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of inbound HTTP requests.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	var err error
	if o.callDuration, err = register(reg, o.callDuration); err != nil {
		return nil, err
	}
	if o.callErrors, err = register(reg, o.callErrors); err != nil {
		return nil, err
	}
	if o.uploadBytes, err = register(reg, o.uploadBytes); err != nil {
		return nil, err
	}
	if o.requests, err = register(reg, o.requests); err != nil {
		return nil, err
	}
	if o.requestDuration, err = register(reg, o.requestDuration); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

// RecordCall implements Observer.
func (o *PrometheusObserver) RecordCall(service, operation string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.callDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
	if err != nil {
		o.callErrors.WithLabelValues(service, operation, errorKind(err)).Inc()
	}
}

// RecordUpload implements Observer.
func (o *PrometheusObserver) RecordUpload(service string, duration time.Duration, sizeBytes int, err error) {
	if o == nil {
		return
	}
	o.RecordCall(service, "upload", duration, err)
	if err == nil {
		o.uploadBytes.WithLabelValues(service).Add(float64(sizeBytes))
	}
}

// RecordRequest implements Observer.
func (o *PrometheusObserver) RecordRequest(route string, status int, duration time.Duration) {
	if o == nil {
		return
	}
	o.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	o.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func errorKind(err error) string {
	if e, ok := apierr.As(err); ok {
		return e.Kind.String()
	}
	return apierr.KindInternal.String()
}

type nopObserver struct{}

func (nopObserver) RecordCall(string, string, time.Duration, error) {}

func (nopObserver) RecordUpload(string, time.Duration, int, error) {}

func (nopObserver) RecordRequest(string, int, time.Duration) {}
