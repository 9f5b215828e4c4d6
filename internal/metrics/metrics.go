// Package metrics коллекторы Prometheus сервиса
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Регистрация в registry допускается только один раз
	once sync.Once

	// route: шаблон маршрута gin (/api/links/:id), а не реальный путь,
	// иначе каждая ссылка порождает новую серию
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPInflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// kind: generated | custom
	LinksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkshort_links_created_total",
			Help: "Links created, by kind of short code.",
		},
		[]string{"kind"},
	)

	AllocationCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkshort_allocation_collisions_total",
			Help: "Generated short codes rejected because they were already taken.",
		},
	)

	ClicksRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkshort_clicks_recorded_total",
			Help: "Click increments written to the store.",
		},
	)

	ClicksDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkshort_clicks_dropped_total",
			Help: "Click events that were accepted from a redirect but never recorded.",
		},
	)

	// layer: l1 | l2; result: hit | miss | error
	CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkshort_cache_operations_total",
			Help: "Resolve cache lookups by layer and result.",
		},
		[]string{"layer", "result"},
	)
)

// Init регистрирует коллекторы в prometheus.DefaultRegisterer
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			HTTPInflightRequests,
			LinksCreated,
			AllocationCollisions,
			ClicksRecorded,
			ClicksDropped,
			CacheOperations,
		)
	})
}

// RegisterClickBuffer регистрирует gauge заполненности и ёмкости буфера кликов.
// stats вызывается при каждом scrape.
func RegisterClickBuffer(reg prometheus.Registerer, stats func() (used, capacity int)) error {
	used := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "linkshort_click_buffer_used",
			Help: "Click events waiting in the worker pool buffer.",
		},
		func() float64 {
			u, _ := stats()
			return float64(u)
		},
	)
	capacity := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "linkshort_click_buffer_capacity",
			Help: "Capacity of the click worker pool buffer.",
		},
		func() float64 {
			_, c := stats()
			return float64(c)
		},
	)

	if err := reg.Register(used); err != nil {
		return fmt.Errorf("failed to register click buffer gauge: %w", err)
	}
	if err := reg.Register(capacity); err != nil {
		reg.Unregister(used)
		return fmt.Errorf("failed to register click buffer gauge: %w", err)
	}
	return nil
}
