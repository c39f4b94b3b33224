// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "modelfetch"
	metricsSubsystem = "hub"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Collector is a prometheus.Collector for the hub client.
type Collector struct {
	downloads        *prometheus.CounterVec
	downloadBytes    prometheus.Counter
	downloadDuration prometheus.Histogram
	cacheHits        prometheus.Counter
}

// NewCollector returns a new Collector. It must be registered by the
// caller.
func NewCollector() *Collector {
	return &Collector{
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "downloads_total",
			Help:      "Number of repository archive downloads, by result.",
		}, []string{"result"}),
		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "download_bytes_total",
			Help:      "Bytes of repository archives downloaded.",
		}),
		downloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "download_duration_seconds",
			Help:      "Time taken to download and extract a repository archive.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_hits_total",
			Help:      "Number of loads served from an already extracted repository.",
		}),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.downloads.Describe(ch)
	c.downloadBytes.Describe(ch)
	c.downloadDuration.Describe(ch)
	c.cacheHits.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.downloads.Collect(ch)
	c.downloadBytes.Collect(ch)
	c.downloadDuration.Collect(ch)
	c.cacheHits.Collect(ch)
}

func (c *Collector) observeDownload(err error, size int64, elapsed time.Duration) {
	if c == nil {
		return
	}
	if err != nil {
		c.downloads.WithLabelValues(resultFailure).Inc()
		return
	}
	c.downloads.WithLabelValues(resultSuccess).Inc()
	c.downloadBytes.Add(float64(size))
	c.downloadDuration.Observe(elapsed.Seconds())
}

func (c *Collector) observeCacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}
