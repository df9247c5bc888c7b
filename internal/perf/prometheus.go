package perf

import (
	"github.com/prometheus/client_golang/prometheus"
)

var sampleDesc = prometheus.NewDesc(
	"calculator_perf_sample_ms",
	"Last measured duration of a calculator function in milliseconds.",
	[]string{"name"}, nil,
)

// promCollector exposes Collector samples to a prometheus registry.
type promCollector struct {
	c *Collector
}

func (p promCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sampleDesc
}

func (p promCollector) Collect(ch chan<- prometheus.Metric) {
	for name, v := range p.c.Metrics() {
		ch <- prometheus.MustNewConstMetric(sampleDesc, prometheus.GaugeValue, v, name)
	}
}

// Register adds the collector's samples to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	return reg.Register(promCollector{c: c})
}
