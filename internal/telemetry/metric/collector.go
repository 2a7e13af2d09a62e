package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// SlotStat is one slot's save point count.
type SlotStat struct {
	SlotID     int32
	SavePoints int
}

// SlotCollector reports save points per slot from a snapshot function,
// evaluated at scrape time.
type SlotCollector struct {
	desc   *prometheus.Desc
	source func() []SlotStat
}

// NewSlotCollector creates a collector over source. source is called from
// the scrape goroutine and must synchronize its own access.
func NewSlotCollector(source func() []SlotStat) *SlotCollector {
	return &SlotCollector{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "slot", "save_points"),
			"Save points held in memory per slot.",
			[]string{"slot_id"}, nil,
		),
		source: source,
	}
}

// Describe implements prometheus.Collector.
func (c *SlotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *SlotCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.source() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue,
			float64(s.SavePoints), strconv.Itoa(int(s.SlotID)))
	}
}
