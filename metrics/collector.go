// Package metrics exports the size of a safemap.Collection to Prometheus.
//
// One gauge series per registered value type is reported for each metric:
//
//   - safemap_entries: keys present, including keys whose value was destroyed
//   - safemap_live_values: constructed values
//   - safemap_empty_entries: keys awaiting Clean
//
// The values are read when the registry is scraped; nothing is cached.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fburgerdev/safemap"
)

// Source is anything that reports per-type statistics, in practice a
// *safemap.Collection of any key type.
type Source interface {
	Stats() []safemap.TypeStats
}

// Collector implements prometheus.Collector over a Source.
type Collector struct {
	src     Source
	entries *prometheus.Desc
	live    *prometheus.Desc
	empty   *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector for src. constLabels are attached to
// every series, which lets several collections share a registry.
func NewCollector(src Source, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName("safemap", "", name),
			help, []string{"type"}, constLabels)
	}
	return &Collector{
		src:     src,
		entries: desc("entries", "Keys present per value type, including emptied keys."),
		live:    desc("live_values", "Constructed values per value type."),
		empty:   desc("empty_entries", "Keys whose value was destroyed and that have not been cleaned yet."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.live
	ch <- c.empty
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.src.Stats() {
		name := st.Type.String()
		// Entries and Live are read separately; clamp the difference.
		empty := max(st.Entries-st.Live, 0)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Entries), name)
		ch <- prometheus.MustNewConstMetric(c.live, prometheus.GaugeValue, float64(st.Live), name)
		ch <- prometheus.MustNewConstMetric(c.empty, prometheus.GaugeValue, float64(empty), name)
	}
}

// Register creates a collector for src and registers it with reg.
func Register(reg prometheus.Registerer, src Source, constLabels prometheus.Labels) (*Collector, error) {
	c := NewCollector(src, constLabels)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
