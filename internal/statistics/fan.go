package statistics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linuxfancontrol/lfcd/internal/hwmon"
)

const subsystemFan = "fan"

type FanCollector struct {
	io   hwmon.Io
	fans []hwmon.FanTach
	rpm  *prometheus.Desc
}

func NewFanCollector(io hwmon.Io, fans []hwmon.FanTach) *FanCollector {
	return &FanCollector{
		io:   io,
		fans: fans,
		rpm: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemFan, "rpm"),
			"Current rotation speed of the fan",
			[]string{"id"}, nil,
		),
	}
}

func (collector *FanCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.rpm
}

func (collector *FanCollector) Collect(ch chan<- prometheus.Metric) {
	for _, fan := range collector.fans {
		rpm, err := collector.io.ReadRpm(fan)
		if err != nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(collector.rpm, prometheus.GaugeValue, float64(rpm), fan.String())
	}
}
