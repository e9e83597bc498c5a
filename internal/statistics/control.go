package statistics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linuxfancontrol/lfcd/internal/hwmon"
)

const subsystemControl = "control"

type ControlCollector struct {
	io      hwmon.Io
	pwms    []hwmon.PwmOutput
	percent *prometheus.Desc
	enable  *prometheus.Desc
}

func NewControlCollector(io hwmon.Io, pwms []hwmon.PwmOutput) *ControlCollector {
	return &ControlCollector{
		io:   io,
		pwms: pwms,
		percent: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemControl, "duty_percent"),
			"Current duty of the pwm output",
			[]string{"id"}, nil,
		),
		enable: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemControl, "enable"),
			"Current control mode of the pwm output",
			[]string{"id"}, nil,
		),
	}
}

func (collector *ControlCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.percent
	ch <- collector.enable
}

func (collector *ControlCollector) Collect(ch chan<- prometheus.Metric) {
	for _, pwm := range collector.pwms {
		if percent, err := hwmon.ReadPercent(collector.io, pwm); err == nil {
			ch <- prometheus.MustNewConstMetric(collector.percent, prometheus.GaugeValue, float64(percent), pwm.String())
		}
		if len(pwm.EnablePath) > 0 {
			if enable, err := collector.io.ReadEnable(pwm); err == nil {
				ch <- prometheus.MustNewConstMetric(collector.enable, prometheus.GaugeValue, float64(enable), pwm.String())
			}
		}
	}
}
