package statistics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linuxfancontrol/lfcd/internal/hwmon"
)

const subsystemSensor = "sensor"

type SensorCollector struct {
	io      hwmon.Io
	sensors []hwmon.TempSensor
	value   *prometheus.Desc
}

func NewSensorCollector(io hwmon.Io, sensors []hwmon.TempSensor) *SensorCollector {
	return &SensorCollector{
		io:      io,
		sensors: sensors,
		value: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemSensor, "temperature_celsius"),
			"Current temperature of the sensor",
			[]string{"id"}, nil,
		),
	}
}

func (collector *SensorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.value
}

func (collector *SensorCollector) Collect(ch chan<- prometheus.Metric) {
	for _, sensor := range collector.sensors {
		milliC, err := collector.io.ReadMilliC(sensor)
		if err != nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(collector.value, prometheus.GaugeValue, float64(milliC)/1000.0, sensor.String())
	}
}
