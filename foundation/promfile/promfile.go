// Package promfile writes thermometer readings in the Prometheus text format
// for the node_exporter textfile collector.
package promfile

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Sample is the outcome of reading one device.
type Sample struct {
	DeviceID string
	Celsius  float64
	OK       bool
}

type collectors struct {
	temperature *prometheus.GaugeVec
	success     *prometheus.GaugeVec
	devices     prometheus.Gauge
	lastSurvey  prometheus.Gauge
}

func newCollectors() collectors {
	return collectors{
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "w1temp_temperature_celsius",
			Help: "Temperature reported by a DS18B20 thermometer.",
		}, []string{"device"}),
		success: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "w1temp_read_success",
			Help: "Whether the last read of a thermometer succeeded (1) or failed (0).",
		}, []string{"device"}),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "w1temp_devices_total",
			Help: "Number of thermometers read in the last survey.",
		}),
		lastSurvey: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "w1temp_last_survey_timestamp_seconds",
			Help: "Unix time of the last survey.",
		}),
	}
}

// Write renders samples into path. The file is replaced atomically so the
// collector never sees a partial write. Failed devices get a success gauge of
// 0 and no temperature series.
func Write(path string, at time.Time, samples []Sample) error {
	c := newCollectors()
	reg := prometheus.NewRegistry()
	reg.MustRegister(c.temperature, c.success, c.devices, c.lastSurvey)

	for _, s := range samples {
		if !s.OK {
			c.success.WithLabelValues(s.DeviceID).Set(0)
			continue
		}
		c.success.WithLabelValues(s.DeviceID).Set(1)
		c.temperature.WithLabelValues(s.DeviceID).Set(s.Celsius)
	}
	c.devices.Set(float64(len(samples)))
	c.lastSurvey.Set(float64(at.Unix()))

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return errors.Wrapf(err, "write textfile %q", path)
	}
	return nil
}
