package appw1temp

import (
	"time"

	"github.com/jroedel/w1temp/business/busreadinglog"
	"github.com/jroedel/w1temp/business/bussurvey"
)

// reading is both the MQTT payload and the JSON output of read and history.
// Failed reads carry Error and no temperatures.
type reading struct {
	Device     string   `json:"device"`
	Celsius    *float64 `json:"celsius,omitempty"`
	Fahrenheit *float64 `json:"fahrenheit,omitempty"`
	ReadAt     string   `json:"read_at"`
	Error      string   `json:"error,omitempty"`
}

func newReading(res bussurvey.Result) reading {
	r := reading{Device: res.DeviceID, ReadAt: res.ReadAt.Format(time.RFC3339)}
	if !res.OK() {
		r.Error = res.Err.Error()
		return r
	}
	c, f := res.Celsius, res.Fahrenheit()
	r.Celsius, r.Fahrenheit = &c, &f
	return r
}

func readingsOf(report bussurvey.Report) []reading {
	out := make([]reading, 0, len(report.Results))
	for _, res := range report.Results {
		out = append(out, newReading(res))
	}
	return out
}

func readingOfEntry(e busreadinglog.Entry) reading {
	r := reading{Device: e.DeviceID, ReadAt: e.ReadAt().Format(time.RFC3339)}
	if !e.OK() {
		r.Error = e.Error
		return r
	}
	c := e.Celsius.Float64
	f := bussurvey.CelsiusToFahrenheit(c)
	r.Celsius, r.Fahrenheit = &c, &f
	return r
}

type averageJSON struct {
	Device     string   `json:"device"`
	Window     string   `json:"window"`
	Celsius    *float64 `json:"celsius,omitempty"`
	Fahrenheit *float64 `json:"fahrenheit,omitempty"`
}
