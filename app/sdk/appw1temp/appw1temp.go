// Package appw1temp implements the w1temp commands on top of the survey
// driver and the optional sinks: the reading journal, a Prometheus textfile
// and an MQTT broker.
package appw1temp

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jroedel/w1temp/business/busreadinglog"
	"github.com/jroedel/w1temp/business/bussurvey"
	"github.com/jroedel/w1temp/foundation/mqttpub"
	"github.com/jroedel/w1temp/foundation/promfile"
)

// ErrJournalDisabled is returned by History when no journal database is configured.
var ErrJournalDisabled = errors.New("the reading journal is disabled; set --db to enable it")

// Publisher is satisfied by *mqttpub.Publisher.
type Publisher interface {
	Publish(topic string, v any) error
}

// Options carries the optional parts of an App.
type Options struct {
	Journal   *busreadinglog.Journal
	Publisher Publisher
	MQTTTopic string
	Textfile  string
	JSON      bool
}

type App struct {
	//required
	surveyor *bussurvey.Surveyor
	log      logrus.FieldLogger
	out      io.Writer
	errOut   io.Writer

	//optional
	journal   *busreadinglog.Journal
	publisher Publisher
	mqttTopic string
	textfile  string
	json      bool

	now func() time.Time
}

func New(surveyor *bussurvey.Surveyor, log logrus.FieldLogger, out io.Writer, errOut io.Writer, opts Options) (*App, error) {
	if surveyor == nil {
		return nil, errors.New("app construct: Surveyor is required")
	}
	if log == nil {
		return nil, errors.New("app construct: Logger is required")
	}
	if out == nil || errOut == nil {
		return nil, errors.New("app construct: output writers are required")
	}
	return &App{
		surveyor:  surveyor,
		log:       log,
		out:       out,
		errOut:    errOut,
		journal:   opts.Journal,
		publisher: opts.Publisher,
		mqttTopic: opts.MQTTTopic,
		textfile:  opts.Textfile,
		json:      opts.JSON,
		now:       time.Now,
	}, nil
}

// reportedError marks a failure whose details were already written to errOut.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported tells whether the user has already been told about err.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// List prints the id of every thermometer on the bus.
func (app *App) List() error {
	ids, err := app.surveyor.Devices(nil)
	if err != nil {
		fmt.Fprintf(app.errOut, "Error enumerating sensors: %s\n", errors.Cause(err))
		return &reportedError{err: err}
	}
	if app.json {
		if ids == nil {
			ids = []string{}
		}
		return app.writeJSON(ids)
	}
	if len(ids) == 0 {
		fmt.Fprintln(app.out, "no thermometers found")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(app.out, id)
	}
	return nil
}

// Read reads the given devices, or every device on the bus, prints one line
// per device and feeds the configured sinks. The error is non-nil when the
// bus could not be enumerated or at least one device failed.
func (app *App) Read(ids []string) error {
	report, err := app.surveyor.Survey(ids)
	if err != nil {
		fmt.Fprintf(app.errOut, "Error enumerating sensors: %s\n", errors.Cause(err))
		return &reportedError{err: err}
	}

	var outErr error
	if app.json {
		outErr = app.writeJSON(readingsOf(report))
	} else if len(report.Results) == 0 {
		fmt.Fprintln(app.out, "no thermometers found")
	}
	for _, res := range report.Results {
		switch {
		case !res.OK():
			fmt.Fprintf(app.errOut, "Error reading sensor %s: %s\n", res.DeviceID, res.Err)
		case !app.json:
			fmt.Fprintf(app.out, "%s: %g°C (%g°F)\n", res.DeviceID, res.Celsius, res.Fahrenheit())
		}
	}

	app.feedSinks(report)

	if outErr != nil {
		return outErr
	}
	if err := report.Err(); err != nil {
		return &reportedError{err: err}
	}
	return nil
}

// feedSinks hands the report to every configured sink. Sink failures are
// logged and do not change the outcome of the read.
func (app *App) feedSinks(report bussurvey.Report) {
	if app.journal != nil {
		if err := app.journal.Record(report); err != nil {
			app.log.WithError(err).Error("could not record readings in the journal")
		}
	}

	if app.textfile != "" {
		samples := make([]promfile.Sample, 0, len(report.Results))
		for _, res := range report.Results {
			samples = append(samples, promfile.Sample{DeviceID: res.DeviceID, Celsius: res.Celsius, OK: res.OK()})
		}
		if err := promfile.Write(app.textfile, report.StartedAt, samples); err != nil {
			app.log.WithError(err).Error("could not write the metrics textfile")
		}
	}

	if app.publisher != nil {
		for _, res := range report.Results {
			if !res.OK() {
				continue
			}
			topic := mqttpub.Topic(app.mqttTopic, res.DeviceID)
			if err := app.publisher.Publish(topic, newReading(res)); err != nil {
				app.log.WithError(err).WithField("device", res.DeviceID).Error("could not publish reading")
			}
		}
	}
}

// HistoryRequest selects what History prints. With Average set, the mean of
// Device over that window is printed instead of individual rows.
type HistoryRequest struct {
	Device  string
	Limit   int
	Average time.Duration
}

func (r HistoryRequest) Validate() error {
	if r.Limit < 0 {
		return errors.Errorf("limit must not be negative; got %d", r.Limit)
	}
	if r.Average < 0 {
		return errors.Errorf("average window must be positive; got %s", r.Average)
	}
	if r.Average > 0 && r.Device == "" {
		return errors.New("please specify the device to average `w1temp history --device 28-... --average 1h`")
	}
	return nil
}

// History prints journal rows, newest first, or an average.
func (app *App) History(req HistoryRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if app.journal == nil {
		return ErrJournalDisabled
	}

	if req.Average > 0 {
		return app.average(req.Device, req.Average)
	}

	entries, err := app.journal.History(busreadinglog.HistoryFilter{DeviceID: req.Device, Limit: req.Limit})
	if err != nil {
		return errors.Wrap(err, "history")
	}

	if app.json {
		out := make([]reading, 0, len(entries))
		for _, e := range entries {
			out = append(out, readingOfEntry(e))
		}
		return app.writeJSON(out)
	}
	if len(entries) == 0 {
		fmt.Fprintln(app.out, "no readings recorded")
		return nil
	}
	for _, e := range entries {
		when := humanize.RelTime(e.ReadAt(), app.now(), "ago", "from now")
		if e.OK() {
			c := e.Celsius.Float64
			fmt.Fprintf(app.out, "%s\t%s: %g°C (%g°F)\n", when, e.DeviceID, c, bussurvey.CelsiusToFahrenheit(c))
		} else {
			fmt.Fprintf(app.out, "%s\t%s: error: %s\n", when, e.DeviceID, e.Error)
		}
	}
	return nil
}

func (app *App) average(device string, window time.Duration) error {
	avg, ok, err := app.journal.Average(device, window)
	if err != nil {
		return errors.Wrap(err, "average")
	}
	if app.json {
		out := averageJSON{Device: device, Window: window.String()}
		if ok {
			f := bussurvey.CelsiusToFahrenheit(avg)
			out.Celsius, out.Fahrenheit = &avg, &f
		}
		return app.writeJSON(out)
	}
	if !ok {
		fmt.Fprintf(app.out, "%s: no readings in the last %s\n", device, window)
		return nil
	}
	fmt.Fprintf(app.out, "%s: %g°C (%g°F) average over the last %s\n", device, avg, bussurvey.CelsiusToFahrenheit(avg), window)
	return nil
}

func (app *App) writeJSON(v any) error {
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "write json")
}
