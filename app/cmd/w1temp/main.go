package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jroedel/w1temp/app/sdk/appw1temp"
	"github.com/jroedel/w1temp/business/busreadinglog"
	"github.com/jroedel/w1temp/business/bussurvey"
	"github.com/jroedel/w1temp/foundation/ds18b20therm"
	"github.com/jroedel/w1temp/foundation/logger"
	"github.com/jroedel/w1temp/foundation/mqttpub"
	"github.com/jroedel/w1temp/foundation/sqldb"
)

var (
	v          = appw1temp.NewViper()
	configFile string
	cfg        appw1temp.Config
	logFile    io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "w1temp",
	Short:         "Read DS18B20 thermometers through the kernel 1-Wire interface",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = appw1temp.LoadConfig(v, configFile)
		if err != nil {
			return err
		}
		logFile, err = logger.Configure(cfg.LogLevel, cfg.LogFile)
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config `file` (default w1temp.{yaml,toml,json} in ., $HOME/.config/w1temp, /etc/w1temp)")
	flags.String("base-path", ds18b20therm.ThermometerDevicesRootPath, "w1 devices directory")
	flags.String("log-level", string(logger.LogLevelWarn), "log level: debug, info, warn or error")
	flags.String("log-file", "", "write logs to this rotated `file` instead of stderr")
	flags.String("db-driver", sqldb.DriverSQLite, "reading journal driver: sqlite or mysql")
	flags.String("db", "", "reading journal database: a file for sqlite, a DSN for mysql (journal off when empty)")
	flags.String("textfile", "", "write a Prometheus textfile after each read")
	flags.String("mqtt-broker", "", "publish readings to this MQTT broker, e.g. tcp://localhost:1883")
	flags.String("mqtt-topic", "w1temp", "MQTT topic prefix; the device id is appended")
	flags.BoolP("json", "j", false, "output in json format")
	if err := appw1temp.BindFlags(v, flags); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(listCmd, readCmd, historyCmd)
}

/*
build for raspberry pi using `env GOOS=linux GOARCH=arm GOARM=6 go build ./app/cmd/w1temp`
*/
func main() {
	err := rootCmd.Execute()
	if logFile != nil {
		logFile.Close()
	}
	if err != nil {
		if !appw1temp.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// sinks selects which optional parts newApp wires in.
type sinks struct {
	journal bool
	publish bool
}

// newApp wires the app from cfg. The returned func releases the journal and
// the broker connection and is never nil.
func newApp(s sinks) (*appw1temp.App, func(), error) {
	log := logrus.WithField("app", "w1temp")
	release := func() {}

	surveyor, err := bussurvey.New(ds18b20therm.NewDS18B20Reader(cfg.BasePath), log)
	if err != nil {
		return nil, release, err
	}

	opts := appw1temp.Options{JSON: cfg.JSON}

	if s.journal && cfg.DB.DSN != "" {
		db, err := sqldb.Open(cfg.DB.Driver, cfg.DB.DSN)
		if err != nil {
			return nil, release, errors.Wrap(err, "open reading journal")
		}
		release = func() { db.Close() }

		opts.Journal, err = busreadinglog.New(db, "")
		if err != nil {
			release()
			return nil, func() {}, err
		}
		log = log.WithField("execution_id", opts.Journal.ExecutionID())
	}

	if s.publish {
		opts.Textfile = cfg.Textfile
		if cfg.MQTT.Broker != "" {
			pub, err := mqttpub.Dial(mqttpub.Config{
				Broker:   cfg.MQTT.Broker,
				Username: cfg.MQTT.Username,
				Password: cfg.MQTT.Password,
				Retained: cfg.MQTT.Retained,
			})
			if err != nil {
				// readings are still printed and journaled without a broker
				log.WithError(err).Error("Failed to connect to the MQTT broker")
			} else {
				opts.Publisher = pub
				opts.MQTTTopic = cfg.MQTT.Topic
				closeJournal := release
				release = func() {
					pub.Close()
					closeJournal()
				}
			}
		}
	}

	app, err := appw1temp.New(surveyor, log, os.Stdout, os.Stderr, opts)
	if err != nil {
		release()
		return nil, func() {}, err
	}
	return app, release, nil
}
