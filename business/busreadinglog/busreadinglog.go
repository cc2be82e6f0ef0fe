// Package busreadinglog keeps a journal of thermometer reads:
// 1. append the outcome of every device read of a survey
// 2. list recent entries, newest first
// 3. average the successful reads of a device over a recent window
//
// The journal is write-mostly history. It is never used to answer a read.
package busreadinglog

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jroedel/w1temp/business/bussurvey"
	"github.com/jroedel/w1temp/foundation/sqldb"
)

type Journal struct {
	db          *sqldb.DB
	executionID string
	now         func() time.Time
}

// New returns a journal tagging rows with executionID, or with a fresh uuid
// when executionID is empty.
func New(db *sqldb.DB, executionID string) (*Journal, error) {
	if db == nil {
		return nil, errors.New("journal construct: db is required")
	}
	if executionID == "" {
		executionID = uuid.NewString()
	}
	return &Journal{db: db, executionID: executionID, now: time.Now}, nil
}

func (j *Journal) ExecutionID() string {
	return j.executionID
}

// Record stores one row per result, all or nothing.
func (j *Journal) Record(report bussurvey.Report) error {
	return j.db.InTx(func(tx *sqldb.Tx) error {
		for _, res := range report.Results {
			if err := j.create(tx, res); err != nil {
				return errors.Wrapf(err, "journal %s", res.DeviceID)
			}
		}
		return nil
	})
}

func (j *Journal) History(filter HistoryFilter) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	return j.queryHistory(filter.DeviceID, filter.Limit)
}

// Average returns the mean temperature of deviceID over the last d. ok is
// false when no successful read falls in the window.
func (j *Journal) Average(deviceID string, d time.Duration) (avg float64, ok bool, err error) {
	if deviceID == "" {
		return 0, false, errors.New("journal average: device id is required")
	}
	return j.getAverageRecentTemperature(deviceID, d)
}
