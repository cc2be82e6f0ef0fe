package busreadinglog

import (
	"database/sql"
	"time"

	"github.com/jroedel/w1temp/business/bussurvey"
	"github.com/jroedel/w1temp/foundation/sqldb"
)

func (j *Journal) create(tx *sqldb.Tx, res bussurvey.Result) error {
	const query = `
		INSERT INTO readings
		(
			execution_id,
			device_id,
			read_at,
			celsius,
			error
		)
		VALUES
			(?, ?, ?, ?, ?)`

	celsius := sql.NullFloat64{Float64: res.Celsius, Valid: res.OK()}
	errText := ""
	if !res.OK() {
		errText = res.Err.Error()
	}

	return tx.Exec(query,
		j.executionID,
		res.DeviceID,
		res.ReadAt.Unix(),
		celsius,
		errText)
}

func (j *Journal) queryHistory(deviceID string, limit int) ([]Entry, error) {
	query := `
		SELECT
			id,
			execution_id,
			device_id,
			read_at,
			celsius,
			error
		FROM
			readings`
	var params []any
	if deviceID != "" {
		query += `
		WHERE
			device_id = ?`
		params = append(params, deviceID)
	}
	query += `
		ORDER BY read_at DESC, id DESC
		LIMIT ?`
	params = append(params, limit)

	var entries []Entry
	if err := j.db.Select(&entries, query, params...); err != nil {
		return nil, err
	}
	return entries, nil
}

func (j *Journal) getAverageRecentTemperature(deviceID string, d time.Duration) (float64, bool, error) {
	timestampRef := j.now().Add(-d).Unix()
	const query = `
		SELECT
			AVG(celsius)
		FROM readings
		WHERE
			device_id = ?
		  AND celsius IS NOT NULL
		  AND read_at >= ?`

	var avg sql.NullFloat64
	if err := j.db.Get(&avg, query, deviceID, timestampRef); err != nil {
		return 0, false, err
	}
	return avg.Float64, avg.Valid, nil
}
