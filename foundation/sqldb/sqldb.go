// Package sqldb opens the reading journal database and keeps its schema
// current. SQLite is the default; MySQL is supported for shared journals.
package sqldb

import (
	"context"
	_ "embed"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// migrations are executed every time Open is called. For this reason they
// must be crafted in a way that they don't create duplicate data.
var (
	//go:embed sql/sqlite.sql
	sqliteMigrate string

	//go:embed sql/mysql.sql
	mysqlMigrate string
)

const queryTimeout = 2 * time.Second

var log = logrus.WithField("package", "sqldb")

type DB struct {
	db     *sqlx.DB
	driver string
}

// Open connects to dsn with the named driver and runs the migration. For
// SQLite, dsn is a file path.
func Open(driver string, dsn string) (*DB, error) {
	var migrate string
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
		migrate = sqliteMigrate
	case DriverMySQL:
		var err error
		dsn, err = mysqlDSN(dsn)
		if err != nil {
			return nil, err
		}
		migrate = mysqlMigrate
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s connection", driver)
	}

	d := &DB{db: db, driver: driver}
	if err := d.migrate(migrate); err != nil {
		db.Close()
		return nil, err
	}
	log.Debugf("opened %s journal", driver)
	return d, nil
}

func sqliteDSN(path string) string {
	const connectionParams = "_pragma=busy_timeout(1000)&_pragma=journal_mode(WAL)"
	if strings.Contains(path, "?") {
		return path + "&" + connectionParams
	}
	return path + "?" + connectionParams
}

func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// migrate runs one statement at a time; the mysql driver rejects multiple
// statements per Exec unless multiStatements is enabled.
func (d *DB) migrate(script string) error {
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := d.Exec(stmt); err != nil {
			return errors.Wrap(err, "exec migration")
		}
	}
	return nil
}

func (d *DB) Driver() string {
	return d.driver
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Exec no result is returned
func (d *DB) Exec(query string, args ...any) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "execute query %q", firstLine(query))
	}
	return nil
}

// Select scans all rows into dest, a pointer to a slice of structs with db tags.
func (d *DB) Select(dest any, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return errors.Wrap(d.db.SelectContext(ctx, dest, query, args...), "select")
}

// Get scans a single row into dest.
func (d *DB) Get(dest any, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return errors.Wrap(d.db.GetContext(ctx, dest, query, args...), "get")
}

// Tx is a transaction started by InTx.
type Tx struct {
	tx  *sqlx.Tx
	ctx context.Context
}

func (t *Tx) Exec(query string, args ...any) error {
	if _, err := t.tx.ExecContext(t.ctx, query, args...); err != nil {
		return errors.Wrapf(err, "execute query %q", firstLine(query))
	}
	return nil
}

// InTx runs fn in a transaction, committed when fn returns nil and rolled
// back otherwise. The whole transaction shares one query timeout.
func (d *DB) InTx(fn func(tx *Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(&Tx{tx: tx, ctx: ctx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

func firstLine(query string) string {
	query = strings.TrimSpace(query)
	if i := strings.IndexByte(query, '\n'); i >= 0 {
		return query[:i]
	}
	return query
}
