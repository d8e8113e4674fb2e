// The archive package provides persistent storage for emitted
// corrections.  Batches published by the emission scheduler are
// appended to a SQLite database, one row per satellite correction, so
// a run can be replayed or analysed afterwards without re-decoding the
// raw stream.
package archive

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/goblimey/go-b2b/b2b/corr"
)

// Recorder writes correction batches to a SQLite database.  It
// implements the scheduler's Sink interface, so it can be plugged
// straight into the decoder.
type Recorder struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path.  Use
// ":memory:" for a throwaway in-memory database.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Recorder{db: db}, nil
}

// Close closes the database connection.
func (recorder *Recorder) Close() error {
	return recorder.db.Close()
}

// createSchema creates the database tables and indices.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS orb_corrections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sta_id TEXT NOT NULL,
		prn TEXT NOT NULL,
		iod INTEGER NOT NULL,
		week INTEGER NOT NULL,
		sow REAL NOT NULL,
		radial REAL NOT NULL,
		along REAL NOT NULL,
		cross_track REAL NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS clk_corrections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sta_id TEXT NOT NULL,
		prn TEXT NOT NULL,
		iod INTEGER NOT NULL,
		week INTEGER NOT NULL,
		sow REAL NOT NULL,
		dclk REAL NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_orb_prn ON orb_corrections(prn);
	CREATE INDEX IF NOT EXISTS idx_orb_epoch ON orb_corrections(week, sow);
	CREATE INDEX IF NOT EXISTS idx_clk_prn ON clk_corrections(prn);
	CREATE INDEX IF NOT EXISTS idx_clk_epoch ON clk_corrections(week, sow);
	`
	_, err := db.Exec(schema)
	return err
}

// PublishOrbCorrections appends a batch of orbit corrections.  On an
// error the batch is dropped and the error is not reported - the
// decoder must not stall because the disk is full.
func (recorder *Recorder) PublishOrbCorrections(batch []corr.OrbCorr) {
	tx, err := recorder.db.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback()

	statement, err := tx.Prepare(`
		INSERT INTO orb_corrections (sta_id, prn, iod, week, sow, radial, along, cross_track)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return
	}
	defer statement.Close()

	for i := range batch {
		orbCorr := &batch[i]
		_, err = statement.Exec(orbCorr.StaID, orbCorr.PRN.String(), orbCorr.IOD,
			orbCorr.Time.Week, orbCorr.Time.Sow,
			orbCorr.Xr[0], orbCorr.Xr[1], orbCorr.Xr[2])
		if err != nil {
			return
		}
	}

	_ = tx.Commit()
}

// PublishClkCorrections appends a batch of clock corrections.
func (recorder *Recorder) PublishClkCorrections(batch []corr.ClkCorr) {
	tx, err := recorder.db.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback()

	statement, err := tx.Prepare(`
		INSERT INTO clk_corrections (sta_id, prn, iod, week, sow, dclk)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return
	}
	defer statement.Close()

	for i := range batch {
		clkCorr := &batch[i]
		_, err = statement.Exec(clkCorr.StaID, clkCorr.PRN.String(), clkCorr.IOD,
			clkCorr.Time.Week, clkCorr.Time.Sow, clkCorr.DClk)
		if err != nil {
			return
		}
	}

	_ = tx.Commit()
}

// OrbCount returns the number of archived orbit corrections.
func (recorder *Recorder) OrbCount() (int, error) {
	var count int
	err := recorder.db.QueryRow("SELECT COUNT(*) FROM orb_corrections").Scan(&count)
	return count, err
}

// ClkCount returns the number of archived clock corrections.
func (recorder *Recorder) ClkCount() (int, error) {
	var count int
	err := recorder.db.QueryRow("SELECT COUNT(*) FROM clk_corrections").Scan(&count)
	return count, err
}
