package database

import (
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// getSchemaVersion reads PRAGMA user_version from the database.
func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// isLegacyDB reports whether a runs table exists without a user_version,
// as written by stores that predate schema versioning.
func isLegacyDB(conn *sql.DB) (bool, error) {
	return tableExists(conn, "runs")
}

// migrate brings the database schema up to the latest version.
// It uses PRAGMA user_version to track which migrations have been applied.
func migrate(conn *sql.DB) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}

	// Tables exist but user_version is 0: stamp as version 1.
	if current == 0 {
		legacy, err := isLegacyDB(conn)
		if err != nil {
			return err
		}
		if legacy {
			log.Warn("detected unversioned result store, stamping as version 1")
			if _, err := conn.Exec("PRAGMA user_version = 1"); err != nil {
				return fmt.Errorf("stamping legacy version: %w", err)
			}
			current = 1
		}
	}

	if current >= latestVersion() {
		return nil
	}
	for _, m := range migrations {
		if m.Version > current {
			if err := apply(conn, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// apply runs one migration in a transaction, then records its version.
func apply(conn *sql.DB, m Migration) error {
	log.WithField("version", m.Version).Infof("applying migration: %s", m.Description)

	if err := inTx(conn, m.Up); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}

	// modernc/sqlite rejects user_version inside a transaction; the DDL is
	// idempotent, so a crash before this line re-runs the step.
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("setting version %d: %w", m.Version, err)
	}
	return nil
}
