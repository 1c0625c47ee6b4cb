package database

import (
	"gorm.io/gorm"
)

// Driver returns the dialector name of db ("sqlite" or "mysql")
func Driver(db *gorm.DB) string {
	return db.Dialector.Name()
}

// DayExpr SQL expression yielding the YYYY-MM-DD local day of a datetime column.
// SQLite stores times as text with the local offset, so the prefix is the
// local date; DATE() would convert to UTC first.
func DayExpr(db *gorm.DB, column string) string {
	if Driver(db) == "mysql" {
		return "DATE_FORMAT(" + column + ", '%Y-%m-%d')"
	}
	return "substr(" + column + ", 1, 10)"
}

// HourExpr SQL expression yielding the two-digit local hour of a datetime column
func HourExpr(db *gorm.DB, column string) string {
	if Driver(db) == "mysql" {
		return "DATE_FORMAT(" + column + ", '%H')"
	}
	return "substr(" + column + ", 12, 2)"
}

// ResetSequences restarts autoincrement counters after the tables were emptied
func ResetSequences(tx *gorm.DB, tables ...string) error {
	if Driver(tx) == "mysql" {
		// ALTER TABLE commits implicitly; InnoDB restarts at MAX(id)+1 anyway
		return nil
	}
	var n int64
	if err := tx.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'").Scan(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return tx.Exec("DELETE FROM sqlite_sequence WHERE name IN ?", tables).Error
}
