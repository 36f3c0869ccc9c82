// Package archive keeps a write-only audit log of terminal jobs.
//
// The live registry is in-memory and authoritative; archive rows are never
// read back into it. They feed activity digests and after-the-fact audits.
package archive

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/audionhq/timbre/internal/models"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Opts selects the backing database.
type Opts struct {
	Driver string // DriverSQLite (default) or DriverMySQL
	Path   string // sqlite file path
	DSN    string // mysql DSN
}

// Archive records terminal job outcomes.
type Archive struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the outcome table.
func Open(opts Opts) (*Archive, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch opts.Driver {
	case "", DriverSQLite:
		path := opts.Path
		if path == "" {
			path = "timbre.db"
		}
		db, err = gorm.Open(sqlite.Open(path), gormCfg)
	case DriverMySQL:
		if opts.DSN == "" {
			return nil, fmt.Errorf("archive: mysql driver requires a dsn")
		}
		db, err = gorm.Open(mysql.Open(opts.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("archive: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}

	if err := db.AutoMigrate(&models.Outcome{}); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return &Archive{db: db}, nil
}

// Record appends the outcome row for a terminal job. Best-effort: failures
// are logged, never surfaced to the worker.
func (a *Archive) Record(job *models.Job, finished time.Time) {
	row := models.OutcomeFromJob(job, finished)
	if err := a.db.Create(&row).Error; err != nil {
		log.Printf("archive: record job %s: %v", job.ID, err)
	}
}

// Summary aggregates outcomes finished in [since, now) for digests.
type Summary struct {
	Done            int64
	Failed          int64
	AvgDurationSecs float64
}

// Summarize computes the activity summary since the given time.
func (a *Archive) Summarize(since time.Time) (Summary, error) {
	var s Summary
	base := a.db.Model(&models.Outcome{}).Where("finished_at >= ?", since)

	if err := base.Session(&gorm.Session{}).
		Where("status = ?", models.StatusDone).Count(&s.Done).Error; err != nil {
		return Summary{}, fmt.Errorf("archive: summarize: %w", err)
	}
	if err := base.Session(&gorm.Session{}).
		Where("status = ?", models.StatusError).Count(&s.Failed).Error; err != nil {
		return Summary{}, fmt.Errorf("archive: summarize: %w", err)
	}
	if s.Done > 0 {
		row := a.db.Model(&models.Outcome{}).
			Where("finished_at >= ? AND status = ?", since, models.StatusDone).
			Select("AVG(training_duration_seconds)")
		if err := row.Scan(&s.AvgDurationSecs).Error; err != nil {
			return Summary{}, fmt.Errorf("archive: summarize: %w", err)
		}
	}
	return s, nil
}
