// Package archive keeps an after-action record of finished war room
// sessions in a SQL database, either a local SQLite file or Postgres.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/warroom/extension/internal/config"
	"github.com/warroom/extension/pkg/core"
)

// ErrUnknownDriver is returned by Open for drivers other than sqlite and postgres.
var ErrUnknownDriver = errors.New("unknown archive driver")

// Run is the summary of one finished session.
type Run struct {
	ID            uint      `gorm:"primarykey"`
	SessionID     string    `gorm:"size:36;uniqueIndex"`
	StartedAt     time.Time `gorm:"index"`
	EndedAt       time.Time
	OriginLabel   string `gorm:"size:16"`
	OriginCity    string `gorm:"size:128"`
	OriginLon     float64
	OriginLat     float64
	Ticks         int64
	AlertLevel    int
	Winner        string `gorm:"size:8;index"`
	Launches      int
	Impacts       int
	Escalations   int
	Casualties    int
	Mobilizations int
	Factions      datatypes.JSON
}

// TableName sets the table name for gorm.
func (Run) TableName() string {
	return "runs"
}

// FactionTally is the per-faction outcome stored in Run.Factions.
type FactionTally struct {
	Alive int `json:"alive"`
	Lost  int `json:"lost"`
	Fired int `json:"fired"`
}

// EncodeFactions converts per-faction tallies to the JSON column value.
func EncodeFactions(tallies map[core.FactionID]FactionTally) datatypes.JSON {
	if len(tallies) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(tallies)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// FactionTallies decodes the per-faction column.
func (r Run) FactionTallies() (map[core.FactionID]FactionTally, error) {
	out := make(map[core.FactionID]FactionTally)
	if len(r.Factions) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(r.Factions, &out); err != nil {
		return nil, fmt.Errorf("failed to decode faction tallies: %w", err)
	}
	return out, nil
}

// Store reads and writes Runs.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects with the configured driver and migrates the schema.
func Open(cfg config.ArchiveConfig, log zerolog.Logger) (*Store, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		db, err = OpenSqlite(cfg.Path)
	case "postgres":
		db, err = OpenPostgres(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", db.Dialector.Name()).Msg("Connected to archive database")
	return New(db, log)
}

// OpenPostgres returns a connection to the Postgres archive database.
func OpenPostgres(cfg config.ArchiveConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)
	return db, nil
}

// OpenSqlite returns a connection to a SQLite database file, creating its
// directory as needed. An empty path opens a private in-memory database.
func OpenSqlite(path string) (*gorm.DB, error) {
	dsn := "file::memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
		dsn = path
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite archive: %w", err)
	}
	if path == "" {
		// every pooled connection would get its own empty memory database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %s", err)
		}
	}
	return db, nil
}

// New wraps an open connection and migrates the runs table.
func New(db *gorm.DB, log zerolog.Logger) (*Store, error) {
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Save inserts a finished run. A session can be saved once.
func (s *Store) Save(r *Run) error {
	if err := s.db.Create(r).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.SessionID, err)
	}
	s.log.Info().
		Str("session", r.SessionID).
		Str("winner", r.Winner).
		Int64("ticks", r.Ticks).
		Msg("Archived run")
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	var runs []Run
	if err := s.db.Order("id desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Wins counts resolved runs per winning faction.
func (s *Store) Wins() (map[core.FactionID]int, error) {
	var rows []struct {
		Winner string
		Wins   int
	}
	err := s.db.Model(&Run{}).
		Select("winner, count(*) as wins").
		Where("winner <> ?", "").
		Group("winner").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count wins: %w", err)
	}

	out := make(map[core.FactionID]int, len(rows))
	for _, row := range rows {
		out[core.FactionID(row.Winner)] = row.Wins
	}
	return out, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
