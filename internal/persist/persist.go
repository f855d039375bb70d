// Package persist stores the medication collection in SQLite.
package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"meditrack/internal/apperr"
	"meditrack/internal/medication"
)

// medicationRecord is the row form of a Medication. Times and taken
// doses are serialized to JSON text columns.
type medicationRecord struct {
	ID        string     `gorm:"primaryKey"`
	Name      string     `gorm:"not null"`
	Dosage    string
	Condition string
	Frequency int
	TimesJSON string     `gorm:"type:text"`
	TakenJSON string     `gorm:"type:text"`
	Notes     string
	StartDate time.Time
	EndDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (medicationRecord) TableName() string { return "medications" }

// Store persists the whole collection as an authoritative snapshot:
// SaveAll replaces every row, LoadAll reads them back.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (or creates) the SQLite database at the given path and
// migrates the schema. ":memory:" is accepted for tests.
func Open(path string, log *zap.Logger) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	sqliteDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqliteDB.SetMaxOpenConns(1)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&medicationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &Store{db: db, logger: log}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// LoadAll reads the stored collection. Rows that fail to decode are
// skipped with a warning rather than failing the load; a missing table
// or empty database yields an empty list.
func (s *Store) LoadAll() ([]*medication.Medication, error) {
	var records []medicationRecord
	if err := s.db.Order("created_at").Find(&records).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.ErrPersistence.Code, "failed to load medications")
	}

	meds := make([]*medication.Medication, 0, len(records))
	for _, rec := range records {
		med, err := rec.decode()
		if err != nil {
			s.logger.Warn("skipping undecodable medication row",
				zap.String("id", rec.ID),
				zap.Error(err))
			continue
		}
		meds = append(meds, med)
	}
	return meds, nil
}

// SaveAll replaces the stored collection with the given one.
func (s *Store) SaveAll(meds []*medication.Medication) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&medicationRecord{}).Error; err != nil {
			return apperr.Wrap(err, apperr.ErrPersistence.Code, "failed to clear medications")
		}
		for _, med := range meds {
			rec, err := encode(med)
			if err != nil {
				return apperr.Wrap(err, apperr.ErrPersistence.Code, "failed to encode medication")
			}
			if err := tx.Create(rec).Error; err != nil {
				return apperr.Wrap(err, apperr.ErrPersistence.Code, "failed to save medication")
			}
		}
		return nil
	})
}

func encode(m *medication.Medication) (*medicationRecord, error) {
	timesJSON, err := json.Marshal(m.Times)
	if err != nil {
		return nil, err
	}
	takenJSON, err := json.Marshal(m.TakenDoses)
	if err != nil {
		return nil, err
	}
	return &medicationRecord{
		ID:        m.ID.String(),
		Name:      m.Name,
		Dosage:    m.Dosage,
		Condition: string(m.Condition),
		Frequency: m.Frequency,
		TimesJSON: string(timesJSON),
		TakenJSON: string(takenJSON),
		Notes:     m.Notes,
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
	}, nil
}

func (rec medicationRecord) decode() (*medication.Medication, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrDecode.Code, "bad medication id")
	}

	var times []medication.Time
	if rec.TimesJSON != "" {
		if err := json.Unmarshal([]byte(rec.TimesJSON), &times); err != nil {
			return nil, apperr.Wrap(err, apperr.ErrDecode.Code, "bad times payload")
		}
	}

	var taken []time.Time
	if rec.TakenJSON != "" {
		if err := json.Unmarshal([]byte(rec.TakenJSON), &taken); err != nil {
			return nil, apperr.Wrap(err, apperr.ErrDecode.Code, "bad taken doses payload")
		}
	}

	return &medication.Medication{
		ID:         id,
		Name:       rec.Name,
		Dosage:     rec.Dosage,
		Condition:  medication.IntakeCondition(rec.Condition),
		Frequency:  rec.Frequency,
		Times:      times,
		TakenDoses: taken,
		Notes:      rec.Notes,
		StartDate:  rec.StartDate,
		EndDate:    rec.EndDate,
	}, nil
}
