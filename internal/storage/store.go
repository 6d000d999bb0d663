package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/spigell/job-tracker/internal/apperrors"
	"github.com/spigell/job-tracker/internal/model"
)

// profileRowID is the primary key of the single active profile row.
const profileRowID = 1

// Store wraps the sqlite database holding the applications and profiles tables.
type Store struct {
	db *gorm.DB
}

// Options tunes the store.
type Options struct {
	// Debug enables gorm SQL logging.
	Debug bool
}

// ApplicationQuery filters ListApplications.
type ApplicationQuery struct {
	Status   model.Status
	Platform string
	Since    time.Time
}

// NewStore opens (creating if needed) the sqlite database at dbPath and migrates the schema.
func NewStore(dbPath string, opts Options) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Storage("create db dir", err)
		}
	}

	level := logger.Silent
	if opts.Debug {
		level = logger.Info
	}

	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, apperrors.Storage("open sqlite", err)
	}

	if err := db.AutoMigrate(&model.Application{}, &model.Profile{}); err != nil {
		return nil, apperrors.Storage("auto migrate models", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.Storage("get sql DB", err)
	}
	if err := sqlDB.Close(); err != nil {
		return apperrors.Storage("close db", err)
	}
	return nil
}

// CreateApplication inserts app unless an active application for the same platform and url exists.
// The check and the insert run in one transaction; on conflict nothing is written.
func (s *Store) CreateApplication(ctx context.Context, app *model.Application) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := activeDuplicate(tx, app.Platform, app.SourceURL, 0)
		if err != nil {
			return err
		}
		if existing != nil {
			return &apperrors.ConflictError{Platform: app.Platform, SourceURL: app.SourceURL, ExistingID: existing.ID}
		}

		if err := tx.Create(app).Error; err != nil {
			return fmt.Errorf("insert application: %w", err)
		}
		return nil
	})
	return apperrors.Storage("create application", err)
}

// FindActiveDuplicate returns the oldest application for platform and url whose status is not Pending,
// ignoring the application with exceptID. It returns nil when there is none.
func (s *Store) FindActiveDuplicate(ctx context.Context, platform, url string, exceptID uint) (*model.Application, error) {
	existing, err := activeDuplicate(s.db.WithContext(ctx), platform, url, exceptID)
	if err != nil {
		return nil, apperrors.Storage("find duplicate application", err)
	}
	return existing, nil
}

func activeDuplicate(db *gorm.DB, platform, url string, exceptID uint) (*model.Application, error) {
	var existing model.Application
	err := db.
		Where("platform = ? AND source_url = ? AND status <> ? AND id <> ?", platform, url, model.StatusPending, exceptID).
		Order("id ASC").
		Take(&existing).Error
	switch {
	case err == nil:
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("query existing application: %w", err)
	}
}

// UpdateApplication applies values to the application with id.
func (s *Store) UpdateApplication(ctx context.Context, id uint, values map[string]any) error {
	tx := s.db.WithContext(ctx).Model(&model.Application{}).Where("id = ?", id).Updates(values)
	if tx.Error != nil {
		return apperrors.Storage("update application", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return apperrors.NotFound("update application", "application %d", id)
	}
	return nil
}

// AppendApplicationNote appends line to the notes of application id, separated by a newline.
func (s *Store) AppendApplicationNote(ctx context.Context, id uint, line string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app model.Application
		if err := tx.Select("id", "notes").Take(&app, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("append note", "application %d", id)
			}
			return fmt.Errorf("load application: %w", err)
		}

		notes := line
		if app.Notes != "" {
			notes = app.Notes + "\n" + line
		}
		return tx.Model(&model.Application{}).Where("id = ?", id).Update("notes", notes).Error
	})
	return apperrors.Storage("append note", err)
}

// GetApplication returns the application with id.
func (s *Store) GetApplication(ctx context.Context, id uint) (*model.Application, error) {
	var app model.Application
	if err := s.db.WithContext(ctx).Take(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("get application", "application %d", id)
		}
		return nil, apperrors.Storage("get application", err)
	}
	return &app, nil
}

// ListApplications returns applications ordered by date_applied desc, then insertion order.
func (s *Store) ListApplications(ctx context.Context, q ApplicationQuery) ([]model.Application, error) {
	query := s.db.WithContext(ctx).Model(&model.Application{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Platform != "" {
		query = query.Where("platform = ?", q.Platform)
	}
	if !q.Since.IsZero() {
		query = query.Where("date_applied >= ?", q.Since)
	}

	var apps []model.Application
	if err := query.Order("date_applied DESC").Order("id ASC").Find(&apps).Error; err != nil {
		return nil, apperrors.Storage("list applications", err)
	}
	return apps, nil
}

// CountAppliedOn counts applications whose date_applied is day.
func (s *Store) CountAppliedOn(ctx context.Context, day time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&model.Application{}).
		Where("date_applied >= ? AND date_applied < ?", day, day.AddDate(0, 0, 1)).
		Count(&total).Error
	if err != nil {
		return 0, apperrors.Storage("count applications", err)
	}
	return total, nil
}

// DeleteAllApplications removes every application and returns how many were removed.
func (s *Store) DeleteAllApplications(ctx context.Context) (int64, error) {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Application{})
	if tx.Error != nil {
		return 0, apperrors.Storage("delete applications", tx.Error)
	}
	return tx.RowsAffected, nil
}

// CurrentProfile returns the active profile or nil when none was saved yet.
func (s *Store) CurrentProfile(ctx context.Context) (*model.Profile, error) {
	var profile model.Profile
	err := s.db.WithContext(ctx).Take(&profile, "id = ?", profileRowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Storage("get profile", err)
	}
	return &profile, nil
}

// SaveProfile validates and stores profile, replacing the previous one.
func (s *Store) SaveProfile(ctx context.Context, profile model.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	profile.ID = profileRowID
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name",
			"email",
			"phone",
			"resume_path",
			"skills",
			"experience",
			"education",
			"preferences",
			"updated_at",
		}),
	}).Create(&profile)
	if tx.Error != nil {
		return apperrors.Storage("save profile", tx.Error)
	}
	return nil
}
