// Package sql provides a gorm backed Storer for postgres and sqlite.
package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type campaignRow struct {
	ID                string `gorm:"primaryKey"`
	Name              string
	Status            string `gorm:"index"`
	ScheduleEnabled   bool
	ScheduleDays      []string `gorm:"serializer:json"`
	ScheduleTimeStart string
	ScheduleTimeEnd   string
	ScheduleTimezone  string
	BatchJobID        string
	Config            map[string]any `gorm:"serializer:json"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (campaignRow) TableName() string { return "campaigns" }

type callRow struct {
	ID                     string `gorm:"primaryKey"`
	CampaignID             string `gorm:"index:idx_calls_lookup"`
	PhoneNumber            string `gorm:"index:idx_calls_lookup"`
	Status                 string `gorm:"index:idx_calls_lookup"`
	Duration               int
	ExternalConversationID string
	Metadata               map[string]any `gorm:"serializer:json"`
	UpdatedAt              time.Time
}

func (callRow) TableName() string { return "calls" }

type schemaRow struct {
	ID      int `gorm:"primaryKey;autoIncrement:false"`
	Version int
}

func (schemaRow) TableName() string { return "schema_meta" }

// Store persists campaigns and calls through gorm.
type Store struct {
	db *gorm.DB
}

// NewPostgresStore opens a postgres database from a DSN.
func NewPostgresStore(dsn string) (kv.Storer, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn cannot be empty")
	}
	return open(postgres.Open(dsn))
}

// NewSQLiteStore opens (or creates) a sqlite database at path.
func NewSQLiteStore(path string) (kv.Storer, error) {
	if path == "" {
		return nil, errors.New("sqlite database path cannot be empty")
	}
	return open(sqlite.Open(path))
}

func open(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", kv.ErrDBOperationFailed, err)
	}
	if err := db.AutoMigrate(&campaignRow{}, &callRow{}, &schemaRow{}); err != nil {
		return nil, fmt.Errorf("%w: failed to migrate tables: %w", kv.ErrDBOperationFailed, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListCampaigns returns the campaigns matching filter, ordered by ID.
func (s *Store) ListCampaigns(ctx context.Context, filter kv.CampaignFilter) ([]*model.Campaign, error) {
	q := s.db.WithContext(ctx).Model(&campaignRow{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.ScheduleEnabled != nil {
		q = q.Where("schedule_enabled = ?", *filter.ScheduleEnabled)
	}
	if filter.HasBatchJob {
		q = q.Where("batch_job_id <> ''")
	}

	var rows []campaignRow
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list campaigns: %w", kv.ErrDBOperationFailed, err)
	}

	campaigns := make([]*model.Campaign, 0, len(rows))
	for i := range rows {
		campaigns = append(campaigns, rows[i].toModel())
	}
	return campaigns, nil
}

// GetCampaign retrieves a single campaign.
func (s *Store) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	var row campaignRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "campaign", id)
	}
	return row.toModel(), nil
}

// PutCampaign creates or replaces a campaign.
func (s *Store) PutCampaign(ctx context.Context, c *model.Campaign) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	row := campaignFromModel(c)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error; err != nil {
		return fmt.Errorf("%w: failed to put campaign: %w", kv.ErrDBOperationFailed, err)
	}
	return nil
}

// UpdateCampaign overwrites the fields set in u.
func (s *Store) UpdateCampaign(ctx context.Context, id string, u kv.CampaignUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row campaignRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return notFound(err, "campaign", id)
		}
		c := row.toModel()
		u.Apply(c)
		c.UpdatedAt = time.Now().UTC()
		if err := tx.Save(campaignFromModel(c)).Error; err != nil {
			return fmt.Errorf("%w: failed to update campaign: %w", kv.ErrDBOperationFailed, err)
		}
		return nil
	})
}

// FindPendingCall returns the first pending call with an exact phone number match.
func (s *Store) FindPendingCall(ctx context.Context, campaignID, phoneNumber string) (*model.CallRecord, error) {
	var row callRow
	err := s.db.WithContext(ctx).
		Where("campaign_id = ? AND phone_number = ? AND status = ?", campaignID, phoneNumber, string(model.CallPending)).
		Order("id").
		First(&row).Error
	if err != nil {
		return nil, notFound(err, "pending call", kv.CallKey(campaignID, phoneNumber))
	}
	return row.toModel(), nil
}

// ListCalls returns the calls of a campaign, or every call when campaignID is empty.
func (s *Store) ListCalls(ctx context.Context, campaignID string) ([]*model.CallRecord, error) {
	q := s.db.WithContext(ctx).Model(&callRow{})
	if campaignID != "" {
		q = q.Where("campaign_id = ?", campaignID)
	}

	var rows []callRow
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list calls: %w", kv.ErrDBOperationFailed, err)
	}

	calls := make([]*model.CallRecord, 0, len(rows))
	for i := range rows {
		calls = append(calls, rows[i].toModel())
	}
	return calls, nil
}

// PutCall creates or replaces a call record.
func (s *Store) PutCall(ctx context.Context, r *model.CallRecord) error {
	r.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(callFromModel(r)).Error; err != nil {
		return fmt.Errorf("%w: failed to put call: %w", kv.ErrDBOperationFailed, err)
	}
	return nil
}

// UpdateCall overwrites the fields set in u.
func (s *Store) UpdateCall(ctx context.Context, id string, u kv.CallUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row callRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			return notFound(err, "call", id)
		}
		r := row.toModel()
		u.Apply(r)
		r.UpdatedAt = time.Now().UTC()
		if err := tx.Save(callFromModel(r)).Error; err != nil {
			return fmt.Errorf("%w: failed to update call: %w", kv.ErrDBOperationFailed, err)
		}
		return nil
	})
}

// GetSchemaVersion retrieves the current schema version from the store.
func (s *Store) GetSchemaVersion(ctx context.Context) (int, error) {
	var row schemaRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get schema version: %w", kv.ErrDBOperationFailed, err)
	}
	return row.Version, nil
}

// SetSchemaVersion sets the current schema version in the store.
func (s *Store) SetSchemaVersion(ctx context.Context, version int) error {
	if err := s.db.WithContext(ctx).Save(&schemaRow{ID: 1, Version: version}).Error; err != nil {
		return fmt.Errorf("%w: failed to set schema version: %w", kv.ErrDBOperationFailed, err)
	}
	return nil
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s with id '%s'", kv.ErrNotFound, kind, id)
	}
	return fmt.Errorf("%w: failed to get %s: %w", kv.ErrDBOperationFailed, kind, err)
}

func (r *campaignRow) toModel() *model.Campaign {
	return &model.Campaign{
		ID:                r.ID,
		Name:              r.Name,
		Status:            model.CampaignStatus(r.Status),
		ScheduleEnabled:   r.ScheduleEnabled,
		ScheduleDays:      r.ScheduleDays,
		ScheduleTimeStart: r.ScheduleTimeStart,
		ScheduleTimeEnd:   r.ScheduleTimeEnd,
		ScheduleTimezone:  r.ScheduleTimezone,
		BatchJobID:        r.BatchJobID,
		Config:            r.Config,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func campaignFromModel(c *model.Campaign) *campaignRow {
	return &campaignRow{
		ID:                c.ID,
		Name:              c.Name,
		Status:            string(c.Status),
		ScheduleEnabled:   c.ScheduleEnabled,
		ScheduleDays:      c.ScheduleDays,
		ScheduleTimeStart: c.ScheduleTimeStart,
		ScheduleTimeEnd:   c.ScheduleTimeEnd,
		ScheduleTimezone:  c.ScheduleTimezone,
		BatchJobID:        c.BatchJobID,
		Config:            c.Config,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (r *callRow) toModel() *model.CallRecord {
	return &model.CallRecord{
		ID:                     r.ID,
		CampaignID:             r.CampaignID,
		PhoneNumber:            r.PhoneNumber,
		Status:                 model.CallStatus(r.Status),
		Duration:               r.Duration,
		ExternalConversationID: r.ExternalConversationID,
		Metadata:               r.Metadata,
		UpdatedAt:              r.UpdatedAt,
	}
}

func callFromModel(r *model.CallRecord) *callRow {
	return &callRow{
		ID:                     r.ID,
		CampaignID:             r.CampaignID,
		PhoneNumber:            r.PhoneNumber,
		Status:                 string(r.Status),
		Duration:               r.Duration,
		ExternalConversationID: r.ExternalConversationID,
		Metadata:               r.Metadata,
		UpdatedAt:              r.UpdatedAt,
	}
}
