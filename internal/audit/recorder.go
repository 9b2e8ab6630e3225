package audit

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fedimod/internal/config"
	"fedimod/internal/core"
)

// Entry is one issued moderation action.
type Entry struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	Kind    string `gorm:"index"`
	Target  string
	Outcome string
}

func (Entry) TableName() string {
	return "moderation_actions"
}

// Recorder keeps an audit trail of issued actions when a database URL is
// configured; otherwise every call is a no-op.
type Recorder struct {
	Logger *slog.Logger
	Config *config.Config

	db *gorm.DB
}

func (r *Recorder) Init(_ context.Context) error {
	r.Logger = r.Logger.With("component", "audit.Recorder")

	if r.Config.DatabaseURL == "" {
		r.Logger.Debug("audit trail disabled")
		return nil
	}

	db, err := gorm.Open(postgres.Open(r.Config.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return err
	}

	r.db = db
	return nil
}

// Record is best-effort and never fails the caller.
func (r *Recorder) Record(ctx context.Context, kind core.ActionKind, target, outcome string) {
	if r == nil || r.db == nil {
		return
	}

	entry := Entry{Kind: string(kind), Target: target, Outcome: outcome}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.Logger.Error("failed to record action", "kind", kind, "target", target, "error", err)
	}
}

func (r *Recorder) Shutdown(_ context.Context) error {
	if r.db == nil {
		return nil
	}

	sqlDB, err := r.db.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}
