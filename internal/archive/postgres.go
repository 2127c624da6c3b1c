package archive

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GameRecord struct {
	ID         uint         `gorm:"primaryKey"`
	Code       string       `gorm:"size:6;index;not null"`
	Variant    string       `gorm:"size:16;not null"`
	StartedAt  time.Time    `gorm:"not null"`
	FinishedAt time.Time    `gorm:"not null"`
	Teams      []TeamRecord `gorm:"foreignKey:GameID"`
}

type TeamRecord struct {
	ID       uint     `gorm:"primaryKey"`
	GameID   uint     `gorm:"index;not null"`
	Rank     int      `gorm:"not null"`
	Name     string   `gorm:"size:64;not null"`
	Points   int      `gorm:"not null"`
	Complete bool     `gorm:"not null;default:false"`
	Verdict  string   `gorm:"size:64"`
	Choices  []string `gorm:"serializer:json"`
}

func toRecord(r GameResult) GameRecord {
	rec := GameRecord{
		Code:       r.Code,
		Variant:    string(r.Variant),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Teams:      make([]TeamRecord, len(r.Entries)),
	}
	for i, e := range r.Entries {
		t := TeamRecord{
			Rank:     e.Rank,
			Name:     e.Name,
			Points:   e.Points,
			Complete: e.Complete,
			Choices:  e.Choices,
		}
		if e.Summary != nil {
			t.Verdict = e.Summary.Verdict
		}
		rec.Teams[i] = t
	}
	return rec
}

type Postgres struct {
	db  *gorm.DB
	log *zap.Logger
}

func OpenPostgres(ctx context.Context, dsn string, log *zap.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&GameRecord{}, &TeamRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive tables: %w", err)
	}
	log.Info("archiving finished games to postgres")
	return &Postgres{db: db, log: log}, nil
}

func (p *Postgres) Record(ctx context.Context, r GameResult) error {
	rec := toRecord(r)
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert game %s: %w", r.Code, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
