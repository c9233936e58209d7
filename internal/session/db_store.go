package session

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/moments/internal/model"
)

// sessionRow 本地数据库中的会话行，按 slot 区分多个登录槽位
type sessionRow struct {
	Slot      string `gorm:"primaryKey;type:varchar(64)"`
	Token     string `gorm:"type:text;not null"`
	UserID    string `gorm:"type:varchar(64);not null"`
	Email     string `gorm:"type:varchar(255)"`
	ExpiresAt *time.Time
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "client_sessions" }

// DBStore 以 gorm（sqlite / postgres）保存会话
type DBStore struct {
	db   *gorm.DB
	slot string
}

// NewDBStore 会自动建表
func NewDBStore(ctx context.Context, db *gorm.DB, slot string) (*DBStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&sessionRow{}); err != nil {
		return nil, err
	}
	return &DBStore{db: db, slot: slot}, nil
}

func (d *DBStore) Load(ctx context.Context) (*model.Session, error) {
	var row sessionRow
	err := d.db.WithContext(ctx).Where("slot = ?", d.slot).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	s := &model.Session{Token: row.Token, UserID: model.ID(row.UserID), Email: row.Email}
	if row.ExpiresAt != nil {
		s.ExpiresAt = *row.ExpiresAt
	}
	return s, nil
}

// Save upsert 当前 slot 的会话
func (d *DBStore) Save(ctx context.Context, s *model.Session) error {
	row := sessionRow{Slot: d.slot, Token: s.Token, UserID: s.UserID.String(), Email: s.Email}
	if !s.ExpiresAt.IsZero() {
		exp := s.ExpiresAt
		row.ExpiresAt = &exp
	}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "user_id", "email", "expires_at", "updated_at"}),
	}).Create(&row).Error
}

func (d *DBStore) Clear(ctx context.Context) error {
	return d.db.WithContext(ctx).Where("slot = ?", d.slot).Delete(&sessionRow{}).Error
}
