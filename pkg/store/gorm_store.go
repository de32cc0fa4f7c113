package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"quickgen/internal/util"
	"quickgen/pkg/domain"
)

const migrateLockID int64 = 54125412

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&CreationModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// RecordCreation inserts a new creation row.
func (s *GormStore) RecordCreation(c domain.Creation) (domain.Creation, error) {
	if c.ID == "" {
		c.ID = util.NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	model, err := creationToModel(c)
	if err != nil {
		return domain.Creation{}, err
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Creation{}, fmt.Errorf("insert creation: %w", err)
	}
	return creationFromModel(model)
}

// ListCreationsByUser returns a user's creations, newest first.
func (s *GormStore) ListCreationsByUser(userID string) ([]domain.Creation, error) {
	var models []CreationModel
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list user creations: %w", err)
	}
	return creationsFromModels(models)
}

// ListPublishedCreations returns published creations, newest first.
func (s *GormStore) ListPublishedCreations() ([]domain.Creation, error) {
	var models []CreationModel
	if err := s.db.Where("publish = ?", true).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list published creations: %w", err)
	}
	return creationsFromModels(models)
}

// ToggleLike flips the caller's membership in a creation's likes set.
// The row is locked for the duration of the transaction so concurrent
// toggles by different users cannot lose each other's update.
func (s *GormStore) ToggleLike(creationID, userID string) (domain.LikeTransition, error) {
	var transition domain.LikeTransition
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model CreationModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", creationID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrCreationNotFound
			}
			return fmt.Errorf("load creation: %w", err)
		}
		likes, err := unmarshalLikes(model.Likes)
		if err != nil {
			return err
		}
		updated := make([]string, 0, len(likes)+1)
		found := false
		for _, id := range likes {
			if id == userID {
				found = true
				continue
			}
			updated = append(updated, id)
		}
		if found {
			transition = domain.TransitionUnliked
		} else {
			updated = append(updated, userID)
			transition = domain.TransitionLiked
		}
		raw, err := marshalLikes(updated)
		if err != nil {
			return err
		}
		if err := tx.Model(&CreationModel{}).Where("id = ?", creationID).
			Update("likes", raw).Error; err != nil {
			return fmt.Errorf("update likes: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return transition, nil
}

func creationsFromModels(models []CreationModel) ([]domain.Creation, error) {
	out := make([]domain.Creation, 0, len(models))
	for _, m := range models {
		c, err := creationFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
