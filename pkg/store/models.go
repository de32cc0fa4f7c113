package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"quickgen/pkg/domain"
)

// CreationModel is the GORM model backing the creations table.
type CreationModel struct {
	ID        string         `gorm:"primaryKey"`
	UserID    string         `gorm:"not null;index"`
	Prompt    string         `gorm:"type:text;not null"`
	Content   string         `gorm:"type:text;not null"`
	Type      string         `gorm:"not null"`
	Publish   bool           `gorm:"not null;default:false"`
	Likes     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

// TableName keeps the historical table name.
func (CreationModel) TableName() string {
	return "creations"
}

func creationToModel(c domain.Creation) (CreationModel, error) {
	likes, err := marshalLikes(c.Likes)
	if err != nil {
		return CreationModel{}, err
	}
	return CreationModel{
		ID:        c.ID,
		UserID:    c.UserID,
		Prompt:    c.Prompt,
		Content:   c.Content,
		Type:      string(c.Type),
		Publish:   c.Publish,
		Likes:     likes,
		CreatedAt: c.CreatedAt,
	}, nil
}

func creationFromModel(m CreationModel) (domain.Creation, error) {
	likes, err := unmarshalLikes(m.Likes)
	if err != nil {
		return domain.Creation{}, err
	}
	return domain.Creation{
		ID:        m.ID,
		UserID:    m.UserID,
		Prompt:    m.Prompt,
		Content:   m.Content,
		Type:      domain.CreationType(m.Type),
		Publish:   m.Publish,
		Likes:     likes,
		CreatedAt: m.CreatedAt,
	}, nil
}

func marshalLikes(likes []string) (datatypes.JSON, error) {
	if likes == nil {
		likes = []string{}
	}
	data, err := json.Marshal(likes)
	if err != nil {
		return nil, fmt.Errorf("marshal likes: %w", err)
	}
	return datatypes.JSON(data), nil
}

func unmarshalLikes(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var likes []string
	if err := json.Unmarshal(raw, &likes); err != nil {
		return nil, fmt.Errorf("unmarshal likes: %w", err)
	}
	if likes == nil {
		likes = []string{}
	}
	return likes, nil
}
