package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SocialPost is a short promotional text shown by the content frontends
type SocialPost struct {
	ID         string     `json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	Name       string     `json:"name" gorm:"column:name;type:varchar(128);not null"`
	Content    string     `json:"content" gorm:"column:content;type:varchar(4096);not null"`
	ImageURL   *string    `json:"imageUrl" gorm:"column:imageUrl"`
	Weight     int        `json:"weight" gorm:"column:weight;not null;default:0"`
	ValidFrom  *time.Time `json:"validFrom" gorm:"column:validFrom"`
	UpdatedAt  *time.Time `json:"updatedAt" gorm:"column:updatedAt"`
	ArchivedAt *time.Time `json:"archivedAt" gorm:"column:archivedAt"`
}

func (SocialPost) TableName() string {
	return "social_posts"
}

// BeforeCreate assigns a uuid when the caller did not
func (p *SocialPost) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// SocialPostPatch carries a partial update; nil fields are left alone
type SocialPostPatch struct {
	Name       *string    `json:"name"`
	Content    *string    `json:"content"`
	ImageURL   *string    `json:"imageUrl"`
	Weight     *int       `json:"weight"`
	ValidFrom  *time.Time `json:"validFrom"`
	ArchivedAt *time.Time `json:"archivedAt"`
}

// columns maps the set fields onto column names
func (p SocialPostPatch) columns() map[string]any {
	cols := make(map[string]any)
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Content != nil {
		cols["content"] = *p.Content
	}
	if p.ImageURL != nil {
		cols["imageUrl"] = *p.ImageURL
	}
	if p.Weight != nil {
		cols["weight"] = *p.Weight
	}
	if p.ValidFrom != nil {
		cols["validFrom"] = p.ValidFrom.UTC()
	}
	if p.ArchivedAt != nil {
		cols["archivedAt"] = p.ArchivedAt.UTC()
	}
	return cols
}
