package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// store implements Database on top of gorm for every supported dialect.
// Column names are camelCase, so queries go through clause builders to
// get dialect-correct quoting.
type store struct {
	db *gorm.DB
}

var _ Database = (*store)(nil)

func column(name string) clause.Column {
	return clause.Column{Name: name}
}

// Close closes the database connection
func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *store) Ping(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("SELECT 1").Error
}

func (s *store) ListActiveSocialPosts(ctx context.Context, now time.Time) ([]*SocialPost, error) {
	var posts []*SocialPost
	err := getDBFromContext(ctx, s.db).
		Where(clause.Lt{Column: column("validFrom"), Value: now.UTC()}).
		Where(clause.Eq{Column: column("archivedAt"), Value: nil}).
		Order(clause.OrderByColumn{Column: column("weight")}).
		Find(&posts).Error
	return posts, err
}

func (s *store) GetSocialPost(ctx context.Context, id string) (*SocialPost, error) {
	var post SocialPost
	err := getDBFromContext(ctx, s.db).
		Where(clause.Eq{Column: column("id"), Value: id}).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *store) CreateSocialPost(ctx context.Context, post *SocialPost) error {
	if post.ValidFrom != nil {
		v := post.ValidFrom.UTC()
		post.ValidFrom = &v
	}
	if post.ArchivedAt != nil {
		v := post.ArchivedAt.UTC()
		post.ArchivedAt = &v
	}
	return getDBFromContext(ctx, s.db).Create(post).Error
}

func (s *store) UpdateSocialPost(ctx context.Context, id string, patch SocialPostPatch) (*SocialPost, error) {
	var updated *SocialPost
	err := s.Transaction(ctx, func(ctx context.Context) error {
		post, err := s.GetSocialPost(ctx, id)
		if err != nil {
			return err
		}
		cols := patch.columns()
		if len(cols) > 0 {
			if err := getDBFromContext(ctx, s.db).Model(post).Updates(cols).Error; err != nil {
				return err
			}
		}
		updated, err = s.GetSocialPost(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *store) DeleteSocialPost(ctx context.Context, id string) error {
	res := getDBFromContext(ctx, s.db).
		Where(clause.Eq{Column: column("id"), Value: id}).
		Delete(&SocialPost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
