package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/amoylab/contentd/internal/apiserver/database"
	"github.com/amoylab/contentd/internal/common/errorx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SocialPostRequest is the body for creating a social post
type SocialPostRequest struct {
	Name       string     `json:"name" binding:"required,max=128"`
	Content    string     `json:"content" binding:"required,max=4096"`
	ImageURL   *string    `json:"imageUrl"`
	Weight     int        `json:"weight"`
	ValidFrom  *time.Time `json:"validFrom"`
	ArchivedAt *time.Time `json:"archivedAt"`
}

// SocialPostPatchRequest is the body for a partial update
type SocialPostPatchRequest struct {
	Name       *string    `json:"name" binding:"omitempty,min=1,max=128"`
	Content    *string    `json:"content" binding:"omitempty,min=1,max=4096"`
	ImageURL   *string    `json:"imageUrl"`
	Weight     *int       `json:"weight"`
	ValidFrom  *time.Time `json:"validFrom"`
	ArchivedAt *time.Time `json:"archivedAt"`
}

type Content struct {
	db     database.Database
	logger *zap.Logger
	now    func() time.Time
}

func NewContent(db database.Database, logger *zap.Logger) *Content {
	return &Content{
		db:     db,
		logger: logger.Named("apiserver.handler.content"),
		now:    time.Now,
	}
}

func (h *Content) HandleListSocialPosts(c *gin.Context) {
	posts, err := h.db.ListActiveSocialPosts(c.Request.Context(), h.now())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	if posts == nil {
		posts = []*database.SocialPost{}
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Content) HandleCreateSocialPost(c *gin.Context) {
	var req SocialPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errorx.ErrInvalidInput.WithDetail("reason", err.Error()))
		return
	}

	post := &database.SocialPost{
		Name:       req.Name,
		Content:    req.Content,
		ImageURL:   req.ImageURL,
		Weight:     req.Weight,
		ValidFrom:  req.ValidFrom,
		ArchivedAt: req.ArchivedAt,
	}
	if err := h.db.CreateSocialPost(c.Request.Context(), post); err != nil {
		h.fail(c, err, "")
		return
	}
	h.logger.Info("social post created", zap.String("id", post.ID))
	c.JSON(http.StatusCreated, post)
}

func (h *Content) HandleGetSocialPost(c *gin.Context) {
	id := c.Param("id")
	post, err := h.db.GetSocialPost(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, id)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Content) HandleUpdateSocialPost(c *gin.Context) {
	id := c.Param("id")
	var req SocialPostPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errorx.ErrInvalidInput.WithDetail("reason", err.Error()))
		return
	}

	post, err := h.db.UpdateSocialPost(c.Request.Context(), id, database.SocialPostPatch(req))
	if err != nil {
		h.fail(c, err, id)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Content) HandleDeleteSocialPost(c *gin.Context) {
	id := c.Param("id")
	if err := h.db.DeleteSocialPost(c.Request.Context(), id); err != nil {
		h.fail(c, err, id)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Content) fail(c *gin.Context, err error, id string) {
	if errors.Is(err, database.ErrNotFound) {
		_ = c.Error(errorx.NotFoundError("social_post", id))
		return
	}
	_ = c.Error(errorx.ErrDatabaseError.WithDetail("reason", err.Error()))
}
