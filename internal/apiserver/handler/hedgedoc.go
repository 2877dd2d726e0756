package handler

import (
	"context"
	"net/http"

	"github.com/amoylab/contentd/internal/common/errorx"
	"github.com/amoylab/contentd/internal/notes"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotePusher pushes content into a HedgeDoc note
type NotePusher interface {
	Push(ctx context.Context, slug, content string, appendMode bool) notes.Result
}

// NoteRequest is the body of PUT /hedgedoc/:slug. An empty content is
// allowed; a missing one is not.
type NoteRequest struct {
	Content *string `json:"content" binding:"required"`
	Append  bool    `json:"append"`
}

type HedgeDoc struct {
	notes  NotePusher
	logger *zap.Logger
}

func NewHedgeDoc(pusher NotePusher, logger *zap.Logger) *HedgeDoc {
	return &HedgeDoc{notes: pusher, logger: logger.Named("apiserver.handler.hedgedoc")}
}

// HandlePutNote always answers 200 with the push result once the body is valid
func (h *HedgeDoc) HandlePutNote(c *gin.Context) {
	slug := c.Param("slug")
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errorx.ValidationError("content", err.Error()))
		return
	}

	res := h.notes.Push(c.Request.Context(), slug, *req.Content, req.Append)
	c.JSON(http.StatusOK, res)
}
