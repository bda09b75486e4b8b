// Chat HTTP handlers.
//
// This file exposes the discussion thread of an approval:
//   - GET  /approvals/{id}/chat  (list, ETag support)
//   - POST /approvals/{id}/chat  (post; @mentions notify)
//
// Both endpoints require the caller to be able to view the approval.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-claims-backend/internal/domain"
)

// ChatRequest is the JSON payload for posting a message.
type ChatRequest struct {
	// Text is trimmed; 1–4000 characters. @email or @name mentions notify.
	Text string `json:"text" binding:"required" example:"@hr@example.com can you check the hotel invoice?"`
}

// ChatMessageView is a message with its decoded mentions.
type ChatMessageView struct {
	domain.ChatMessage
	Mentions []string `json:"mentions"`
}

// ListChatResponse wraps a thread in ascending order.
type ListChatResponse struct {
	Messages []ChatMessageView `json:"messages"`
}

func chatView(m domain.ChatMessage) ChatMessageView {
	return ChatMessageView{ChatMessage: m, Mentions: m.MentionList()}
}

// ListChat godoc
// @ID          listChat
// @Summary     List the discussion of a claim
// @Description Returns up to 500 messages, oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
// @Security    BearerAuth
//
// @Param       id             path    string  true   "Unique number"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.ListChatResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /approvals/{id}/chat [get]
func (h *Handlers) ListChat(c *gin.Context) {
	ctx := c.Request.Context()
	a, err := h.approvals.Get(ctx, c.Param("id"), actor(c), role(c))
	if err != nil {
		failErr(c, err)
		return
	}

	if count, newest, err := h.chat.Stats(ctx, a.UniqueNumber); err == nil {
		var ts int64
		if newest != nil {
			ts = newest.UnixNano()
		}
		etag := fmt.Sprintf(`W/"chat:%s:%d:%d"`, a.UniqueNumber, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	msgs, err := h.chat.List(ctx, a.UniqueNumber)
	if err != nil {
		failErr(c, err)
		return
	}
	out := make([]ChatMessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatView(m))
	}
	ok(c, http.StatusOK, ListChatResponse{Messages: out})
}

// PostChat godoc
// @ID          postChat
// @Summary     Post to the discussion of a claim
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                true  "Unique number"
// @Param       body  body  handlers.ChatRequest  true  "Message"
// @Success     201  {object}  handlers.ChatMessageView
// @Failure     400  {object}  handlers.ErrorResponse  "Empty or too long"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /approvals/{id}/chat [post]
func (h *Handlers) PostChat(c *gin.Context) {
	ctx := c.Request.Context()
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeEmptyMessage, "text required")
		return
	}
	a, err := h.approvals.Get(ctx, c.Param("id"), actor(c), role(c))
	if err != nil {
		failErr(c, err)
		return
	}
	m, err := h.chat.Post(ctx, a.UniqueNumber, actor(c), req.Text)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, chatView(*m))
}
