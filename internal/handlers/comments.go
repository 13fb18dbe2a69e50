package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"dbsite/internal/metrics"
	"dbsite/internal/services"

	"github.com/gin-gonic/gin"
)

// CommentHandler serves the comment and reply forms and the moderation
// actions. Every successful action redirects to the owning post.
type CommentHandler struct {
	commentService *services.CommentService
	metrics        *metrics.Metrics
}

func NewCommentHandler(commentService *services.CommentService, m *metrics.Metrics) *CommentHandler {
	return &CommentHandler{commentService: commentService, metrics: m}
}

func postURL(id uint) string {
	return fmt.Sprintf("/post/%d", id)
}

func (h *CommentHandler) CommentForm(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		handleError(c, services.ErrNotFound)
		return
	}
	if err := h.commentService.CheckPost(postID); err != nil {
		handleError(c, err)
		return
	}
	render(c, http.StatusOK, "comment_form.html", gin.H{
		"action": fmt.Sprintf("/post/%d/comment", postID),
		"postID": postID,
		"form":   services.CommentInput{},
		"kind":   "comment",
	})
}

func (h *CommentHandler) SubmitComment(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		handleError(c, services.ErrNotFound)
		return
	}

	var in services.CommentInput
	_ = c.ShouldBind(&in)

	_, err := h.commentService.SubmitComment(postID, in)
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		render(c, http.StatusBadRequest, "comment_form.html", gin.H{
			"action": fmt.Sprintf("/post/%d/comment", postID),
			"postID": postID,
			"form":   in,
			"errors": verr.Fields,
			"kind":   "comment",
		})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	h.record(c, "comment")
	c.Redirect(http.StatusFound, postURL(postID))
}

func (h *CommentHandler) ApproveComment(c *gin.Context) {
	h.moderate(c, h.commentService.ApproveComment)
}

func (h *CommentHandler) RemoveComment(c *gin.Context) {
	h.moderate(c, h.commentService.RemoveComment)
}

func (h *CommentHandler) ReplyForm(c *gin.Context) {
	commentID, ok := idParam(c, "id")
	if !ok {
		handleError(c, services.ErrNotFound)
		return
	}
	comment, err := h.commentService.GetComment(commentID)
	if err != nil {
		handleError(c, err)
		return
	}
	render(c, http.StatusOK, "comment_form.html", gin.H{
		"action":  fmt.Sprintf("/comment/%d/reply", commentID),
		"postID":  comment.PostID,
		"comment": comment,
		"form":    services.CommentInput{},
		"kind":    "reply",
	})
}

func (h *CommentHandler) SubmitReply(c *gin.Context) {
	commentID, ok := idParam(c, "id")
	if !ok {
		handleError(c, services.ErrNotFound)
		return
	}

	var in services.CommentInput
	_ = c.ShouldBind(&in)

	_, postID, err := h.commentService.SubmitReply(commentID, in)
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		comment, lookupErr := h.commentService.GetComment(commentID)
		if lookupErr != nil {
			handleError(c, lookupErr)
			return
		}
		render(c, http.StatusBadRequest, "comment_form.html", gin.H{
			"action":  fmt.Sprintf("/comment/%d/reply", commentID),
			"postID":  comment.PostID,
			"comment": comment,
			"form":    in,
			"errors":  verr.Fields,
			"kind":    "reply",
		})
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}

	h.record(c, "reply")
	c.Redirect(http.StatusFound, postURL(postID))
}

func (h *CommentHandler) ApproveReply(c *gin.Context) {
	h.moderate(c, h.commentService.ApproveReply)
}

func (h *CommentHandler) RemoveReply(c *gin.Context) {
	h.moderate(c, h.commentService.RemoveReply)
}

// moderate runs a moderation action on the :id row and redirects to the post
// it belongs to.
func (h *CommentHandler) moderate(c *gin.Context, action func(uint, services.Viewer) (uint, error)) {
	id, ok := idParam(c, "id")
	if !ok {
		handleError(c, services.ErrNotFound)
		return
	}
	postID, err := action(id, viewerFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, postURL(postID))
}

func (h *CommentHandler) record(c *gin.Context, kind string) {
	if h.metrics != nil {
		h.metrics.RecordSubmission(c.Request.Context(), kind)
	}
}
