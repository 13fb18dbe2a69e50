package services

import (
	"strings"
	"unicode/utf8"

	"dbsite/internal/models"
	"dbsite/internal/repository"

	"go.uber.org/zap"
)

const maxAuthorLength = 50

// CommentInput is a submitted comment or reply form.
type CommentInput struct {
	Author string `form:"author"`
	Text   string `form:"text"`
}

// Validate trims the fields and checks them.
func (in *CommentInput) Validate() error {
	in.Author = strings.TrimSpace(in.Author)
	in.Text = strings.TrimSpace(in.Text)

	v := &ValidationError{}
	switch {
	case in.Author == "":
		v.add("author", "This field is required.")
	case utf8.RuneCountInString(in.Author) > maxAuthorLength:
		v.add("author", "Ensure this value has at most 50 characters.")
	}
	if in.Text == "" {
		v.add("text", "This field is required.")
	}
	return v.err()
}

// CommentService handles submission and moderation of comments and replies.
// Every moderation result carries the id of the post to return to.
type CommentService struct {
	posts    *repository.PostRepository
	comments *repository.CommentRepository
	logger   *zap.Logger
}

func NewCommentService(posts *repository.PostRepository, comments *repository.CommentRepository, logger *zap.Logger) *CommentService {
	return &CommentService{posts: posts, comments: comments, logger: logger}
}

// CheckPost returns ErrNotFound unless the post exists.
func (s *CommentService) CheckPost(postID uint) error {
	exists, err := s.posts.Exists(postID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// SubmitComment stores an unapproved comment on the post. The post is looked
// up before the input is validated, so a missing post is always ErrNotFound.
func (s *CommentService) SubmitComment(postID uint, in CommentInput) (*models.Comment, error) {
	if err := s.CheckPost(postID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	comment := &models.Comment{PostID: postID, Author: in.Author, Text: in.Text}
	if err := s.comments.CreateComment(comment); err != nil {
		return nil, err
	}
	s.logger.Info("comment submitted", zap.Uint("post_id", postID), zap.Uint("comment_id", comment.ID))
	return comment, nil
}

func (s *CommentService) ApproveComment(id uint, viewer Viewer) (uint, error) {
	if !viewer.Authenticated {
		return 0, ErrForbidden
	}
	comment, err := s.comments.FindComment(id)
	if err != nil {
		return 0, err
	}
	if err := s.comments.ApproveComment(comment); err != nil {
		return 0, err
	}
	return comment.PostID, nil
}

// RemoveComment deletes the comment and its replies.
func (s *CommentService) RemoveComment(id uint, viewer Viewer) (uint, error) {
	if !viewer.Authenticated {
		return 0, ErrForbidden
	}
	comment, err := s.comments.FindComment(id)
	if err != nil {
		return 0, err
	}
	if err := s.comments.DeleteComment(id); err != nil {
		return 0, err
	}
	s.logger.Info("comment removed", zap.Uint("comment_id", id), zap.String("by", viewer.Username))
	return comment.PostID, nil
}

// GetComment returns the comment a reply form answers.
func (s *CommentService) GetComment(id uint) (*models.Comment, error) {
	return s.comments.FindComment(id)
}

// SubmitReply stores an unapproved reply and returns it with the id of the
// post the parent comment belongs to.
func (s *CommentService) SubmitReply(commentID uint, in CommentInput) (*models.Reply, uint, error) {
	comment, err := s.comments.FindComment(commentID)
	if err != nil {
		return nil, 0, err
	}
	if err := in.Validate(); err != nil {
		return nil, 0, err
	}
	reply := &models.Reply{CommentID: commentID, Author: in.Author, Text: in.Text}
	if err := s.comments.CreateReply(reply); err != nil {
		return nil, 0, err
	}
	s.logger.Info("reply submitted", zap.Uint("comment_id", commentID), zap.Uint("reply_id", reply.ID))
	return reply, comment.PostID, nil
}

func (s *CommentService) ApproveReply(id uint, viewer Viewer) (uint, error) {
	if !viewer.Authenticated {
		return 0, ErrForbidden
	}
	reply, err := s.comments.FindReply(id)
	if err != nil {
		return 0, err
	}
	if err := s.comments.ApproveReply(reply); err != nil {
		return 0, err
	}
	return s.comments.PostIDForComment(reply.CommentID)
}

func (s *CommentService) RemoveReply(id uint, viewer Viewer) (uint, error) {
	if !viewer.Authenticated {
		return 0, ErrForbidden
	}
	reply, err := s.comments.FindReply(id)
	if err != nil {
		return 0, err
	}
	postID, err := s.comments.PostIDForComment(reply.CommentID)
	if err != nil {
		return 0, err
	}
	if err := s.comments.DeleteReply(id); err != nil {
		return 0, err
	}
	s.logger.Info("reply removed", zap.Uint("reply_id", id), zap.String("by", viewer.Username))
	return postID, nil
}

// Pending returns unapproved comments and replies for the dashboard.
func (s *CommentService) Pending(limit int) ([]models.Comment, []models.Reply, error) {
	comments, err := s.comments.PendingComments(limit)
	if err != nil {
		return nil, nil, err
	}
	replies, err := s.comments.PendingReplies(limit)
	if err != nil {
		return nil, nil, err
	}
	return comments, replies, nil
}

// PendingCounts reports the size of the moderation queue.
func (s *CommentService) PendingCounts() (comments, replies int64, err error) {
	return s.comments.CountPending()
}
