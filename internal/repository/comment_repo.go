package repository

import (
	"dbsite/internal/models"

	"gorm.io/gorm"
)

// CommentRepository stores comments and their replies.
type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) CreateComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

func (r *CommentRepository) FindComment(id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

// ApproveComment marks the comment approved and persists the flag.
func (r *CommentRepository) ApproveComment(comment *models.Comment) error {
	comment.Approved = true
	return r.db.Model(comment).Update("approved", true).Error
}

// DeleteComment removes the comment and every reply to it.
func (r *CommentRepository) DeleteComment(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *CommentRepository) CreateReply(reply *models.Reply) error {
	return r.db.Create(reply).Error
}

func (r *CommentRepository) FindReply(id uint) (*models.Reply, error) {
	var reply models.Reply
	if err := r.db.First(&reply, id).Error; err != nil {
		return nil, translate(err)
	}
	return &reply, nil
}

func (r *CommentRepository) ApproveReply(reply *models.Reply) error {
	reply.Approved = true
	return r.db.Model(reply).Update("approved", true).Error
}

func (r *CommentRepository) DeleteReply(id uint) error {
	res := r.db.Delete(&models.Reply{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PostIDForComment resolves the post a comment belongs to.
func (r *CommentRepository) PostIDForComment(commentID uint) (uint, error) {
	comment, err := r.FindComment(commentID)
	if err != nil {
		return 0, err
	}
	return comment.PostID, nil
}

// PendingComments returns unapproved comments, newest first.
func (r *CommentRepository) PendingComments(limit int) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.Where("approved = ?", false).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

// PendingReplies returns unapproved replies, newest first.
func (r *CommentRepository) PendingReplies(limit int) ([]models.Reply, error) {
	var replies []models.Reply
	err := r.db.Where("approved = ?", false).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&replies).Error
	return replies, err
}

// CountPending returns how many comments and replies await moderation.
func (r *CommentRepository) CountPending() (comments, replies int64, err error) {
	if err = r.db.Model(&models.Comment{}).Where("approved = ?", false).Count(&comments).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.Model(&models.Reply{}).Where("approved = ?", false).Count(&replies).Error
	return comments, replies, err
}
