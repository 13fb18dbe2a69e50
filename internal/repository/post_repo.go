package repository

import (
	"strings"

	"dbsite/internal/models"

	"gorm.io/gorm"
)

// PostFilter narrows a post listing. Zero values mean "no restriction".
type PostFilter struct {
	CategoryID uint
	TagID      uint
	// Query is matched case-insensitively as a substring of the title, the
	// content, the category name or any tag name.
	Query string
}

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts the post and links it to tags.
func (r *PostRepository) Create(post *models.Post, tags []models.Tag) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		post.Tags = nil
		if err := tx.Omit("Category", "Tags").Create(post).Error; err != nil {
			return err
		}
		return replaceTags(tx, post, tags)
	})
}

// Update saves every column of the post and replaces its tag set.
func (r *PostRepository) Update(post *models.Post, tags []models.Tag) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		post.Tags = nil
		if err := tx.Omit("CreatedAt", "Category", "Tags", "ContentImages", "Comments").Save(post).Error; err != nil {
			return err
		}
		return replaceTags(tx, post, tags)
	})
}

func replaceTags(tx *gorm.DB, post *models.Post, tags []models.Tag) error {
	if len(tags) == 0 {
		return tx.Model(post).Association("Tags").Clear()
	}
	if err := tx.Model(post).Association("Tags").Replace(tags); err != nil {
		return err
	}
	post.Tags = tags
	return nil
}

// Delete removes a post together with its comments, their replies and its tag
// links. A post that still owns content images is protected.
func (r *PostRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			return translate(err)
		}

		var images int64
		if err := tx.Model(&models.ContentImage{}).Where("post_id = ?", id).Count(&images).Error; err != nil {
			return err
		}
		if images > 0 {
			return ErrProtected
		}

		comments := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("comment_id IN (?)", comments).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
}

// FindByID loads a post with everything the detail page shows.
func (r *PostRepository) FindByID(id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.
		Preload("Category").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("ContentImages", func(db *gorm.DB) *gorm.DB { return db.Order("content_images.id") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.timestamp DESC, comments.id DESC")
		}).
		Preload("Comments.Replies", func(db *gorm.DB) *gorm.DB { return db.Order("replies.id") }).
		First(&post, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// Exists reports whether a post with the id is stored, regardless of visibility.
func (r *PostRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Post{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *PostRepository) Count(filter PostFilter) (int64, error) {
	var count int64
	err := r.filtered(filter).Count(&count).Error
	return count, err
}

// FindPage returns posts newest first. A negative limit returns every match.
func (r *PostRepository) FindPage(filter PostFilter, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	query := r.filtered(filter).
		Preload("Category").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Order("posts.created_at DESC, posts.id DESC")
	if limit >= 0 {
		query = query.Offset(offset).Limit(limit)
	}
	err := query.Find(&posts).Error
	return posts, err
}

// filtered builds the listing query. Every filter is a subquery on posts so a
// post that matches through several tags is still returned once.
func (r *PostRepository) filtered(filter PostFilter) *gorm.DB {
	query := r.db.Model(&models.Post{})

	if filter.CategoryID != 0 {
		query = query.Where("posts.category_id = ?", filter.CategoryID)
	}
	if filter.TagID != 0 {
		tagged := r.db.Table("post_tags").Select("post_id").Where("tag_id = ?", filter.TagID)
		query = query.Where("posts.id IN (?)", tagged)
	}
	if filter.Query != "" {
		like := likePattern(filter.Query)
		categories := r.db.Model(&models.Category{}).Select("id").
			Where(`LOWER(name) LIKE ? ESCAPE '\'`, like)
		tagged := r.db.Table("post_tags").Select("post_tags.post_id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where(`LOWER(tags.name) LIKE ? ESCAPE '\'`, like)
		query = query.Where(
			r.db.Where(`LOWER(posts.title) LIKE ? ESCAPE '\'`, like).
				Or(`LOWER(posts.content) LIKE ? ESCAPE '\'`, like).
				Or("posts.category_id IN (?)", categories).
				Or("posts.id IN (?)", tagged),
		)
	}
	return query
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive substring pattern with LIKE
// wildcards in q matched literally.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
}
