package repository

import (
	"dbsite/internal/models"

	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(category *models.Category) error {
	return r.db.Create(category).Error
}

func (r *CategoryRepository) Update(category *models.Category) error {
	return r.db.Model(category).Select("name", "slug").Updates(category).Error
}

// Delete removes a category. A category that still owns posts is protected.
func (r *CategoryRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, id).Error; err != nil {
			return translate(err)
		}
		var posts int64
		if err := tx.Model(&models.Post{}).Where("category_id = ?", id).Count(&posts).Error; err != nil {
			return err
		}
		if posts > 0 {
			return ErrProtected
		}
		return tx.Delete(&category).Error
	})
}

func (r *CategoryRepository) FindByID(id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *CategoryRepository) FindBySlug(slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// SlugTaken reports whether another category (id != exceptID) uses slug.
func (r *CategoryRepository) SlugTaken(slug string, exceptID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Category{}).Where("slug = ? AND id != ?", slug, exceptID).Count(&count).Error
	return count > 0, err
}

// ListWithCounts returns every category with the number of its public posts.
func (r *CategoryRepository) ListWithCounts() ([]models.CategoryCount, error) {
	var out []models.CategoryCount
	err := r.db.Model(&models.Category{}).
		Select("categories.*, COUNT(posts.id) AS num_posts").
		Joins("LEFT JOIN posts ON posts.category_id = categories.id AND posts.is_public = ?", true).
		Group("categories.id").
		Order("categories.name, categories.id").
		Scan(&out).Error
	return out, err
}

type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) Create(tag *models.Tag) error {
	return r.db.Create(tag).Error
}

func (r *TagRepository) Update(tag *models.Tag) error {
	return r.db.Model(tag).Select("name", "slug").Updates(tag).Error
}

// Delete removes a tag and its links to posts. Posts themselves are kept.
func (r *TagRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var tag models.Tag
		if err := tx.First(&tag, id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Exec("DELETE FROM post_tags WHERE tag_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&tag).Error
	})
}

func (r *TagRepository) FindByID(id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.First(&tag, id).Error; err != nil {
		return nil, translate(err)
	}
	return &tag, nil
}

func (r *TagRepository) FindBySlug(slug string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.Where("slug = ?", slug).First(&tag).Error; err != nil {
		return nil, translate(err)
	}
	return &tag, nil
}

// FindByIDs returns the tags with the given ids. Unknown ids are skipped.
func (r *TagRepository) FindByIDs(ids []uint) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []models.Tag
	err := r.db.Where("id IN ?", ids).Order("name").Find(&tags).Error
	return tags, err
}

func (r *TagRepository) SlugTaken(slug string, exceptID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Tag{}).Where("slug = ? AND id != ?", slug, exceptID).Count(&count).Error
	return count > 0, err
}

// ListWithCounts returns every tag with the number of its public posts.
func (r *TagRepository) ListWithCounts() ([]models.TagCount, error) {
	var out []models.TagCount
	err := r.db.Model(&models.Tag{}).
		Select("tags.*, COUNT(posts.id) AS num_posts").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("LEFT JOIN posts ON posts.id = post_tags.post_id AND posts.is_public = ?", true).
		Group("tags.id").
		Order("tags.name, tags.id").
		Scan(&out).Error
	return out, err
}
