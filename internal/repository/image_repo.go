package repository

import (
	"dbsite/internal/models"

	"gorm.io/gorm"
)

// ContentImageRepository stores inline images attached to posts.
type ContentImageRepository struct {
	db *gorm.DB
}

func NewContentImageRepository(db *gorm.DB) *ContentImageRepository {
	return &ContentImageRepository{db: db}
}

func (r *ContentImageRepository) Create(image *models.ContentImage) error {
	return r.db.Create(image).Error
}

func (r *ContentImageRepository) FindByID(id uint) (*models.ContentImage, error) {
	var image models.ContentImage
	if err := r.db.First(&image, id).Error; err != nil {
		return nil, translate(err)
	}
	return &image, nil
}

func (r *ContentImageRepository) Delete(id uint) error {
	res := r.db.Delete(&models.ContentImage{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
