package services

import (
	"strings"
	"unicode/utf8"

	"dbsite/internal/models"
	"dbsite/internal/repository"
	"dbsite/internal/utils"
)

type TaxonomyService struct {
	categories *repository.CategoryRepository
	tags       *repository.TagRepository
}

func NewTaxonomyService(categories *repository.CategoryRepository, tags *repository.TagRepository) *TaxonomyService {
	return &TaxonomyService{categories: categories, tags: tags}
}

// Categories lists every category by name with its public post count.
func (s *TaxonomyService) Categories() ([]models.CategoryCount, error) {
	return s.categories.ListWithCounts()
}

// Tags lists every tag by name with its public post count.
func (s *TaxonomyService) Tags() ([]models.TagCount, error) {
	return s.tags.ListWithCounts()
}

func (s *TaxonomyService) CreateCategory(name, rawSlug string) (*models.Category, error) {
	name, sl, err := s.normalize(name, rawSlug, 0, s.categories.SlugTaken)
	if err != nil {
		return nil, err
	}
	category := &models.Category{Name: name, Slug: sl}
	if err := s.categories.Create(category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *TaxonomyService) UpdateCategory(id uint, name, rawSlug string) (*models.Category, error) {
	category, err := s.categories.FindByID(id)
	if err != nil {
		return nil, err
	}
	category.Name, category.Slug, err = s.normalize(name, rawSlug, id, s.categories.SlugTaken)
	if err != nil {
		return nil, err
	}
	if err := s.categories.Update(category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory fails with ErrProtected while the category has posts.
func (s *TaxonomyService) DeleteCategory(id uint) error {
	return s.categories.Delete(id)
}

func (s *TaxonomyService) CreateTag(name, rawSlug string) (*models.Tag, error) {
	name, sl, err := s.normalize(name, rawSlug, 0, s.tags.SlugTaken)
	if err != nil {
		return nil, err
	}
	tag := &models.Tag{Name: name, Slug: sl}
	if err := s.tags.Create(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TaxonomyService) UpdateTag(id uint, name, rawSlug string) (*models.Tag, error) {
	tag, err := s.tags.FindByID(id)
	if err != nil {
		return nil, err
	}
	tag.Name, tag.Slug, err = s.normalize(name, rawSlug, id, s.tags.SlugTaken)
	if err != nil {
		return nil, err
	}
	if err := s.tags.Update(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// DeleteTag unlinks the tag from its posts and removes it.
func (s *TaxonomyService) DeleteTag(id uint) error {
	return s.tags.Delete(id)
}

// normalize validates the name and derives the slug from it when none is
// given. The slug must not be used by another row.
func (s *TaxonomyService) normalize(name, rawSlug string, id uint, taken func(string, uint) (bool, error)) (string, string, error) {
	v := &ValidationError{}
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		v.add("name", "This field is required.")
	case utf8.RuneCountInString(name) > 255:
		v.add("name", "Ensure this value has at most 255 characters.")
	}

	source := strings.TrimSpace(rawSlug)
	if source == "" {
		source = name
	}
	sl := utils.Slugify(source)
	if sl == "" && name != "" {
		v.add("slug", "Enter a valid slug.")
	}
	if err := v.err(); err != nil {
		return "", "", err
	}

	exists, err := taken(sl, id)
	if err != nil {
		return "", "", err
	}
	if exists {
		return "", "", invalid("slug", "This slug is already in use.")
	}
	return name, sl, nil
}
