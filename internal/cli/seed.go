package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"dbsite/internal/models"
	"dbsite/internal/repository"
	"dbsite/internal/services"
	"dbsite/internal/storage"
	"dbsite/internal/utils"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

const fileFlag = "file"

var seedFlags = map[string]cobraflags.Flag{
	fileFlag: &cobraflags.StringFlag{
		Name:  fileFlag,
		Value: "fixtures.yaml",
		Usage: "YAML file with categories, tags and posts",
	},
}

// Fixtures is the layout of a seed file. Posts refer to categories and tags
// by slug.
type Fixtures struct {
	Categories []TermFixture `yaml:"categories"`
	Tags       []TermFixture `yaml:"tags"`
	Posts      []PostFixture `yaml:"posts"`
}

type TermFixture struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type PostFixture struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Content     string           `yaml:"content"`
	Category    string           `yaml:"category"`
	Tags        []string         `yaml:"tags"`
	Public      bool             `yaml:"public"`
	Comments    []CommentFixture `yaml:"comments"`
}

type CommentFixture struct {
	Author   string           `yaml:"author"`
	Text     string           `yaml:"text"`
	Approved bool             `yaml:"approved"`
	Replies  []CommentFixture `yaml:"replies"`
}

func newSeedCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load categories, tags and posts from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			fixtures, err := LoadFixtures(seedFlags[fileFlag].GetString())
			if err != nil {
				return err
			}
			db, err := utils.InitDatabase(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			store, err := storage.New(cfg.Media)
			if err != nil {
				return err
			}

			created, err := Seed(cmd.Context(), db, store, logger, fixtures)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d post(s)\n", created)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, seedFlags)
	return cmd
}

// LoadFixtures parses a seed file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return &f, nil
}

// Seed inserts the fixtures through the services, so the same validation
// applies as in the admin area. Categories and tags whose slug already exists
// are reused. It returns the number of posts created.
func Seed(ctx context.Context, db *gorm.DB, store storage.Store, logger *zap.Logger, f *Fixtures) (int, error) {
	postRepo := repository.NewPostRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	tagRepo := repository.NewTagRepository(db)
	taxonomy := services.NewTaxonomyService(categoryRepo, tagRepo)
	media := services.NewMediaService(store, 0, logger)
	posts := services.NewPostService(postRepo, categoryRepo, tagRepo, repository.NewContentImageRepository(db), media, logger)
	comments := services.NewCommentService(postRepo, repository.NewCommentRepository(db), logger)
	seeder := services.Viewer{Authenticated: true, Username: "seed"}

	categories := make(map[string]uint)
	for _, term := range f.Categories {
		c, err := categoryRepo.FindBySlug(slugOf(term))
		if errors.Is(err, services.ErrNotFound) {
			c, err = taxonomy.CreateCategory(term.Name, term.Slug)
		}
		if err != nil {
			return 0, fmt.Errorf("category %q: %w", term.Name, err)
		}
		categories[c.Slug] = c.ID
	}

	tags := make(map[string]uint)
	for _, term := range f.Tags {
		t, err := tagRepo.FindBySlug(slugOf(term))
		if errors.Is(err, services.ErrNotFound) {
			t, err = taxonomy.CreateTag(term.Name, term.Slug)
		}
		if err != nil {
			return 0, fmt.Errorf("tag %q: %w", term.Name, err)
		}
		tags[t.Slug] = t.ID
	}

	for i, p := range f.Posts {
		categoryID, ok := categories[p.Category]
		if !ok {
			return i, fmt.Errorf("post %q: unknown category %q", p.Title, p.Category)
		}
		in := services.PostInput{
			Title:       p.Title,
			Content:     p.Content,
			Description: p.Description,
			CategoryID:  categoryID,
			IsPublic:    p.Public,
		}
		for _, s := range p.Tags {
			id, ok := tags[s]
			if !ok {
				return i, fmt.Errorf("post %q: unknown tag %q", p.Title, s)
			}
			in.TagIDs = append(in.TagIDs, id)
		}

		post, err := posts.CreatePost(ctx, in)
		if err != nil {
			return i, fmt.Errorf("post %q: %w", p.Title, err)
		}
		if err := seedComments(comments, seeder, post, p.Comments); err != nil {
			return i, fmt.Errorf("post %q: %w", p.Title, err)
		}
	}
	return len(f.Posts), nil
}

func seedComments(comments *services.CommentService, seeder services.Viewer, post *models.Post, fixtures []CommentFixture) error {
	for _, cf := range fixtures {
		comment, err := comments.SubmitComment(post.ID, services.CommentInput{Author: cf.Author, Text: cf.Text})
		if err != nil {
			return err
		}
		if cf.Approved {
			if _, err := comments.ApproveComment(comment.ID, seeder); err != nil {
				return err
			}
		}
		for _, rf := range cf.Replies {
			reply, _, err := comments.SubmitReply(comment.ID, services.CommentInput{Author: rf.Author, Text: rf.Text})
			if err != nil {
				return err
			}
			if rf.Approved {
				if _, err := comments.ApproveReply(reply.ID, seeder); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// slugOf is the slug a term will be stored under.
func slugOf(t TermFixture) string {
	if t.Slug != "" {
		return utils.Slugify(t.Slug)
	}
	return utils.Slugify(t.Name)
}
