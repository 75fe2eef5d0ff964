package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/pagecache"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/anonto42/yatube/internal/storage"
	"github.com/anonto42/yatube/pkg/config"
	"github.com/anonto42/yatube/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// withDB loads the configuration, opens the database and runs fn.
func withDB(fn func(ctx context.Context, db *gorm.DB) error) error {
	cfg := config.Load()
	zlog, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer zlog.Sync() //nolint:errcheck

	db, err := config.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseURL, zlog)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	zlog.Debug("connected to database", zap.String("driver", cfg.DatabaseDriver))
	return fn(context.Background(), db)
}

func migrateCommand(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("migrate takes no arguments")
	}
	return withDB(func(_ context.Context, db *gorm.DB) error {
		if err := db.AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto migrate models: %w", err)
		}
		fmt.Println("Migrations applied.")
		return nil
	})
}

func createGroupCommand(args []string) error {
	cmd := &Command{Name: "creategroup", Description: "Create a group", Usage: "manage creategroup -title <title> -slug <slug>"}
	fs := cmd.NewFlagSet()
	title := fs.String("title", "", "group title (at most 200 characters)")
	slug := fs.String("slug", "", "unique URL identifier")
	description := fs.String("description", "", "group description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withDB(func(ctx context.Context, db *gorm.DB) error {
		group, err := createGroup(ctx, repositories.NewPostgresGroupRepository(db), *title, *slug, *description)
		if err != nil {
			return err
		}
		fmt.Printf("Created group %q (/group/%s/).\n", group.Title, group.Slug)
		return nil
	})
}

func createGroup(ctx context.Context, groups repositories.GroupRepository, title, slug, description string) (*models.Group, error) {
	title, slug = strings.TrimSpace(title), strings.TrimSpace(slug)
	if title == "" || slug == "" {
		return nil, fmt.Errorf("-title and -slug are required")
	}
	if len([]rune(title)) > 200 {
		return nil, fmt.Errorf("title is longer than 200 characters")
	}
	if !validSlug(slug) {
		return nil, fmt.Errorf("slug %q may contain only letters, digits, hyphens and underscores", slug)
	}
	if _, err := groups.GetGroupBySlug(ctx, slug); err == nil {
		return nil, fmt.Errorf("group with slug %q already exists", slug)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	group := &models.Group{Title: title, Slug: slug, Description: description}
	if err := groups.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func validSlug(s string) bool {
	if s == "" || len(s) > 50 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func deleteGroupCommand(args []string) error {
	cmd := &Command{Name: "deletegroup", Description: "Delete a group", Usage: "manage deletegroup -slug <slug>"}
	fs := cmd.NewFlagSet()
	slug := fs.String("slug", "", "slug of the group to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slug == "" {
		return fmt.Errorf("-slug is required")
	}

	return withDB(func(ctx context.Context, db *gorm.DB) error {
		err := repositories.NewPostgresGroupRepository(db).DeleteGroup(ctx, *slug)
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("no group with slug %q", *slug)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Deleted group %q.\n", *slug)
		return nil
	})
}

func deleteUserCommand(args []string) error {
	cmd := &Command{Name: "deleteuser", Description: "Delete a user", Usage: "manage deleteuser -username <username>"}
	fs := cmd.NewFlagSet()
	username := fs.String("username", "", "username of the account to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("-username is required")
	}

	return withDB(func(ctx context.Context, db *gorm.DB) error {
		users := repositories.NewPostgresUserRepository(db)
		user, err := users.GetUserByUsername(ctx, *username)
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("no user %q", *username)
		}
		if err != nil {
			return err
		}
		if err := users.DeleteUser(ctx, user.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted user %q.\n", *username)
		return nil
	})
}

func deletePostCommand(args []string) error {
	cmd := &Command{Name: "deletepost", Description: "Delete a post", Usage: "manage deletepost -id <id>"}
	fs := cmd.NewFlagSet()
	rawID := fs.String("id", "", "id of the post to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := strconv.ParseUint(*rawID, 10, 0)
	if err != nil || id == 0 {
		return fmt.Errorf("-id must be a positive post id")
	}

	cfg := config.Load()
	zlog, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer zlog.Sync() //nolint:errcheck

	db, err := config.InitDB(cfg, zlog)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	ctx := context.Background()
	media, err := storage.Open(ctx, cfg, db.Mongo)
	if err != nil {
		return fmt.Errorf("open media store: %w", err)
	}
	post, err := deletePost(ctx, repositories.NewPostgresPostRepository(db.SQL), media, uint(id))
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("no post with id %d", id)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Deleted post %d by %s.\n", post.ID, post.Author.Username)
	return nil
}

// deletePost removes the post, its comments through the foreign key, and its
// stored image. A missing image object is not an error.
func deletePost(ctx context.Context, posts repositories.PostRepository, media storage.Store, id uint) (*models.Post, error) {
	post, err := posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := posts.DeletePost(ctx, id); err != nil {
		return nil, err
	}
	if post.Image != "" {
		if err := media.Delete(ctx, post.Image); err != nil && !errors.Is(err, storage.ErrNotExist) {
			return post, fmt.Errorf("delete image %s: %w", post.Image, err)
		}
	}
	return post, nil
}

func loadDataCommand(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: manage loaddata <fixture.yaml>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	fixture, err := parseFixture(data)
	if err != nil {
		return err
	}

	return withDB(func(ctx context.Context, db *gorm.DB) error {
		stats, err := loadFixture(ctx, db, fixture)
		if err != nil {
			return err
		}
		fmt.Printf("Installed %d group(s), %d user(s) and %d post(s) from %s.\n",
			stats.Groups, stats.Users, stats.Posts, args[0])
		return nil
	})
}

func clearCacheCommand(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("clearcache takes no arguments")
	}
	cfg := config.Load()
	rdb, err := config.InitRedis(cfg)
	if err != nil {
		return err
	}
	if rdb == nil {
		fmt.Println("REDIS_ADDR is not set; the in-memory cache lives in the server process and expires on its own.")
		return nil
	}
	defer rdb.Close()

	if err := pagecache.NewRedisStore(rdb, config.CacheKeyPrefix).Clear(context.Background()); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Println("Cache cleared.")
	return nil
}
