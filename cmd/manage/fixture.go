package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/repositories"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is the YAML document read by loaddata.
type Fixture struct {
	Groups []GroupFixture `yaml:"groups"`
	Users  []UserFixture  `yaml:"users"`
	Posts  []PostFixture  `yaml:"posts"`
}

type GroupFixture struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

type UserFixture struct {
	Username  string `yaml:"username"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
}

// PostFixture refers to its author and group by username and slug.
type PostFixture struct {
	Author string `yaml:"author"`
	Group  string `yaml:"group"`
	Text   string `yaml:"text"`
}

type fixtureStats struct {
	Groups, Users, Posts int
}

func parseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, p := range f.Posts {
		if p.Author == "" || p.Text == "" {
			return nil, fmt.Errorf("posts[%d]: author and text are required", i)
		}
	}
	for i, u := range f.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("users[%d]: username is required", i)
		}
	}
	return &f, nil
}

// loadFixture installs the fixture in one transaction. Groups and users that
// already exist are kept as they are; posts are always added.
func loadFixture(ctx context.Context, db *gorm.DB, f *Fixture) (fixtureStats, error) {
	var stats fixtureStats
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		groups := repositories.NewPostgresGroupRepository(tx)
		users := repositories.NewPostgresUserRepository(tx)
		posts := repositories.NewPostgresPostRepository(tx)

		for _, g := range f.Groups {
			_, err := groups.GetGroupBySlug(ctx, g.Slug)
			if err == nil {
				continue
			}
			if !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
			if _, err := createGroup(ctx, groups, g.Title, g.Slug, g.Description); err != nil {
				return fmt.Errorf("group %q: %w", g.Slug, err)
			}
			stats.Groups++
		}

		for _, u := range f.Users {
			_, err := users.GetUserByUsername(ctx, u.Username)
			if err == nil {
				continue
			}
			if !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
			user := &models.User{
				Username:  u.Username,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				Email:     u.Email,
			}
			if u.Password != "" {
				hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
				if err != nil {
					return err
				}
				user.Password = string(hash)
			}
			if err := users.CreateUser(ctx, user); err != nil {
				return err
			}
			stats.Users++
		}

		for i, p := range f.Posts {
			author, err := users.GetUserByUsername(ctx, p.Author)
			if err != nil {
				return fmt.Errorf("posts[%d]: author %q: %w", i, p.Author, err)
			}
			post := &models.Post{Text: p.Text, AuthorID: author.ID}
			if p.Group != "" {
				group, err := groups.GetGroupBySlug(ctx, p.Group)
				if err != nil {
					return fmt.Errorf("posts[%d]: group %q: %w", i, p.Group, err)
				}
				post.GroupID = &group.ID
			}
			if err := posts.CreatePost(ctx, post); err != nil {
				return err
			}
			stats.Posts++
		}
		return nil
	})
	return stats, err
}
