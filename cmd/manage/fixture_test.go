package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/anonto42/yatube/internal/storage"
	"github.com/anonto42/yatube/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoFixture = `
groups:
  - title: Cats
    slug: cats
    description: All about cats
users:
  - username: leo
    first_name: Leo
    password: secret-pass
  - username: ann
posts:
  - author: leo
    group: cats
    text: First cat post
  - author: ann
    text: No group here
`

func TestLoadFixture(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)

	f, err := parseFixture([]byte(demoFixture))
	require.NoError(t, err)

	stats, err := loadFixture(ctx, db, f)
	require.NoError(t, err)
	assert.Equal(t, fixtureStats{Groups: 1, Users: 2, Posts: 2}, stats)

	var leo models.User
	require.NoError(t, db.Where("username = ?", "leo").First(&leo).Error)
	assert.NotEmpty(t, leo.Password)
	assert.NotEqual(t, "secret-pass", leo.Password)

	posts := repositories.NewPostgresPostRepository(db)
	group, err := repositories.NewPostgresGroupRepository(db).GetGroupBySlug(ctx, "cats")
	require.NoError(t, err)
	n, err := posts.CountPosts(ctx, repositories.ByGroup(group.ID))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// A second load keeps existing groups and users.
	stats, err = loadFixture(ctx, db, f)
	require.NoError(t, err)
	assert.Equal(t, fixtureStats{Posts: 2}, stats)
}

func TestLoadFixture_UnknownAuthorRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	f, err := parseFixture([]byte(`
groups:
  - {title: Dogs, slug: dogs}
posts:
  - {author: ghost, text: boo}
`))
	require.NoError(t, err)

	_, err = loadFixture(context.Background(), db, f)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Group{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestParseFixture_Rejects(t *testing.T) {
	_, err := parseFixture([]byte("posts:\n  - {author: leo}\n"))
	assert.Error(t, err)
	_, err = parseFixture([]byte("users: [{first_name: x}]"))
	assert.Error(t, err)
	_, err = parseFixture([]byte("groups: [unclosed"))
	assert.Error(t, err)
}

func TestCreateGroup_Validation(t *testing.T) {
	ctx := context.Background()
	groups := repositories.NewPostgresGroupRepository(testutil.NewDB(t))

	_, err := createGroup(ctx, groups, "", "cats", "")
	assert.Error(t, err)
	_, err = createGroup(ctx, groups, "Cats", "not a slug", "")
	assert.Error(t, err)

	g, err := createGroup(ctx, groups, " Cats ", "cats", "meow")
	require.NoError(t, err)
	assert.Equal(t, "Cats", g.Title)

	_, err = createGroup(ctx, groups, "Cats again", "cats", "")
	assert.ErrorContains(t, err, "already exists")
}

func TestDeletePost_RemovesImageAndComments(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	posts := repositories.NewPostgresPostRepository(db)
	media, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	leo := testutil.CreateUser(t, db, "leo")
	post := testutil.CreatePost(t, db, leo, nil, "with image")
	image := []byte("GIF89a")
	require.NoError(t, media.Save(ctx, "posts/a.gif", bytes.NewReader(image), int64(len(image)), "image/gif"))
	require.NoError(t, db.Model(post).Update("image", "posts/a.gif").Error)
	require.NoError(t, db.Create(&models.Comment{Text: "hi", AuthorID: leo.ID, PostID: post.ID}).Error)

	deleted, err := deletePost(ctx, posts, media, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "leo", deleted.Author.Username)

	_, _, err = media.Open(ctx, "posts/a.gif")
	assert.ErrorIs(t, err, storage.ErrNotExist)
	var n int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&n).Error)
	assert.Zero(t, n)

	_, err = deletePost(ctx, posts, media, post.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestRegistry_UnknownCommand(t *testing.T) {
	r := NewCommandRegistry()
	registerCommands(r)
	assert.ErrorContains(t, r.Execute([]string{"frobnicate"}), "unknown command")
	assert.Error(t, r.Execute(nil))
	assert.NoError(t, r.Execute([]string{"help", "loaddata"}))
}
