package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/yatube/internal/models"
	"gorm.io/gorm"
)

// PostFilter narrows a post listing. The zero value matches every post.
type PostFilter struct {
	GroupID    *uint
	AuthorID   *uint
	FollowerID *uint // posts by authors this user follows
}

func AllPosts() PostFilter { return PostFilter{} }

func ByGroup(groupID uint) PostFilter { return PostFilter{GroupID: &groupID} }

func ByAuthor(authorID uint) PostFilter { return PostFilter{AuthorID: &authorID} }

func FollowedBy(userID uint) PostFilter { return PostFilter{FollowerID: &userID} }

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id uint) (*models.Post, error)
	ListPosts(ctx context.Context, filter PostFilter, offset, limit int) ([]models.Post, error)
	CountPosts(ctx context.Context, filter PostFilter) (int64, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id uint) error
}

// PostgresPostRepository implements PostRepository on top of GORM
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// CreatePost inserts the post; PubDate is stamped by the database layer.
func (r *PostgresPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Group").Create(post).Error; err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// GetPostByID retrieves a post with its author and group
func (r *PostgresPostRepository) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		First(&post, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (r *PostgresPostRepository) scope(ctx context.Context, filter PostFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Post{})
	if filter.GroupID != nil {
		q = q.Where("group_id = ?", *filter.GroupID)
	}
	if filter.AuthorID != nil {
		q = q.Where("author_id = ?", *filter.AuthorID)
	}
	if filter.FollowerID != nil {
		q = q.Where("author_id IN (?)",
			r.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", *filter.FollowerID),
		)
	}
	return q
}

// ListPosts returns one window of the filtered listing, newest first.
func (r *PostgresPostRepository) ListPosts(ctx context.Context, filter PostFilter, offset, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.scope(ctx, filter).
		Preload("Author").
		Preload("Group").
		Order("pub_date DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostgresPostRepository) CountPosts(ctx context.Context, filter PostFilter) (int64, error) {
	var count int64
	if err := r.scope(ctx, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdatePost writes the editable fields only; author and pub_date never change.
// MySQL reports zero affected rows for a no-op update, so the row count is not
// used to detect missing posts here.
func (r *PostgresPostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{ID: post.ID}).
		Select("text", "group_id", "image").
		Updates(map[string]any{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		}).Error
}

// DeletePost deletes a post and, through the foreign key, its comments
func (r *PostgresPostRepository) DeletePost(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
