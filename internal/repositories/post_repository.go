package repositories

import (
	"github.com/SL1dee36/Connect/internal/models"
	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(post *models.Post) error
	GetPostByID(id uint) (*models.Post, error)
	DeletePost(id uint) error
	GetPostsByAuthors(authorIDs []uint) ([]models.Post, error)
	GetRandomPosts(excludeUserID uint, limit int) ([]models.Post, error)
	GetRandomPostsAll(limit int) ([]models.Post, error)
}

// PostgresPostRepository implements PostRepository for PostgreSQL
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// CreatePost creates a new post
func (r *PostgresPostRepository) CreatePost(post *models.Post) error {
	return r.db.Create(post).Error
}

// GetPostByID retrieves a post by ID
func (r *PostgresPostRepository) GetPostByID(id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost deletes a post by ID
func (r *PostgresPostRepository) DeletePost(id uint) error {
	return r.db.Delete(&models.Post{}, id).Error
}

// GetPostsByAuthors retrieves all posts authored by any of the given users
func (r *PostgresPostRepository) GetPostsByAuthors(authorIDs []uint) ([]models.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	var posts []models.Post
	if err := r.db.Where("user_id IN ?", authorIDs).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// GetRandomPosts samples up to limit posts authored by anyone except the
// given user. ORDER BY RANDOM() is unseeded; every call may return a
// different sample.
func (r *PostgresPostRepository) GetRandomPosts(excludeUserID uint, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Where("user_id <> ?", excludeUserID).
		Order("RANDOM()").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// GetRandomPostsAll samples up to limit posts from all users
func (r *PostgresPostRepository) GetRandomPostsAll(limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.Order("RANDOM()").Limit(limit).Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}
