package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/SL1dee36/Connect/internal/media"
	"github.com/SL1dee36/Connect/internal/models"
	"github.com/SL1dee36/Connect/internal/policy"
	"github.com/SL1dee36/Connect/internal/repositories"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository repositories.PostRepository
	userRepository repositories.UserRepository
	pol            *policy.Policy
	store          *media.Store
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, userRepo repositories.UserRepository, pol *policy.Policy, store *media.Store) *PostHandler {
	return &PostHandler{
		postRepository: postRepo,
		userRepository: userRepo,
		pol:            pol,
		store:          store,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/profile/:username/create_post", h.CreatePost)
	g.DELETE("/profile/:username/delete_post/:id", h.DeletePost)
}

// CreatePost creates a post on the actor's own profile. At least one of
// text, image or video must be supplied.
func (h *PostHandler) CreatePost(c echo.Context) error {
	actor, err := requireUser(c, h.userRepository)
	if err != nil {
		return err
	}

	if d := h.pol.CanCreatePost(actor, c.Param("username")); !d.Allowed {
		return echo.NewHTTPError(http.StatusForbidden, "You are not allowed to post on this profile")
	}

	text := c.FormValue("text")
	image, imageErr := c.FormFile("image")
	video, videoErr := c.FormFile("video")

	if strings.TrimSpace(text) == "" && imageErr != nil && videoErr != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Text, image or video is required")
	}

	post := &models.Post{UserID: actor.ID, Text: text}

	if imageErr == nil {
		if !media.AllowedImageFile(image.Filename) {
			return echo.NewHTTPError(http.StatusBadRequest, "Unsupported image file type")
		}

		src, err := image.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		compressed, err := media.CompressImage(data)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Failed to process image: "+err.Error())
		}

		filename := fmt.Sprintf("%s_%s.jpg", actor.Username, randomSuffix())
		if err := h.store.Save(media.ImageDir, filename, compressed); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		post.Image = filename
	}

	if videoErr == nil {
		if !media.AllowedVideoFile(video.Filename) {
			return echo.NewHTTPError(http.StatusBadRequest, "Unsupported video file type")
		}

		src, err := video.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		filename := fmt.Sprintf("%s_%s.mp4", actor.Username, randomSuffix())
		err = h.store.SaveStream(media.VideoDir, filename, src)
		src.Close()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		post.Video = filename
	}

	if err := h.postRepository.CreatePost(post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{"message": "Post created", "post": post})
}

// DeletePost removes a post owned by the actor along with its stored image.
// A missing image file is not an error.
func (h *PostHandler) DeletePost(c echo.Context) error {
	actor, err := requireUser(c, h.userRepository)
	if err != nil {
		return err
	}

	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	post, err := h.postRepository.GetPostByID(uint(postID))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if d := h.pol.CanDeletePost(actor, post); !d.Allowed {
		return echo.NewHTTPError(http.StatusForbidden, "You are not allowed to delete this post")
	}

	if err := h.postRepository.DeletePost(post.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if post.Image != "" {
		if err := h.store.Remove(media.ImageDir, post.Image); err != nil {
			log.Printf("Failed to remove post image %s: %v", post.Image, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Post deleted"})
}

// randomSuffix returns a short random token for post media filenames
func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
