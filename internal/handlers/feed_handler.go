package handlers

import (
	"math/rand"
	"net/http"
	"strconv"

	"github.com/SL1dee36/Connect/internal/models"
	"github.com/SL1dee36/Connect/internal/repositories"
	"github.com/labstack/echo/v4"
)

// Sampling caps for the feed candidate set.
const (
	feedRandomSample    = 10
	feedAnonymousSample = 20
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	postRepository       repositories.PostRepository
	friendshipRepository repositories.FriendshipRepository
	userRepository       repositories.UserRepository
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(
	postRepo repositories.PostRepository,
	friendshipRepo repositories.FriendshipRepository,
	userRepo repositories.UserRepository,
) *FeedHandler {
	return &FeedHandler{
		postRepository:       postRepo,
		friendshipRepository: friendshipRepo,
		userRepository:       userRepo,
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// GetFeed builds the post feed. Logged-in viewers get the union of posts by
// friends, friends of friends and a random sample of other users' posts,
// deduplicated and shuffled; anonymous visitors get a random sample. The
// randomness is unseeded, so consecutive calls return different orders and
// samples.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	viewer, err := currentUser(c, h.userRepository)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var posts []models.Post
	if viewer == nil {
		posts, err = h.postRepository.GetRandomPostsAll(feedAnonymousSample)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else {
		posts, err = h.aggregateFor(viewer)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	if limit, _ := strconv.Atoi(c.QueryParam("limit")); limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}

	return c.JSON(http.StatusOK, echo.Map{"posts": posts})
}

// aggregateFor assembles the candidate set for a logged-in viewer
func (h *FeedHandler) aggregateFor(viewer *models.User) ([]models.Post, error) {
	friendIDs, err := h.friendshipRepository.GetFriendIDs(viewer.ID)
	if err != nil {
		return nil, err
	}
	fofIDs, err := h.friendshipRepository.GetFriendOfFriendIDs(viewer.ID)
	if err != nil {
		return nil, err
	}

	friendsPosts, err := h.postRepository.GetPostsByAuthors(friendIDs)
	if err != nil {
		return nil, err
	}
	fofPosts, err := h.postRepository.GetPostsByAuthors(fofIDs)
	if err != nil {
		return nil, err
	}
	randomPosts, err := h.postRepository.GetRandomPosts(viewer.ID, feedRandomSample)
	if err != nil {
		return nil, err
	}

	// Union, deduplicated by post ID
	seen := make(map[uint]bool)
	posts := make([]models.Post, 0, len(friendsPosts)+len(fofPosts)+len(randomPosts))
	for _, group := range [][]models.Post{friendsPosts, fofPosts, randomPosts} {
		for _, p := range group {
			if !seen[p.ID] {
				seen[p.ID] = true
				posts = append(posts, p)
			}
		}
	}

	rand.Shuffle(len(posts), func(i, j int) {
		posts[i], posts[j] = posts[j], posts[i]
	})
	return posts, nil
}
