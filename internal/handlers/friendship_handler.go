package handlers

import (
	"net/http"

	"github.com/SL1dee36/Connect/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// FriendshipHandler handles HTTP requests related to friendships
type FriendshipHandler struct {
	friendshipRepository repositories.FriendshipRepository
	userRepository       repositories.UserRepository
}

// NewFriendshipHandler creates a new FriendshipHandler
func NewFriendshipHandler(friendshipRepo repositories.FriendshipRepository, userRepo repositories.UserRepository) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipRepository: friendshipRepo,
		userRepository:       userRepo,
	}
}

// RegisterFriendshipRoutes registers friendship-related routes
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.GET("/send_friend_request/:username", h.SendFriendRequest)
	g.GET("/accept_friend_request/:username", h.AcceptFriendRequest)
	g.GET("/reject_friend_request/:username", h.RejectFriendRequest)
	g.GET("/friend_requests", h.GetPendingFriendRequests)
}

// SendFriendRequest sends a friend request to the named user. Repeating the
// call, or calling it for an existing friend, is a silent no-op.
func (h *FriendshipHandler) SendFriendRequest(c echo.Context) error {
	actor, err := requireUser(c, h.userRepository)
	if err != nil {
		return err
	}

	recipient, err := h.userRepository.GetUserByUsername(c.Param("username"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if actor.ID == recipient.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot send a friend request to yourself")
	}

	if err := h.friendshipRepository.SendFriendRequest(actor.ID, recipient.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Friend request sent to " + recipient.Username})
}

// AcceptFriendRequest accepts a pending request from the named sender,
// creating the symmetric friendship edge and removing the request.
func (h *FriendshipHandler) AcceptFriendRequest(c echo.Context) error {
	actor, err := requireUser(c, h.userRepository)
	if err != nil {
		return err
	}

	sender, err := h.userRepository.GetUserByUsername(c.Param("username"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.friendshipRepository.AcceptFriendRequest(actor.ID, sender.ID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Friend request not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "You are now friends with " + sender.Username})
}

// RejectFriendRequest discards a pending request from the named sender if
// one exists.
func (h *FriendshipHandler) RejectFriendRequest(c echo.Context) error {
	actor, err := requireUser(c, h.userRepository)
	if err != nil {
		return err
	}

	sender, err := h.userRepository.GetUserByUsername(c.Param("username"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.friendshipRepository.RejectFriendRequest(actor.ID, sender.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Friend request from " + sender.Username + " rejected"})
}

// GetPendingFriendRequests retrieves pending friend requests for the
// authenticated user.
func (h *FriendshipHandler) GetPendingFriendRequests(c echo.Context) error {
	actor, err := requireUser(c, h.userRepository)
	if err != nil {
		return err
	}

	requests, err := h.friendshipRepository.GetPendingRequestsFor(actor.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, requests)
}
