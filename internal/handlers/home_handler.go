package handlers

import (
	"net/http"

	"github.com/SL1dee36/Connect/internal/models"
	"github.com/SL1dee36/Connect/internal/repositories"
	"github.com/labstack/echo/v4"
)

// HomeHandler serves the home page data: the viewer's chat list
type HomeHandler struct {
	userRepository    repositories.UserRepository
	messageRepository repositories.MessageRepository
}

// NewHomeHandler creates a new HomeHandler
func NewHomeHandler(userRepo repositories.UserRepository, messageRepo repositories.MessageRepository) *HomeHandler {
	return &HomeHandler{
		userRepository:    userRepo,
		messageRepository: messageRepo,
	}
}

// Index returns the chat list for the viewer. Anonymous visitors get an
// empty list.
func (h *HomeHandler) Index(c echo.Context) error {
	user, err := currentUser(c, h.userRepository)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	chats := []models.ChatSummary{}
	if user != nil {
		chats, err = h.messageRepository.GetChatSummaries(user.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"current_user": user,
		"chats":        chats,
	})
}
