package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SL1dee36/Connect/internal/models"
	"github.com/SL1dee36/Connect/internal/policy"
	"github.com/SL1dee36/Connect/internal/repositories"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// MessengerHandler handles direct-messaging HTTP requests
type MessengerHandler struct {
	userRepository    repositories.UserRepository
	messageRepository repositories.MessageRepository
	pol               *policy.Policy
}

// NewMessengerHandler creates a new MessengerHandler
func NewMessengerHandler(userRepo repositories.UserRepository, messageRepo repositories.MessageRepository, pol *policy.Policy) *MessengerHandler {
	return &MessengerHandler{
		userRepository:    userRepo,
		messageRepository: messageRepo,
		pol:               pol,
	}
}

// RegisterMessengerRoutes registers messaging-related routes
func (h *MessengerHandler) RegisterMessengerRoutes(g *echo.Group) {
	g.GET("/im/:username", h.OpenThread)
	g.POST("/send_message", h.SendMessage)
	g.GET("/get_new_messages", h.GetNewMessages)
}

// OpenThread returns the full thread with the named user, ordered by
// timestamp ascending, and marks their messages to the viewer as read.
func (h *MessengerHandler) OpenThread(c echo.Context) error {
	viewer, err := requireUser(c, h.userRepository)
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

	decision, err := h.pol.CanMessage(viewer, recipient)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !decision.Allowed {
		return echo.NewHTTPError(http.StatusForbidden, "You cannot message this user")
	}

	// Mark before fetching so the returned thread carries current read flags
	if err := h.messageRepository.MarkThreadRead(viewer.ID, recipient.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	messages, err := h.messageRepository.GetThread(viewer.ID, recipient.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"recipient": recipient,
		"messages":  messages,
	})
}

// SendMessage creates a message to the named recipient. The messaging policy
// is enforced here as well as on the thread view, so the raw endpoint cannot
// bypass the recipient's preference.
func (h *MessengerHandler) SendMessage(c echo.Context) error {
	sender, err := requireUser(c, h.userRepository)
	if err != nil {
		return err
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	recipient, err := h.userRepository.GetUserByUsername(req.RecipientUsername)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Message cannot be empty")
	}

	decision, err := h.pol.CanMessage(sender, recipient)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !decision.Allowed {
		return echo.NewHTTPError(http.StatusForbidden, "You cannot message this user")
	}

	message := &models.Message{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Text:        req.Message,
		Timestamp:   time.Now().UTC(),
	}
	if err := h.messageRepository.CreateMessage(message); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"message": "Message sent",
		"data": echo.Map{
			"id":        message.ID,
			"sender":    sender.Username,
			"recipient": recipient.Username,
			"text":      message.Text,
			"timestamp": message.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	})
}

// GetNewMessages returns the unread messages from the named counterpart and
// marks them read. The current_user_id query parameter must match the
// authenticated viewer.
func (h *MessengerHandler) GetNewMessages(c echo.Context) error {
	viewer, err := requireUser(c, h.userRepository)
	if err != nil {
		return err
	}

	counterpart, err := h.userRepository.GetUserByUsername(c.QueryParam("recipient_username"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if idParam := c.QueryParam("current_user_id"); idParam != "" {
		id, err := strconv.ParseUint(idParam, 10, 32)
		if err != nil || uint(id) != viewer.ID {
			return echo.NewHTTPError(http.StatusForbidden, "Authorization error")
		}
	}

	messages, err := h.messageRepository.TakeUnread(viewer.ID, counterpart.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"messages": messages})
}
