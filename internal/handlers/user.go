package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/SL1dee36/Connect/internal/media"
	"github.com/SL1dee36/Connect/internal/models"
	"github.com/SL1dee36/Connect/internal/policy"
	"github.com/SL1dee36/Connect/internal/repositories"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserHandler handles profile pages, friend search and profile settings
type UserHandler struct {
	userRepository       repositories.UserRepository
	friendshipRepository repositories.FriendshipRepository
	postRepository       repositories.PostRepository
	pol                  *policy.Policy
	store                *media.Store
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(
	userRepo repositories.UserRepository,
	friendshipRepo repositories.FriendshipRepository,
	postRepo repositories.PostRepository,
	pol *policy.Policy,
	store *media.Store,
) *UserHandler {
	return &UserHandler{
		userRepository:       userRepo,
		friendshipRepository: friendshipRepo,
		postRepository:       postRepo,
		pol:                  pol,
		store:                store,
	}
}

// RegisterProfileRoutes registers profile-related routes on the public
// (optional auth) and private (required auth) groups.
func (h *UserHandler) RegisterProfileRoutes(public, private *echo.Group) {
	public.GET("/profile/:username", h.GetProfile)
	public.POST("/search_friends", h.SearchFriends)
	private.POST("/profile/:username/avatar", h.UploadAvatar)
	private.POST("/profile/:username/save_settings", h.SaveSettings)
}

// GetProfile returns a user's profile with the viewer-relative relationship
// flags.
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.userRepository.GetUserByUsername(c.Param("username"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	viewer, err := currentUser(c, h.userRepository)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	isFriend := false
	friendRequestSent := false
	areFriendsOfFriends := false
	if viewer != nil {
		if isFriend, err = h.friendshipRepository.IsFriend(viewer.ID, user.ID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if friendRequestSent, err = h.friendshipRepository.HasPendingRequest(viewer.ID, user.ID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if areFriendsOfFriends, err = h.friendshipRepository.HasMutualFriend(viewer.ID, user.ID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	posts, err := h.postRepository.GetPostsByAuthors([]uint{user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":                   user,
		"posts":                  posts,
		"is_friend":              isFriend,
		"friend_request_sent":    friendRequestSent,
		"are_friends_of_friends": areFriendsOfFriends,
	})
}

// SearchFriends searches users by username substring. Anonymous callers and
// blank queries get an empty list.
func (h *UserHandler) SearchFriends(c echo.Context) error {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	viewer, err := currentUser(c, h.userRepository)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	results := []models.UserSummary{}
	if viewer != nil && req.Query != "" {
		users, err := h.userRepository.SearchUsers(req.Query)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		for i := range users {
			results = append(results, models.UserSummary{
				Username:   users[i].Username,
				AvatarURL:  avatarURL(&users[i]),
				ProfileURL: "/profile/" + users[i].Username,
			})
		}
	}

	return c.JSON(http.StatusOK, results)
}

// UploadAvatar processes and stores a new avatar for the named user
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	user, err := h.userRepository.GetUserByUsername(c.Param("username"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	actor, err := requireUser(c, h.userRepository)
	if err != nil {
		return err
	}

	if d := h.pol.CanEditProfile(actor, user); !d.Allowed {
		return echo.NewHTTPError(http.StatusForbidden, "You are not allowed to change this user's avatar")
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Avatar file is required")
	}

	if err := h.saveAvatar(user, file); err != nil {
		return err
	}

	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Avatar updated", "avatar": user.Avatar})
}

// SaveSettings applies the profile settings form: fullname, email change
// (password-gated), password change, messaging preference and an optional
// inline avatar upload.
func (h *UserHandler) SaveSettings(c echo.Context) error {
	user, err := h.userRepository.GetUserByUsername(c.Param("username"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	actor, err := requireUser(c, h.userRepository)
	if err != nil {
		return err
	}

	if d := h.pol.CanEditProfile(actor, user); !d.Allowed {
		return echo.NewHTTPError(http.StatusForbidden, "You are not allowed to change this user's settings")
	}

	if fullname := c.FormValue("fullname"); fullname != "" {
		user.Fullname = fullname
	}

	if newEmail := c.FormValue("newEmail"); newEmail != "" && c.FormValue("password") != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(c.FormValue("password"))) != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid password")
		}
		user.Email = newEmail
	}

	currentPassword := c.FormValue("currentPassword")
	newPassword1 := c.FormValue("newPassword1")
	newPassword2 := c.FormValue("newPassword2")
	if currentPassword != "" && newPassword1 != "" && newPassword2 != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)) != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid current password")
		}
		if newPassword1 != newPassword2 {
			return echo.NewHTTPError(http.StatusBadRequest, "New passwords do not match")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword1), bcrypt.DefaultCost)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
		}
		user.Password = string(hashed)
	}

	if ms := c.FormValue("messageSettings"); ms != "" {
		switch ms {
		case models.MessageSettingsFriends, models.MessageSettingsFriendsOfFriends, models.MessageSettingsAll:
			user.MessageSettings = ms
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown message settings value")
		}
	}

	// Avatar failures are reported without dropping the other updates
	avatarErr := ""
	if file, err := c.FormFile("avatar"); err == nil {
		if err := h.saveAvatar(user, file); err != nil {
			if httpErr, ok := err.(*echo.HTTPError); ok {
				avatarErr = fmt.Sprintf("%v", httpErr.Message)
			} else {
				avatarErr = err.Error()
			}
		}
	}

	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := echo.Map{"message": "Settings saved"}
	if avatarErr != "" {
		resp["avatar_error"] = avatarErr
	}
	return c.JSON(http.StatusOK, resp)
}

// saveAvatar runs the avatar pipeline and updates user.Avatar. The caller
// persists the user record.
func (h *UserHandler) saveAvatar(user *models.User, file *multipart.FileHeader) error {
	if !media.AllowedImageFile(file.Filename) {
		return echo.NewHTTPError(http.StatusBadRequest, "Unsupported avatar file type")
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	processed, err := media.ProcessAvatar(data)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to process avatar: "+err.Error())
	}

	// Deterministic per-user filename; atomic replace overwrites the old one
	filename := fmt.Sprintf("%s_avatar.jpg", user.Username)
	if err := h.store.Save(media.AvatarDir, filename, processed); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	user.Avatar = filename
	return nil
}
