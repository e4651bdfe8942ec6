package handlers

import (
	"net/http"

	"github.com/SL1dee36/Connect/internal/middleware"
	"github.com/SL1dee36/Connect/internal/models"
	"github.com/SL1dee36/Connect/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// currentClaims returns the authenticated JWT claims, or nil for anonymous
// requests on optional-auth routes.
func currentClaims(c echo.Context) *models.JwtCustomClaims {
	claims, ok := c.Get(middleware.ContextKeyUser).(*models.JwtCustomClaims)
	if !ok {
		return nil
	}
	return claims
}

// currentUser loads the authenticated user, or (nil, nil) when anonymous.
// A valid token whose user row no longer exists is treated as anonymous.
func currentUser(c echo.Context, users repositories.UserRepository) (*models.User, error) {
	claims := currentClaims(c)
	if claims == nil {
		return nil, nil
	}
	user, err := users.GetUserByID(claims.UserID)
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// requireUser is currentUser for required-auth routes: no resolvable user
// means the token identifies someone who no longer exists, which is an
// authentication failure, not a server error. The returned error is ready
// to hand back to echo.
func requireUser(c echo.Context, users repositories.UserRepository) (*models.User, error) {
	user, err := currentUser(c, users)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
	return user, nil
}

// avatarURL resolves a user's avatar to a servable path, falling back to the
// stock placeholder.
func avatarURL(user *models.User) string {
	if user.Avatar != "" {
		return "/static/users/avatars/" + user.Avatar
	}
	return "/static/img/rotatingdandelion.gif"
}
