package router

import (
	"log"

	"github.com/SL1dee36/Connect/internal/handlers"
	"github.com/SL1dee36/Connect/internal/media"
	appMiddleware "github.com/SL1dee36/Connect/internal/middleware"
	"github.com/SL1dee36/Connect/internal/models"
	"github.com/SL1dee36/Connect/internal/policy"
	"github.com/SL1dee36/Connect/internal/repositories"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, db *gorm.DB, store *media.Store) {
	err := db.AutoMigrate(
		&models.User{},
		&models.FriendRequest{},
		&models.Friendship{},
		&models.Message{},
		&models.Post{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("Auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// Stored media is served statically per category
	e.Static("/static/users/avatars", store.Dir(media.AvatarDir))
	e.Static("/static/users/images", store.Dir(media.ImageDir))
	e.Static("/static/users/videos", store.Dir(media.VideoDir))

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(db)
	friendshipRepo := repositories.NewPostgresFriendshipRepository(db)
	messageRepo := repositories.NewPostgresMessageRepository(db)
	postRepo := repositories.NewPostgresPostRepository(db)

	pol := policy.New(friendshipRepo, messageRepo)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/auth")
	authHandler := handlers.NewAuthHandler(userRepo)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// public carries claims when a token is present but admits anonymous
	// visitors; private rejects requests without a valid token.
	public := e.Group("", appMiddleware.OptionalJWTAuthMiddleware())
	private := e.Group("", appMiddleware.JWTAuthMiddleware())

	private.GET("/logout", authHandler.Logout)

	// Home page: chat list
	homeHandler := handlers.NewHomeHandler(userRepo, messageRepo)
	public.GET("/", homeHandler.Index)

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo, friendshipRepo, postRepo, pol, store)
	userHandler.RegisterProfileRoutes(public, private)
	log.Println("User profile routes configured.")

	// Feed routes
	feedHandler := handlers.NewFeedHandler(postRepo, friendshipRepo, userRepo)
	feedHandler.RegisterFeedRoutes(public)
	log.Println("Feed routes configured.")

	// Friendship routes
	friendshipHandler := handlers.NewFriendshipHandler(friendshipRepo, userRepo)
	friendshipHandler.RegisterFriendshipRoutes(private)
	log.Println("Friendship routes configured.")

	// Messenger routes
	messengerHandler := handlers.NewMessengerHandler(userRepo, messageRepo, pol)
	messengerHandler.RegisterMessengerRoutes(private)
	log.Println("Messenger routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo, userRepo, pol, store)
	postHandler.RegisterPostRoutes(private)
	log.Println("Post routes configured.")

	log.Println("All routes configured.")
}
