package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"dice-miniapp-backend/internal/config"
	"dice-miniapp-backend/internal/handlers"
	"dice-miniapp-backend/internal/middleware"
	"dice-miniapp-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)

	wsHandler := handlers.NewWebSocketHandler(redisService)
	gameEngine := services.NewGameEngine(redisService, cfg, wsHandler)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			gameEngine.CleanupStaleRolls(10 * time.Minute)
		}
	}()

	authHandler := handlers.NewAuthHandler(redisService, jwtService, cfg.BotToken)
	userHandler := handlers.NewUserHandler(redisService, gameEngine)
	gameHandler := handlers.NewGameHandler(gameEngine, redisService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/auth/telegram", authHandler.Authenticate)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/logout", userHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		dice := protected.Group("/dice")
		dice.Use(middleware.RateLimitMiddleware(redisService))
		{
			dice.POST("/roll", gameHandler.Roll)
			dice.GET("/roll/:id", gameHandler.GetRoll)
			dice.GET("/balance", gameHandler.GetBalance)
			dice.GET("/active", gameHandler.GetActiveRolls)
			dice.GET("/history", gameHandler.GetRollHistory)

			dice.POST("/rig", gameHandler.SetRig)
			dice.GET("/rig", gameHandler.GetRig)

			dice.GET("/verification", gameHandler.GetVerificationData)
			dice.POST("/verify", gameHandler.VerifyRoll)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
