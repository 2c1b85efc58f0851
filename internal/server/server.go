package server

import (
	"time"

	"backend-geocaching/internal/auth"
	"backend-geocaching/internal/config"
	"backend-geocaching/internal/geocache"
	"backend-geocaching/internal/storage"
	"backend-geocaching/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App   *fiber.App
	Cfg   config.Config
	DB    *pgxpool.Pool
	Redis *redis.Client
	Files *storage.Store
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: storage.MaxUploadBytes + 1<<20,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:   app,
		Cfg:   cfg,
		DB:    db,
		Redis: redisClient,
		Files: storage.NewStore(cfg.UploadDir),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/api", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "geocaching API available"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	userSvc := user.NewService(s.DB, s.Redis, time.Duration(s.Cfg.RankingCacheTTL)*time.Second)
	geocacheSvc := geocache.NewService(s.DB, s.Files)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	geocache.RegisterRoutes(s.App.Group("/api/geocache"), geocacheSvc, userSvc, s.Files, jwtMiddleware)
	user.RegisterRoutes(s.App.Group("/api/users"), userSvc, s.Files, jwtMiddleware)
}
