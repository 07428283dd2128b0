package configuration

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/auth"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/db"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/fanout"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/handler"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/hub"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/presence"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/repo"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/service"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	AuthService    *auth.Service
	AuthHandler    handler.AuthHandler
	ChatHandler    handler.ChatHandler
	UserHandler    handler.UserHandler
	MonitorHandler handler.MonitorHandler
	Hub            *hub.Hub
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
	redisClient *redis.Client
	chatService service.ChatService
	background  context.CancelFunc
}

func BuildContainer() (*Container, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	con, err := db.OpenConnection(config.ChatDatabase.Uri, config.ChatDatabase.Database)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	logger, _ := zap.NewProduction()

	userMongo := db.NewRepository[model.User](con, config.ChatDatabase.UsersCollection)
	messageMongo := db.NewRepository[model.Message](con, config.ChatDatabase.MessagesCollection)
	conversationMongo := db.NewRepository[model.Conversation](con, config.ChatDatabase.ConversationsCollection)

	userRepo := repo.NewUserRepository(con, userMongo, logger)
	messageRepo := repo.NewMessageRepository(con, messageMongo, logger)
	conversationRepo := repo.NewConversationRepository(con, conversationMongo, messageRepo, logger)
	txRunner := repo.NewTxRunner(con.Client(), logger)

	broker := fanout.NewBroker(logger)
	channel := config.Redis.FanoutChannel
	if channel == "" {
		channel = "livechat:fanout"
	}
	bridge := fanout.NewBridge(rdb, broker, channel, logger)

	leaseTTL := time.Duration(config.Presence.LeaseTTLSeconds) * time.Second
	if leaseTTL <= 0 {
		leaseTTL = 60 * time.Second
	}
	sweepInterval := time.Duration(config.Presence.SweepIntervalSeconds) * time.Second
	if sweepInterval <= 0 {
		sweepInterval = 30 * time.Second
	}

	leases := presence.NewRedisLeaseStore(rdb, leaseTTL)
	tracker := presence.NewTracker(userRepo, leases, broker, sweepInterval, logger)

	chatService := service.NewChatService(messageRepo, conversationRepo, userRepo, txRunner, broker, logger)
	userService := service.NewUserService(userRepo)
	authService := auth.NewService(userRepo, tracker, config.Server.JwtSecret, logger)

	Hub := hub.NewHub(broker, chatService, tracker, config.Server.AllowedOrigins)
	monitorService := hub.NewMonitorService(Hub)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	go bridge.Run(bgCtx)
	go tracker.Run(bgCtx)

	return &Container{
		AuthService:    authService,
		AuthHandler:    handler.NewAuthHandler(authService),
		ChatHandler:    handler.NewChatHandler(chatService),
		UserHandler:    handler.NewUserHandler(userService),
		MonitorHandler: handler.NewMonitorHandler(monitorService),
		Hub:            Hub,
		Config:         *config,
		Logger:         logger,
		mongoClient:    con,
		redisClient:    rdb,
		chatService:    chatService,
		background:     bgCancel,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Stop the fanout bridge and presence sweeper
	if c.background != nil {
		c.background()
	}

	// Drop pending typing timers
	if c.chatService != nil {
		c.chatService.Close()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close Redis connection
	if c.redisClient != nil {
		_ = c.redisClient.Close()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
