package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"receipt-service/internal/config"
	infraCache "receipt-service/internal/infrastructure/cache"
	"receipt-service/internal/infrastructure/database"
	"receipt-service/internal/infrastructure/email"
	"receipt-service/internal/infrastructure/storage"
	"receipt-service/pkg/cache"
	"receipt-service/pkg/jwt"

	orderRepo "receipt-service/internal/domains/order/repository"
	paymentHandler "receipt-service/internal/domains/payment/handler"
	paymentRepo "receipt-service/internal/domains/payment/repository"
	paymentService "receipt-service/internal/domains/payment/service"
	receiptHandler "receipt-service/internal/domains/receipt/handler"
	receiptRepo "receipt-service/internal/domains/receipt/repository"
	receiptService "receipt-service/internal/domains/receipt/service"
)

// =====================================================
// CONTAINER
// =====================================================

// Container is the root of the dependency graph. Everything in it is a
// singleton built once at startup; both binaries (api and worker) share
// this wiring.
type Container struct {
	Config      *config.Config
	DB          *database.PostgresDB
	Cache       cache.Cache
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client
	Storage     storage.CloudStorage
	Email       email.EmailService

	OrderRepo           orderRepo.OrderRepository
	PaymentRepo         paymentRepo.PaymentRepository
	WebhookLogRepo      paymentRepo.WebhookLogRepository
	ReceiptRepo         receiptRepo.ReceiptRepository
	JobLogRepo          receiptRepo.JobLogRepository
	EmailLogRepo        receiptRepo.EmailLogRepository
	CloudStorageLogRepo receiptRepo.CloudStorageLogRepository

	PaymentService  paymentService.PaymentService
	WebhookService  paymentService.WebhookService
	ReceiptService  receiptService.ReceiptService
	RecoveryService receiptService.RecoveryService

	WebhookHandler *paymentHandler.WebhookHandler
	ReceiptHandler *receiptHandler.ReceiptHandler
}

// NewContainer builds the full graph: infrastructure first, then
// repositories, services and handlers.
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	if err := c.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}
	c.initRepositories()
	c.initServices()
	c.initHandlers()

	return c, nil
}

func (c *Container) initInfrastructure() error {
	db := database.NewPostgresDB(c.Config.Database)
	if err := db.Connect(context.Background()); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	c.DB = db

	c.Cache = infraCache.NewRedisCache(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)

	minioStorage, err := storage.NewMinIOStorage(c.Config.MinIO)
	if err != nil {
		return fmt.Errorf("failed to init object storage: %w", err)
	}
	c.Storage = minioStorage

	c.Email = email.NewSMTPEmailService(c.Config.SMTP.Host, c.Config.SMTP.Port, c.Config.SMTP.From)
	c.JWTManager = jwt.NewManager(c.Config.JWT.Secret)
	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})

	return nil
}

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.OrderRepo = orderRepo.NewOrderRepository(pool)
	c.PaymentRepo = paymentRepo.NewPaymentRepository(pool)
	c.WebhookLogRepo = paymentRepo.NewWebhookLogRepository(pool)
	c.ReceiptRepo = receiptRepo.NewReceiptRepository(pool)
	c.JobLogRepo = receiptRepo.NewJobLogRepository(pool)
	c.EmailLogRepo = receiptRepo.NewEmailLogRepository(pool)
	c.CloudStorageLogRepo = receiptRepo.NewCloudStorageLogRepository(pool)
}

func (c *Container) initServices() {
	c.PaymentService = paymentService.NewPaymentService(
		c.DB.Pool,
		c.OrderRepo,
		c.PaymentRepo,
		c.ReceiptRepo,
		c.AsynqClient,
	)
	c.WebhookService = paymentService.NewWebhookService(
		c.Config.Payments,
		c.WebhookLogRepo,
		c.PaymentService,
	)
	c.ReceiptService = receiptService.NewReceiptService(c.ReceiptRepo, c.Cache, c.Storage)
	c.RecoveryService = receiptService.NewRecoveryService(c.ReceiptRepo, c.AsynqClient)
}

func (c *Container) initHandlers() {
	c.WebhookHandler = paymentHandler.NewWebhookHandler(c.WebhookService, c.WebhookLogRepo)
	c.ReceiptHandler = receiptHandler.NewReceiptHandler(c.ReceiptService)
}

// HealthCheck pings the stateful dependencies.
func (c *Container) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("postgres unhealthy: %w", err)
	}
	if err := c.Cache.Ping(ctx); err != nil {
		return fmt.Errorf("redis unhealthy: %w", err)
	}
	return nil
}

// Close releases connections in reverse dependency order.
func (c *Container) Close() {
	if c.AsynqClient != nil {
		c.AsynqClient.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
