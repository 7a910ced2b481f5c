package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/studentportal/internal/app/controllers"
	appMigrations "github.com/yigit/studentportal/internal/app/migrations"
	appRepos "github.com/yigit/studentportal/internal/app/repositories"
	appRoutes "github.com/yigit/studentportal/internal/app/routes"
	appServices "github.com/yigit/studentportal/internal/app/services"
	"github.com/yigit/studentportal/internal/config"
	"github.com/yigit/studentportal/internal/db"
	appMiddleware "github.com/yigit/studentportal/internal/middleware"
	pkgAuth "github.com/yigit/studentportal/internal/pkg/auth"
	"github.com/yigit/studentportal/internal/pkg/email"
	"github.com/yigit/studentportal/internal/pkg/filestorage"
	"github.com/yigit/studentportal/internal/pkg/logger"
	"github.com/yigit/studentportal/internal/pkg/metrics"
	"github.com/yigit/studentportal/internal/pkg/payment"
	"github.com/yigit/studentportal/internal/pkg/presence"
	"github.com/yigit/studentportal/internal/pkg/websocket"
	"github.com/yigit/studentportal/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos       *appRepos.Repositories
	JWTService  *pkgAuth.JWTService
	FileStorage *filestorage.LocalStorage
	Metrics     *metrics.Metrics
	Hub         *websocket.Hub
	Redis       *redis.Client // nil when presence is kept in Postgres

	AuthService         *appServices.AuthService
	CourseService       *appServices.CourseService
	ProgramService      *appServices.ProgramService
	RegistrationService *appServices.RegistrationService
	UploadService       *appServices.UploadService
	NewsService         *appServices.NewsService
	PaymentService      *appServices.PaymentService
	PresenceService     *appServices.PresenceService

	Controllers    *appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and seeds default data.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool
	lgr.Info().Msg("Database connection successfully established.")

	var migrationsFS fs.FS = appMigrations.Embedded()
	if dir := cfg.Database.MigrationsDir; dir != "" {
		if _, err := os.Stat(dir); err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("migrations directory not found at %s: %w", dir, err)
		}
		migrationsFS = os.DirFS(dir)
	}

	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(dbPool, lgr).Migrate(ctx, migrationsFS); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	if cfg.Seed.Enabled {
		opts := seed.Options{AdminEmail: cfg.Seed.AdminEmail, AdminPassword: cfg.Seed.AdminPassword}
		if err := seed.CreateDefaultData(ctx, appRepos.NewRepositories(dbPool), opts, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return dbPool, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	deps.Repos = appRepos.NewRepositories(dbPool)
	deps.Metrics = metrics.New()

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath,
		strings.TrimRight(cfg.Server.BaseURL, "/")+"/uploads", lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: config.Duration(cfg.JWT.AccessTokenExpiration),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	emailService := email.NewEmailService(email.Config{
		AppName:     cfg.Email.FromName,
		FrontendURL: cfg.Server.FrontendURL,
		Timeout:     config.Duration(cfg.Email.Timeout),
	}, newEmailSender(cfg, lgr), lgr)

	gateway, err := newPaymentGateway(cfg, deps.Metrics, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize payment gateway")
		return nil, fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	deps.Hub = websocket.NewHub(deps.Metrics, lgr)

	var tracker presence.Tracker
	if cfg.Redis.Address != "" {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		tracker = presence.NewRedisTracker(deps.Redis, presence.DefaultKey)
		lgr.Info().Str("address", cfg.Redis.Address).Msg("Presence tracked in Redis")
	} else {
		tracker = presence.NewStoreTracker(deps.Repos.UserRepository)
		lgr.Info().Msg("Presence tracked in Postgres")
	}

	maxUploadBytes := int64(cfg.Registration.MaxUploadSizeMB) << 20

	deps.PresenceService = appServices.NewPresenceService(tracker, config.Duration(cfg.Presence.Window), deps.Metrics, lgr)
	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.PasswordResetTokenRepository,
		deps.Repos.ProgramRepository,
		deps.JWTService,
		emailService,
		deps.PresenceService,
		config.Duration(cfg.Registration.ResetTokenTimeout),
		lgr,
	)
	deps.CourseService = appServices.NewCourseService(deps.Repos.CourseRepository, deps.Repos.ProgramRepository, lgr)
	deps.ProgramService = appServices.NewProgramService(deps.Repos.ProgramRepository, lgr)
	deps.RegistrationService = appServices.NewRegistrationService(
		deps.Repos.RegistrationRepository,
		deps.Repos.CourseRepository,
		deps.Repos.UploadRepository,
		config.Duration(cfg.Registration.GracePeriod),
		lgr,
	)
	deps.UploadService = appServices.NewUploadService(
		deps.Repos.UploadRepository,
		deps.FileStorage,
		maxUploadBytes,
		config.Duration(cfg.Registration.UploadEditWindow),
		lgr,
	)
	deps.NewsService = appServices.NewNewsService(
		deps.Repos.NewsRepository,
		deps.Repos.UserRepository,
		deps.FileStorage,
		maxUploadBytes,
		deps.Hub,
		lgr,
	)
	deps.PaymentService = appServices.NewPaymentService(deps.Repos.PaymentRepository, gateway, appServices.PaymentOptions{
		Currency:  cfg.Payment.Currency,
		ReturnURL: cfg.Payment.ReturnURL,
		CancelURL: cfg.Payment.CancelURL,
	}, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, lgr)

	deps.Controllers = &appRoutes.Controllers{
		Auth:         appControllers.NewAuthController(deps.AuthService, lgr),
		Catalog:      appControllers.NewCatalogController(deps.CourseService, deps.ProgramService, lgr),
		Registration: appControllers.NewRegistrationController(deps.RegistrationService, lgr),
		Upload:       appControllers.NewUploadController(deps.UploadService, lgr),
		News:         appControllers.NewNewsController(deps.NewsService, lgr),
		Payment:      appControllers.NewPaymentController(deps.PaymentService, lgr),
		Presence:     appControllers.NewPresenceController(deps.PresenceService, lgr),
		WebSocket:    websocket.NewHandler(deps.Hub, cfg.Server.AllowedOrigins, lgr),
	}

	return deps, nil
}

func newEmailSender(cfg *config.Config, lgr zerolog.Logger) email.Sender {
	switch strings.ToLower(cfg.Email.Provider) {
	case "smtp":
		return email.NewSMTPSender(email.SMTPConfig{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromName:  cfg.Email.FromName,
			FromEmail: cfg.Email.FromAddress,
			UseTLS:    cfg.Email.SMTPUseTLS,
		})
	case "sendgrid":
		return email.NewSendGridSender(cfg.Email.SendGridAPIKey, cfg.Email.FromName, cfg.Email.FromAddress)
	default:
		lgr.Warn().Msg("Email provider is 'log', reset links will only be written to the log")
		return email.NewLogSender(lgr)
	}
}

func newPaymentGateway(cfg *config.Config, m *metrics.Metrics, lgr zerolog.Logger) (payment.Gateway, error) {
	var inner payment.Gateway
	switch strings.ToLower(cfg.Payment.Provider) {
	case "midtrans":
		inner = payment.NewMidtransGateway(cfg.Payment.MidtransServerKey, cfg.Payment.Sandbox)
	default:
		pp, err := payment.NewPayPalGateway(cfg.Payment.PayPalClientID, cfg.Payment.PayPalSecret,
			cfg.Payment.Sandbox, config.Duration(cfg.Payment.Timeout))
		if err != nil {
			return nil, err
		}
		inner = pp
	}

	return payment.NewResilientGateway(inner, payment.Options{
		Timeout:     config.Duration(cfg.Payment.Timeout),
		MaxAttempts: cfg.Payment.MaxAttempts,
		BackoffBase: config.Duration(cfg.Payment.BackoffBase),
		Metrics:     m,
		Logger:      lgr,
	}), nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, dbPool *pgxpool.Pool, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	appMiddleware.RegisterBindingValidators()

	router := gin.New()
	router.MaxMultipartMemory = int64(cfg.Registration.MaxUploadSizeMB) << 20
	router.Use(
		gin.Recovery(),
		appMiddleware.RequestLogger(lgr, deps.Metrics),
		appMiddleware.CORS(cfg.Server.AllowedOrigins),
	)

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	router.Static("/uploads", cfg.Server.StoragePath)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := dbPool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}
