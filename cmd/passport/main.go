package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passport/internal/config"
	"github.com/xxxsen/passport/internal/db"
	"github.com/xxxsen/passport/internal/handler"
	"github.com/xxxsen/passport/internal/job"
	"github.com/xxxsen/passport/internal/middleware"
	"github.com/xxxsen/passport/internal/oauth"
	"github.com/xxxsen/passport/internal/repo"
	"github.com/xxxsen/passport/internal/schedule"
	"github.com/xxxsen/passport/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "passport",
		Short: "passport authentication server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run passport server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildProviders(cfg config.OAuthConfig) map[string]oauth.Provider {
	client := &http.Client{Timeout: 10 * time.Second}
	configs := map[string]config.OAuthProviderConfig{
		oauth.ProviderGoogle:   cfg.Google,
		oauth.ProviderFacebook: cfg.Facebook,
		oauth.ProviderTwitter:  cfg.Twitter,
		oauth.ProviderLinkedIn: cfg.LinkedIn,
	}
	providers := map[string]oauth.Provider{}
	for name, pc := range configs {
		provider, err := oauth.NewProvider(name, oauth.ProviderArgs{
			Config: oauth.ProviderConfig{
				ClientID:     pc.ClientID,
				ClientSecret: pc.ClientSecret,
				RedirectURL:  pc.RedirectURL,
			},
			Client: client,
		})
		if err != nil {
			logutil.GetLogger(context.Background()).Warn("skip oauth provider",
				zap.String("provider", name), zap.Error(err))
			continue
		}
		providers[name] = provider
	}
	return providers
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info("starting server", zap.Int("port", cfg.Port))

	userRepo := repo.NewUserRepo(conn)
	codeRepo := repo.NewVerificationRepo(conn)

	mailSender := service.NewEmailSender(cfg.Mail)
	verifier := service.NewVerificationService(codeRepo, mailSender, service.VerificationConfig{
		CodeLength:      cfg.Verification.CodeLength,
		CodeTTL:         time.Duration(cfg.Verification.CodeTTLMinutes) * time.Minute,
		MaxAttempts:     cfg.Verification.MaxAttempts,
		MaxCodesPerHour: cfg.Verification.MaxCodesPerHour,
		Retention:       time.Duration(cfg.Verification.RetentionHours) * time.Hour,
	})
	identity := service.NewIdentityService(userRepo, cfg.DefaultRoleID)
	issuer := service.NewJWTIssuer([]byte(cfg.JWTSecret), time.Duration(cfg.JWTTTLHours)*time.Hour)
	authService := service.NewAuthService(userRepo, identity, verifier, buildProviders(cfg.OAuth), issuer,
		time.Duration(cfg.Verification.ResetTicketTTLMinutes)*time.Minute)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler(time.Duration(cfg.Verification.CleanupRetryMinutes) * time.Minute)
	if err := scheduler.AddJob(job.NewCodeCleanupJob(verifier), cfg.Verification.CleanupSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestID(), gzip.Gzip(gzip.DefaultCompression))
	api := engine.Group("/api/v1")
	handler.RegisterRoutes(api, handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService),
		Users:         handler.NewUserHandler(userRepo),
		JWTSecret:     []byte(cfg.JWTSecret),
		IssueThrottle: 3 * time.Second,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	logutil.GetLogger(context.Background()).Info("server stopped")
	return nil
}
