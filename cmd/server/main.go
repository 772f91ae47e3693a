// Command server wires every dependency and runs the HTTP API. Business
// logic lives in the internal services; main only assembles and supervises.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"iaset/internal/admins"
	adminshandler "iaset/internal/admins/handler"
	"iaset/internal/auth"
	authhandler "iaset/internal/auth/handler"
	"iaset/internal/credentials"
	"iaset/internal/dependents"
	dependentshandler "iaset/internal/dependents/handler"
	"iaset/internal/files"
	"iaset/internal/lockout"
	"iaset/internal/mail"
	"iaset/internal/platform/config"
	"iaset/internal/platform/httpserver"
	"iaset/internal/platform/logger"
	"iaset/internal/platform/metrics"
	"iaset/internal/platform/redis"
	"iaset/internal/register"
	registerhandler "iaset/internal/register/handler"
	httptransport "iaset/internal/transport/http"
	"iaset/internal/users"
	usershandler "iaset/internal/users/handler"
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	m := metrics.New()

	// Storage: postgres when configured, in-memory otherwise. The in-memory
	// setup exists for local development and tests.
	var (
		userStore users.Store
		depStore  dependents.Store
		admStore  admins.Store
		txRunner  register.TxRunner
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(context.Background()); err != nil {
			return err
		}
		userStore = users.NewPostgres(db)
		depStore = dependents.NewPostgres(db)
		admStore = admins.NewPostgres(db)
		txRunner = register.NewPostgresTxRunner(db)
		log.Info("storage: postgres")
	} else {
		userMem := users.NewMemoryStore()
		depMem := dependents.NewMemoryStore()
		userStore = userMem
		depStore = depMem
		admStore = admins.NewMemoryStore()
		txRunner = register.NewMemoryTxRunner(userMem, depMem)
		log.Warn("storage: in-memory, data will not survive a restart")
	}

	var lockStore lockout.Store = lockout.NewMemoryStore()
	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		lockStore = lockout.NewRedisStore(redisClient.Client)
		log.Info("lockout: redis")
	}

	var mailer mail.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, cfg.ResetURLBase)
	} else {
		mailer = mail.NewLogMailer(log)
		log.Warn("mail: no SMTP host configured, reset tokens are logged only")
	}

	fileStore := files.NewStore(cfg.UploadDir, m, log)
	creds := credentials.NewService(cfg.JWTSigningKey, cfg.AdminJWTSigningKey, cfg.UserTokenTTL, cfg.AdminTokenTTL)
	lock := lockout.NewService(lockStore, log)

	userSvc := users.NewService(userStore, fileStore, mailer, log)
	depSvc := dependents.NewService(depStore, fileStore)
	admSvc := admins.NewService(admStore, creds, m, log)
	authSvc := auth.NewService(userStore, creds, lock, m, log)
	regSvc := register.NewService(userStore, depStore, fileStore, txRunner, m, log)

	authH := authhandler.New(authSvc, log)
	regH := registerhandler.New(regSvc, log)
	userH := usershandler.New(userSvc, log)
	depH := dependentshandler.New(depSvc, log)
	admH := adminshandler.New(admSvc, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   m,
		Validator: creds,
		UploadDir: cfg.UploadDir,
		Public: []func(chi.Router){
			authH.Register,
			regH.Register,
			userH.RegisterPublic,
			admH.RegisterPublic,
		},
		User: []func(chi.Router){
			userH.RegisterUser,
			depH.RegisterUser,
		},
		Admin: []func(chi.Router){
			userH.RegisterAdmin,
			depH.RegisterAdmin,
			admH.RegisterAdmin,
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
