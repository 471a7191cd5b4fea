package main

import (
	"context"
	"crypto"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notevault/auth-service/internal/audit"
	auditrepo "notevault/auth-service/internal/audit/repository"
	"notevault/auth-service/internal/config"
	"notevault/auth-service/internal/db"
	"notevault/auth-service/internal/db/migrate"
	"notevault/auth-service/internal/otp"
	otprepo "notevault/auth-service/internal/otp/repository"
	"notevault/auth-service/internal/security"
	"notevault/auth-service/internal/server"
	"notevault/auth-service/internal/session"
	"notevault/auth-service/internal/telemetry"
	otelsetup "notevault/auth-service/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	emitter := otelsetup.NewEventEmitter(providers.LoggerProvider)

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate: %v", err)
	}

	registry := otp.BuildRegistry(cfg)
	otpService := otp.NewService(registry, cfg.OTPProvider, otprepo.NewPostgresRepository(database), cfg.OTPLength, cfg.OTPExpiryDuration())

	sessions := session.NewManager(cfg.SessionMaxAgeDuration())

	tokens, err := buildTokenProvider(cfg)
	if err != nil {
		log.Fatalf("jwt: %v", err)
	}

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(database))

	router := server.NewRouter(server.Deps{
		OTP:         otpService,
		Sessions:    sessions,
		Tokens:      tokens,
		Audit:       auditLogger,
		Emitter:     emitter,
		ServiceName: cfg.ServiceName,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Periodic sweep of expired OTP rows and idle sessions.
	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	go runCleanup(cleanupCtx, cfg.SessionCleanupIntervalDuration(), otpService, sessions)

	go func() {
		log.Printf("auth service listening on %s (provider %s)", cfg.HTTPAddr, otpService.ActiveProvider())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	cancelCleanup()

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	// Give in-flight async telemetry emits time to land before the providers go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("stopped")
}

// buildTokenProvider parses the configured signing keys, or generates an
// ephemeral key pair outside production when none are set.
func buildTokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	var (
		signer crypto.Signer
		public crypto.PublicKey
	)
	if cfg.JWTPrivateKey != "" {
		var err error
		signer, err = security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			return nil, err
		}
		public = signer.Public()
		if cfg.JWTPublicKey != "" {
			public, err = security.ParsePublicKey(cfg.JWTPublicKey)
			if err != nil {
				return nil, err
			}
		}
	} else {
		if cfg.Env == "production" {
			return nil, errors.New("JWT_PRIVATE_KEY is required in production")
		}
		var err error
		signer, err = security.GenerateEphemeralKey()
		if err != nil {
			return nil, err
		}
		public = signer.Public()
		log.Printf("jwt: no key configured, using an ephemeral %s key (tokens will not survive restarts)", security.KeyAlg(public))
	}
	return security.NewTokenProvider(signer, public, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL()), nil
}

// runCleanup sweeps expired OTP records and idle sessions until ctx is canceled.
func runCleanup(ctx context.Context, interval time.Duration, otpService *otp.Service, sessions *session.Manager) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := otpService.Cleanup(ctx); err != nil {
				log.Printf("cleanup: otp sweep failed: %v", err)
			}
			sessions.Cleanup(ctx)
		}
	}
}
