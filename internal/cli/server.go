package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"idiom-battle-service/internal/app"
	"idiom-battle-service/internal/config"
	"idiom-battle-service/internal/domain"
	"idiom-battle-service/internal/infra/memory"
	pgstore "idiom-battle-service/internal/infra/postgres"
	redisstore "idiom-battle-service/internal/infra/redis"
	transport "idiom-battle-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the battle server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleIdioms())
	if pool != nil {
		loader = pgstore.NewIdiomLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var bank app.IdiomBank
	if redisClient != nil {
		bank = redisstore.NewIdiomBank(redisClient, loader, bankTTL)
	} else {
		bank = memory.NewIdiomBank(loader, bankTTL)
	}

	var progress app.ProgressStore
	if redisClient != nil {
		progress = redisstore.NewProgressStore(redisClient)
	} else {
		progress = memory.NewProgressStore()
	}

	var logs app.LearningLogAppender
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bundb := bun.NewDB(sqldb, pgdialect.New())
		defer bundb.Close()
		logs = pgstore.NewLearningLogStore(bundb)
	}

	service := app.NewBattleService(memory.NewSessionStore(), bank, progress, logs)
	if len(cfg.Combat.DefenseBands) > 0 {
		service.SetDefenseBands(cfg.Combat.DefenseBands)
	}
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting battle service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleIdioms is a minimal built-in bank for running without Postgres; each
// tier needs at least four distinct-answer entries or quiz generation fails.
func sampleIdioms() map[domain.Tier][]domain.Idiom {
	return map[domain.Tier][]domain.Idiom{
		domain.TierEasy: {
			{ID: 1, Prompt: "to delay until later", Answer: "put off", Tier: domain.TierEasy},
			{ID: 2, Prompt: "to tolerate", Answer: "put up with", Tier: domain.TierEasy},
			{ID: 3, Prompt: "to reject an offer", Answer: "turn down", Tier: domain.TierEasy},
			{ID: 4, Prompt: "to investigate", Answer: "look into", Tier: domain.TierEasy},
			{ID: 5, Prompt: "to cancel", Answer: "call off", Tier: domain.TierEasy},
		},
		domain.TierMedium: {
			{ID: 6, Prompt: "very rarely", Answer: "once in a blue moon", Tier: domain.TierMedium},
			{ID: 7, Prompt: "to reveal a secret", Answer: "spill the beans", Tier: domain.TierMedium},
			{ID: 8, Prompt: "to exaggerate a small problem", Answer: "make a mountain out of a molehill", Tier: domain.TierMedium},
			{ID: 9, Prompt: "feeling ill", Answer: "under the weather", Tier: domain.TierMedium},
			{ID: 10, Prompt: "to start a conversation", Answer: "break the ice", Tier: domain.TierMedium},
		},
		domain.TierHard: {
			{ID: 11, Prompt: "to avoid addressing the main point", Answer: "beat around the bush", Tier: domain.TierHard},
			{ID: 12, Prompt: "an action that cannot be undone", Answer: "cross the Rubicon", Tier: domain.TierHard},
			{ID: 13, Prompt: "to face consequences for one's actions", Answer: "face the music", Tier: domain.TierHard},
			{ID: 14, Prompt: "a blessing that turns out to be a curse", Answer: "a poisoned chalice", Tier: domain.TierHard},
			{ID: 15, Prompt: "to accept something unpleasant stoically", Answer: "bite the bullet", Tier: domain.TierHard},
		},
	}
}
