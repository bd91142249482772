package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"idiom-battle-service/internal/app"
	"idiom-battle-service/internal/combat"
	"idiom-battle-service/internal/domain"
	"idiom-battle-service/internal/infra/memory"
	pgstore "idiom-battle-service/internal/infra/postgres"
	pgmigrations "idiom-battle-service/internal/infra/postgres/migrations"
	redisstore "idiom-battle-service/internal/infra/redis"
)

func TestBattleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	bundb := openBun(pgURL)
	defer bundb.Close()
	migrateAndSeed(t, ctx, bundb)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	bank := redisstore.NewIdiomBank(redisClient, pgstore.NewIdiomLoader(pool), 5*time.Minute)
	progress := redisstore.NewProgressStore(redisClient)
	logs := pgstore.NewLearningLogStore(bundb)
	service := app.NewBattleService(memory.NewSessionStore(), bank, progress, logs)

	snapshot, err := service.StartBattle(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("start battle: %v", err)
	}
	if snapshot.BossHP != 60 {
		t.Fatalf("expected stage 1 boss at 60 HP, got %d", snapshot.BossHP)
	}

	// Fast correct EASY answers deal 20 each: three attack turns win.
	for turn := 0; ; turn++ {
		if turn > 10 {
			t.Fatalf("battle did not finish")
		}
		quiz, err := service.SelectDifficulty(ctx, "u1", domain.TierEasy)
		if err != nil {
			t.Fatalf("select difficulty: %v", err)
		}
		resolution, err := service.SubmitAttack(ctx, "u1", quiz.CorrectIndex)
		if err != nil {
			t.Fatalf("submit attack: %v", err)
		}
		if resolution.BossHP == 0 {
			break
		}
		defenseQuiz, err := service.ContinueBossCounter(ctx, "u1")
		if err != nil {
			t.Fatalf("continue boss counter: %v", err)
		}
		if _, err := service.SubmitDefense(ctx, "u1", defenseQuiz.CorrectIndex); err != nil {
			t.Fatalf("submit defense: %v", err)
		}
	}

	final, err := service.Snapshot("u1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if final.Phase != combat.PhaseVictory {
		t.Fatalf("expected victory, got %s", final.Phase)
	}

	stored, err := progress.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if !stored.Cleared(1) {
		t.Fatalf("stage clear not persisted in redis")
	}

	var logged int
	if err := bundb.QueryRowContext(ctx, `SELECT count(*) FROM learning_logs WHERE user_id = 'u1'`).Scan(&logged); err != nil {
		t.Fatalf("count learning logs: %v", err)
	}
	if logged == 0 {
		t.Fatalf("expected learning-log rows, got none")
	}
}

func openBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func migrateAndSeed(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, tier := range domain.Tiers {
		for i := 1; i <= 5; i++ {
			prompt := fmt.Sprintf("%s meaning %d", tier, i)
			answer := fmt.Sprintf("%s idiom %d", tier, i)
			if _, err := db.ExecContext(ctx,
				`INSERT INTO idioms (prompt, answer, tier) VALUES (?, ?, ?)`,
				prompt, answer, string(tier)); err != nil {
				t.Fatalf("seed idiom: %v", err)
			}
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "battle", "POSTGRES_PASSWORD": "battlepass", "POSTGRES_DB": "battledb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://battle:battlepass@%s:%s/battledb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
