//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"flightshare/cmd/bootstrap"
	"flightshare/cmd/bootstrap/components"
	"flightshare/internal/infra/db"
	"flightshare/internal/pkg/config"
	"flightshare/tests/common/dbtest"

	"github.com/docker/go-connections/nat"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
)

const (
	pgUser     = "test"
	pgPassword = "testpass"
)

// sharedContainer is started at most once per test process.
type sharedContainer struct {
	once      sync.Once
	container testcontainers.Container
	err       error
	port      nat.Port
	timeout   time.Duration
	request   func() testcontainers.ContainerRequest
}

type endpoint struct {
	Host string
	Port string
}

func (e endpoint) addr() string { return e.Host + ":" + e.Port }

var (
	postgresContainer = &sharedContainer{
		port:    "5432/tcp",
		timeout: 3 * time.Minute,
		request: postgresRequest,
	}
	redisContainer = &sharedContainer{
		port:    "6379/tcp",
		timeout: 2 * time.Minute,
		request: redisRequest,
	}
)

func postgresRequest() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        "postgres:17",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgUser,
			"POSTGRES_PASSWORD": pgPassword,
			"POSTGRES_DB":       "postgres",
		},
		// データはRAM上に置き、耐久性の設定は切る
		Tmpfs: map[string]string{"/var/lib/postgresql/data": "rw,size=512m"},
		Cmd: []string{
			"postgres",
			"-c", "fsync=off",
			"-c", "full_page_writes=off",
			"-c", "synchronous_commit=off",
			"-c", "shared_buffers=256MB",
			"-c", "max_connections=200",
			"-c", "log_statement=none",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
			return adminDSN(endpoint{Host: host, Port: port.Port()})
		}).WithStartupTimeout(60 * time.Second),
		Labels: map[string]string{"purpose": "e2e-tests"},
	}
}

// redisRequest starts a throwaway redis for guest continuation bridges.
func redisRequest() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		Cmd:          []string{"redis-server", "--save", "", "--appendonly", "no"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		Labels:       map[string]string{"purpose": "e2e-tests"},
	}
}

func (s *sharedContainer) endpoint(t *testing.T) endpoint {
	t.Helper()

	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		req := s.request()
		s.container, s.err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if s.err != nil {
			return
		}

		// ryukが無効な環境でも確実に止める
		t.Cleanup(func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := s.container.Terminate(stopCtx); err != nil {
				slog.Warn("コンテナの終了に失敗しました", "image", req.Image, "error", err.Error())
			}
		})
	})
	require.NoError(t, s.err, "コンテナの起動に失敗")

	ctx := context.Background()
	mapped, err := s.container.MappedPort(ctx, s.port)
	require.NoError(t, err, "ポートの取得に失敗")
	host, err := s.container.Host(ctx)
	require.NoError(t, err, "ホストの取得に失敗")

	return endpoint{Host: host, Port: mapped.Port()}
}

func adminDSN(pg endpoint) string {
	return fmt.Sprintf("postgres://%s:%s@%s/postgres?sslmode=disable", pgUser, pgPassword, pg.addr())
}

// ------------------------------------------------------------
// 各テストプロセス用にセットアップ
// ------------------------------------------------------------
func setupE2EEnvironment(t *testing.T) (*pgxpool.Pool, *redis.Client, *gin.Engine, config.Config) {
	gin.SetMode(gin.TestMode)

	pg := postgresContainer.endpoint(t)
	rd := redisContainer.endpoint(t)

	dbConfig := createDatabase(t, pg)
	pool, _, err := db.Connect(dbConfig)
	require.NoError(t, err, "データベース接続に失敗")
	t.Cleanup(pool.Close)

	require.NoError(t, applyMigrations(t.Context(), pool), "データベースマイグレーションに失敗")

	cfg := config.NewTestConfig()
	cfg.DB = dbConfig
	cfg.Redis.Addr = rd.addr()

	router, rdb, app := buildE2EApp(t, pool, cfg)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			slog.Warn("fxアプリケーションの停止に失敗しました", "error", err.Error())
		}
	})

	slog.Info("E2E環境の準備が完了しました",
		"postgres", pg.addr(),
		"database", dbConfig.DBName,
		"redis", rd.addr())

	return pool, rdb, router, cfg
}

// createDatabase gives every test process its own database on the shared server.
func createDatabase(t *testing.T, pg endpoint) config.DBConfig {
	t.Helper()

	name := "testdb_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	admin, err := pgxpool.New(ctx, adminDSN(pg))
	require.NoError(t, err, "管理者接続に失敗")
	defer admin.Close()

	// 並列プロセスの CREATE DATABASE は衝突しうるので少し待って再試行
	for attempt := 1; ; attempt++ {
		_, err = admin.Exec(ctx, "CREATE DATABASE "+name)
		if err == nil || attempt == 5 {
			break
		}
		slog.Warn("データベース作成を再試行中", "attempt", attempt, "error", err.Error())
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	require.NoError(t, err, "テスト用データベースの作成に失敗")

	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dropCancel()

		conn, err := pgxpool.New(dropCtx, adminDSN(pg))
		if err != nil {
			slog.Warn("クリーンアップ用のデータベース接続に失敗しました", "database", name, "error", err.Error())
			return
		}
		defer conn.Close()
		if _, err := conn.Exec(dropCtx, "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)"); err != nil {
			slog.Warn("テストデータベースの削除に失敗しました", "database", name, "error", err.Error())
		}
	})

	return config.DBConfig{
		Host:     pg.Host,
		Port:     pg.Port,
		User:     pgUser,
		Password: pgPassword,
		DBName:   name,
		SSLMode:  "disable",
		TimeZone: "UTC",
	}
}

// migrationsDir walks up from the package directory to the module root.
func migrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above working directory")
		}
		dir = parent
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

// ------------------------------------------------------------
// E2Eテスト用アプリケーション構築
// 本番と同じコンポーネントを、テスト用のDBと設定で組み立てる
// ------------------------------------------------------------
func buildE2EApp(t *testing.T, pool *pgxpool.Pool, cfg config.Config) (*gin.Engine, *redis.Client, *fx.App) {
	t.Helper()

	var (
		router *gin.Engine
		rdb    *redis.Client
	)

	app := fx.New(
		fx.Supply(pool, cfg),
		fx.Provide(func() *gin.Engine { return gin.New() }),
		bootstrap.LoggerModule,
		bootstrap.TelemetryModule,
		bootstrap.RedisModule,
		bootstrap.JWTModule,
		bootstrap.GatewayModule,
		components.RepositoryModule,
		components.UseCaseModule,
		components.HandlerModule,

		fx.Populate(&router, &rdb),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx), "fxアプリケーションの起動に失敗")
	require.NotNil(t, router, "Routerのセットアップに失敗")

	return router, rdb, app
}

// ------------------------------------------------------------
// E2Eテストスイートで共通のセットアップ
// ------------------------------------------------------------
type SharedSuite struct {
	suite.Suite
	Router *gin.Engine
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Config config.Config
}

func (s *SharedSuite) SetupSuite() {
	s.DB, s.Redis, s.Router, s.Config = setupE2EEnvironment(s.T())
}

// SetupSubTest starts every subtest from empty tables and no pending guest bridges.
func (s *SharedSuite) SetupSubTest() {
	require.NoError(s.T(), dbtest.ResetDB(s.DB), "Failed to reset database state")
	require.NoError(s.T(), s.Redis.FlushDB(s.T().Context()).Err(), "Failed to flush redis")
}
