package components

import (
	"flightshare/internal/infra/db"
	"flightshare/internal/infra/guestbridge"
	"flightshare/internal/infra/repository"
	"flightshare/internal/pkg/clock"
	"flightshare/internal/usecase/queries"
	"flightshare/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		NewDBTX,
		fx.Annotate(
			repository.NewUserRepository,
			fx.As(new(shared.UserRepository)),
			fx.As(new(queries.UserReadStore)),
		),
		fx.Annotate(
			repository.NewOfferRepository,
			fx.As(new(shared.OfferRepository)),
			fx.As(new(queries.OfferReadStore)),
		),
		fx.Annotate(
			repository.NewLedgerRepository,
			fx.As(new(shared.LedgerRepository)),
			fx.As(new(queries.LedgerReadStore)),
		),
		NewBridgeStore,
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}

func NewBridgeStore(client *redis.Client, clk clock.Clock) shared.BridgeStore {
	return guestbridge.NewRedisStore(client, clk.Now)
}
