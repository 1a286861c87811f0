//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental-backend/internal/config"
	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository/postgres"
	"carrental-backend/internal/service"
)

var configPath = flag.String("config", "../../../config/config.test.yaml", "path to config file")

// prepareStore connects to the test database and recreates the schema.
func prepareStore(t *testing.T) (*postgres.Store, *sql.DB) {
	t.Helper()
	cfg, err := config.Load(*configPath)
	require.NoError(t, err)

	var db *sql.DB
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
		}
		time.Sleep(2 * time.Second)
	}
	require.NoError(t, err, "failed to connect to database")
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	_, err = db.Exec(`DROP TABLE IF EXISTS payments, rentals, cars`)
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return postgres.NewStore(db, cfg.Database.LockTimeout), db
}

func seedCar(t *testing.T, db *sql.DB, inventory int) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(`INSERT INTO cars (model, brand, type, inventory, daily_fee)
		VALUES ('Corolla', 'Toyota', 'SEDAN', $1, 100.00) RETURNING id`, inventory).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestIntegration_ConcurrentDecrementsNeverOversell(t *testing.T) {
	store, db := prepareStore(t)
	carID := seedCar(t, db, 5)
	inventory := service.NewInventoryService(store.Transactor, store.CarRepository)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := inventory.Adjust(context.Background(), carID, 1, domain.InventoryDecrease)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if domain.CodeOf(err) == domain.CodeInsufficientInventory {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 5, rejected)
	car, err := store.CarRepository.GetByID(context.Background(), carID)
	require.NoError(t, err)
	assert.Equal(t, 0, car.Inventory)
}

func TestIntegration_LockTimeoutIsRetryable(t *testing.T) {
	store, db := prepareStore(t)
	carID := seedCar(t, db, 1)

	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = store.Transactor.WithinTx(context.Background(), func(ctx context.Context) error {
			if _, err := store.CarRepository.LockForUpdate(ctx, carID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	defer close(release)

	err := store.Transactor.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := store.CarRepository.LockForUpdate(ctx, carID)
		return err
	})
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
}

func TestIntegration_RentalLifecycleRestoresInventory(t *testing.T) {
	store, db := prepareStore(t)
	carID := seedCar(t, db, 1)
	inventory := service.NewInventoryService(store.Transactor, store.CarRepository)
	rentals := service.NewRentalService(store.Transactor, store.RentalRepository, inventory, service.NewMailNotifier(config.SMTPConfig{}))
	ctx := context.Background()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rental, err := rentals.CreateRental(ctx, 7, carID, from, from.AddDate(0, 0, 3))
	require.NoError(t, err)

	_, err = rentals.CreateRental(ctx, 8, carID, from, from.AddDate(0, 0, 3))
	assert.Equal(t, domain.CodeInsufficientInventory, domain.CodeOf(err))

	returned, err := rentals.ReturnRental(ctx, 7, rental.ID, from.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.NotNil(t, returned.ActualReturnDate)

	car, err := store.CarRepository.GetByID(ctx, carID)
	require.NoError(t, err)
	assert.Equal(t, 1, car.Inventory)

	_, err = rentals.ReturnRental(ctx, 7, rental.ID, from.AddDate(0, 0, 5))
	assert.Equal(t, domain.CodeRentalClosed, domain.CodeOf(err))
}

func TestIntegration_MarkPaidRaceHasOneWinner(t *testing.T) {
	store, db := prepareStore(t)
	carID := seedCar(t, db, 1)
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rental := &domain.Rental{UserID: 7, CarID: carID, RentalDate: day, ReturnDate: day.AddDate(0, 0, 3)}
	require.NoError(t, store.RentalRepository.Create(ctx, rental))
	payment := &domain.Payment{
		RentalID: rental.ID, SessionID: "cs_race", SessionURL: "https://checkout.stripe.com/c/cs_race",
		AmountToPay: decimal.RequireFromString("300.00"), Status: domain.PaymentStatusPending, Type: domain.PaymentTypePayment,
	}
	require.NoError(t, store.PaymentRepository.Create(ctx, payment))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := store.PaymentRepository.MarkPaid(ctx, payment.ID)
			if err == nil && won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	// an expired sweep cannot touch a paid row
	n, err := store.PaymentRepository.MarkExpired(ctx, []int64{payment.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIntegration_SoftDeletedPaymentFreesRentalType(t *testing.T) {
	store, db := prepareStore(t)
	carID := seedCar(t, db, 1)
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rental := &domain.Rental{UserID: 7, CarID: carID, RentalDate: day, ReturnDate: day.AddDate(0, 0, 3)}
	require.NoError(t, store.RentalRepository.Create(ctx, rental))

	newPayment := func(session string) *domain.Payment {
		return &domain.Payment{
			RentalID: rental.ID, SessionID: session, SessionURL: "https://checkout.stripe.com/c/" + session,
			AmountToPay: decimal.RequireFromString("300.00"), Status: domain.PaymentStatusPending, Type: domain.PaymentTypePayment,
		}
	}

	first := newPayment("cs_first")
	require.NoError(t, store.PaymentRepository.Create(ctx, first))

	err := store.PaymentRepository.Create(ctx, newPayment("cs_second"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, domain.CodeDuplicate, domain.CodeOf(err))

	require.NoError(t, store.PaymentRepository.SoftDelete(ctx, first.ID))
	require.NoError(t, store.PaymentRepository.Create(ctx, newPayment("cs_second")))

	found, err := store.PaymentRepository.FindByRentalAndType(ctx, rental.ID, domain.PaymentTypePayment)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "cs_second", found.SessionID)
}
