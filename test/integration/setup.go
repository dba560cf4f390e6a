package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	// Create schema
	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(50) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price BIGINT NOT NULL CHECK (price >= 0),
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS addresses (
			id VARCHAR(50) PRIMARY KEY,
			user_id VARCHAR(50) NOT NULL,
			line VARCHAR(255) NOT NULL,
			city VARCHAR(100) NOT NULL,
			postal_code VARCHAR(20) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS carts (
			id UUID PRIMARY KEY,
			user_id VARCHAR(50),
			session_id VARCHAR(100),
			subtotal BIGINT NOT NULL DEFAULT 0,
			discount BIGINT NOT NULL DEFAULT 0,
			total BIGINT NOT NULL DEFAULT 0,
			last_activity_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			expired_notified_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK ((user_id IS NULL) <> (session_id IS NULL))
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_user_id ON carts(user_id) WHERE user_id IS NOT NULL;
		CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_session_id ON carts(session_id) WHERE session_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS cart_items (
			id UUID PRIMARY KEY,
			cart_id UUID NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
			product_id VARCHAR(50) NOT NULL REFERENCES products(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			price BIGINT NOT NULL CHECK (price >= 0),
			added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (cart_id, product_id)
		);

		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			user_id VARCHAR(50) NOT NULL,
			cart_id UUID NOT NULL,
			address_id VARCHAR(50) NOT NULL,
			shipping_id VARCHAR(50) NOT NULL,
			total_with_discount BIGINT NOT NULL,
			total_without_discount BIGINT NOT NULL,
			shipping_price BIGINT NOT NULL,
			final_price BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL,
			ref_id VARCHAR(100) NOT NULL UNIQUE,
			payment_attempts INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_orders_user_cart ON orders(user_id, cart_id);

		CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id VARCHAR(50) NOT NULL REFERENCES products(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			price_with_discount BIGINT NOT NULL,
			price_without_discount BIGINT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);

		CREATE TABLE IF NOT EXISTS inventory_records (
			id UUID PRIMARY KEY,
			product_id VARCHAR(50) NOT NULL REFERENCES products(id),
			action VARCHAR(10) NOT NULL CHECK (action IN ('add', 'remove')),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			edited_by VARCHAR(10) NOT NULL CHECK (edited_by IN ('admin', 'order')),
			order_id UUID,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_inventory_records_product ON inventory_records(product_id, created_at);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedProducts inserts test product data into the database.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	products := []struct {
		id    string
		name  string
		price int64
		stock int
	}{
		{"P001", "Test Product 1", 1000, 10},
		{"P002", "Test Product 2", 500, 5},
		{"P003", "Test Product 3", 3000, 0},
		{"P004", "Test Product 4", 4000, 100},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx,
			"INSERT INTO products (id, name, price, stock) VALUES ($1, $2, $3, $4)",
			p.id, p.name, p.price, p.stock,
		)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.id, err)
		}
	}
}

// SeedAddress inserts a delivery address for the given user.
func SeedAddress(t *testing.T, pool *pgxpool.Pool, id, userID string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"INSERT INTO addresses (id, user_id, line, city, postal_code) VALUES ($1, $2, $3, $4, $5)",
		id, userID, "12 Azadi St", "Tehran", "11369",
	)
	if err != nil {
		t.Fatalf("failed to seed address %s: %v", id, err)
	}
}

// ProductStock reads the current stock level of a product.
func ProductStock(t *testing.T, pool *pgxpool.Pool, productID string) int {
	t.Helper()

	var stock int
	err := pool.QueryRow(context.Background(),
		"SELECT stock FROM products WHERE id = $1", productID).Scan(&stock)
	if err != nil {
		t.Fatalf("failed to read stock for %s: %v", productID, err)
	}
	return stock
}

// LedgerCount counts ledger entries for a product.
func LedgerCount(t *testing.T, pool *pgxpool.Pool, productID string) int {
	t.Helper()

	var count int
	err := pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM inventory_records WHERE product_id = $1", productID).Scan(&count)
	if err != nil {
		t.Fatalf("failed to count ledger entries for %s: %v", productID, err)
	}
	return count
}

// OrderStatus reads the persisted status of an order.
func OrderStatus(t *testing.T, pool *pgxpool.Pool, orderID uuid.UUID) string {
	t.Helper()

	var status string
	err := pool.QueryRow(context.Background(),
		"SELECT status FROM orders WHERE id = $1", orderID).Scan(&status)
	if err != nil {
		t.Fatalf("failed to read order status: %v", err)
	}
	return status
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"inventory_records", "order_items", "orders", "cart_items", "carts", "addresses", "products"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
