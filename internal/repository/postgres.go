// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/account-overlay/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrCustomerExists возвращается при попытке создать покупателя с уже занятым адресом почты.
var (
	ErrCustomerExists = errors.New("customer already exists")
	// ErrCustomerNotFound возвращается, если покупатель не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrSettingsNotFound возвращается, если для канала продаж нет собственных настроек оверлея.
	ErrSettingsNotFound = errors.New("overlay settings not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		delays: []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при временных ошибках: конфликтах сериализации, дедлоках и обрывах соединения.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(r.delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(r.delays) {
			break
		}

		timer := time.NewTimer(r.delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateCustomer создаёт нового покупателя и возвращает его идентификатор.
func (r *PostgresRepository) CreateCustomer(ctx context.Context, c model.Customer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customers (email, first_name, last_name, password_hash, guest)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		c.Email, c.FirstName, c.LastName, c.PasswordHash, c.Guest,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrCustomerExists, c.Email)
		}
		return 0, fmt.Errorf("create customer: %w", err)
	}
	return id, nil
}

// GetCustomerByEmail возвращает покупателя по адресу почты.
func (r *PostgresRepository) GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	return r.getCustomer(ctx,
		`SELECT id, email, first_name, last_name, password_hash, guest, created_at
		 FROM customers WHERE email = $1`,
		email,
	)
}

// GetCustomerByID возвращает покупателя по идентификатору.
func (r *PostgresRepository) GetCustomerByID(ctx context.Context, id int64) (*model.Customer, error) {
	return r.getCustomer(ctx,
		`SELECT id, email, first_name, last_name, password_hash, guest, created_at
		 FROM customers WHERE id = $1`,
		id,
	)
}

func (r *PostgresRepository) getCustomer(ctx context.Context, query string, arg any) (*model.Customer, error) {
	var c model.Customer
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, query, arg).Scan(
			&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.PasswordHash, &c.Guest, &c.CreatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// GetOverlaySettings возвращает настройки оверлея канала продаж.
func (r *PostgresRepository) GetOverlaySettings(ctx context.Context, salesChannelID string) (*model.OverlaySettings, error) {
	var (
		s              model.OverlaySettings
		timeoutSeconds int
	)

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT enable_caching, cache_timeout_seconds, load_on_hover, load_on_click
			 FROM overlay_settings
			 WHERE sales_channel_id = $1`,
			salesChannelID,
		).Scan(&s.EnableCaching, &timeoutSeconds, &s.LoadOnHover, &s.LoadOnClick)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("get overlay settings: %w", err)
	}

	s.CacheTimeout = time.Duration(timeoutSeconds) * time.Second
	return &s, nil
}

// SaveOverlaySettings создаёт или обновляет настройки оверлея канала продаж.
func (r *PostgresRepository) SaveOverlaySettings(ctx context.Context, salesChannelID string, s model.OverlaySettings) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO overlay_settings (sales_channel_id, enable_caching, cache_timeout_seconds, load_on_hover, load_on_click)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (sales_channel_id) DO UPDATE SET
		     enable_caching = EXCLUDED.enable_caching,
		     cache_timeout_seconds = EXCLUDED.cache_timeout_seconds,
		     load_on_hover = EXCLUDED.load_on_hover,
		     load_on_click = EXCLUDED.load_on_click,
		     updated_at = NOW()`,
		salesChannelID, s.EnableCaching, int(s.CacheTimeout/time.Second), s.LoadOnHover, s.LoadOnClick,
	)
	if err != nil {
		return fmt.Errorf("save overlay settings: %w", err)
	}
	return nil
}
