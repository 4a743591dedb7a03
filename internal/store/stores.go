package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-order-core/internal/checkout"
	"github.com/safar/go-order-core/internal/database"
	"github.com/safar/go-order-core/internal/models"
)

func CreateStore(ctx context.Context, db *sql.DB, code, name string) (*models.Store, error) {
	s := &models.Store{}

	query := `
		INSERT INTO stores (code, name, is_default, created_at, updated_at, version)
		VALUES ($1, $2, false, NOW(), NOW(), 1)
		RETURNING id, code, name, is_default, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, code, name).Scan(
		&s.ID,
		&s.Code,
		&s.Name,
		&s.IsDefault,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	return s, nil
}

func GetStore(ctx context.Context, db *sql.DB, id int64) (*models.Store, error) {
	s := &models.Store{}

	query := `
		SELECT id, code, name, is_default, created_at, updated_at, version
		FROM stores
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Code,
		&s.Name,
		&s.IsDefault,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrStoreNotFound
		}
		return nil, fmt.Errorf("get store: %w", err)
	}

	return s, nil
}

// GetDefaultStore resolves the storefront used when a request names none.
// A deployment without one is misconfigured.
func GetDefaultStore(ctx context.Context, db *sql.DB) (*models.Store, error) {
	s := &models.Store{}

	query := `
		SELECT id, code, name, is_default, created_at, updated_at, version
		FROM stores
		WHERE is_default
		LIMIT 1`

	err := db.QueryRowContext(ctx, query).Scan(
		&s.ID,
		&s.Code,
		&s.Name,
		&s.IsDefault,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &checkout.ConfigurationError{Msg: "no default store configured"}
		}
		return nil, fmt.Errorf("get default store: %w", err)
	}

	return s, nil
}

func ListStores(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stores`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count stores: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, code, name, is_default, created_at, updated_at, version
		FROM stores
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []models.Store
	for rows.Next() {
		var s models.Store
		err := rows.Scan(
			&s.ID,
			&s.Code,
			&s.Name,
			&s.IsDefault,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      stores,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}
