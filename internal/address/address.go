package address

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Address struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AddressLine string    `json:"address_line"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Country     string    `json:"country"`
	Pincode     string    `json:"pincode"`
	Mobile      string    `json:"mobile"`
	Status      bool      `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewAddress struct {
	AddressLine string `json:"address_line" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state" validate:"required"`
	Country     string `json:"country" validate:"required"`
	Pincode     string `json:"pincode" validate:"required"`
	Mobile      string `json:"mobile" validate:"required"`
}

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) InsertAddress(ctx context.Context, userID string, na NewAddress) (Address, error) {
	query := `
		INSERT INTO addresses (id, user_id, address_line, city, state, country, pincode, mobile, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), NOW())
		RETURNING id, user_id, address_line, city, state, country, pincode, mobile, status, created_at, updated_at
	`
	var a Address
	err := c.db.QueryRowContext(ctx, query,
		uuid.NewString(), userID, na.AddressLine, na.City, na.State, na.Country, na.Pincode, na.Mobile).
		Scan(&a.ID, &a.UserID, &a.AddressLine, &a.City, &a.State, &a.Country, &a.Pincode, &a.Mobile, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Address{}, fmt.Errorf("failed to insert address: %w", err)
	}
	return a, nil
}

func (c *Conf) ListAddresses(ctx context.Context, userID string) ([]Address, error) {
	query := `
		SELECT id, user_id, address_line, city, state, country, pincode, mobile, status, created_at, updated_at
		FROM addresses
		WHERE user_id = $1 AND status = TRUE
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var list []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.AddressLine, &a.City, &a.State, &a.Country, &a.Pincode, &a.Mobile, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}
	return list, nil
}

func (c *Conf) UpdateAddress(ctx context.Context, userID, id string, na NewAddress) (Address, error) {
	query := `
		UPDATE addresses
		SET address_line = $3, city = $4, state = $5, country = $6, pincode = $7, mobile = $8, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = TRUE
		RETURNING id, user_id, address_line, city, state, country, pincode, mobile, status, created_at, updated_at
	`
	var a Address
	err := c.db.QueryRowContext(ctx, query,
		id, userID, na.AddressLine, na.City, na.State, na.Country, na.Pincode, na.Mobile).
		Scan(&a.ID, &a.UserID, &a.AddressLine, &a.City, &a.State, &a.Country, &a.Pincode, &a.Mobile, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Address{}, err
	}
	return a, nil
}

// DisableAddress soft-deletes: orders keep referencing the address record.
func (c *Conf) DisableAddress(ctx context.Context, userID, id string) error {
	query := `
		UPDATE addresses
		SET status = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = TRUE
	`
	res, err := c.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to disable address: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
