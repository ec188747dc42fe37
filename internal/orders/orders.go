// Package orders persists order groups. The online-payment path is written so
// that the Stripe webhook and the client-driven verify call can both attempt
// to materialize the same session and converge on exactly one order set.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// NewGroupID mints the group tag shared by every row of one checkout
// transaction.
func NewGroupID() string {
	return "ORD-" + uuid.NewString()
}

const orderColumns = `id, order_id, user_id, product_id, product_name, product_image,
	payment_id, stripe_session_id, payment_status, delivery_address,
	sub_total_amt, total_amt, quantity, status, created_at, updated_at`

// CreateCODGroup writes one order row per cart line inside a single
// transaction so a partial batch can never be observed. Cart clearing is the
// caller's job and deliberately happens after this commits: a crash in
// between leaves a stale cart, not a lost order.
func (c *Conf) CreateCODGroup(ctx context.Context, userID, addressID string, lines []Line, subTotal, total float64) ([]Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("no cart lines")
	}

	groupID := NewGroupID()
	var created []Order

	err := c.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO orders (order_id, user_id, product_id, product_name, product_image,
				payment_id, stripe_session_id, payment_status, delivery_address,
				sub_total_amt, total_amt, quantity, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, '', '', $6, $7, $8, $9, $10, $11, NOW(), NOW())
			RETURNING ` + orderColumns
		for _, line := range lines {
			qty := line.Quantity
			if qty <= 0 {
				qty = 1
			}
			row := tx.QueryRowContext(ctx, query,
				groupID, userID, line.ProductID, line.ProductDetails.Name, line.ProductDetails.Image,
				StatusCashOnDelivery, addressID, subTotal, total, qty, FulfillmentProcessing)
			o, err := scanOrder(row)
			if err != nil {
				return fmt.Errorf("failed to insert order line: %w", err)
			}
			created = append(created, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateFromSession materializes an order group for a completed checkout
// session. The boolean reports whether this call created the group; false
// means another path (webhook or verify) got there first and the existing
// rows are returned instead. Safe under concurrent duplicate delivery: the
// partial unique index on (stripe_session_id, product_id) makes the second
// writer's inserts no-ops.
func (c *Conf) CreateFromSession(ctx context.Context, group SessionGroup) ([]Order, bool, error) {
	if group.SessionID == "" {
		return nil, false, fmt.Errorf("session id is empty")
	}
	if len(group.Items) == 0 {
		return nil, false, fmt.Errorf("no items in session metadata")
	}

	var result []Order
	var created bool

	err := c.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := sessionOrders(ctx, tx, group.SessionID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			result = existing
			return nil
		}

		groupID := NewGroupID()
		// Product name/image are re-resolved locally; the metadata descriptor
		// only carries ids and quantities.
		query := `
			INSERT INTO orders (order_id, user_id, product_id, product_name, product_image,
				payment_id, stripe_session_id, payment_status, delivery_address,
				sub_total_amt, total_amt, quantity, status, created_at, updated_at)
			SELECT $1, $2, $3, COALESCE(p.name, 'Product'), COALESCE(p.image, ''),
				$4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
			FROM (SELECT 1) AS one
			LEFT JOIN products p ON p.id = $3
			ON CONFLICT (stripe_session_id, product_id) WHERE stripe_session_id <> '' DO NOTHING
		`
		var inserted int64
		for _, item := range group.Items {
			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			res, err := tx.ExecContext(ctx, query,
				groupID, group.UserID, item.ProductID,
				group.PaymentID, group.SessionID, StatusPaid, group.AddressID,
				group.SubTotalAmt, group.TotalAmt, qty, FulfillmentProcessing)
			if err != nil {
				return fmt.Errorf("failed to insert session order line: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			inserted += n
		}

		if inserted == 0 {
			// Lost the race after the existence check. The winner has
			// committed by the time the conflicting insert returned.
			existing, err := sessionOrders(ctx, tx, group.SessionID)
			if err != nil {
				return err
			}
			result = existing
			return nil
		}

		rows, err := sessionOrders(ctx, tx, group.SessionID)
		if err != nil {
			return err
		}
		result = rows
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// ExpireSession marks any existing rows of a session as EXPIRED. Zero rows is
// a no-op: no placeholder order is created for an abandoned session. PAID rows
// are terminal and never downgraded.
func (c *Conf) ExpireSession(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("session id is empty")
	}
	query := `
		UPDATE orders
		SET payment_status = $2, updated_at = NOW()
		WHERE stripe_session_id = $1 AND payment_status <> $3
	`
	res, err := c.db.ExecContext(ctx, query, sessionID, StatusExpired, StatusPaid)
	if err != nil {
		return 0, fmt.Errorf("failed to expire session orders: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

func (c *Conf) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return list, nil
}

func sessionOrders(ctx context.Context, tx *sql.Tx, sessionID string) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE stripe_session_id = $1
		ORDER BY id
	`
	rows, err := tx.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session orders: %w", err)
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderID, &o.UserID, &o.ProductID,
		&o.ProductDetails.Name, &o.ProductDetails.Image,
		&o.PaymentID, &o.StripeSessionID, &o.PaymentStatus, &o.DeliveryAddress,
		&o.SubTotalAmt, &o.TotalAmt, &o.Quantity, &o.Status,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		er := tx.Rollback()
		if er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return fmt.Errorf("failed to execute withTx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}
