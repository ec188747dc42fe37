package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

func (c *Conf) AddToCartDB(ctx context.Context, userID string, productID string, quantity int) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, err := activeCartID(ctx, tx, userID, true)
		if err != nil {
			return err
		}

		var stock int
		queryStock := `SELECT stock FROM products WHERE id = $1`
		err = tx.QueryRowContext(ctx, queryStock, productID).Scan(&stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("product %s not found", productID)
			}
			return fmt.Errorf("failed to query product stock: %w", err)
		}

		// Check if the product already exists in the cart
		queryCartItem := `
			SELECT id, quantity
			FROM cart_items
			WHERE cart_id = $1 AND product_id = $2
		`
		var cartItemID int
		var existingQuantity int
		err = tx.QueryRowContext(ctx, queryCartItem, cartID, productID).Scan(&cartItemID, &existingQuantity)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				if quantity > stock {
					return fmt.Errorf("insufficient stock: requested %d, available %d", quantity, stock)
				}
				queryAddCartItem := `
					INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
					VALUES ($1, $2, $3, NOW(), NOW())
				`
				_, err = tx.ExecContext(ctx, queryAddCartItem, cartID, productID, quantity)
				if err != nil {
					return fmt.Errorf("failed to add product to cart: %w", err)
				}
				return nil
			}
			return fmt.Errorf("failed to query cart items: %w", err)
		}

		newQuantity := existingQuantity + quantity
		if newQuantity > stock {
			return fmt.Errorf("insufficient stock: requested %d, available %d", newQuantity, stock)
		}
		queryUpdateCartItem := `
			UPDATE cart_items
			SET quantity = $1, updated_at = NOW()
			WHERE id = $2
		`
		_, err = tx.ExecContext(ctx, queryUpdateCartItem, newQuantity, cartItemID)
		if err != nil {
			return fmt.Errorf("failed to update cart item quantity: %w", err)
		}
		return nil
	})
}

// GetActiveCartItems returns the user's cart joined with the current product
// snapshot. This is the cart state checkout works from.
func (c *Conf) GetActiveCartItems(ctx context.Context, userID string) (*CartResponse, error) {
	var items []CartItem

	err := c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, err := activeCartID(ctx, tx, userID, false)
		if err != nil {
			return err
		}
		if cartID == 0 {
			return nil
		}

		queryItems := `
			SELECT ci.product_id, p.name, p.image, p.price, ci.quantity
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.cart_id = $1
			ORDER BY ci.created_at
		`
		rows, err := tx.QueryContext(ctx, queryItems, cartID)
		if err != nil {
			return fmt.Errorf("failed to query cart items: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var item CartItem
			if err := rows.Scan(&item.ProductID, &item.Name, &item.Image, &item.Price, &item.Quantity); err != nil {
				return fmt.Errorf("failed to scan cart item: %w", err)
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return &CartResponse{Items: items}, nil
}

func (c *Conf) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	return c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, err := activeCartID(ctx, tx, userID, false)
		if err != nil {
			return err
		}
		if cartID == 0 {
			return fmt.Errorf("no active cart found for user: %s", userID)
		}

		query := `
			UPDATE cart_items
			SET quantity = $1, updated_at = NOW()
			WHERE cart_id = $2 AND product_id = $3
		`
		res, err := tx.ExecContext(ctx, query, quantity, cartID, productID)
		if err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("product %s not in cart", productID)
		}
		return nil
	})
}

func (c *Conf) DeleteItem(ctx context.Context, userID, productID string) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, err := activeCartID(ctx, tx, userID, false)
		if err != nil {
			return err
		}
		if cartID == 0 {
			return nil
		}
		query := `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`
		_, err = tx.ExecContext(ctx, query, cartID, productID)
		if err != nil {
			return fmt.Errorf("failed to delete cart item: %w", err)
		}
		return nil
	})
}

// Clear drops every line from the user's active cart and then closes the cart
// itself, in that order. Called after orders have been materialized, so a
// failure here can at worst leave a stale cart, never a lost order.
func (c *Conf) Clear(ctx context.Context, userID string) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		cartID, err := activeCartID(ctx, tx, userID, false)
		if err != nil {
			return err
		}
		if cartID == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("failed to delete cart items: %w", err)
		}
		query := `UPDATE cart SET status = 'ordered', updated_at = NOW() WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, cartID); err != nil {
			return fmt.Errorf("failed to close cart: %w", err)
		}
		return nil
	})
}

// activeCartID finds the user's active cart, creating one when create is set.
// Returns 0 when no active cart exists and create is false.
func activeCartID(ctx context.Context, tx *sql.Tx, userID string, create bool) (int, error) {
	var cartID int
	queryActiveCart := `
		SELECT id
		FROM cart
		WHERE user_id = $1 AND status = 'active'
		FOR UPDATE
	`
	err := tx.QueryRowContext(ctx, queryActiveCart, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if !create {
				return 0, nil
			}
			queryCreateCart := `
				INSERT INTO cart (user_id, status, created_at, updated_at)
				VALUES ($1, 'active', NOW(), NOW())
				RETURNING id
			`
			if err := tx.QueryRowContext(ctx, queryCreateCart, userID).Scan(&cartID); err != nil {
				return 0, fmt.Errorf("failed to create new cart: %w", err)
			}
			return cartID, nil
		}
		return 0, fmt.Errorf("failed to query active cart: %w", err)
	}
	return cartID, nil
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
