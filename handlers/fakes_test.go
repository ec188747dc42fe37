package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ubiquity89/QuikKart/internal/cart"
	"github.com/Ubiquity89/QuikKart/internal/orders"
	"github.com/Ubiquity89/QuikKart/internal/payments"
	"github.com/Ubiquity89/QuikKart/internal/users"

	"github.com/stripe/stripe-go/v81"
)

var errFake = errors.New("fake failure")

// fakeOrderStore mirrors the storage-layer semantics the Postgres store
// provides, including the unique (session, product) guard that makes session
// materialization idempotent.
type fakeOrderStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []orders.Order
}

func (f *fakeOrderStore) CreateCODGroup(_ context.Context, userID, addressID string, lines []orders.Line, subTotal, total float64) ([]orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	groupID := orders.NewGroupID()
	var created []orders.Order
	for _, line := range lines {
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}
		f.nextID++
		o := orders.Order{
			ID:              f.nextID,
			OrderID:         groupID,
			UserID:          userID,
			ProductID:       line.ProductID,
			ProductDetails:  line.ProductDetails,
			PaymentStatus:   orders.StatusCashOnDelivery,
			DeliveryAddress: addressID,
			SubTotalAmt:     subTotal,
			TotalAmt:        total,
			Quantity:        qty,
			Status:          orders.FulfillmentProcessing,
			CreatedAt:       time.Now().UTC(),
		}
		f.rows = append(f.rows, o)
		created = append(created, o)
	}
	return created, nil
}

func (f *fakeOrderStore) CreateFromSession(_ context.Context, group orders.SessionGroup) ([]orders.Order, bool, error) {
	if group.SessionID == "" {
		return nil, false, fmt.Errorf("session id is empty")
	}
	if len(group.Items) == 0 {
		return nil, false, fmt.Errorf("no items in session metadata")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	existing := f.sessionRowsLocked(group.SessionID)
	if len(existing) > 0 {
		return existing, false, nil
	}

	groupID := orders.NewGroupID()
	for _, item := range group.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		f.nextID++
		f.rows = append(f.rows, orders.Order{
			ID:              f.nextID,
			OrderID:         groupID,
			UserID:          group.UserID,
			ProductID:       item.ProductID,
			ProductDetails:  orders.ProductDetails{Name: "Product"},
			PaymentID:       group.PaymentID,
			StripeSessionID: group.SessionID,
			PaymentStatus:   orders.StatusPaid,
			DeliveryAddress: group.AddressID,
			SubTotalAmt:     group.SubTotalAmt,
			TotalAmt:        group.TotalAmt,
			Quantity:        qty,
			Status:          orders.FulfillmentProcessing,
			CreatedAt:       time.Now().UTC(),
		})
	}
	return f.sessionRowsLocked(group.SessionID), true, nil
}

func (f *fakeOrderStore) ExpireSession(_ context.Context, sessionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for i := range f.rows {
		if f.rows[i].StripeSessionID == sessionID && f.rows[i].PaymentStatus != orders.StatusPaid {
			f.rows[i].PaymentStatus = orders.StatusExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeOrderStore) ListByUser(_ context.Context, userID string) ([]orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var list []orders.Order
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].UserID == userID {
			list = append(list, f.rows[i])
		}
	}
	return list, nil
}

func (f *fakeOrderStore) sessionRowsLocked(sessionID string) []orders.Order {
	var list []orders.Order
	for _, o := range f.rows {
		if o.StripeSessionID == sessionID {
			list = append(list, o)
		}
	}
	return list
}

func (f *fakeOrderStore) allRows() []orders.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]orders.Order(nil), f.rows...)
}

type fakeCartStore struct {
	mu      sync.Mutex
	items   map[string][]cart.CartItem
	cleared []string
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{items: make(map[string][]cart.CartItem)}
}

func (f *fakeCartStore) AddToCartDB(_ context.Context, userID, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[userID] = append(f.items[userID], cart.CartItem{ProductID: productID, Quantity: quantity})
	return nil
}

func (f *fakeCartStore) GetActiveCartItems(_ context.Context, userID string) (*cart.CartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &cart.CartResponse{Items: f.items[userID]}, nil
}

func (f *fakeCartStore) UpdateQuantity(_ context.Context, userID, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, item := range f.items[userID] {
		if item.ProductID == productID {
			f.items[userID][i].Quantity = quantity
			return nil
		}
	}
	return fmt.Errorf("product %s not in cart", productID)
}

func (f *fakeCartStore) DeleteItem(_ context.Context, userID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.items[userID]
	for i, item := range items {
		if item.ProductID == productID {
			f.items[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeCartStore) Clear(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, userID)
	f.cleared = append(f.cleared, userID)
	return nil
}

func (f *fakeCartStore) clearedFor(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.cleared {
		if id == userID {
			n++
		}
	}
	return n
}

type fakeGateway struct {
	mu            sync.Mutex
	createErr     error
	retrieveErr   error
	session       payments.CheckoutSession
	stored        map[string]*stripe.CheckoutSession
	createdLines  []payments.CheckoutLine
	createdUserID string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		session: payments.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/c/pay/cs_test_123"},
		stored:  make(map[string]*stripe.CheckoutSession),
	}
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, userID, addressID string, lines []payments.CheckoutLine) (payments.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return payments.CheckoutSession{}, f.createErr
	}
	f.createdUserID = userID
	f.createdLines = lines
	return f.session, nil
}

func (f *fakeGateway) RetrieveSession(_ context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	sess, ok := f.stored[sessionID]
	if !ok {
		return nil, fmt.Errorf("no such session: %s", sessionID)
	}
	return sess, nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	byID  map[string]users.User
	creds map[string]string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: make(map[string]users.User), creds: make(map[string]string)}
}

func (f *fakeUserStore) InsertUser(_ context.Context, nu users.NewUser) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.creds[nu.Email]; ok {
		return users.User{}, users.ErrEmailTaken
	}
	u := users.User{
		ID:        fmt.Sprintf("user-%d", len(f.byID)+1),
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      "USER",
		CreatedAt: time.Now().UTC(),
	}
	f.byID[u.ID] = u
	f.creds[nu.Email] = nu.Password
	return u, nil
}

func (f *fakeUserStore) Authenticate(_ context.Context, email, password string) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.creds[email]
	if !ok || stored != password {
		return users.User{}, users.ErrInvalidCredentials
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, users.ErrInvalidCredentials
}

type fakeProducer struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (f *fakeProducer) ProduceMessage(topic string, key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, topic+":"+string(key))
	return nil
}

func (f *fakeProducer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}
