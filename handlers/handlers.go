package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/Ubiquity89/QuikKart/internal/address"
	"github.com/Ubiquity89/QuikKart/internal/auth"
	"github.com/Ubiquity89/QuikKart/internal/cart"
	"github.com/Ubiquity89/QuikKart/internal/categories"
	"github.com/Ubiquity89/QuikKart/internal/orders"
	"github.com/Ubiquity89/QuikKart/internal/payments"
	"github.com/Ubiquity89/QuikKart/internal/products"
	"github.com/Ubiquity89/QuikKart/internal/users"
	"github.com/Ubiquity89/QuikKart/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stripe/stripe-go/v81"
)

// OrderStore is what the order handlers need from the order persistence layer.
type OrderStore interface {
	CreateCODGroup(ctx context.Context, userID, addressID string, lines []orders.Line, subTotal, total float64) ([]orders.Order, error)
	CreateFromSession(ctx context.Context, group orders.SessionGroup) ([]orders.Order, bool, error)
	ExpireSession(ctx context.Context, sessionID string) (int64, error)
	ListByUser(ctx context.Context, userID string) ([]orders.Order, error)
}

type CartStore interface {
	AddToCartDB(ctx context.Context, userID, productID string, quantity int) error
	GetActiveCartItems(ctx context.Context, userID string) (*cart.CartResponse, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	DeleteItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

type UserStore interface {
	InsertUser(ctx context.Context, nu users.NewUser) (users.User, error)
	Authenticate(ctx context.Context, email, password string) (users.User, error)
}

// PaymentGateway is the payment-processor surface used by checkout and
// verify-payment.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, userID, addressID string, lines []payments.CheckoutLine) (payments.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

type EventProducer interface {
	ProduceMessage(topic string, key, value []byte) error
}

type Config struct {
	Keys       *auth.Keys
	Orders     OrderStore
	Cart       CartStore
	Users      UserStore
	Products   *products.Conf
	Categories *categories.Conf
	Addresses  *address.Conf
	Payments   PaymentGateway
	Webhook    *payments.WebhookVerifier
	Producer   EventProducer
}

type Handler struct {
	o        OrderStore
	c        CartStore
	u        UserStore
	prod     *products.Conf
	cat      *categories.Conf
	addr     *address.Conf
	pay      PaymentGateway
	wh       *payments.WebhookVerifier
	k        EventProducer
	keys     *auth.Keys
	validate *validator.Validate
}

func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Keys == nil {
		return nil, fmt.Errorf("auth keys not provided")
	}
	if cfg.Orders == nil || cfg.Cart == nil || cfg.Users == nil {
		return nil, fmt.Errorf("stores not provided")
	}
	if cfg.Payments == nil || cfg.Webhook == nil {
		return nil, fmt.Errorf("payment gateway not provided")
	}
	return &Handler{
		o:        cfg.Orders,
		c:        cfg.Cart,
		u:        cfg.Users,
		prod:     cfg.Products,
		cat:      cfg.Categories,
		addr:     cfg.Addresses,
		pay:      cfg.Payments,
		wh:       cfg.Webhook,
		k:        cfg.Producer,
		keys:     cfg.Keys,
		validate: validator.New(),
	}, nil
}

func API(cfg Config) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(cfg.Keys)
	if err != nil {
		panic(err)
	}
	h, err := NewHandler(cfg)
	if err != nil {
		panic(err)
	}

	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", HealthCheck)

	user := r.Group("/api/user")
	{
		user.POST("/signup", h.Signup)
		user.POST("/login", h.Login)
		user.POST("/refresh-token", h.RefreshToken)
	}

	product := r.Group("/api/product")
	{
		product.GET("/list", h.ListProducts)
		product.GET("/view/:id", h.GetProduct)

		product.Use(m.Authentication())
		product.POST("/create", m.Authorize(h.CreateProduct, auth.RoleAdmin))
		product.PUT("/update/:id", m.Authorize(h.UpdateProduct, auth.RoleAdmin))
		product.DELETE("/delete/:id", m.Authorize(h.DeleteProduct, auth.RoleAdmin))
	}

	category := r.Group("/api/category")
	{
		category.GET("/list", h.ListCategories)

		category.Use(m.Authentication())
		category.POST("/create", m.Authorize(h.CreateCategory, auth.RoleAdmin))
		category.PUT("/update/:id", m.Authorize(h.UpdateCategory, auth.RoleAdmin))
		category.DELETE("/delete/:id", m.Authorize(h.DeleteCategory, auth.RoleAdmin))
	}

	cartGroup := r.Group("/api/cart")
	{
		cartGroup.Use(m.Authentication())
		cartGroup.POST("/add", m.Authorize(h.AddToCart, auth.RoleUser))
		cartGroup.GET("/items", m.Authorize(h.GetCartItems, auth.RoleUser))
		cartGroup.PUT("/update-qty", m.Authorize(h.UpdateCartQuantity, auth.RoleUser))
		cartGroup.DELETE("/delete-item/:productID", m.Authorize(h.DeleteCartItem, auth.RoleUser))
	}

	addressGroup := r.Group("/api/address")
	{
		addressGroup.Use(m.Authentication())
		addressGroup.POST("/create", h.CreateAddress)
		addressGroup.GET("/get", h.ListAddresses)
		addressGroup.PUT("/update/:id", h.UpdateAddress)
		addressGroup.DELETE("/disable/:id", h.DisableAddress)
	}

	order := r.Group("/api/order")
	{
		// Signature-verified, not token-authenticated: Stripe calls this.
		order.POST("/webhook", h.Webhook)
		// The shopper may land here before their session is re-established.
		order.GET("/verify-payment", h.VerifyPayment)

		order.Use(m.Authentication())
		order.POST("/create-checkout-session", m.Authorize(h.Checkout, auth.RoleUser))
		order.POST("/cash-on-delivery", m.Authorize(h.CashOnDelivery, auth.RoleUser))
		order.GET("/order-list", m.Authorize(h.OrderList, auth.RoleUser))
	}

	return r
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
