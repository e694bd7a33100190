package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Handlers struct {
	Session  *SessionHandler
	Cart     *CartHandler
	Wishlist *WishlistHandler
	Orders   *OrdersHandler
	Search   *SearchHandler
	Report   *ReportHandler
}

func NewRouter(cfg RouterConfig, h Handlers, limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)
		if limiter != nil {
			r.Use(limiter.Handler)
		}

		r.Get("/store", h.Session.GetStore)
		r.Post("/session/login", h.Session.Login)
		r.Post("/session/logout", h.Session.Logout)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{key}", h.Cart.UpdateQuantity)
			r.Delete("/items/{key}", h.Cart.RemoveItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.Wishlist.GetWishlist)
			r.Post("/toggle", h.Wishlist.Toggle)
			r.Post("/refresh", h.Wishlist.Refresh)
			r.Get("/{key}", h.Wishlist.Contains)
			r.Delete("/{key}", h.Wishlist.Remove)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.ListOrders)
			r.Post("/", h.Orders.PlaceOrder)
			r.Get("/{id}", h.Orders.GetOrder)
		})

		r.Get("/search", h.Search.Search)
		r.Post("/reports", h.Report.Submit)
	})

	return otelhttp.NewHandler(r, "storefront")
}
