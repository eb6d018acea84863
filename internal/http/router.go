package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Feedback *FeedbackHandler
	Payments *PaymentsHandler
}

// NewRouter wires the storefront API. Browse and auth are public; cart,
// checkout, orders, feedback and payments need a session; the admin subtree
// needs the admin role.
func NewRouter(h Handlers, sessions SessionReader, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(SessionAuth(sessions))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.List)
			r.Get("/{id}", h.Products.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireLogin)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.Clear)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
			})

			r.Post("/checkout", h.Checkout.Checkout)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.Orders.ListMine)
				r.Get("/{id}", h.Orders.GetInvoice)
			})

			r.Post("/feedback", h.Feedback.Create)

			r.Route("/payments", func(r chi.Router) {
				r.Post("/paypal/orders", h.Payments.CreatePayPalOrder)
				r.Post("/paypal/orders/{id}/capture", h.Payments.CapturePayPalOrder)
				r.Post("/nets/qr", h.Payments.RequestNETSQR)
				r.Get("/nets/status/{ref}", h.Payments.NETSStatus)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Post("/products", h.Products.Create)
			r.Put("/products/{id}", h.Products.Update)
			r.Delete("/products/{id}", h.Products.Delete)
			r.Put("/products/{id}/stock", h.Products.SetStock)

			r.Get("/orders", h.Orders.ListAll)
			r.Get("/feedback", h.Feedback.ListAll)
			r.Get("/users", h.Auth.ListUsers)
		})
	})

	return r
}
