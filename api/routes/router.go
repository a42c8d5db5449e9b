package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/templeconnect/backend/api/controllers"
	"github.com/templeconnect/backend/api/middleware"
	"github.com/templeconnect/backend/internal/auth"
	"github.com/templeconnect/backend/internal/bookings"
	"github.com/templeconnect/backend/internal/chat"
	"github.com/templeconnect/backend/internal/ledger"
	"github.com/templeconnect/backend/internal/notifications"
	"github.com/templeconnect/backend/internal/orders"
	"github.com/templeconnect/backend/internal/products"
	"github.com/templeconnect/backend/internal/temples"
	"github.com/templeconnect/backend/internal/vendors"
	"github.com/templeconnect/backend/internal/ws"
	"github.com/templeconnect/backend/pkg/auth/session"
	"github.com/templeconnect/backend/pkg/config"
	"github.com/templeconnect/backend/pkg/logger"
	"github.com/templeconnect/backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on. The api binary
// builds one of these after wiring the service graph.
type Services struct {
	Sessions      session.AccessSessionChecker
	Auth          auth.Service
	Vendors       vendors.Service
	Temples       temples.Service
	Products      products.Service
	Bookings      bookings.Service
	Orders        orders.Service
	Ledger        ledger.Service
	Chat          chat.Service
	ChatHub       *ws.Hub
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	healthDeps map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthDeps))
	})

	// Public browse surface, no token required.
	r.Route("/api/v1/temples", func(r chi.Router) {
		r.Get("/", controllers.ListTemples(svcs.Temples, logg))
		r.Get("/{templeId}", controllers.GetTemple(svcs.Temples, logg))
	})
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(svcs.Products, logg))
		r.Get("/{productId}", controllers.GetProduct(svcs.Products, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, svcs.Sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", controllers.CreateBooking(svcs.Bookings, logg))
			r.Get("/", controllers.ListBookings(svcs.Bookings, logg))
			r.Get("/{bookingId}", controllers.GetBooking(svcs.Bookings, logg))
			r.Post("/{bookingId}/cancel", controllers.CancelBooking(svcs.Bookings, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.PlaceOrder(svcs.Orders, logg))
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
		})

		r.Route("/chat", func(r chi.Router) {
			r.Get("/unread-count", controllers.ChatUnreadCount(svcs.Chat, logg))
			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", controllers.CreateConversation(svcs.Chat, logg))
				r.Get("/", controllers.ListConversations(svcs.Chat, logg))
				r.Get("/{conversationId}/messages", controllers.ListChatMessages(svcs.Chat, logg))
				r.Post("/{conversationId}/messages", controllers.SendChatMessage(svcs.Chat, logg))
				r.Post("/{conversationId}/read", controllers.MarkConversationRead(svcs.Chat, logg))
				r.Get("/{conversationId}/ws", controllers.ChatStream(svcs.Chat, svcs.ChatHub, cfg.Chat, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Get("/unread-count", controllers.NotificationUnreadCount(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			// Any authenticated user may apply and watch their application.
			r.Post("/apply", controllers.VendorApply(svcs.Vendors, logg))
			r.Get("/profile", controllers.VendorProfile(svcs.Vendors, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("vendor", logg))

				r.Route("/temple", func(r chi.Router) {
					r.Get("/", controllers.VendorGetTemple(svcs.Temples, logg))
					r.Post("/", controllers.VendorCreateTemple(svcs.Temples, logg))
					r.Put("/{templeId}", controllers.VendorUpdateTemple(svcs.Temples, logg))
				})
				r.Route("/products", func(r chi.Router) {
					r.Get("/", controllers.VendorListProducts(svcs.Products, logg))
					r.Post("/", controllers.VendorCreateProduct(svcs.Products, logg))
					r.Put("/{productId}", controllers.VendorUpdateProduct(svcs.Products, logg))
					r.Delete("/{productId}", controllers.VendorDeleteProduct(svcs.Products, logg))
				})
				r.Get("/bookings", controllers.VendorListBookings(svcs.Bookings, logg))
				r.Route("/orders", func(r chi.Router) {
					r.Get("/", controllers.VendorListOrders(svcs.Orders, logg))
					r.Post("/{orderId}/advance", controllers.VendorAdvanceOrder(svcs.Orders, logg))
				})
				r.Get("/balance", controllers.VendorBalance(svcs.Ledger, logg))
				r.Get("/ledger", controllers.VendorListLedgerEntries(svcs.Ledger, logg))
				r.Route("/withdrawals", func(r chi.Router) {
					r.Get("/", controllers.VendorListWithdrawals(svcs.Ledger, logg))
					r.Post("/", controllers.VendorRequestWithdrawal(svcs.Ledger, logg))
				})
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, svcs.Sessions, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/pending", controllers.AdminListPendingVendors(svcs.Vendors, logg))
			r.Get("/{vendorId}", controllers.AdminGetVendor(svcs.Vendors, logg))
			r.Post("/{vendorId}/review", controllers.AdminReviewVendor(svcs.Vendors, logg))
			r.Post("/{vendorId}/balance", controllers.AdminAdjustBalance(svcs.Ledger, logg))
		})
		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", controllers.AdminListWithdrawals(svcs.Ledger, logg))
			r.Post("/{withdrawalId}/process", controllers.AdminProcessWithdrawal(svcs.Ledger, logg))
		})
		r.Route("/chat/conversations", func(r chi.Router) {
			r.Get("/", controllers.AdminListConversations(svcs.Chat, logg))
			r.Post("/{conversationId}/close", controllers.AdminCloseConversation(svcs.Chat, logg))
		})
	})

	return r
}
