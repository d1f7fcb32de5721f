package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"bookpassport/internal/handler"
	"bookpassport/internal/httputil"
	authmw "bookpassport/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	ChatHandler         *handler.ChatHandler
	PushHandler         *handler.PushHandler
	NotificationHandler *handler.NotificationHandler
	ProfileHandler      *handler.ProfileHandler
	PointsHandler       *handler.PointsHandler
	BookHandler         *handler.BookHandler
	WishlistHandler     *handler.WishlistHandler
	ExchangeHandler     *handler.ExchangeHandler
	MediaHandler        *handler.MediaHandler
	AIHandler           *handler.AIHandler
	Profiles            authmw.ProfileProvisioner
	JWTSecret           string
	AIRatePerSec        float64
	AIRateBurst         int
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Websocket subscription. Browsers cannot set headers on the upgrade, so
	// the token may also arrive as ?access_token=.
	r.With(authmw.AuthMiddleware(cfg.JWTSecret), authmw.EnsureProfile(cfg.Profiles)).
		Get("/ws", cfg.ChatHandler.Subscribe)

	r.Route("/api", func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))
		r.Use(authmw.EnsureProfile(cfg.Profiles))

		r.Get("/me", cfg.ProfileHandler.Me)
		r.Patch("/me", cfg.ProfileHandler.UpdateMe)
		r.Get("/users/{id}", cfg.ProfileHandler.GetProfile)

		r.Get("/points/history", cfg.PointsHandler.History)

		r.Route("/books", func(r chi.Router) {
			r.Post("/", cfg.BookHandler.Create)
			r.Get("/", cfg.BookHandler.List)
			r.Get("/{id}", cfg.BookHandler.Get)
			r.Post("/{id}/history", cfg.BookHandler.AddHistory)
			r.Get("/{id}/history", cfg.BookHandler.ListHistory)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", cfg.WishlistHandler.List)
			r.Post("/{bookId}", cfg.WishlistHandler.Add)
			r.Delete("/{bookId}", cfg.WishlistHandler.Remove)
			r.Post("/{bookId}/toggle", cfg.WishlistHandler.Toggle)
		})

		r.Route("/exchanges", func(r chi.Router) {
			r.Post("/", cfg.ExchangeHandler.Create)
			r.Get("/", cfg.ExchangeHandler.List)
			r.Post("/{id}/accept", cfg.ExchangeHandler.Accept)
			r.Post("/{id}/decline", cfg.ExchangeHandler.Decline)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/unread-count", cfg.NotificationHandler.GetUnreadCount)
			r.Patch("/read", cfg.NotificationHandler.MarkRead)
			r.Delete("/{id}", cfg.NotificationHandler.Dismiss)
		})

		r.Get("/badge", cfg.NotificationHandler.GetBadge)
		r.Delete("/badge", cfg.NotificationHandler.ClearBadge)

		r.Post("/devices/token", cfg.NotificationHandler.RegisterToken)
		r.Delete("/devices/token", cfg.NotificationHandler.RemoveToken)

		r.Post("/send-push", cfg.PushHandler.SendPush)

		r.Route("/chat/rooms", func(r chi.Router) {
			r.Post("/general", cfg.ChatHandler.OpenGeneral)
			r.Post("/direct/{userId}", cfg.ChatHandler.OpenDirect)
			r.Get("/{roomId}/messages", cfg.ChatHandler.ListMessages)
			r.Post("/{roomId}/messages", cfg.ChatHandler.SendMessage)
		})

		// Media endpoints (covers on R2)
		r.Post("/media/covers", cfg.MediaHandler.UploadCover)
		r.Post("/media/covers/presign", cfg.MediaHandler.PresignCover)

		r.With(authmw.RateLimit(rate.NewLimiter(rate.Limit(cfg.AIRatePerSec), cfg.AIRateBurst))).
			Post("/ai", cfg.AIHandler.Generate)
	})

	return r
}
