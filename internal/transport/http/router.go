package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"socialsync/internal/handler"
	"socialsync/internal/httputil"
	sessionmw "socialsync/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	FeedHandler         *handler.FeedHandler
	PostHandler         *handler.PostHandler
	CommentHandler      *handler.CommentHandler
	ChatHandler         *handler.ChatHandler
	UserHandler         *handler.UserHandler
	RelationHandler     *handler.RelationHandler
	NotificationHandler *handler.NotificationHandler
	MediaHandler        *handler.MediaHandler
	AccountHandler      *handler.AccountHandler
	Session             sessionmw.SessionSource
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public routes - no session required
	r.Post("/login", cfg.AuthHandler.Login)
	r.Post("/register", cfg.AuthHandler.Register)
	r.Post("/logout", cfg.AuthHandler.Logout)
	r.Get("/settings", cfg.AuthHandler.Settings)
	// Me answers a banned client with the reason, so it checks the session itself.
	r.Get("/me", cfg.AuthHandler.Me)

	// Protected routes - require a logged-in session
	r.Group(func(r chi.Router) {
		r.Use(sessionmw.RequireSession(cfg.Session))

		r.Post("/me/reconnect", cfg.AuthHandler.Reconnect)
		r.Post("/me/location", cfg.UserHandler.UpdateLocation)
		r.Post("/me/device", cfg.UserHandler.RegisterDevice)
		r.Put("/me/profile", cfg.AccountHandler.UpdateProfile)
		r.Get("/me/blocked", cfg.AccountHandler.Blocked)
		r.Post("/me/verification", cfg.AccountHandler.RequestVerification)
		r.Get("/toasts", cfg.AuthHandler.Toasts)

		// Feed and posts
		r.Get("/", cfg.FeedHandler.Get)
		r.Post("/post", cfg.FeedHandler.Create)
		r.Route("/post/{id}", func(r chi.Router) {
			r.Get("/", cfg.PostHandler.GetByID)
			r.Delete("/", cfg.PostHandler.Delete)
			r.Post("/like", cfg.PostHandler.Like)
			r.Delete("/like", cfg.PostHandler.Unlike)
			r.Post("/report", cfg.PostHandler.Report)
			r.Post("/comment", cfg.CommentHandler.Create)
			r.Put("/comment/{commentId}", cfg.CommentHandler.Update)
			r.Delete("/comment/{commentId}", cfg.CommentHandler.Delete)
		})

		// Chat
		r.Get("/chat", cfg.ChatHandler.Inbox)
		r.Route("/chat/{id}", func(r chi.Router) {
			r.Get("/", cfg.ChatHandler.Thread)
			r.Post("/messages", cfg.ChatHandler.Send)
			r.Delete("/messages/{messageId}", cfg.ChatHandler.DeleteMessage)
			r.Post("/read", cfg.ChatHandler.MarkRead)
			r.Post("/typing", cfg.ChatHandler.Typing)
			r.Post("/album-access", cfg.ChatHandler.RequestAlbumAccess)
			r.Post("/album-access/{requestId}", cfg.ChatHandler.RespondAlbumAccess)
		})

		// Profiles and relations
		r.Get("/users", cfg.AccountHandler.Discover)
		r.Get("/album-access/requests", cfg.AccountHandler.AlbumRequests)
		r.Route("/user/{id}", func(r chi.Router) {
			r.Get("/", cfg.UserHandler.GetProfile)
			r.Post("/report", cfg.UserHandler.Report)
			r.Post("/album-access", cfg.UserHandler.RequestAlbumAccess)
			r.Post("/favorite", cfg.RelationHandler.Favorite)
			r.Delete("/favorite", cfg.RelationHandler.Unfavorite)
			r.Post("/block", cfg.RelationHandler.Block)
			r.Delete("/block", cfg.RelationHandler.Unblock)
		})
		r.Get("/presence/{id}", cfg.UserHandler.Presence)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Post("/read", cfg.NotificationHandler.MarkManyRead)
			r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
			r.Post("/{id}/read", cfg.NotificationHandler.MarkRead)
		})

		r.Post("/media", cfg.MediaHandler.Upload)
	})

	return r
}
