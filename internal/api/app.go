package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"

	"github.com/eventsphere/eventsphere/internal/broker"
	"github.com/eventsphere/eventsphere/internal/chat"
	"github.com/eventsphere/eventsphere/internal/config"
	"github.com/eventsphere/eventsphere/internal/database"
	"github.com/eventsphere/eventsphere/internal/stats"
	"github.com/eventsphere/eventsphere/internal/stream"
)

type EventSphereApp struct {
	log            *log.Logger
	db             database.EventSphereRepository
	mux            *http.Server
	cs             *chat.ChatServer
	chatSvc        *chat.Service
	broker         broker.Broker
	sales          *stream.TicketSalesProducer
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
	sid            *shortid.Shortid
}

func NewEventSphereApp(mux *http.ServeMux, logger *log.Logger, cs *chat.ChatServer, chatSvc *chat.Service, db database.EventSphereRepository, b broker.Broker, sales *stream.TicketSalesProducer, sp stats.StatsProvider, cfg *config.Config) *EventSphereApp {
	s := &EventSphereApp{
		log:            logger,
		db:             db,
		cs:             cs,
		chatSvc:        chatSvc,
		broker:         b,
		sales:          sales,
		stats:          sp,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		sid:            shortid.MustNew(1, shortid.DefaultABC, 2342),
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("/api/account", s.authMiddleware(s.account))

	mux.HandleFunc("GET /api/events", s.listEvents)
	mux.HandleFunc("GET /api/events/locations", s.eventLocations)
	mux.HandleFunc("GET /api/events/{id}", s.getEvent)
	mux.HandleFunc("POST /api/events", s.authMiddleware(s.createEvent))
	mux.HandleFunc("PUT /api/events/{id}", s.authMiddleware(s.updateEvent))
	mux.HandleFunc("DELETE /api/events/{id}", s.authMiddleware(s.deleteEvent))
	mux.HandleFunc("GET /api/events/{id}/qr", s.authMiddleware(s.eventQRCode))

	mux.HandleFunc("POST /api/events/{id}/tickets", s.authMiddleware(s.purchaseTicket))
	mux.HandleFunc("GET /api/tickets", s.authMiddleware(s.listTickets))

	mux.HandleFunc("POST /api/events/{id}/favorite", s.authMiddleware(s.addFavorite))
	mux.HandleFunc("DELETE /api/events/{id}/favorite", s.authMiddleware(s.removeFavorite))
	mux.HandleFunc("GET /api/favorites", s.authMiddleware(s.listFavorites))

	mux.HandleFunc("GET /api/creator/dashboard", s.authMiddleware(s.creatorDashboard))

	mux.HandleFunc("POST /api/events/{id}/chat/join", s.authMiddleware(s.joinRoom))
	mux.HandleFunc("GET /api/rooms/{id}/messages", s.authMiddleware(s.roomMessages))
	mux.HandleFunc("GET /api/rooms/{id}/members", s.authMiddleware(s.roomMembers))
	mux.HandleFunc("POST /api/rooms/{id}/messages", s.authMiddleware(s.sendMessage))
	mux.HandleFunc("POST /api/rooms/{id}/announcements", s.authMiddleware(s.makeAnnouncement))
	mux.HandleFunc("POST /api/rooms/{id}/kick/{userId}", s.authMiddleware(s.kickMember))
	mux.HandleFunc("POST /api/rooms/{id}/leave", s.authMiddleware(s.leaveRoom))

	mux.HandleFunc("GET /api/notifications", s.authMiddleware(s.listNotifications))
	mux.HandleFunc("POST /api/notifications/{id}/read", s.authMiddleware(s.markNotificationRead))
	mux.HandleFunc("POST /api/notifications/read-all", s.authMiddleware(s.markAllNotificationsRead))

	mux.HandleFunc("GET /ws/chat/{roomId}", s.authMiddleware(s.serveChatWs))
	mux.HandleFunc("GET /ws/notifications", s.authMiddleware(s.serveNotificationsWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *EventSphereApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *EventSphereApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *EventSphereApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *EventSphereApp) generateShortId() (string, error) {
	return s.sid.Generate()
}
