package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/config"
	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/databases/memdb"
	"github.com/geijin5/apsar-emergency-api/identity"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/notify"
	"github.com/geijin5/apsar-emergency-api/services"
)

// Sessions is the identity gate as the gateway uses it
type Sessions interface {
	identity.Gate
	AuthenticateToken(ctx context.Context, token string) (models.Actor, error)
	Login(ctx context.Context, email, password string) (*identity.Session, error)
	Refresh(r *http.Request) (*identity.Session, error)
	Logout(r *http.Request) error
}

// App stores the router and its dependencies, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	Store    *databases.Store
	Services *services.Services
	Gate     Sessions
	Hub      *notify.Hub
	Limiter  *api.RateLimiter

	client         databases.ClientHelper
	dispatcher     *notify.AsyncDispatcher
	amqpConn       *amqp.Connection
	consumerCancel context.CancelFunc
	consumerDone   chan struct{}
}

// NewApp wires an App around already built dependencies and creates its router
func NewApp(conf config.Config, store *databases.Store, gate Sessions, svc *services.Services, hub *notify.Hub) *App {
	a := &App{
		Config:   conf,
		Store:    store,
		Services: svc,
		Gate:     gate,
		Hub:      hub,
		Limiter:  api.NewRateLimiter(conf.RateLimitRPS, conf.RateLimitBurst, conf.TrustProxy),
	}
	a.Router = a.New()
	return a
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()
	timeout := a.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.Use(api.MetricsMiddleware, a.Limiter.Handler, api.TimeoutMiddleware(timeout))

	authed := func(h http.HandlerFunc) http.Handler {
		return api.Auth(a.Gate)(h)
	}
	officer := func(h http.HandlerFunc) http.Handler {
		return api.Auth(a.Gate)(api.RequireRole(models.RoleOfficer)(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return api.Auth(a.Gate)(api.RequireRole(models.RoleAdmin)(h))
	}

	auth := Auth{Gate: a.Gate}
	co := CallOut{Svc: a.Services.CallOuts}
	inc := Incident{Svc: a.Services.Incidents}
	sar := Mission{Svc: a.Services.Missions}
	rep := Report{Svc: a.Services.Reports}
	cl := Checklist{Svc: a.Services.Checklists}
	chat := Chat{Svc: a.Services.Chat}
	asset := Asset{Svc: a.Services.Assets}
	note := Notification{Svc: a.Services.Notifications}
	u := User{Svc: a.Services.Users}
	sock := Socket{Hub: a.Hub, Gate: a.Gate}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.Handle("/metrics", api.MetricsHandler()).Methods("GET")
	r.HandleFunc("/ws/notifications", sock.NotificationsSocketHandler).Methods("GET")

	p := r.PathPrefix("/api").Subrouter()

	p.HandleFunc("/auth/login", auth.LoginHandler).Methods("POST")
	p.HandleFunc("/auth/refresh", auth.RefreshHandler).Methods("POST")
	p.HandleFunc("/auth/logout", auth.LogoutHandler).Methods("POST")
	p.Handle("/auth/verify", authed(auth.VerifyHandler)).Methods("GET")

	p.Handle("/personnel/call-outs", authed(co.CallOutsHandler)).Methods("GET")
	p.Handle("/personnel/call-outs", authed(co.CreateCallOutHandler)).Methods("POST")
	p.Handle("/personnel/call-outs/{id}", authed(co.CallOutByIDHandler)).Methods("GET")
	p.Handle("/personnel/call-outs/{id}/respond", authed(co.RespondHandler)).Methods("POST")
	p.Handle("/personnel/call-outs/{id}/responses", authed(co.ResponsesHandler)).Methods("GET")
	p.Handle("/admin/call-outs", officer(co.CreateCallOutHandler)).Methods("POST")
	p.Handle("/admin/call-outs/{id}/responses", officer(co.ResponsesHandler)).Methods("GET")
	p.Handle("/admin/call-outs/{id}/close", officer(co.CloseCallOutHandler)).Methods("POST")

	p.Handle("/personnel/sar/missions", authed(sar.MissionsHandler)).Methods("GET")
	p.Handle("/personnel/sar/missions", authed(sar.CreateMissionHandler)).Methods("POST")
	p.Handle("/personnel/sar/missions/{id}", authed(sar.MissionByIDHandler)).Methods("GET")
	p.Handle("/personnel/sar/missions/{id}", authed(sar.UpdateMissionHandler)).Methods("PUT")
	p.Handle("/personnel/sar/missions/{id}/start", authed(sar.StartMissionHandler)).Methods("POST")
	p.Handle("/personnel/sar/missions/{id}/complete", authed(sar.CompleteMissionHandler)).Methods("POST")
	p.Handle("/personnel/sar/missions/{id}/cancel", authed(sar.CancelMissionHandler)).Methods("POST")
	p.Handle("/personnel/sar/missions/{id}/areas", authed(sar.AreasHandler)).Methods("GET")
	p.Handle("/personnel/sar/missions/{id}/areas", authed(sar.CreateAreaHandler)).Methods("POST")
	p.Handle("/personnel/sar/missions/{id}/areas/{areaId}", authed(sar.UpdateAreaHandler)).Methods("PUT")
	p.HandleFunc("/public/sar/missions", sar.PublicMissionsHandler).Methods("GET")

	p.Handle("/personnel/incidents", authed(inc.IncidentsHandler)).Methods("GET")
	p.Handle("/personnel/incidents", officer(inc.CreateIncidentHandler)).Methods("POST")
	p.Handle("/personnel/incidents/{id}", authed(inc.IncidentByIDHandler)).Methods("GET")
	p.Handle("/personnel/incidents/{id}/resolve", authed(inc.ResolveIncidentHandler)).Methods("POST")
	p.Handle("/personnel/incidents/{id}/cancel", authed(inc.CancelIncidentHandler)).Methods("POST")
	p.Handle("/personnel/incidents/{id}/resources", authed(inc.ResourcesHandler)).Methods("GET")
	p.Handle("/personnel/incidents/{id}/resources", authed(inc.AssignResourceHandler)).Methods("POST")
	p.Handle("/personnel/incidents/{id}/resources/{resourceId}/status", authed(inc.ResourceStatusHandler)).Methods("PUT")

	p.Handle("/callout-reports", authed(rep.ReportsHandler)).Methods("GET")
	p.Handle("/callout-reports", authed(rep.CreateReportHandler)).Methods("POST")
	p.Handle("/callout-reports/{id}", authed(rep.ReportByIDHandler)).Methods("GET")
	p.Handle("/callout-reports/{id}", authed(rep.UpdateReportHandler)).Methods("PUT")
	p.Handle("/callout-reports/{id}/submit", authed(rep.SubmitReportHandler)).Methods("POST")
	p.Handle("/callout-reports/{id}/review", officer(rep.ReviewReportHandler)).Methods("POST")

	// templates must be registered before /checklists/{id}
	p.Handle("/checklists/templates", authed(cl.TemplatesHandler)).Methods("GET")
	p.Handle("/checklists/templates", officer(cl.CreateTemplateHandler)).Methods("POST")
	p.Handle("/checklists/templates/{id}", authed(cl.TemplateByIDHandler)).Methods("GET")
	p.Handle("/checklists", authed(cl.ChecklistsHandler)).Methods("GET")
	p.Handle("/checklists", authed(cl.CreateChecklistHandler)).Methods("POST")
	p.Handle("/checklists/{id}", authed(cl.ChecklistByIDHandler)).Methods("GET")
	p.Handle("/checklists/{id}/items/{itemId}", authed(cl.UpdateItemHandler)).Methods("PUT")
	p.Handle("/checklists/{id}/cancel", authed(cl.CancelChecklistHandler)).Methods("POST")
	p.Handle("/checklists/{id}/review", officer(cl.ReviewChecklistHandler)).Methods("POST")

	p.Handle("/chat/rooms", authed(chat.RoomsHandler)).Methods("GET")
	p.Handle("/chat/rooms", authed(chat.CreateRoomHandler)).Methods("POST")
	p.Handle("/chat/rooms/{id}/messages", authed(chat.MessagesHandler)).Methods("GET")
	p.Handle("/chat/rooms/{id}/messages", authed(chat.PostMessageHandler)).Methods("POST")
	p.Handle("/chat/rooms/{id}/messages/{messageId}", authed(chat.EditMessageHandler)).Methods("PUT")
	p.Handle("/chat/rooms/{id}/messages/{messageId}", authed(chat.DeleteMessageHandler)).Methods("DELETE")
	p.Handle("/chat/rooms/{id}/read", authed(chat.MarkReadHandler)).Methods("POST")

	p.Handle("/vehicles", authed(asset.VehiclesHandler)).Methods("GET")
	p.Handle("/vehicles", officer(asset.CreateVehicleHandler)).Methods("POST")
	p.Handle("/vehicles/{id}", authed(asset.VehicleByIDHandler)).Methods("GET")
	p.Handle("/vehicles/{id}", officer(asset.UpdateVehicleHandler)).Methods("PUT")
	p.Handle("/equipment", authed(asset.EquipmentHandler)).Methods("GET")
	p.Handle("/equipment", officer(asset.CreateEquipmentHandler)).Methods("POST")
	p.Handle("/equipment/{id}", authed(asset.EquipmentByIDHandler)).Methods("GET")
	p.Handle("/equipment/{id}", officer(asset.UpdateEquipmentHandler)).Methods("PUT")

	p.Handle("/notifications", authed(note.NotificationsHandler)).Methods("GET")
	p.Handle("/notifications/read-all", authed(note.MarkAllReadHandler)).Methods("PUT")
	p.Handle("/notifications/push-tokens", authed(note.RegisterPushTokenHandler)).Methods("POST")
	p.Handle("/notifications/push-tokens", authed(note.RemovePushTokenHandler)).Methods("DELETE")
	p.Handle("/notifications/{id}/read", authed(note.MarkReadHandler)).Methods("PUT")

	p.Handle("/users/me", authed(u.MeHandler)).Methods("GET")
	p.Handle("/users/me", authed(u.UpdateMeHandler)).Methods("PUT")
	p.Handle("/admin/users", officer(u.UsersHandler)).Methods("GET")
	p.Handle("/admin/users", admin(u.CreateUserHandler)).Methods("POST")
	p.Handle("/admin/users/{id}/role", admin(u.SetRoleHandler)).Methods("PUT")
	p.Handle("/admin/users/{id}/deactivate", admin(u.DeactivateHandler)).Methods("POST")

	return r
}

// Handler is the router behind CORS, ready to serve
func (a *App) Handler() http.Handler {
	return api.CORS(a.Config.AllowedOrigins)(a.Router)
}

// Initialize is invoked by main to connect the store and the notification pipeline and create
// the router
func (a *App) Initialize(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	secret := a.Config.JWTSecret
	if secret == "" {
		secret = randomSecret()
		zap.S().Warn("JWT_SECRET is not set, using a random secret; tokens will not survive a restart")
	}
	gate := identity.NewGuardianGate(ctx, store.Users, store.RevokedTokens, secret, a.Config.TokenTTL)
	if err := identity.SeedAdmin(ctx, store.Users, a.Config.AdminEmail, a.Config.AdminPassword, a.Config.AdminName); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	hub := notify.NewHub(api.OriginChecker(a.Config.AllowedOrigins))
	local := &notify.StoreDeliverer{
		Users:         store.Users,
		Notifications: store.Notifications,
		Tokens:        store.PushTokens,
		Pusher:        notify.NewExpoPusher(a.Config.ExpoPushURL, a.Config.ExpoAccessToken),
		Live:          hub,
		BatchSize:     a.Config.FanoutBatchSize,
	}

	var deliverer notify.Deliverer = local
	if a.Config.RabbitMQURL != "" {
		publisher, err := a.startQueue(local)
		if err != nil {
			return err
		}
		deliverer = publisher
	}
	a.dispatcher = notify.NewAsyncDispatcher(deliverer, a.Config.NotifyWorkers, a.Config.NotifyBuffer)
	a.dispatcher.Start()

	app := NewApp(a.Config, store, gate, services.New(store, a.dispatcher), hub)
	a.Router, a.Store, a.Services, a.Gate, a.Hub, a.Limiter = app.Router, app.Store, app.Services, app.Gate, app.Hub, app.Limiter
	return nil
}

func (a *App) openStore(ctx context.Context) (*databases.Store, error) {
	if a.Config.URL == "" {
		zap.S().Warn("DB_URI is not set, using the in-memory store")
		return memdb.New(), nil
	}

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().Errorw("failed to create new client", "error", err)
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().Errorw("failed to connect to database", "error", err)
		return nil, err
	}
	a.client = client
	zap.S().Info("apsar-emergency-api has connected to the database")

	db := databases.NewDatabase(&a.Config, client)
	if err := databases.EnsureIndexes(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return databases.NewMongoStore(db), nil
}

// startQueue declares the notification queue, starts this instance's consumer and returns the
// publisher the dispatcher hands messages to
func (a *App) startQueue(local notify.Deliverer) (*notify.QueuePublisher, error) {
	conn, ch, err := notify.ConnectRabbitMQ(a.Config.RabbitMQURL)
	if err != nil {
		return nil, err
	}
	if err := notify.DeclareQueue(ch, a.Config.NotifyQueue); err != nil {
		conn.Close()
		return nil, err
	}
	consumeCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}
	a.amqpConn = conn

	consumer := &notify.Consumer{Channel: consumeCh, Queue: a.Config.NotifyQueue, Deliverer: local, Prefetch: a.Config.NotifyWorkers}
	ctx, cancel := context.WithCancel(context.Background())
	a.consumerCancel = cancel
	a.consumerDone = make(chan struct{})
	go func() {
		defer close(a.consumerDone)
		if err := consumer.Run(ctx); err != nil {
			zap.S().Errorw("notification consumer stopped", "error", err)
		}
	}()
	zap.S().Infow("notification queue ready", "queue", a.Config.NotifyQueue)
	return &notify.QueuePublisher{Channel: ch, Queue: a.Config.NotifyQueue}, nil
}

// Shutdown drains the dispatcher and closes the queue and database connections
func (a *App) Shutdown(ctx context.Context) {
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(ctx); err != nil {
			zap.S().Warnw("notification dispatcher did not drain", "error", err)
		}
	}
	if a.consumerCancel != nil {
		a.consumerCancel()
		select {
		case <-a.consumerDone:
		case <-ctx.Done():
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			zap.S().Warnw("failed to close rabbitmq connection", "error", err)
		}
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Warnw("failed to disconnect from database", "error", err)
		}
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, models.HealthCheckResponse{Alive: true})
}
