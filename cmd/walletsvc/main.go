package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/card-wallet/configs"
	mongodb "github.com/avvvet/card-wallet/internal/db"
	natscli "github.com/avvvet/card-wallet/internal/nats"
	"github.com/avvvet/card-wallet/internal/walletsvc/broker"
	walletcfg "github.com/avvvet/card-wallet/internal/walletsvc/config"
	"github.com/avvvet/card-wallet/internal/walletsvc/db"
	handlers "github.com/avvvet/card-wallet/internal/walletsvc/handlers"
	"github.com/avvvet/card-wallet/internal/walletsvc/models"
	"github.com/avvvet/card-wallet/internal/walletsvc/service"
	"github.com/avvvet/card-wallet/internal/walletsvc/store"
	"github.com/avvvet/card-wallet/internal/walletsvc/ws"
)

const SERVICE_NAME = "wallet"

var instanceId string

func init() {
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := walletcfg.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME+"_service_"+instanceId[:8], cfg.LogToStdout)

	ctx := context.Background()

	cardStore, closeStore := openStore(ctx, cfg)
	defer closeStore()

	// websocket hub and session registry
	hub := ws.NewWs()

	var b *broker.Broker
	sessions := service.NewSessions(cardStore, service.SyncHooks{
		OnChange: hub.Broadcast,
		OnWrite: func(user string) {
			b.PublishCardsChanged(user)
		},
	})

	// Connect to NATS
	n, err := natscli.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"-"+instanceId)
	switch {
	case errors.Is(err, natscli.ErrNoURL):
		log.Warn("NATS_URL not set, cross-instance reloads disabled")
	case err != nil:
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	default:
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)

		b = broker.NewBroker(n.Conn, instanceId, sessions)
		sub, err := b.SubscribeCardsChanged()
		if err != nil {
			log.Fatalf("Error: unable to subscribe to %s %v", broker.CardsChangedTopic, err)
		}
		defer sub.Unsubscribe()
	}

	// drop idle sessions
	sweepStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if dropped := sessions.Sweep(cfg.SessionIdleTTL); dropped > 0 {
					log.Infof("dropped %d idle card sessions", dropped)
				}
			case <-sweepStop:
				return
			}
		}
	}()

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.CORSOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(sessions, hub)
	h.InitAuth(cfg.JWTSecret)
	h.SetRoutes(r)

	if cfg.DebugUser != "" {
		tokenString, err := h.IssueToken(cfg.DebugUser, map[string]interface{}{
			"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
		})
		if err == nil {
			// For debugging only, never set DEBUG_USER in production
			log.Infof("DEBUG: JWT for user %s: %s", cfg.DebugUser, tokenString)
		}
	}

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	close(sweepStop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

// openStore returns the configured card store, or a nil store when none is
// configured so that every wallet degrades to an empty list.
func openStore(ctx context.Context, cfg walletcfg.Config) (store.CardStore, func()) {
	switch cfg.StoreBackend {
	case walletcfg.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		log.Printf("pg connection established successfully")
		return store.NewPostgresCardStore(pool), pool.Close

	case walletcfg.BackendMongo:
		mdb, disconnect, err := mongodb.ConnectToDB(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		ms := store.NewMongoCardStore(mdb)
		if err := ms.EnsureIndexes(ctx); err != nil {
			log.Warnf("unable to create card indexes: %v", err)
		}
		log.Printf("mongo connection established successfully")
		return ms, func() {
			if err := disconnect(context.Background()); err != nil {
				log.Errorf("mongo disconnect: %v", err)
			}
		}

	case walletcfg.BackendMemory:
		log.Warn("using in-memory card store, cards are lost on restart")
		ms := store.NewMemoryCardStore()
		if cfg.DebugUser == "" {
			return ms, func() {}
		}
		ms.Put(models.Card{
			ID:        "welcome",
			UserID:    cfg.DebugUser,
			Name:      "Welcome card",
			Number:    "WALLET-0001",
			Color:     models.Palette[0],
			CreatedAt: time.Now(),
		})
		return ms, func() {}
	}

	log.Warn("STORE_BACKEND not set, wallets will stay empty")
	return nil, func() {}
}
