package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"marketplace-chat/internal/config"
	"marketplace-chat/internal/db"
	grpcclient "marketplace-chat/internal/grpc"
	"marketplace-chat/internal/handlers"
	"marketplace-chat/internal/middleware"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/rabbitmq"
	"marketplace-chat/internal/repositories"
	"marketplace-chat/internal/security"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/telemetry"
	"marketplace-chat/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}

	events := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer events.Close()
	observability.SetPublisher(events)
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(events), rabbitmq.PublisherNoopReason(events))
	audit := telemetry.NewAuditEmitter(events, "audit.chat", cfg.ServiceName, cfg.Environment)

	var pg *sqlx.DB
	if cfg.ChatStore == config.StorePostgres || cfg.UserDirectory == config.DirectoryPostgres {
		pg, err = db.ConnectPostgres(ctx, cfg.DatabaseDSN, cfg.RunMigrations && cfg.ChatStore == config.StorePostgres)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pg.Close()
	}

	conversationRepo, messageRepo, closeStore := buildStore(ctx, cfg, pg)
	defer closeStore()

	var directory repositories.UserDirectory
	if cfg.UserDirectory == config.DirectoryGRPC {
		userConn := dialGRPC(cfg.UserGRPCAddr)
		defer userConn.Close()
		directory = grpcclient.NewUserClient(userConn)
	} else {
		directory = repositories.NewUserRepo(pg)
	}

	var verifier services.TokenVerifier
	if cfg.AuthGRPCAddr != "" {
		authConn := dialGRPC(cfg.AuthGRPCAddr)
		defer authConn.Close()
		verifier = grpcclient.NewAuthClient(authConn)
	} else {
		verifier = security.NewJWTVerifier(cfg.JWTSecret)
	}
	authenticator := services.NewAuthenticator(verifier, services.NewActorResolver(directory))

	hub := ws.NewHub()
	var fanout services.Publisher = hub
	if cfg.FanoutMode == config.FanoutBroker {
		relay, err := rabbitmq.NewRelay(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("failed to start fan-out relay: %v", err)
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx, hub); err != nil {
				log.Fatalf("fan-out relay stopped: %v", err)
			}
		}()
		fanout = relay
	}

	conversations := services.NewConversationService(conversationRepo, directory)
	messages := services.NewMessageService(messageRepo, conversations, cfg.ReadReceiptScope)
	chat := services.NewChat(conversations, messages, services.NewMessageRouter(fanout))

	chatHandler := handlers.NewChatHandler(chat, audit)
	chatWS := ws.NewChatWebSocketHandler(hub, authenticator, chat, ws.Options{
		HandshakeTimeout: cfg.WSHandshakeTimeout,
		SendRatePerSec:   cfg.WSSendRatePerSec,
		SendBurst:        cfg.WSSendBurst,
		AllowedOrigins:   cfg.WSAllowedOrigins,
	})
	handlers.RegisterValidators()

	router := gin.New()

	// middlewares
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(handlers.RequestIDMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/chat", middleware.AuthMiddleware(authenticator))
	chatHandler.RegisterRoutes(api)

	router.GET("/ws/chat", chatWS.Handle)
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("chat service listening port=%s store=%s directory=%s fanout=%s", cfg.Port, cfg.ChatStore, cfg.UserDirectory, cfg.FanoutMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
}

func buildStore(ctx context.Context, cfg *config.Config, pg *sqlx.DB) (repositories.ConversationRepository, repositories.MessageRepository, func()) {
	switch cfg.ChatStore {
	case config.StorePostgres:
		return repositories.NewConversationRepo(pg), repositories.NewMessageRepo(pg), func() {}
	case config.StoreMemory:
		log.Printf("using in-memory chat store, data is lost on restart")
		store := repositories.NewMemoryStore()
		return store, store, func() {}
	default:
		mongoDB, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		if err := mongoDB.CreateIndexes(ctx); err != nil {
			log.Fatalf("failed to create mongo indexes: %v", err)
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongoDB.Close(closeCtx); err != nil {
				log.Printf("mongo close: %v", err)
			}
		}
		return repositories.NewMongoConversationRepo(mongoDB.Conversations()), repositories.NewMongoMessageRepo(mongoDB.Messages()), closeFn
	}
}

func dialGRPC(addr string) *grpc.ClientConn {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(observability.GRPCClientMetricsUnaryInterceptor()),
	)
	if err != nil {
		log.Fatalf("failed to connect to grpc %s: %v", addr, err)
	}
	return conn
}
