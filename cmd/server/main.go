package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbodonnell/buddybeacon/pkg/api"
	"github.com/cbodonnell/buddybeacon/pkg/api/handlers"
	authproviders "github.com/cbodonnell/buddybeacon/pkg/auth/providers"
	"github.com/cbodonnell/buddybeacon/pkg/config"
	"github.com/cbodonnell/buddybeacon/pkg/game"
	"github.com/cbodonnell/buddybeacon/pkg/inventory"
	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/cbodonnell/buddybeacon/pkg/network"
	"github.com/cbodonnell/buddybeacon/pkg/queue"
	"github.com/cbodonnell/buddybeacon/pkg/repositories"
	"github.com/cbodonnell/buddybeacon/pkg/state"
	"github.com/cbodonnell/buddybeacon/pkg/version"
	"github.com/cbodonnell/buddybeacon/pkg/workers"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	logLevel := flag.String("log-level", "", "Log level, overrides the config file")
	logFormat := flag.String("log-format", log.FormatJSON, "Log format (json or console)")
	wsPort := flag.Int("ws-port", 0, "WebSocket port to listen on, overrides the config file")
	tcpPort := flag.Int("tcp-port", 0, "TCP port to listen on, overrides the config file")
	apiPort := flag.Int("api-port", 0, "Admin API port to listen on, overrides the config file")
	wsTLSCert := flag.String("ws-tls-cert", "", "TLS certificate file for the WebSocket server")
	wsTLSKey := flag.String("ws-tls-key", "", "TLS key file for the WebSocket server")
	flag.Parse()

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			panic(fmt.Sprintf("Failed to load config: %v", err))
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *wsPort != 0 {
		cfg.Network.WSPort = *wsPort
	}
	if *tcpPort != 0 {
		cfg.Network.TCPPort = *tcpPort
	}
	if *apiPort != 0 {
		cfg.Network.APIPort = *apiPort
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid config: %v", err))
	}

	parsedLogLevel, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", *logFormat, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting buddybeacon server version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec, err := messages.NewCodec(cfg.Network.PayloadCodec)
	if err != nil {
		panic(fmt.Sprintf("Failed to create payload codec: %v", err))
	}

	authProvider, err := newAuthProvider(ctx, cfg.Auth)
	if err != nil {
		panic(fmt.Sprintf("Failed to create auth provider: %v", err))
	}

	repository, err := repositories.NewRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		panic(fmt.Sprintf("Failed to create repository: %v", err))
	}
	defer repository.Close(context.Background())

	clientManager := network.NewClientManager()
	clientMessageQueue := queue.NewInMemoryQueue(10000)
	serverEventQueue := queue.NewInMemoryQueue(1000)

	var wsTLS *network.TLSConfig
	if *wsTLSCert != "" && *wsTLSKey != "" {
		wsTLS = &network.TLSConfig{CertFile: *wsTLSCert, KeyFile: *wsTLSKey}
	}
	networkManager := network.NewNetworkManager(network.NewNetworkManagerOptions{
		AuthProvider:         authProvider,
		ClientManager:        clientManager,
		MessageQueue:         clientMessageQueue,
		Codec:                codec,
		TCPPort:              cfg.Network.TCPPort,
		WSPort:               cfg.Network.WSPort,
		WSServerTLS:          wsTLS,
		InboundRatePerSecond: cfg.Network.InboundRatePerSecond,
		InboundBurst:         cfg.Network.InboundBurst,
	})
	networkManager.Start(ctx)

	connectionEventWorker := workers.NewConnectionEventWorker(workers.NewConnectionEventWorkerOptions{
		ConnectionEventChan: clientManager.GetConnectionEventChan(),
		Repository:          repository,
		ServerEventQueue:    serverEventQueue,
	})
	go connectionEventWorker.Start(ctx)

	serverMessageWorker := workers.NewServerMessageWorker(workers.NewServerMessageWorkerOptions{
		Sender: networkManager,
		Codec:  codec,
	})
	go serverMessageWorker.Start(ctx)

	var apiTLS *api.TLSConfig
	if cert, key := os.Getenv("BUDDYBEACON_API_TLS_CERT_FILE"), os.Getenv("BUDDYBEACON_API_TLS_KEY_FILE"); cert != "" && key != "" {
		apiTLS = &api.TLSConfig{CertFile: cert, KeyFile: key}
	}
	apiServer := api.NewAPIServer(api.NewAPIServerOptions{
		Port:         cfg.Network.APIPort,
		TLS:          apiTLS,
		AuthProvider: authProvider,
		AdminUIDs:    cfg.Auth.AdminUIDs,
		Querier:      handlers.NewQueueQuerier(serverEventQueue),
	})
	go apiServer.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop API server: %v", err)
		}
	}()

	gameManager, err := game.NewGameManager(game.NewGameManagerOptions{
		Config:             cfg,
		Outbox:             serverMessageWorker,
		Codec:              codec,
		ClientMessageQueue: clientMessageQueue,
		ServerEventQueue:   serverEventQueue,
		Inventory:          inventory.NewInMemoryInventory(config.ItemBeaconBand, cfg.ItemEnabled),
		World:              state.NewInMemoryStateManager(),
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to create game manager: %v", err))
	}

	log.Info("Starting game manager")
	if err := gameManager.Start(ctx); err != nil {
		panic(fmt.Sprintf("Failed to start game manager: %v", err))
	}
	log.Info("Server stopped")
}

func newAuthProvider(ctx context.Context, cfg config.AuthConfig) (authproviders.AuthProvider, error) {
	switch cfg.Provider {
	case config.AuthProviderFirebase:
		return authproviders.NewFirebaseAuthProvider(ctx, authproviders.NewFirebaseAuthProviderOptions{
			ProjectID:    cfg.FirebaseProjectID,
			APIKey:       cfg.FirebaseAPIKey,
			CheckRevoked: cfg.FirebaseCheckRevoked,
		})
	default:
		log.Warn("Using the trusted auth provider, login tokens are taken as player uids")
		return authproviders.NewTrustedAuthProvider(), nil
	}
}
