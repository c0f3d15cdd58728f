package main

import (
	"context"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/db"
	"github.com/fitstr/fitstr-wallet/internal/http"
	"github.com/fitstr/fitstr-wallet/internal/mint"
	"github.com/fitstr/fitstr-wallet/internal/relay"
	"github.com/fitstr/fitstr-wallet/internal/state"
	"github.com/fitstr/fitstr-wallet/internal/sync"
	"github.com/fitstr/fitstr-wallet/internal/wallet"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	DatabaseManager *db.DatabaseManager
	State           *state.State
	MintClient      *mint.Client
	RelayChannel    *relay.Channel
	Wallet          *wallet.Wallet
	SyncServer      *sync.SyncServer
	HTTPServer      *http.HTTPServer
}

func NewApplication() *Application {
	config.InitConfig()

	dbm := db.NewDatabaseManager()
	st := state.InitializeState(dbm)
	mintClient := mint.NewClient(config.AppConfig.MintURL)
	relayChannel := relay.NewChannel(config.AppConfig.RelayUrls)
	walletCore := wallet.NewWallet(st, mintClient)
	syncServer := sync.NewSyncServer(st, walletCore, relayChannel)
	httpServer := http.NewHTTPServer(walletCore, syncServer)

	return &Application{
		DatabaseManager: dbm,
		State:           st,
		MintClient:      mintClient,
		RelayChannel:    relayChannel,
		Wallet:          walletCore,
		SyncServer:      syncServer,
		HTTPServer:      httpServer,
	}
}

func (app *Application) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// cached local state is served before any network attempt
	ws := app.Wallet.Initialize(ctx)
	log.Infof("Wallet ready, balance %d %s, mint %s", ws.Balance, ws.Unit, ws.MintUrl)

	var wg gosync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.SyncServer.Start(ctx)
	}()

	if config.AppConfig.EnableHTTP {
		go app.HTTPServer.Start()
	}

	<-stop
	log.Info("Receiving exit signal...")

	cancel()
	app.Wallet.Reset()

	wg.Wait()
	log.Info("Wallet stopped")
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment from .env file")
	}
	app := NewApplication()
	app.Run()
}
