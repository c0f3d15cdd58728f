package config

import (
	"os"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var AppConfig Config

func InitConfig() {
	viper.AutomaticEnv()

	// Default config
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("DB_DIR", "/app/db")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MINT_URL", "https://mint.minibits.cash/Bitcoin")
	viper.SetDefault("MINT_TIMEOUT", "10s")
	viper.SetDefault("WALLET_UNIT", "sat")
	viper.SetDefault("WALLET_NAME", "")
	viper.SetDefault("RELAY_URLS", "wss://relay.damus.io,wss://nos.lol,wss://relay.primal.net")
	viper.SetDefault("NOSTR_PRIVATE_KEY", "")
	viper.SetDefault("AUTO_CLAIM_INTERVAL", "30s")
	viper.SetDefault("CLAIM_LOOKBACK", "168h")
	viper.SetDefault("RESTORE_TIMEOUT", "5s")
	viper.SetDefault("RELAY_TIMEOUT", "5s")
	viper.SetDefault("HISTORY_LIMIT", 200)
	viper.SetDefault("ENABLE_HTTP", true)

	logLevel, err := logrus.ParseLevel(strings.ToLower(viper.GetString("LOG_LEVEL")))
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}

	privKey := viper.GetString("NOSTR_PRIVATE_KEY")
	if privKey == "" {
		// ephemeral identity, backups from previous installs are unreachable
		privKey = nostr.GeneratePrivateKey()
		logrus.Warn("NOSTR_PRIVATE_KEY not set, generated an ephemeral key")
	}
	pubKey, err := nostr.GetPublicKey(privKey)
	if err != nil {
		logrus.Fatalf("Failed to derive owner public key, given private key length %d: %v", len(privKey), err)
	}

	var relayUrls []string
	for _, u := range strings.Split(viper.GetString("RELAY_URLS"), ",") {
		if u = strings.TrimSpace(u); u != "" {
			relayUrls = append(relayUrls, u)
		}
	}

	AppConfig = Config{
		HTTPPort:          viper.GetString("HTTP_PORT"),
		DbDir:             viper.GetString("DB_DIR"),
		LogLevel:          logLevel,
		MintURL:           viper.GetString("MINT_URL"),
		MintTimeout:       viper.GetDuration("MINT_TIMEOUT"),
		WalletUnit:        viper.GetString("WALLET_UNIT"),
		WalletName:        viper.GetString("WALLET_NAME"),
		RelayUrls:         relayUrls,
		NostrPrivateKey:   privKey,
		OwnerPubKey:       pubKey,
		AutoClaimInterval: viper.GetDuration("AUTO_CLAIM_INTERVAL"),
		ClaimLookback:     viper.GetDuration("CLAIM_LOOKBACK"),
		RestoreTimeout:    viper.GetDuration("RESTORE_TIMEOUT"),
		RelayTimeout:      viper.GetDuration("RELAY_TIMEOUT"),
		HistoryLimit:      viper.GetInt("HISTORY_LIMIT"),
		EnableHTTP:        viper.GetBool("ENABLE_HTTP"),
	}

	if AppConfig.AutoClaimInterval < 5*time.Second {
		logrus.Warnf("Auto claim interval is too low, set to 5s")
		AppConfig.AutoClaimInterval = 5 * time.Second
	}

	logrus.Infof("Init config, MintURL %s, AutoClaimInterval %v, OwnerPubKey %s",
		AppConfig.MintURL, AppConfig.AutoClaimInterval, AppConfig.OwnerPubKey)

	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(AppConfig.LogLevel)
}

type Config struct {
	HTTPPort          string
	DbDir             string
	LogLevel          logrus.Level
	MintURL           string
	MintTimeout       time.Duration
	WalletUnit        string
	WalletName        string
	RelayUrls         []string
	NostrPrivateKey   string
	OwnerPubKey       string
	AutoClaimInterval time.Duration
	ClaimLookback     time.Duration
	RestoreTimeout    time.Duration
	RelayTimeout      time.Duration
	HistoryLimit      int
	EnableHTTP        bool
}
