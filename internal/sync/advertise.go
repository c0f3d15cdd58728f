package sync

import (
	"context"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/relay"
	log "github.com/sirupsen/logrus"
)

// PublishWalletAdvertisement publishes the one-time-per-mint cleartext
// discovery record. It carries mint URL and display name only, nothing
// funds-relevant.
func (s *SyncServer) PublishWalletAdvertisement(ctx context.Context) {
	if s.channel.Status() != relay.Connected {
		log.Debug("Advertisement skipped, relay channel not connected")
		return
	}

	ws := s.state.GetWalletState()
	advertised, err := s.state.IsAdvertised(ws.MintUrl)
	if err != nil {
		log.Errorf("Advertisement lookup failed: %v", err)
		return
	}
	if advertised {
		return
	}

	evt, err := relay.BuildWalletInfoEvent(s.privKey, ws.MintUrl, config.AppConfig.WalletName, ws.Unit, ws.Balance)
	if err != nil {
		log.Errorf("Failed to build wallet info record: %v", err)
		return
	}
	cctx, cancel := context.WithTimeout(ctx, config.AppConfig.RelayTimeout)
	defer cancel()
	if err := s.channel.Publish(cctx, evt); err != nil {
		log.Warnf("Wallet advertisement publish failed: %v", err)
		return
	}
	if err := s.state.MarkAdvertised(ws.MintUrl); err != nil {
		log.Errorf("Failed to record advertisement for %s: %v", ws.MintUrl, err)
	}
}
