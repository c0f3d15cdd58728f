package sync

import (
	"context"
	"errors"
	"time"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/relay"
	"github.com/fitstr/fitstr-wallet/internal/state"
	"github.com/fitstr/fitstr-wallet/internal/types"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
)

/*
claimIncoming
queries the backup channel for payment notifications addressed to the owner
within the lookback window and redeems each unprocessed one through the
wallet core's receive path. Notification records are append-only and never
deletable, so the local processed-id set is what guarantees at-most-once
crediting.
*/
func (s *SyncServer) claimIncoming(ctx context.Context) {
	since := nostr.Timestamp(time.Now().Add(-config.AppConfig.ClaimLookback).Unix())

	cctx, cancel := context.WithTimeout(ctx, config.AppConfig.RelayTimeout)
	events, err := s.channel.Query(cctx, nostr.Filter{
		Kinds: []int{relay.KindNutzap},
		Tags:  nostr.TagMap{"p": []string{s.pubKey}},
		Since: &since,
	})
	cancel()
	if err != nil {
		log.Warnf("Incoming payment query failed: %v", err)
		return
	}

	for _, evt := range events {
		nz, err := relay.ParseNutzapEvent(evt)
		if err != nil {
			log.Debugf("Skipping malformed payment notification: %v", err)
			continue
		}

		claimed, err := s.state.IsEventClaimed(nz.EventId)
		if err != nil {
			log.Errorf("Processed-id lookup failed for %s: %v", nz.EventId, err)
			continue
		}
		if claimed {
			continue
		}

		amount, err := s.wallet.ClaimNutzap(ctx, nz.Token, nz.Sender)
		if err != nil {
			if errors.Is(err, types.ErrInvalidToken) {
				// spent or malformed forever, stop retrying it
				log.Warnf("Payment notification %s carries an unredeemable token, marking processed: %v", nz.EventId, err)
				if markErr := s.state.MarkEventClaimed(nz.EventId, 0, nz.Sender); markErr != nil {
					log.Errorf("Failed to mark %s processed: %v", nz.EventId, markErr)
				}
				continue
			}
			// offline or mint trouble, leave it for the next cycle
			log.Warnf("Claim of %s deferred: %v", nz.EventId, err)
			return
		}

		if err := s.state.MarkEventClaimed(nz.EventId, amount, nz.Sender); err != nil {
			// the funds are credited, a replay would double count
			log.Errorf("CRITICAL: claimed %s but failed to record it processed: %v", nz.EventId, err)
			return
		}

		s.state.EventBus.Publish(state.PaymentReceived, state.IncomingPayment{
			EventId: nz.EventId,
			Amount:  amount,
			Sender:  nz.Sender,
			Memo:    nz.Memo,
		})
		log.Infof("Claimed incoming payment of %d from %s", amount, nz.Sender)
	}
}

// SendNutzap sends value directly to a recipient over the relay network: the
// token comes out of the wallet core, the notification record carries it to
// the recipient. The token is returned even when the publish fails, the
// caller still holds transferable value.
func (s *SyncServer) SendNutzap(ctx context.Context, recipientPubKey string, amount uint64, memo string) (string, error) {
	token, err := s.wallet.SendValue(ctx, recipientPubKey, amount, memo)
	if err != nil {
		return "", err
	}

	evt, err := relay.BuildNutzapEvent(s.privKey, recipientPubKey, token, amount, config.AppConfig.WalletUnit, memo)
	if err != nil {
		return token, err
	}
	cctx, cancel := context.WithTimeout(ctx, config.AppConfig.RelayTimeout)
	defer cancel()
	if err := s.channel.Publish(cctx, evt); err != nil {
		log.Warnf("Nutzap notification publish failed, hand the token over out of band: %v", err)
		return token, err
	}
	return token, nil
}
