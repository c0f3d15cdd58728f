package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
)

type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	return [...]string{"Disconnected", "Connecting", "Connected"}[s]
}

// Channel is the wallet's view of the relay network: publish and query signed
// records across a small set of relays. Retry scheduling and circuit breaking
// belong to the surrounding connectivity layer, a failed relay here just
// drops out of the set until the next Connect.
type Channel struct {
	urls []string

	mu     sync.RWMutex
	relays map[string]*nostr.Relay
	status ConnState
}

func NewChannel(urls []string) *Channel {
	return &Channel{
		urls:   urls,
		relays: make(map[string]*nostr.Relay),
	}
}

func (c *Channel) Status() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Connect dials every configured relay. The channel is Connected as soon as
// one relay accepts, partial connectivity is normal operation.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.status = Connecting
	c.mu.Unlock()

	connected := 0
	for _, url := range c.urls {
		c.mu.RLock()
		_, already := c.relays[url]
		c.mu.RUnlock()
		if already {
			connected++
			continue
		}

		relay, err := nostr.RelayConnect(ctx, url)
		if err != nil {
			log.Warnf("Relay %s unreachable: %v", url, err)
			continue
		}
		c.mu.Lock()
		c.relays[url] = relay
		c.mu.Unlock()
		connected++
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if connected == 0 {
		c.status = Disconnected
		return fmt.Errorf("no relay reachable out of %d", len(c.urls))
	}
	c.status = Connected
	log.Infof("Relay channel connected, %d/%d relays", connected, len(c.urls))
	return nil
}

func (c *Channel) connectedRelays() []*nostr.Relay {
	c.mu.RLock()
	defer c.mu.RUnlock()
	relays := make([]*nostr.Relay, 0, len(c.relays))
	for _, r := range c.relays {
		relays = append(relays, r)
	}
	return relays
}

func (c *Channel) dropRelay(failed *nostr.Relay) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for url, r := range c.relays {
		if r == failed {
			delete(c.relays, url)
			break
		}
	}
	if len(c.relays) == 0 {
		c.status = Disconnected
	}
}

// Publish sends a signed event to every connected relay, succeeding if at
// least one accepts it.
func (c *Channel) Publish(ctx context.Context, evt *nostr.Event) error {
	relays := c.connectedRelays()
	if len(relays) == 0 {
		return fmt.Errorf("relay channel disconnected")
	}

	accepted := 0
	for _, relay := range relays {
		if err := relay.Publish(ctx, *evt); err != nil {
			log.Warnf("Relay %s rejected event kind %d: %v", relay.URL, evt.Kind, err)
			c.dropRelay(relay)
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("no relay accepted event kind %d", evt.Kind)
	}
	return nil
}

// Query collects matching events from all connected relays, deduplicated by
// event id.
func (c *Channel) Query(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error) {
	relays := c.connectedRelays()
	if len(relays) == 0 {
		return nil, fmt.Errorf("relay channel disconnected")
	}

	seen := make(map[string]bool)
	var events []*nostr.Event
	for _, relay := range relays {
		found, err := relay.QuerySync(ctx, filter)
		if err != nil {
			log.Warnf("Relay %s query failed: %v", relay.URL, err)
			c.dropRelay(relay)
			continue
		}
		for _, evt := range found {
			if evt == nil || seen[evt.ID] {
				continue
			}
			seen[evt.ID] = true
			events = append(events, evt)
		}
	}
	return events, nil
}

// Close drops all relay connections, used on logout and shutdown.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for url, relay := range c.relays {
		relay.Close()
		delete(c.relays, url)
	}
	c.status = Disconnected
}
