package mint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/types"
	log "github.com/sirupsen/logrus"
)

// Client is a stateless wrapper around one Cashu mint's REST API. The wallet
// runs correctly without a reachable mint, every method requiring the mint
// fails fast with a typed error instead of retrying.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu           sync.RWMutex
	keysets      map[string]map[uint64]string // keyset id -> denomination -> pubkey
	activeKeyset KeysetKeys
	connected    bool
}

// MintError is a rejection from the mint itself, as opposed to a transport
// failure.
type MintError struct {
	Code   int
	Detail string
}

func (e *MintError) Error() string {
	return fmt.Sprintf("mint rejected request (%d): %s", e.Code, e.Detail)
}

func NewClient(mintUrl string) *Client {
	return &Client{
		baseURL: strings.TrimRight(mintUrl, "/"),
		httpClient: &http.Client{
			Timeout: config.AppConfig.MintTimeout,
		},
		keysets: make(map[string]map[uint64]string),
	}
}

func (c *Client) URL() string {
	return c.baseURL
}

// Connect fetches the mint keysets. Idempotent, safe to call on demand
// before any operation.
func (c *Client) Connect(ctx context.Context) error {
	var resp GetKeysResponse
	if err := c.get(ctx, "/v1/keys", &resp); err != nil {
		return err
	}
	if len(resp.Keysets) == 0 {
		return fmt.Errorf("%w: mint returned no keysets", types.ErrMintUnavailable)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ks := range resp.Keysets {
		c.keysets[ks.Id] = ks.Keys
		if ks.Unit == config.AppConfig.WalletUnit || c.activeKeyset.Id == "" {
			c.activeKeyset = ks
		}
	}
	c.connected = true
	log.Infof("Mint connected, url %s, active keyset %s, %d keysets", c.baseURL, c.activeKeyset.Id, len(c.keysets))
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) ActiveKeysetId() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeKeyset.Id
}

func (c *Client) activeKeys() (string, map[uint64]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected || c.activeKeyset.Id == "" {
		return "", nil, types.ErrWalletOffline
	}
	return c.activeKeyset.Id, c.activeKeyset.Keys, nil
}

// RequestMintQuote asks the mint for a Lightning-payable quote. No proof
// mutation happens until the quote is claimed.
func (c *Client) RequestMintQuote(ctx context.Context, amount uint64, memo string) (*MintQuoteResponse, error) {
	req := PostMintQuoteRequest{Amount: amount, Unit: config.AppConfig.WalletUnit, Description: memo}
	var resp MintQuoteResponse
	if err := c.post(ctx, "/v1/mint/quote/bolt11", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MintQuoteState(ctx context.Context, quoteId string) (*MintQuoteResponse, error) {
	var resp MintQuoteResponse
	if err := c.get(ctx, "/v1/mint/quote/bolt11/"+quoteId, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MintProofs redeems a paid quote into freshly owned proofs.
func (c *Client) MintProofs(ctx context.Context, quoteId string, amount uint64) ([]Proof, error) {
	keysetId, keys, err := c.activeKeys()
	if err != nil {
		return nil, err
	}
	set, err := newBlindedSet(types.SplitAmount(amount), keysetId)
	if err != nil {
		return nil, err
	}
	var resp PostMintResponse
	if err := c.post(ctx, "/v1/mint/bolt11", PostMintRequest{Quote: quoteId, Outputs: set.outputs}, &resp); err != nil {
		return nil, err
	}
	return set.unblind(resp.Signatures, keys)
}

// Swap exchanges the given inputs at the mint for a transferable subset of
// sendAmount plus change. The mint invalidates the inputs, so a successful
// swap means the caller must adopt the returned proofs.
func (c *Client) Swap(ctx context.Context, inputs []Proof, sendAmount uint64) (send []Proof, change []Proof, err error) {
	keysetId, keys, err := c.activeKeys()
	if err != nil {
		return nil, nil, err
	}
	var totalIn uint64
	for _, p := range inputs {
		totalIn += p.Amount
	}
	if sendAmount > totalIn {
		return nil, nil, types.ErrInsufficientBalance
	}

	sendSplit := types.SplitAmount(sendAmount)
	changeSplit := types.SplitAmount(totalIn - sendAmount)
	set, err := newBlindedSet(append(append([]uint64{}, sendSplit...), changeSplit...), keysetId)
	if err != nil {
		return nil, nil, err
	}

	var resp PostSwapResponse
	if err := c.post(ctx, "/v1/swap", PostSwapRequest{Inputs: inputs, Outputs: set.outputs}, &resp); err != nil {
		return nil, nil, err
	}
	proofs, err := set.unblind(resp.Signatures, keys)
	if err != nil {
		return nil, nil, err
	}
	if len(proofs) < len(sendSplit) {
		return nil, nil, fmt.Errorf("%w: mint returned short swap", types.ErrMintUnavailable)
	}
	return proofs[:len(sendSplit)], proofs[len(sendSplit):], nil
}

// ReceiveProofs swaps an externally supplied token into proofs owned by this
// wallet. Mint-side finality on the old secrets prevents a double spend.
func (c *Client) ReceiveProofs(ctx context.Context, token *Token) ([]Proof, error) {
	if token.Mint() != c.baseURL {
		return nil, fmt.Errorf("%w: token issued by foreign mint %s", types.ErrInvalidToken, token.Mint())
	}
	_, received, err := c.Swap(ctx, token.Proofs(), 0)
	if err != nil {
		var mintErr *MintError
		if errors.As(err, &mintErr) {
			return nil, fmt.Errorf("%w: %s", types.ErrInvalidToken, mintErr.Detail)
		}
		return nil, err
	}
	return received, nil
}

func (c *Client) RequestMeltQuote(ctx context.Context, invoice string) (*MeltQuoteResponse, error) {
	req := PostMeltQuoteRequest{Request: invoice, Unit: config.AppConfig.WalletUnit}
	var resp MeltQuoteResponse
	if err := c.post(ctx, "/v1/melt/quote/bolt11", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Melt submits proofs for an outbound Lightning payment. Returns the fee
// actually paid and any fee-reserve change returned by the mint.
func (c *Client) Melt(ctx context.Context, quote *MeltQuoteResponse, inputs []Proof) (uint64, []Proof, error) {
	keysetId, keys, err := c.activeKeys()
	if err != nil {
		return 0, nil, err
	}

	// blank outputs for the overpaid part of the fee reserve (NUT-08)
	blankCount := 1
	if quote.FeeReserve > 0 {
		blankCount = int(math.Max(math.Ceil(math.Log2(float64(quote.FeeReserve))), 1))
	}
	blanks := make([]uint64, blankCount)
	for i := range blanks {
		blanks[i] = 1
	}
	set, err := newBlindedSet(blanks, keysetId)
	if err != nil {
		return 0, nil, err
	}

	var resp PostMeltResponse
	if err := c.post(ctx, "/v1/melt/bolt11", PostMeltRequest{Quote: quote.Quote, Inputs: inputs, Outputs: set.outputs}, &resp); err != nil {
		return 0, nil, err
	}
	if resp.State != QUOTE_STATE_PAID {
		return 0, nil, fmt.Errorf("%w: melt not paid, state %s", types.ErrMintUnavailable, resp.State)
	}

	change, err := set.unblind(resp.Change, keys)
	if err != nil {
		return 0, nil, err
	}
	var changeTotal uint64
	for _, p := range change {
		changeTotal += p.Amount
	}
	feePaid := quote.FeeReserve
	if changeTotal < feePaid {
		feePaid -= changeTotal
	} else {
		feePaid = 0
	}
	return feePaid, change, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrMintUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrMintUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		var mintErr errorResponse
		if err := json.Unmarshal(raw, &mintErr); err == nil && mintErr.Detail != "" {
			return &MintError{Code: mintErr.Code, Detail: mintErr.Detail}
		}
		return &MintError{Code: resp.StatusCode, Detail: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: bad response: %v", types.ErrMintUnavailable, err)
	}
	return nil
}
