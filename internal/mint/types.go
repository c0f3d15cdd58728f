package mint

// Cashu NUT wire types for the subset of the mint API the wallet uses.

const (
	QUOTE_STATE_UNPAID = "UNPAID"
	QUOTE_STATE_PAID   = "PAID"
	QUOTE_STATE_ISSUED = "ISSUED"
)

type Proof struct {
	Amount uint64 `json:"amount"`
	Id     string `json:"id"`
	Secret string `json:"secret"`
	C      string `json:"C"`
}

type BlindedMessage struct {
	Amount uint64 `json:"amount"`
	Id     string `json:"id"`
	B_     string `json:"B_"`
}

type BlindedSignature struct {
	Amount uint64 `json:"amount"`
	Id     string `json:"id"`
	C_     string `json:"C_"`
}

type KeysetKeys struct {
	Id   string            `json:"id"`
	Unit string            `json:"unit"`
	Keys map[uint64]string `json:"keys"` // denomination -> compressed pubkey hex
}

type GetKeysResponse struct {
	Keysets []KeysetKeys `json:"keysets"`
}

type PostMintQuoteRequest struct {
	Amount      uint64 `json:"amount"`
	Unit        string `json:"unit"`
	Description string `json:"description,omitempty"`
}

type MintQuoteResponse struct {
	Quote   string `json:"quote"`
	Request string `json:"request"` // bolt11 payment request
	State   string `json:"state"`
	Expiry  int64  `json:"expiry"`
}

type PostMintRequest struct {
	Quote   string           `json:"quote"`
	Outputs []BlindedMessage `json:"outputs"`
}

type PostMintResponse struct {
	Signatures []BlindedSignature `json:"signatures"`
}

type PostSwapRequest struct {
	Inputs  []Proof          `json:"inputs"`
	Outputs []BlindedMessage `json:"outputs"`
}

type PostSwapResponse struct {
	Signatures []BlindedSignature `json:"signatures"`
}

type PostMeltQuoteRequest struct {
	Request string `json:"request"` // bolt11 invoice to pay
	Unit    string `json:"unit"`
}

type MeltQuoteResponse struct {
	Quote      string `json:"quote"`
	Amount     uint64 `json:"amount"`
	FeeReserve uint64 `json:"fee_reserve"`
	State      string `json:"state"`
	Expiry     int64  `json:"expiry"`
}

type PostMeltRequest struct {
	Quote   string           `json:"quote"`
	Inputs  []Proof          `json:"inputs"`
	Outputs []BlindedMessage `json:"outputs,omitempty"` // blank outputs for fee change
}

type PostMeltResponse struct {
	State    string             `json:"state"`
	Preimage string             `json:"payment_preimage,omitempty"`
	Change   []BlindedSignature `json:"change,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Code   int    `json:"code"`
}
