package mint

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fitstr/fitstr-wallet/internal/types"
)

// Serialized ecash token: "cashuA" + base64url(JSON).

const tokenPrefix = "cashuA"

type Token struct {
	Token []TokenEntry `json:"token"`
	Unit  string       `json:"unit,omitempty"`
	Memo  string       `json:"memo,omitempty"`
}

type TokenEntry struct {
	Mint   string  `json:"mint"`
	Proofs []Proof `json:"proofs"`
}

func NewToken(proofs []Proof, mintUrl, unit, memo string) *Token {
	return &Token{
		Token: []TokenEntry{{Mint: mintUrl, Proofs: proofs}},
		Unit:  unit,
		Memo:  memo,
	}
}

// Amount is the declared total of the token. Cleartext only, funds settle
// for whatever the mint actually redeems.
func (t *Token) Amount() uint64 {
	var total uint64
	for _, entry := range t.Token {
		for _, p := range entry.Proofs {
			total += p.Amount
		}
	}
	return total
}

// Mint returns the issuing mint of the first entry.
func (t *Token) Mint() string {
	if len(t.Token) == 0 {
		return ""
	}
	return t.Token[0].Mint
}

func (t *Token) Proofs() []Proof {
	var proofs []Proof
	for _, entry := range t.Token {
		proofs = append(proofs, entry.Proofs...)
	}
	return proofs
}

func (t *Token) Serialize() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeToken(encoded string) (*Token, error) {
	encoded = strings.TrimSpace(encoded)
	if !strings.HasPrefix(encoded, tokenPrefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", types.ErrInvalidToken, tokenPrefix)
	}
	body := strings.TrimRight(strings.TrimPrefix(encoded, tokenPrefix), "=")
	b, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		// some wallets emit standard base64
		b, err = base64.RawStdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidToken, err)
		}
	}
	var token Token
	if err := json.Unmarshal(b, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidToken, err)
	}
	if len(token.Token) == 0 || len(token.Token[0].Proofs) == 0 {
		return nil, fmt.Errorf("%w: empty token", types.ErrInvalidToken)
	}
	return &token, nil
}
