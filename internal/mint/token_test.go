package mint

import (
	"testing"

	"github.com/fitstr/fitstr-wallet/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	proofs := []Proof{
		{Amount: 64, Id: "ks1", Secret: "s1", C: "02aa"},
		{Amount: 8, Id: "ks1", Secret: "s2", C: "02bb"},
	}
	token := NewToken(proofs, "https://mint.example.com", "sat", "lunch")

	encoded, err := token.Serialize()
	require.NoError(t, err)
	assert.Contains(t, encoded, "cashuA")

	decoded, err := DecodeToken(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint64(72), decoded.Amount())
	assert.Equal(t, "https://mint.example.com", decoded.Mint())
	assert.Equal(t, "lunch", decoded.Memo)
	assert.Equal(t, proofs, decoded.Proofs())
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	_, err := DecodeToken("not a token")
	assert.ErrorIs(t, err, types.ErrInvalidToken)

	_, err = DecodeToken("cashuA!!!not-base64!!!")
	assert.ErrorIs(t, err, types.ErrInvalidToken)

	empty := NewToken(nil, "https://mint.example.com", "sat", "")
	encoded, err := empty.Serialize()
	require.NoError(t, err)
	_, err = DecodeToken(encoded)
	assert.ErrorIs(t, err, types.ErrInvalidToken)
}
