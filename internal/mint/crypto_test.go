package mint

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashToCurveDeterministic(t *testing.T) {
	p1, err := HashToCurve([]byte("test_message"))
	require.NoError(t, err)
	p2, err := HashToCurve([]byte("test_message"))
	require.NoError(t, err)
	assert.Equal(t, p1.SerializeCompressed(), p2.SerializeCompressed())

	p3, err := HashToCurve([]byte("another_message"))
	require.NoError(t, err)
	assert.NotEqual(t, p1.SerializeCompressed(), p3.SerializeCompressed())
}

// The unblinded signature must equal k*Y, the value the mint would have
// produced signing the secret directly.
func TestBlindUnblindRoundTrip(t *testing.T) {
	mintKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	r, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	secret := "0000000000000000000000000000000000000000000000000000000000000001"
	bBlinded, err := BlindMessage(secret, r)
	require.NoError(t, err)

	// mint side: C_ = k * B_
	var bPoint, cBlindedPoint btcec.JacobianPoint
	bBlinded.AsJacobian(&bPoint)
	btcec.ScalarMultNonConst(&mintKey.Key, &bPoint, &cBlindedPoint)
	cBlindedPoint.ToAffine()
	cBlinded := btcec.NewPublicKey(&cBlindedPoint.X, &cBlindedPoint.Y)

	c := UnblindSignature(cBlinded, r, mintKey.PubKey())

	// expected: k * Y
	y, err := HashToCurve([]byte(secret))
	require.NoError(t, err)
	var yPoint, expectedPoint btcec.JacobianPoint
	y.AsJacobian(&yPoint)
	btcec.ScalarMultNonConst(&mintKey.Key, &yPoint, &expectedPoint)
	expectedPoint.ToAffine()
	expected := btcec.NewPublicKey(&expectedPoint.X, &expectedPoint.Y)

	assert.Equal(t, expected.SerializeCompressed(), c.SerializeCompressed())
}

func TestBlindedSetUnblind(t *testing.T) {
	mintKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	keyHex := hex.EncodeToString(mintKey.PubKey().SerializeCompressed())
	keys := map[uint64]string{1: keyHex, 2: keyHex, 4: keyHex}

	set, err := newBlindedSet([]uint64{1, 2, 4}, "keyset1")
	require.NoError(t, err)
	require.Len(t, set.outputs, 3)

	// mint side signs every output
	signatures := make([]BlindedSignature, 0, len(set.outputs))
	for _, out := range set.outputs {
		bBlinded, err := parsePubKeyHex(out.B_)
		require.NoError(t, err)
		var bPoint, cPoint btcec.JacobianPoint
		bBlinded.AsJacobian(&bPoint)
		btcec.ScalarMultNonConst(&mintKey.Key, &bPoint, &cPoint)
		cPoint.ToAffine()
		signatures = append(signatures, BlindedSignature{
			Amount: out.Amount,
			Id:     out.Id,
			C_:     hex.EncodeToString(btcec.NewPublicKey(&cPoint.X, &cPoint.Y).SerializeCompressed()),
		})
	}

	proofs, err := set.unblind(signatures, keys)
	require.NoError(t, err)
	require.Len(t, proofs, 3)
	var total uint64
	for i, p := range proofs {
		assert.Equal(t, set.secrets[i], p.Secret)
		assert.Equal(t, "keyset1", p.Id)
		total += p.Amount
	}
	assert.Equal(t, uint64(7), total)
}

func TestUnblindMissingKey(t *testing.T) {
	set, err := newBlindedSet([]uint64{8}, "keyset1")
	require.NoError(t, err)

	_, err = set.unblind([]BlindedSignature{{Amount: 8, Id: "keyset1", C_: "02aa"}}, map[uint64]string{1: "02bb"})
	assert.Error(t, err)
}
