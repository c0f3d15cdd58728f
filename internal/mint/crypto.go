package mint

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Blind Diffie-Hellman key exchange (NUT-00). The wallet blinds a secret
// before sending it to the mint and unblinds the returned signature, so the
// mint never sees which proof it later redeems.

const hashToCurveDomainSeparator = "Secp256k1_HashToCurve_Cashu_"

// HashToCurve maps a message to a point on the secp256k1 curve by walking
// sha256(msgHash || counter) until a valid x coordinate is found.
func HashToCurve(message []byte) (*btcec.PublicKey, error) {
	h := sha256.Sum256(append([]byte(hashToCurveDomainSeparator), message...))

	counter := make([]byte, 4)
	for i := uint32(0); i < 1<<16; i++ {
		binary.LittleEndian.PutUint32(counter, i)
		attempt := sha256.Sum256(append(h[:], counter...))
		pk, err := btcec.ParsePubKey(append([]byte{0x02}, attempt[:]...))
		if err == nil {
			return pk, nil
		}
	}
	return nil, fmt.Errorf("no valid curve point for message")
}

// BlindMessage computes B_ = Y + rG for secret point Y and blinding factor r.
func BlindMessage(secret string, r *btcec.PrivateKey) (*btcec.PublicKey, error) {
	y, err := HashToCurve([]byte(secret))
	if err != nil {
		return nil, err
	}

	var yPoint, rG, blinded btcec.JacobianPoint
	y.AsJacobian(&yPoint)
	btcec.ScalarBaseMultNonConst(&r.Key, &rG)
	btcec.AddNonConst(&yPoint, &rG, &blinded)
	blinded.ToAffine()
	return btcec.NewPublicKey(&blinded.X, &blinded.Y), nil
}

// UnblindSignature computes C = C_ - rK, where K is the mint public key for
// the denomination.
func UnblindSignature(cBlinded *btcec.PublicKey, r *btcec.PrivateKey, mintKey *btcec.PublicKey) *btcec.PublicKey {
	var kPoint, rK, cPoint, unblinded btcec.JacobianPoint
	mintKey.AsJacobian(&kPoint)
	btcec.ScalarMultNonConst(&r.Key, &kPoint, &rK)
	rK.ToAffine()
	rK.Y.Negate(1)
	rK.Y.Normalize()
	cBlinded.AsJacobian(&cPoint)
	btcec.AddNonConst(&cPoint, &rK, &unblinded)
	unblinded.ToAffine()
	return btcec.NewPublicKey(&unblinded.X, &unblinded.Y)
}

// blindedSet carries the secrets and blinding factors matching a batch of
// outputs until the mint's signatures come back.
type blindedSet struct {
	outputs []BlindedMessage
	secrets []string
	factors []*btcec.PrivateKey
}

// newBlindedSet builds one blinded message per denomination of the split.
func newBlindedSet(amounts []uint64, keysetId string) (*blindedSet, error) {
	set := &blindedSet{
		outputs: make([]BlindedMessage, 0, len(amounts)),
		secrets: make([]string, 0, len(amounts)),
		factors: make([]*btcec.PrivateKey, 0, len(amounts)),
	}
	for _, amount := range amounts {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return nil, err
		}
		secret := hex.EncodeToString(secretBytes)

		r, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, err
		}
		bPoint, err := BlindMessage(secret, r)
		if err != nil {
			return nil, err
		}

		set.outputs = append(set.outputs, BlindedMessage{
			Amount: amount,
			Id:     keysetId,
			B_:     hex.EncodeToString(bPoint.SerializeCompressed()),
		})
		set.secrets = append(set.secrets, secret)
		set.factors = append(set.factors, r)
	}
	return set, nil
}

// unblind turns the mint's blinded signatures into spendable proofs.
func (set *blindedSet) unblind(signatures []BlindedSignature, keys map[uint64]string) ([]Proof, error) {
	if len(signatures) > len(set.outputs) {
		return nil, fmt.Errorf("mint returned %d signatures for %d outputs", len(signatures), len(set.outputs))
	}
	proofs := make([]Proof, 0, len(signatures))
	for i, sig := range signatures {
		keyHex, ok := keys[sig.Amount]
		if !ok {
			return nil, fmt.Errorf("keyset has no key for amount %d", sig.Amount)
		}
		mintKey, err := parsePubKeyHex(keyHex)
		if err != nil {
			return nil, fmt.Errorf("bad mint key for amount %d: %w", sig.Amount, err)
		}
		cBlinded, err := parsePubKeyHex(sig.C_)
		if err != nil {
			return nil, fmt.Errorf("bad blinded signature: %w", err)
		}
		c := UnblindSignature(cBlinded, set.factors[i], mintKey)
		proofs = append(proofs, Proof{
			Amount: sig.Amount,
			Id:     sig.Id,
			Secret: set.secrets[i],
			C:      hex.EncodeToString(c.SerializeCompressed()),
		})
	}
	return proofs, nil
}

func parsePubKeyHex(s string) (*btcec.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return btcec.ParsePubKey(b)
}
