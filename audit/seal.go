package audit

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// Checkpoint pins the state of an audit trail at a point in time. A sealed
// checkpoint lets external tooling verify a reported history against the
// chain head without access to the live log.
type Checkpoint struct {
	Count  int       `cbor:"count" json:"count"`
	Digest string    `cbor:"digest" json:"digest"`
	Time   time.Time `cbor:"time" json:"time"`
}

// Seal signs the current log head as a COSE_Sign1 envelope (ES256) over the
// CBOR-encoded checkpoint. The returned bytes are a standard COSE_Sign1
// structure: [protected, unprotected, payload, signature].
func (l *Log) Seal(key *ecdsa.PrivateKey) ([]byte, error) {
	cp := Checkpoint{
		Count:  l.Len(),
		Digest: l.Digest(),
		Time:   time.Now().UTC(),
	}

	payload, err := cbor.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Payload = payload
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("sign checkpoint: %w", err)
	}

	return msg.MarshalCBOR()
}

// VerifySeal checks the COSE_Sign1 signature on a sealed checkpoint and
// returns the checkpoint it carries.
func VerifySeal(sealed []byte, key *ecdsa.PublicKey) (*Checkpoint, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(sealed); err != nil {
		return nil, fmt.Errorf("parse COSE envelope: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("verify checkpoint signature: %w", err)
	}

	var cp Checkpoint
	if err := cbor.Unmarshal(msg.Payload, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &cp, nil
}
