package passport

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vpass/internal/logger"
	"vpass/pkg/models"
)

// Verification reason strings. Machine-readable; callers branch on these,
// never on error message text.
const (
	ReasonHashMismatch     = "hash_mismatch"
	ReasonSignatureInvalid = "signature_invalid"
	ReasonNoPublicKey      = "no_public_key_configured"
	ReasonNoSignature      = "no_signature_present"
)

// Sealing errors.
var (
	ErrNoPrivateKey = errors.New("no private signing key configured")
	ErrNoSealBlock  = errors.New("record has no seal block")
)

// Sealer produces tamper-evident seals over passport drafts using ECDSA
// P-256. The signature covers the SHA-256 digest of the draft's canonical
// bytes; the digest itself is stored hex-encoded alongside.
type Sealer struct {
	priv  *ecdsa.PrivateKey
	keyID string
	now   func() time.Time
	log   zerolog.Logger
}

// SealerOption configures a Sealer.
type SealerOption func(*Sealer)

// WithClock overrides the seal timestamp source, for deterministic tests.
func WithClock(now func() time.Time) SealerOption {
	return func(s *Sealer) { s.now = now }
}

// NewSealer creates a Sealer for the given private key and key identifier.
func NewSealer(priv *ecdsa.PrivateKey, keyID string, opts ...SealerOption) (*Sealer, error) {
	if priv == nil {
		return nil, ErrNoPrivateKey
	}
	s := &Sealer{
		priv:  priv,
		keyID: keyID,
		now:   time.Now,
		log:   logger.WithComponent("sealer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Seal validates the draft, canonicalizes it, hashes and signs the
// canonical bytes, and returns a new sealed copy. The input draft is not
// mutated. An invalid draft fails fast with the full violation list
// attached; invalid data is never sealed.
//
// Sealing is idempotent per draft content: the same draft bytes always
// yield the same hash. The ECDSA signature is randomized and differs
// between calls, which is fine — verification binds it to the same
// canonical bytes.
func (s *Sealer) Seal(draft *models.PassportDraft) (*models.PassportSealed, error) {
	const op = "Seal"

	if err := ValidateDraft(draft); err != nil {
		s.log.Warn().Err(err).Str("vin", draft.VIN).Msg("Refusing to seal invalid draft")
		return nil, err
	}

	payload, err := CanonicalPayload(draft)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	digest := sha256.Sum256(payload)
	sig, err := ecdsa.SignASN1(rand.Reader, s.priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%s: sign: %w", op, err)
	}

	sealed := &models.PassportSealed{
		PassportDraft: *draft,
		Seal: &models.Seal{
			Hash:     hex.EncodeToString(digest[:]),
			Sig:      base64.StdEncoding.EncodeToString(sig),
			KeyID:    s.keyID,
			SealedTS: s.now().UTC().Format(time.RFC3339),
		},
	}

	s.log.Info().
		Str("vin", draft.VIN).
		Str("lot_id", draft.LotID).
		Str("key_id", s.keyID).
		Str("hash", sealed.Seal.Hash).
		Msg("Passport sealed")

	return sealed, nil
}

// VerifyResult is the verification verdict. Valid is true iff the
// recomputed hash matches and the signature check passed against a
// configured public key. Every failure contributes a reason.
type VerifyResult struct {
	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons"`
}

// Verifier checks sealed passports against a public key. It never needs
// the private key and never mutates stored state.
type Verifier struct {
	pub *ecdsa.PublicKey
	log zerolog.Logger
}

// NewVerifier creates a Verifier. A nil public key is allowed: hash
// integrity is still checked, but the result is reported unverifiable
// (valid=false, reason no_public_key_configured) — a hash match without a
// signature check is not tamper-evidence.
func NewVerifier(pub *ecdsa.PublicKey) *Verifier {
	return &Verifier{
		pub: pub,
		log: logger.WithComponent("verifier"),
	}
}

// Verify recomputes the canonical hash of the record minus its seal and
// checks the stored signature.
func (v *Verifier) Verify(sealed *models.PassportSealed) (*VerifyResult, error) {
	const op = "Verify"

	if sealed == nil || sealed.Seal == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSealBlock)
	}

	payload, err := CanonicalPayload(sealed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	digest := sha256.Sum256(payload)

	var reasons []string
	if hex.EncodeToString(digest[:]) != sealed.Seal.Hash {
		reasons = append(reasons, ReasonHashMismatch)
	}

	switch {
	case sealed.Seal.Sig == "":
		reasons = append(reasons, ReasonNoSignature)
	case v.pub == nil:
		reasons = append(reasons, ReasonNoPublicKey)
	default:
		sig, decErr := base64.StdEncoding.DecodeString(sealed.Seal.Sig)
		if decErr != nil || !ecdsa.VerifyASN1(v.pub, digest[:], sig) {
			reasons = append(reasons, ReasonSignatureInvalid)
		}
	}

	result := &VerifyResult{
		Valid:   len(reasons) == 0,
		Reasons: reasons,
	}

	v.log.Info().
		Str("vin", sealed.VIN).
		Str("key_id", sealed.Seal.KeyID).
		Bool("valid", result.Valid).
		Strs("reasons", reasons).
		Msg("Passport verification completed")

	return result, nil
}
