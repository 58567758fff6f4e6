package passport_test

import (
	"fmt"
	"log"

	"vpass/internal/passport"
	"vpass/pkg/models"
)

// Example demonstrates the full seal/verify round trip for a passport draft.
func Example() {
	priv, err := passport.GenerateKeyPair()
	if err != nil {
		log.Fatal(err)
	}

	sealer, err := passport.NewSealer(priv, "auction-2026")
	if err != nil {
		log.Fatal(err)
	}

	draft := &models.PassportDraft{
		VIN:      "WAUZZZ8V5KA123456",
		LotID:    "LOT-2031",
		Odometer: &models.Odometer{KM: 98432, Source: "report"},
	}

	sealed, err := sealer.Seal(draft)
	if err != nil {
		log.Fatal(err)
	}

	verifier := passport.NewVerifier(&priv.PublicKey)
	result, err := verifier.Verify(sealed)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(result.Valid)
	// Output: true
}

// ExampleValidateDraft shows how validation failures surface every violated
// constraint at once.
func ExampleValidateDraft() {
	draft := &models.PassportDraft{VIN: "TOO-SHORT", LotID: ""}

	err := passport.ValidateDraft(draft)
	if ve, ok := passport.IsValidationError(err); ok {
		fmt.Println(len(ve.Violations) >= 2)
	}
	// Output: true
}
