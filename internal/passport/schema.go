package passport

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"vpass/pkg/models"
)

//go:embed schema/passport_draft.schema.json
var schemaFS embed.FS

const draftSchemaPath = "schema/passport_draft.schema.json"

var (
	draftSchemaOnce sync.Once
	draftSchema     *jsonschema.Schema
	draftSchemaErr  error
)

// ValidationError carries the full list of violated constraints. Sealing
// and persistence refuse to proceed on any violation; the record is never
// partially sealed.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("passport draft validation failed: %s", strings.Join(e.Violations, "; "))
}

// IsValidationError reports whether err is a draft validation failure and
// returns it for inspection.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func compiledDraftSchema() (*jsonschema.Schema, error) {
	draftSchemaOnce.Do(func() {
		raw, err := schemaFS.ReadFile(draftSchemaPath)
		if err != nil {
			draftSchemaErr = fmt.Errorf("read embedded schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("passport_draft.schema.json", bytes.NewReader(raw)); err != nil {
			draftSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		draftSchema, draftSchemaErr = compiler.Compile("passport_draft.schema.json")
	})
	return draftSchema, draftSchemaErr
}

// ValidateDraft checks a draft against the passport schema contract.
// Returns a *ValidationError listing every violation, or nil.
func ValidateDraft(draft *models.PassportDraft) error {
	schema, err := compiledDraftSchema()
	if err != nil {
		return err
	}

	b, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal draft: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &ValidationError{Violations: flattenViolations(ve)}
		}
		return err
	}
	return nil
}

// flattenViolations walks the validation error tree and keeps the leaf
// messages, which name the violated constraint and its location.
func flattenViolations(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{fmt.Sprintf("%s: %s", loc, ve.Message)}
	}
	var out []string
	for _, cause := range ve.Causes {
		out = append(out, flattenViolations(cause)...)
	}
	return out
}
