// Package validate checks request bodies against the CUE definitions in
// schema.cue before they are decoded into domain inputs.
package validate

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/matthewbaird/rentaldesk/internal/types"
)

//go:embed schema.cue
var schemaSource []byte

// Definitions in schema.cue.
const (
	CreateRental      = "#CreateRental"
	LinkTenant        = "#LinkTenant"
	OverrideReason    = "#OverrideReason"
	Charge            = "#Charge"
	MarkPaid          = "#MarkPaid"
	RenewalRequest    = "#RenewalRequest"
	RenewalDecision   = "#RenewalDecision"
	CommissionPreview = "#CommissionPreview"
	Commission        = "#Commission"
	CommissionPayment = "#CommissionPayment"
	CommissionCancel  = "#CommissionCancel"
)

// Validator holds the compiled schema. A cue.Context is not safe for
// concurrent use, so every check takes the lock.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling request schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// Check validates body against definition. Failures are returned as a
// *types.ValidationError naming the first offending field.
func (v *Validator) Check(definition string, body []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	def := v.schema.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("validate: unknown definition %s", definition)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	expr, err := cuejson.Extract("body", body)
	if err != nil {
		return types.NewValidationError("body", "malformed JSON")
	}
	data := v.ctx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return types.NewValidationError("body", "malformed JSON")
	}
	if err := def.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return types.NewValidationError("body", "%v", err)
	}
	e := errs[0]
	var parts []string
	for _, sel := range e.Path() {
		if !strings.HasPrefix(sel, "#") {
			parts = append(parts, sel)
		}
	}
	field := strings.Join(parts, ".")
	if field == "" {
		field = "body"
	}
	format, args := e.Msg()
	return types.NewValidationError(field, format, args...)
}
