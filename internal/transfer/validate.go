package transfer

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

// exportSchema accepts unknown fields so newer exports still import.
const exportSchema = `
#Options: {
	requiresJQuery?: bool
	...
}

#Script: {
	id?:      string
	title:    string
	code:     string
	options?: #Options | null
	...
}

#Export: {
	scripts: [...#Script]
	...
}
`

// A cue.Context is not safe for concurrent use; schemaMu guards it.
var (
	schemaMu   sync.Mutex
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func exportDef() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(exportSchema)
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile export schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Export"))
		schemaErr = schemaDef.Err()
	})
	return schemaCtx, schemaDef, schemaErr
}

// Validate checks that blob is JSON in the export shape: a scripts list
// whose entries carry a string title and code.
func Validate(blob []byte) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, def, err := exportDef()
	if err != nil {
		return err
	}

	expr, err := cuejson.Extract("import.json", blob)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	v := ctx.BuildExpr(expr)
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}
