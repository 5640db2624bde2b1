package runner

import (
	"errors"

	"github.com/roach88/scriptrunner/internal/script"
	"github.com/roach88/scriptrunner/internal/session"
	"github.com/roach88/scriptrunner/internal/store"
	"github.com/roach88/scriptrunner/internal/transfer"
)

// Errors returned by the Runner. Match them with errors.Is.
var (
	// ErrNotFound: a referenced script id is absent.
	ErrNotFound = script.ErrNotFound

	// ErrStoreUnavailable: the store could not be read or written. The
	// in-memory change of the failed operation is kept.
	ErrStoreUnavailable = store.ErrUnavailable

	// ErrCorruptState: the persisted snapshot does not decode.
	ErrCorruptState = errors.New("corrupt persisted state")

	// ErrMalformedImport: an import blob is not a valid export. The
	// collection is left untouched.
	ErrMalformedImport = transfer.ErrMalformed

	// ErrTransferUnavailable: an export or import file could not be moved.
	ErrTransferUnavailable = transfer.ErrUnavailable

	// ErrInjectionDependencyMissing: a script needs the library payload but
	// none is cached.
	ErrInjectionDependencyMissing = errors.New("injection dependency missing")

	// ErrHostExecution: the executor refused or failed to run code.
	ErrHostExecution = errors.New("host execution failed")

	// ErrEditorClosed: the operation needs an open editor.
	ErrEditorClosed = session.ErrEditorClosed

	// ErrNoMatch: a search run found nothing to run.
	ErrNoMatch = errors.New("no script matches")

	// ErrUnknownCommand: Dispatch got a command kind it does not handle.
	ErrUnknownCommand = errors.New("unknown command")
)

// ErrorCode is a stable name for an error category, used in
// machine-readable output.
type ErrorCode string

const (
	CodeNotFound                   ErrorCode = "NOT_FOUND"
	CodeStoreUnavailable           ErrorCode = "STORE_UNAVAILABLE"
	CodeCorruptState               ErrorCode = "CORRUPT_STATE"
	CodeMalformedImport            ErrorCode = "MALFORMED_IMPORT"
	CodeTransferUnavailable        ErrorCode = "TRANSFER_UNAVAILABLE"
	CodeInjectionDependencyMissing ErrorCode = "INJECTION_DEPENDENCY_MISSING"
	CodeHostExecution              ErrorCode = "HOST_EXECUTION"
	CodeEditorClosed               ErrorCode = "EDITOR_CLOSED"
	CodeNoMatch                    ErrorCode = "NO_MATCH"
	CodeUnknown                    ErrorCode = "UNKNOWN"
)

// codeOrder lists categories most specific first: a missing dependency may
// also wrap a store failure.
var codeOrder = []struct {
	err  error
	code ErrorCode
}{
	{ErrInjectionDependencyMissing, CodeInjectionDependencyMissing},
	{ErrHostExecution, CodeHostExecution},
	{ErrCorruptState, CodeCorruptState},
	{ErrMalformedImport, CodeMalformedImport},
	{ErrTransferUnavailable, CodeTransferUnavailable},
	{ErrStoreUnavailable, CodeStoreUnavailable},
	{ErrNotFound, CodeNotFound},
	{ErrEditorClosed, CodeEditorClosed},
	{ErrNoMatch, CodeNoMatch},
}

// CodeOf classifies err. Unrecognized errors are CodeUnknown.
func CodeOf(err error) ErrorCode {
	for _, c := range codeOrder {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}
