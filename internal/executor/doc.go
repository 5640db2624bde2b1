// Package executor provides hosts that run injected script code.
//
// An executor stands for one host page: everything injected into the same
// executor shares one global scope, so a library injected first is visible
// to the code injected after it.
//
//   - Goja runs code in an embedded JavaScript VM.
//   - Remote forwards code over a websocket to an external host, such as a
//     browser extension bridge.
//
// Failures wrap ErrRefused when the host declines the code, ErrScript when
// the code throws, and ErrTimeout when it does not finish in time.
package executor

import "errors"

var (
	ErrRefused = errors.New("host refused injection")
	ErrScript  = errors.New("script failed")
	ErrTimeout = errors.New("script timed out")
)
