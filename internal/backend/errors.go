package backend

import "errors"

// Stable DAP error codes surfaced on ErrorResponse.Body.Error.Id, per spec.md §7.
const (
	ErrCodeVersionMismatch    = 2001
	ErrCodeThreads            = 2003
	ErrCodeStackTrace         = 2004
	ErrCodeScopesLocals       = 2005
	ErrCodeFunctionArgs       = 2006
	ErrCodeGlobals            = 2007
	ErrCodeSetBreakpointsHalt = 2008
	ErrCodeEvaluate           = 2009
	ErrCodePauseSetVariable   = 2010
	ErrCodeLaunchAttach       = 3000
)

// ErrBackendClosed is returned by Transport.Call once the connection has
// been closed, whether deliberately (disconnect) or because the backend
// process exited.
var ErrBackendClosed = errors.New("backend: connection closed")

// ErrVersionMismatch is returned during initialize when the backend's
// reported API version does not match the client-selected dialect.
var ErrVersionMismatch = errors.New("backend: apiVersion mismatch, check the apiVersion launch setting")
