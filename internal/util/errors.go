package util

import "errors"

var (
	ErrInvalidScheme     = errors.New("invalid classification scheme")
	ErrInvalidAttribute  = errors.New("attribute outside the comparable set")
	ErrInvalidConnection = errors.New("invalid connection type")
	ErrMissingColumn     = errors.New("required column missing")
	ErrMissingKindValue  = errors.New("kind value table incomplete")
	ErrMissingMatchValue = errors.New("match value table incomplete")
	ErrUnknownKind       = errors.New("unknown kind category")
	ErrUnknownPreset     = errors.New("unknown value preset")
	ErrUnsupportedFormat = errors.New("unsupported table format")
	ErrInvalidFilter     = errors.New("invalid output filter")
	ErrSymbolNotFound    = errors.New("symbol not found")
	ErrRunNotFound       = errors.New("run not found")
	ErrEmptyModel        = errors.New("model has no elements")

	ErrRateLimited = errors.New("provider rate limited")
	ErrTransient   = errors.New("transient provider error")
	ErrPermanent   = errors.New("permanent provider error")
)
