package apperrors

import "errors"

var (
	ErrModelNotFound         = errors.New("model not found in registry")
	ErrUnknownToolShape      = errors.New("unrecognized tool definition shape")
	ErrMalformedArguments    = errors.New("malformed tool call arguments")
	ErrTemplateField         = errors.New("template references unavailable field")
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrEmptyCompletion       = errors.New("model returned empty completion")
	ErrUnsupportedToolFormat = errors.New("model does not accept tool definitions")
)
