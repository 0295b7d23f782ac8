package domain

import "errors"

var (
	ErrEmptyURL     = errors.New("empty url")
	ErrInvalidURL   = errors.New("invalid url")
	ErrURLTooLong   = errors.New("url too long")
	ErrFieldTooLong = errors.New("field too long")
	ErrBadLanguage  = errors.New("unsupported language")
)

var (
	ErrDomainMissing = errors.New("domain does not exist")
	ErrLLMFailed     = errors.New("llm request failed")
)
