package domain

import "errors"

// Error classes shared by every component. Wrap them with %w and test with
// errors.Is.
var (
	ErrConfig     = errors.New("config error")
	ErrLoad       = errors.New("load error")
	ErrChunk      = errors.New("chunk error")
	ErrEmbed      = errors.New("embed error")
	ErrStore      = errors.New("store error")
	ErrGeneration = errors.New("generation error")
)
