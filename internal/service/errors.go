package service

import "errors"

var (
	// ErrNotFound maps to 404 in the HTTP layer.
	ErrNotFound = errors.New("not found")
	// ErrValidation wraps field-level validation failures; maps to 400.
	ErrValidation = errors.New("validation")
	// ErrScenarioDisabled is returned when a fault trigger requires its
	// toggle to be on first.
	ErrScenarioDisabled = errors.New("scenario not enabled")
	// ErrUnknownScenario is returned for unrecognized scenario names.
	ErrUnknownScenario = errors.New("unknown scenario")
)
