package service

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrNotFound    = errors.New("not found")
	ErrGateway     = errors.New("gateway failure")
	ErrPartialJoin = errors.New("partial join failure")
)

// NotFoundError reports that a required single document does not exist.
type NotFoundError struct {
	Kind string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found at %s", e.Kind, e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// GatewayError wraps a failed store operation with the original cause.
type GatewayError struct {
	Op   string
	Path string
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// PartialJoinError reports that one side of a financial range fetch failed.
// Side is "income" or "expenses"; income wins when both failed.
type PartialJoinError struct {
	Side string
	Err  error
}

func (e *PartialJoinError) Error() string {
	return fmt.Sprintf("%s fetch failed: %v", e.Side, e.Err)
}

func (e *PartialJoinError) Unwrap() error { return e.Err }

func (e *PartialJoinError) Is(target error) bool { return target == ErrPartialJoin }
