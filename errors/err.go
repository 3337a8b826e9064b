package errors

import (
	"fmt"
)

var (
	ErrInvalidConfig    = fmt.Errorf("personachat: invalid config")
	ErrNotFound         = fmt.Errorf("personachat: not found")
	ErrAlreadyExists    = fmt.Errorf("personachat: already exists")
	ErrInvalidParams    = fmt.Errorf("personachat: invalid params")
	ErrInternal         = fmt.Errorf("personachat: internal error")
	ErrNoActivePersona  = fmt.Errorf("personachat: no active persona, name a persona to start (e.g. \"act like my mentor\")")
	ErrModelInvocation  = fmt.Errorf("personachat: model invocation failed")
	ErrStoreUnavailable = fmt.Errorf("personachat: store unavailable")
	ErrRateLimited      = fmt.Errorf("personachat: rate limited")
)

const (
	CodeInvalidConfig    = "invalid_config"
	CodeNotFound         = "not_found"
	CodeAlreadyExists    = "already_exists"
	CodeInvalidParams    = "invalid_params"
	CodeInternal         = "internal"
	CodeNoActivePersona  = "no_active_persona"
	CodeModelInvocation  = "model_invocation_failed"
	CodeStoreUnavailable = "store_unavailable"
	CodeRateLimited      = "rate_limited"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidParams, CodeInvalidParams},
	{ErrNoActivePersona, CodeNoActivePersona},
	{ErrNotFound, CodeNotFound},
	{ErrAlreadyExists, CodeAlreadyExists},
	{ErrModelInvocation, CodeModelInvocation},
	{ErrStoreUnavailable, CodeStoreUnavailable},
	{ErrRateLimited, CodeRateLimited},
	{ErrInvalidConfig, CodeInvalidConfig},
	{ErrInternal, CodeInternal},
}

// Code returns the stable identifier reported to callers for err.
// Errors that wrap none of the sentinels are internal.
func Code(err error) string {
	for _, c := range codes {
		if Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
