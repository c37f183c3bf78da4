package main

import (
	"github.com/samber/oops"
)

// fail tags err with code. oops reports the deepest code in a chain, so an
// error that already carries a code is re-raised as a new error holding the
// inner code as cause_code instead of being wrapped.
func fail(code string, err error, kv ...any) error {
	b := oops.Code(code).With(kv...)

	inner, ok := oops.AsOops(err)
	if !ok || inner.Code() == nil || inner.Code() == "" {
		return b.Wrap(err)
	}

	return b.With("cause_code", inner.Code()).Errorf("%v", err)
}
