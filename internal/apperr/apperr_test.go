package apperr

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWrapMatchesKindAndCause(t *testing.T) {
	err := Wrap(ErrProvider, "embed query", context.DeadlineExceeded)

	if !errors.Is(err, ErrProvider) {
		t.Error("expected errors.Is(err, ErrProvider)")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected cause to be reachable")
	}
	if errors.Is(err, ErrIndex) {
		t.Error("unexpected match on ErrIndex")
	}
	if !strings.Contains(err.Error(), "embed query") {
		t.Errorf("message %q missing op", err.Error())
	}
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(ErrUpstreamUnavailable, "list products", nil)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Error("expected kind match")
	}
	if got := err.Error(); got != "list products: upstream unavailable" {
		t.Errorf("got %q", got)
	}
}

func TestConfigf(t *testing.T) {
	err := Configf("unknown provider %q", "FOO")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatal("expected ErrConfiguration")
	}
	var ae *Error
	if !errors.As(err, &ae) || ae.Op != "config" {
		t.Errorf("expected *Error with op config, got %#v", err)
	}
}
