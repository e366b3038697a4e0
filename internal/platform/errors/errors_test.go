package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeInvalidArgument, http.StatusUnprocessableEntity},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeJSON, http.StatusBadRequest},
		{ErrorCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrorCodeUpstream, http.StatusBadGateway},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeMissingCredential, http.StatusServiceUnavailable},
		{ErrorCodeDB, http.StatusInternalServerError},
		{ErrorCodePanic, http.StatusInternalServerError},
		{ErrorCodeUnknown, http.StatusInternalServerError},
		{9999, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestErrorTypeAndMethods(t *testing.T) {
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil *Error render = %q, want <nil>", e.Error())
	}

	e1 := New(ErrorCodeValidation, "bad stuff")
	if CodeOf(e1) != ErrorCodeValidation {
		t.Fatalf("CodeOf(New) = %v", CodeOf(e1))
	}
	e2 := Newf(ErrorCodeJSON, "bad json %d", 12)
	if got := e2.Error(); got != "bad json 12" {
		t.Fatalf("Newf().Error = %q", got)
	}

	src := stderrs.New("root")
	e3 := Wrap(src, ErrorCodeDB, "db failed")
	if u := stderrs.Unwrap(e3); u == nil || u.Error() != "root" {
		t.Fatalf("Wrap did not keep orig")
	}
	if got := e3.Error(); got != "db failed: root" {
		t.Fatalf("Wrap().Error = %q", got)
	}
	if Root(e3) != src {
		t.Fatalf("Root did not return the original cause")
	}
	if WrapIf(nil, ErrorCodeDB, "x") != nil {
		t.Fatalf("WrapIf(nil) should be nil")
	}
}

func TestIsCode_WalksChain(t *testing.T) {
	inner := Newf(ErrorCodeTooManyRequests, "429 after %d attempts", 5)
	outer := Wrap(inner, ErrorCodeUnknown, "fetch page 3")
	wrapped := fmt.Errorf("region US: %w", outer)

	if !IsCode(wrapped, ErrorCodeTooManyRequests) {
		t.Fatalf("IsCode should find the inner code through wrappers")
	}
	if IsCode(wrapped, ErrorCodeUpstream) {
		t.Fatalf("IsCode matched a code that is not in the chain")
	}
	if CodeOf(wrapped) != ErrorCodeUnknown {
		t.Fatalf("CodeOf should report the outermost code, got %v", CodeOf(wrapped))
	}
}

func TestWireFromAndField(t *testing.T) {
	if w := WireFrom(nil); w != (Wire{}) {
		t.Fatalf("WireFrom(nil) = %+v", w)
	}
	w := WireFrom(stderrs.New("plain"))
	if w.Code != ErrorCodeUnknown || w.Message != "plain" {
		t.Fatalf("WireFrom(foreign) = %+v", w)
	}
	err := WithField(InvalidArgf("limit out of range"), "limit")
	w = WireFrom(err)
	if w.Field != "limit" || w.Code != ErrorCodeInvalidArgument {
		t.Fatalf("WireFrom(field) = %+v", w)
	}
	status, wire := HTTP(err)
	if status != http.StatusUnprocessableEntity || wire.Field != "limit" {
		t.Fatalf("HTTP() = %d %+v", status, wire)
	}
}

func TestCodeString(t *testing.T) {
	if ErrorCodeTooManyRequests.String() != "rate_limit_exhausted" {
		t.Fatalf("unexpected name %q", ErrorCodeTooManyRequests.String())
	}
	if ErrorCode(999).String() != "unknown" {
		t.Fatalf("unexpected default name")
	}
}

func TestPostgresHelpers(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "40001"}
	wrapped := FromPostgres(pgErr, "insert rows")
	if !IsRetryable(wrapped) {
		t.Fatalf("serialization failure should be retryable")
	}
	if CodeOf(wrapped) != ErrorCodeDB {
		t.Fatalf("FromPostgres code = %v", CodeOf(wrapped))
	}
	if IsRetryable(Wrap(&pgconn.PgError{Code: "23505"}, ErrorCodeDB, "insert run")) {
		t.Fatalf("unique violation is not transient")
	}
	if CodeOf(FromPostgres(&pgconn.PgError{Code: "57P03"}, "connect")) != ErrorCodeUnavailable {
		t.Fatalf("57P03 should map to unavailable")
	}
	if IsRetryable(context.Canceled) {
		t.Fatalf("cancellation must not be retryable")
	}
	if !IsRetryable(stderrs.New("ERROR: deadlock detected")) {
		t.Fatalf("text fallback should detect deadlocks")
	}
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("FromPostgres(nil) should be nil")
	}
}
