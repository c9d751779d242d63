package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row locked")
	err := Wrap(CodeConflict, cause, "reserve stock")

	if got := err.Error(); got != "CONFLICT: reserve stock" {
		t.Fatalf("unexpected error string %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestAsUnwrapsThroughFmt(t *testing.T) {
	inner := New(CodeStateConflict, "entry already terminal")
	outer := fmt.Errorf("updating queue entry: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", typed.Code())
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{New(CodeConflict, "position race"), true},
		{New(CodeDependency, "db down"), true},
		{New(CodeValidation, "bad input"), false},
		{errors.New("plain"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "missing fields").WithDetails([]string{"material_type"})
	fields, ok := err.Details().([]string)
	if !ok || len(fields) != 1 || fields[0] != "material_type" {
		t.Fatalf("unexpected details %v", err.Details())
	}
}
