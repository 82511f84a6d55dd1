package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cases := map[string]error{
		"knowledge.publish: ceiling (publish_failed)": NewError(CodePublishFailed, "knowledge.publish", "ceiling", nil),
		"knowledge.publish (forbidden)":               NewError(CodeForbidden, " knowledge.publish ", "", nil),
		"no isbn (validation)":                        NewError(CodeValidation, "", "no isbn", nil),
		"internal":                                    NewError(CodeInternal, "", "", nil),
	}
	for want, err := range cases {
		if got := err.Error(); got != want {
			t.Fatalf("want=%q got=%q", want, got)
		}
	}
}

func TestCodeMatching(t *testing.T) {
	cause := errors.New("isbndb down")
	err := fmt.Errorf("resolve: %w", Wrap(CodeExternalLookup, "isbndb.lookup", cause))

	if !IsCode(err, CodeExternalLookup) || IsCode(err, CodeNotFound) || IsCode(nil, "") {
		t.Fatalf("IsCode mismatch for %v", err)
	}
	if !errors.Is(err, &Error{Code: CodeExternalLookup}) || errors.Is(err, &Error{Code: CodeInternal}) {
		t.Fatalf("errors.Is on code mismatch")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	if Wrap(CodeInternal, "x", nil) != nil {
		t.Fatalf("Wrap(nil) must be nil")
	}
	if !Retryable(NewError(CodeConflict, "", "", nil)) || Retryable(err) {
		t.Fatalf("Retryable mismatch")
	}
}
