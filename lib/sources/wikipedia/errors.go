package wikipedia

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAmbiguous = errors.New("ambiguous page title")
	ErrNotFound  = errors.New("page not found")
)

// AmbiguousReferenceError is returned when a title resolves to a disambiguation page.
type AmbiguousReferenceError struct {
	Title string
	// Options are the titles of the pages the disambiguation page lists.
	Options []string
}

func (e *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf(
		"%q may refer to: %s",
		e.Title, strings.Join(e.Options, ", "),
	)
}

func (e *AmbiguousReferenceError) Is(target error) bool {
	return target == ErrAmbiguous
}

type NotFoundError struct {
	Title string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("page %q does not match any pages", e.Title)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// APIError is an error the MediaWiki API reports in the body of a successful response.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mediawiki api: %s: %s", e.Code, e.Info)
}
