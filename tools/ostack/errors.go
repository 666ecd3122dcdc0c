package ostack

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("invalid options")
	ErrAuth                 = errors.New("authentication failed")
	ErrCatalogEntryNotFound = errors.New("catalog entry not found")
	ErrRegionNotFound       = errors.New("region not found")
	ErrURLRoleNotFound      = errors.New("url role not found")
	ErrUnsupportedService   = errors.New("unsupported service")
)

// ValidationError names the first option that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: missing %s", ErrValidation, e.Field)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// AuthError carries the identity service response for diagnostics.
// Status is 0 when the request never got a response.
type AuthError struct {
	URL    string
	Status int
	Body   []byte
	Err    error
}

func (e *AuthError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s: POST %s: %v", ErrAuth, e.URL, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: POST %s: HTTP %d: %v", ErrAuth, e.URL, e.Status, e.Err)
	default:
		return fmt.Sprintf("%s: POST %s: HTTP %d: %s", ErrAuth, e.URL, e.Status, truncate(e.Body, 256))
	}
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

func (e *AuthError) Unwrap() error { return e.Err }

type CatalogEntryNotFoundError struct {
	Type string
	Name string
}

func (e *CatalogEntryNotFoundError) Error() string {
	return fmt.Sprintf("%s: type=%q name=%q", ErrCatalogEntryNotFound, e.Type, e.Name)
}

func (e *CatalogEntryNotFoundError) Is(target error) bool { return target == ErrCatalogEntryNotFound }

type RegionNotFoundError struct {
	Type   string
	Name   string
	Region string
}

func (e *RegionNotFoundError) Error() string {
	return fmt.Sprintf("%s: type=%q name=%q region=%q", ErrRegionNotFound, e.Type, e.Name, e.Region)
}

func (e *RegionNotFoundError) Is(target error) bool { return target == ErrRegionNotFound }

type URLRoleNotFoundError struct {
	Type   string
	Name   string
	Region string
	Role   URLRole
}

func (e *URLRoleNotFoundError) Error() string {
	return fmt.Sprintf("%s: type=%q name=%q region=%q role=%s", ErrURLRoleNotFound, e.Type, e.Name, e.Region, e.Role)
}

func (e *URLRoleNotFoundError) Is(target error) bool { return target == ErrURLRoleNotFound }

type UnsupportedServiceError struct {
	Service string
	Version int
}

func (e *UnsupportedServiceError) Error() string {
	return fmt.Sprintf("%s: %s v%d", ErrUnsupportedService, e.Service, e.Version)
}

func (e *UnsupportedServiceError) Is(target error) bool { return target == ErrUnsupportedService }

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
