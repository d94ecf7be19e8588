package httpadapter

import (
	"errors"
	"net/http"

	"github.com/lendware/docflow/internal/core/domain"
)

var (
	errMultipartFile   = errors.New("multipart field 'file' is required")
	errInvalidJSON     = errors.New("invalid json")
	errUnknownCategory = errors.New("unknown category code")
	errMissingIdentity = errors.New("X-User-Id and X-Tenant-Id headers are required")
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrRequestTooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case domain.IsKind(err, domain.ErrTaxonomyNotSeeded):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
