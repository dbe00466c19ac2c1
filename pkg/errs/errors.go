package errs

import (
	"errors"
	"net/http"
	"strings"
)

const (
	ErrStatusInternalServer         = http.StatusInternalServerError
	ErrStatusClient                 = http.StatusBadRequest
	ErrStatusNotLoggedIn            = http.StatusUnauthorized
	ErrStatusNoPermission           = http.StatusForbidden
	ErrStatusNotFound               = http.StatusNotFound
	ErrStatusFileSizeExceedingLimit = http.StatusRequestEntityTooLarge
	ErrStatusConflict               = http.StatusConflict
)

var (
	ErrInternalServer       = errors.New("Internal server error")
	ErrClient               = errors.New("Bad request")
	ErrNotLoggedIn          = errors.New("Unauthorized access")
	ErrForbidden            = errors.New("Forbidden access")
	ErrNotFound             = errors.New("Resource not found")
	ErrConflict             = errors.New("Conflicting record found")
	ErrValidation           = errors.New("Validation failed")
	ErrUnsupportedMediaType = errors.New("Unsupported media type")
	ErrPayloadTooLarge      = errors.New("Payload too large")
	ErrMalformedFile        = errors.New("Malformed file")
	ErrStorageWrite         = errors.New("Failed to write object to storage")
	ErrStorageDelete        = errors.New("Failed to delete object from storage")
	ErrStorageSign          = errors.New("Failed to sign storage url")
	ErrStorageRead          = errors.New("Failed to read object from storage")
	ErrPersistence          = errors.New("Failed to persist record")
)

var errorMap = map[error]int{
	ErrInternalServer:       ErrStatusInternalServer,
	ErrClient:               ErrStatusClient,
	ErrNotLoggedIn:          ErrStatusNotLoggedIn,
	ErrForbidden:            ErrStatusNoPermission,
	ErrNotFound:             ErrStatusNotFound,
	ErrConflict:             ErrStatusConflict,
	ErrValidation:           ErrStatusClient,
	ErrUnsupportedMediaType: ErrStatusClient,
	ErrPayloadTooLarge:      ErrStatusFileSizeExceedingLimit,
	ErrMalformedFile:        ErrStatusClient,
	ErrStorageWrite:         ErrStatusInternalServer,
	ErrStorageDelete:        ErrStatusInternalServer,
	ErrStorageSign:          ErrStatusInternalServer,
	ErrStorageRead:          ErrStatusInternalServer,
	ErrPersistence:          ErrStatusInternalServer,
}

// GetErrorStatusCode maps err, or any sentinel it wraps, to an HTTP status.
func GetErrorStatusCode(err error) int {
	for sentinel, status := range errorMap {
		if errors.Is(err, sentinel) {
			return status
		}
	}

	return errorMap[ErrInternalServer]
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field level failures. It matches ErrValidation
// under errors.Is.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ErrValidation.Error()
	}

	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}

	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
