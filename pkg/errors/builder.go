package errors

import (
	"fmt"
	"net/http"
	"sync"
)

// ============================================================================
// Service Registration
// ============================================================================

// serviceRegistry tracks registered service codes to prevent conflicts.
var (
	serviceRegistry = make(map[int]string) // service code -> service name
	serviceMu       sync.RWMutex
)

// RegisterService registers a service code with a name.
// Panics if the service code is already registered by another service.
func RegisterService(code int, name string) {
	serviceMu.Lock()
	defer serviceMu.Unlock()

	if existing, ok := serviceRegistry[code]; ok {
		if existing != name {
			panic(fmt.Sprintf("service code %d already registered by '%s', cannot register for '%s'", code, existing, name))
		}
		return
	}
	serviceRegistry[code] = name
}

// GetServiceName returns the registered name for a service code.
func GetServiceName(code int) (string, bool) {
	serviceMu.RLock()
	defer serviceMu.RUnlock()
	name, ok := serviceRegistry[code]
	return name, ok
}

// ============================================================================
// Error Builder
// ============================================================================

// ErrnoBuilder provides a fluent API for building error codes.
//
// Example:
//
//	var ErrGuideNotFound = errors.NewBuilder(ServiceGuidebot, errors.CategoryResource, 1).
//	    HTTP(http.StatusNotFound).
//	    Message("Guide not found", "الدليل غير موجود").
//	    MustBuild()
type ErrnoBuilder struct {
	service   int
	category  int
	sequence  int
	http      int
	messageEN string
	messageAR string
}

// NewBuilder creates a new ErrnoBuilder with the given service, category, and sequence.
func NewBuilder(service, category, sequence int) *ErrnoBuilder {
	return &ErrnoBuilder{
		service:  service,
		category: category,
		sequence: sequence,
		http:     http.StatusInternalServerError,
	}
}

// HTTP sets the HTTP status code.
func (b *ErrnoBuilder) HTTP(status int) *ErrnoBuilder {
	b.http = status
	return b
}

// Message sets both English and Arabic messages.
func (b *ErrnoBuilder) Message(en, ar string) *ErrnoBuilder {
	b.messageEN = en
	b.messageAR = ar
	return b
}

// MessageEN sets only the English message.
func (b *ErrnoBuilder) MessageEN(en string) *ErrnoBuilder {
	b.messageEN = en
	return b
}

// Build creates and registers the Errno.
// Returns an error if registration fails (e.g., duplicate code).
func (b *ErrnoBuilder) Build() (*Errno, error) {
	if b.messageEN == "" {
		return nil, fmt.Errorf("English message is required")
	}

	e := &Errno{
		Code:      MakeCode(b.service, b.category, b.sequence),
		HTTP:      b.http,
		MessageEN: b.messageEN,
		MessageAR: b.messageAR,
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := errnoRegistry[e.Code]; ok {
		return nil, fmt.Errorf("errno code %d already registered: %s", e.Code, existing.MessageEN)
	}
	errnoRegistry[e.Code] = e

	return e, nil
}

// MustBuild creates and registers the Errno.
// Panics if registration fails.
func (b *ErrnoBuilder) MustBuild() *Errno {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// ============================================================================
// Preset Builders for Common Categories
// ============================================================================

// NewRequestError creates a builder for request/validation errors (HTTP 400).
func NewRequestError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryRequest, sequence).HTTP(http.StatusBadRequest)
}

// NewAuthError creates a builder for authentication errors (HTTP 401).
func NewAuthError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryAuth, sequence).HTTP(http.StatusUnauthorized)
}

// NewInternalError creates a builder for internal errors (HTTP 500).
func NewInternalError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryInternal, sequence).HTTP(http.StatusInternalServerError)
}

// NewDatabaseError creates a builder for database errors (HTTP 500).
func NewDatabaseError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryDatabase, sequence).HTTP(http.StatusInternalServerError)
}

// NewNetworkError creates a builder for network errors (HTTP 503).
func NewNetworkError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryNetwork, sequence).HTTP(http.StatusServiceUnavailable)
}

// NewTimeoutError creates a builder for timeout errors (HTTP 504).
func NewTimeoutError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryTimeout, sequence).HTTP(http.StatusGatewayTimeout)
}

// NewConfigError creates a builder for configuration errors (HTTP 500).
func NewConfigError(service, sequence int) *ErrnoBuilder {
	return NewBuilder(service, CategoryConfig, sequence).HTTP(http.StatusInternalServerError)
}
