package models

import (
	"fmt"

	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound reports that the child node does not exist under the parent.
	// Handle lookups report it as an absent value; Read and Write return it.
	ErrNotFound = errors.New("child node not found")

	// ErrNotDeclared reports an accessor used on an object whose type does not
	// declare the property.
	ErrNotDeclared = errors.New("property not declared by object type")

	ErrInvalidDeclaration   = errors.New("invalid property declaration")
	ErrDuplicateDeclaration = errors.New("duplicate property declaration")
	ErrTypeNotRegistered    = errors.New("object type not registered")

	// ErrSessionClosed is returned for work submitted after the session closed.
	ErrSessionClosed = errors.New("session closed")
)

// ServiceError reports a request that could not be completed at all
// (transport failure, timeout, invalid session).
type ServiceError struct {
	Op     string
	NodeID ua.NodeID
	Err    error
}

func (e *ServiceError) Error() string {
	if e.NodeID != nil {
		return fmt.Sprintf("%s %v: service error: %v", e.Op, e.NodeID, e.Err)
	}
	return fmt.Sprintf("%s: service error: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// OperationError reports a request the server rejected for one node.
type OperationError struct {
	Op         string
	NodeID     ua.NodeID
	StatusCode ua.StatusCode
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %v: operation failed: %v (0x%08X)", e.Op, e.NodeID, e.StatusCode, uint32(e.StatusCode))
}

func (e *OperationError) Unwrap() error { return e.StatusCode }

func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

func IsOperationError(err error) bool {
	var oe *OperationError
	return errors.As(err, &oe)
}

// StatusCodeOf returns the server status carried by err, if any.
func StatusCodeOf(err error) (ua.StatusCode, bool) {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.StatusCode, true
	}
	var sc ua.StatusCode
	if errors.As(err, &sc) {
		return sc, true
	}
	return ua.Good, false
}

// AsServiceError returns err unchanged when it is already classified,
// otherwise wraps it as a ServiceError.
func AsServiceError(op string, nodeID ua.NodeID, err error) error {
	if err == nil {
		return nil
	}
	if IsServiceError(err) || IsOperationError(err) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotDeclared) {
		return err
	}
	return &ServiceError{Op: op, NodeID: nodeID, Err: err}
}
