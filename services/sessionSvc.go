package services

import (
	"io"
	"time"

	"github.com/amine-amaach/uafacade/ports"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Session binds object facades to one server connection. All objects bound
// through it share its transport and its dispatcher.
type Session struct {
	transport  ports.SessionTransport
	dispatcher *Dispatcher
	log        *logrus.Logger
	handleTTL  time.Duration
	timeout    time.Duration
	maxWorkers int
}

type SessionOption func(*Session)

// WithLogger sets the session logger. Sessions log nothing by default.
func WithLogger(log *logrus.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithHandleTTL makes resolved node handles expire ttl after resolution.
// Zero, the default, keeps them for the lifetime of the object.
func WithHandleTTL(ttl time.Duration) SessionOption {
	return func(s *Session) { s.handleTTL = ttl }
}

// WithRequestTimeout bounds browses shared between callers, which do not run
// on any single caller's context. Defaults to DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.timeout = d }
}

// WithMaxConcurrentRequests bounds the number of requests in flight.
func WithMaxConcurrentRequests(n int) SessionOption {
	return func(s *Session) { s.maxWorkers = n }
}

func NewSession(transport ports.SessionTransport, opts ...SessionOption) *Session {
	s := &Session{
		transport:  transport,
		timeout:    DefaultRequestTimeout,
		maxWorkers: DefaultMaxConcurrentRequests,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logrus.New()
		s.log.SetOutput(io.Discard)
	}
	s.dispatcher = NewDispatcher(s.maxWorkers, s.log)
	return s
}

func (s *Session) Transport() ports.SessionTransport { return s.transport }
func (s *Session) Dispatcher() *Dispatcher           { return s.dispatcher }
func (s *Session) Logger() *logrus.Logger            { return s.log }

// Bind creates the facade instance of nodeID seen as type t. No request is
// sent; children are resolved on first access.
func (s *Session) Bind(nodeID ua.NodeID, t *ObjectType) (*Object, error) {
	if t == nil || !t.Registered() {
		return nil, errors.Wrapf(models.ErrTypeNotRegistered, "binding %v", nodeID)
	}
	if nodeID == nil {
		return nil, errors.Wrapf(models.ErrNotFound, "binding %s: nil node id", t)
	}
	s.log.WithFields(logrus.Fields{
		"Node Id": nodeID,
		"Type":    t.Name(),
	}).Debugln("Object bound 🔔")
	return newObject(s, nodeID, t), nil
}

// Close waits for pending operations and rejects new ones. The transport is
// owned by the caller and stays open.
func (s *Session) Close() {
	s.dispatcher.Close()
	s.log.Infoln("Session closed ✅")
}
