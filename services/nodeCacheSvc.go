package services

import (
	"context"
	"time"

	"github.com/amine-amaach/uafacade/ports"
	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
	"github.com/jellydator/ttlcache/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// NodeCache maps the declared children of one parent node to their resolved
// node ids. Entries are created on first access; with a zero ttl they live as
// long as the cache, otherwise they expire ttl after resolution.
type NodeCache struct {
	parent    ua.NodeID
	transport ports.SessionTransport
	handles   *ttlcache.Cache[models.KeyID, ua.NodeID]
	flights   singleflight.Group
	timeout   time.Duration
	log       *logrus.Logger
}

type NodeCacheOption func(*NodeCache)

// WithResolveTimeout bounds a shared browse. Defaults to
// DefaultRequestTimeout.
func WithResolveTimeout(d time.Duration) NodeCacheOption {
	return func(c *NodeCache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

type resolution struct {
	nodeID ua.NodeID
	found  bool
}

func NewNodeCache(parent ua.NodeID, transport ports.SessionTransport, ttl time.Duration, log *logrus.Logger, opts ...NodeCacheOption) *NodeCache {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	c := &NodeCache{
		parent:    parent,
		transport: transport,
		handles: ttlcache.New[models.KeyID, ua.NodeID](
			ttlcache.WithTTL[models.KeyID, ua.NodeID](ttl),
			ttlcache.WithDisableTouchOnHit[models.KeyID, ua.NodeID](),
		),
		timeout: DefaultRequestTimeout,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Parent is the node whose children this cache resolves.
func (c *NodeCache) Parent() ua.NodeID { return c.parent }

// Lookup returns a cached handle without any I/O.
func (c *NodeCache) Lookup(key models.AttributeKey) (ua.NodeID, bool) {
	item := c.handles.Get(key.ID())
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Resolve returns the handle of the child named by key, browsing for it on
// first use. Concurrent calls for the same key share a single browse, which
// runs detached from any one caller: a caller whose ctx ends stops waiting
// without failing the others. A missing child yields (nil, false, nil) and is
// not cached.
func (c *NodeCache) Resolve(ctx context.Context, key models.AttributeKey) (ua.NodeID, bool, error) {
	if id, ok := c.Lookup(key); ok {
		return id, true, nil
	}
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key.String(), func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(flightCtx, c.timeout)
		defer cancel()
		return c.browse(ctx, key)
	})

	select {
	case <-ctx.Done():
		c.log.WithFields(logrus.Fields{
			"Parent":      c.parent,
			"Browse Name": key.String(),
			"Err":         ctx.Err(),
		}).Debugln("Stopped waiting for child node 🔔")
		return nil, false, &models.ServiceError{Op: "browse", NodeID: c.parent, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			c.log.WithFields(logrus.Fields{
				"Parent":      c.parent,
				"Browse Name": key.String(),
				"Shared":      res.Shared,
				"Err":         res.Err,
			}).Warnln("Couldn't resolve child node ⛔")
			return nil, false, res.Err
		}
		r := res.Val.(resolution)
		return r.nodeID, r.found, nil
	}
}

func (c *NodeCache) browse(ctx context.Context, key models.AttributeKey) (resolution, error) {
	// a flight that finished just before this one may have filled the cache
	if id, ok := c.Lookup(key); ok {
		return resolution{nodeID: id, found: true}, nil
	}
	id, found, err := c.transport.Browse(ctx, c.parent, key.BrowseName(), key.NamespaceURI())
	if err != nil {
		return resolution{}, models.AsServiceError("browse", c.parent, err)
	}
	if !found || id == nil {
		c.log.WithFields(logrus.Fields{
			"Parent":      c.parent,
			"Browse Name": key.String(),
		}).Debugln("Child node not found 🔔")
		return resolution{}, nil
	}
	c.handles.Set(key.ID(), id, ttlcache.DefaultTTL)
	c.log.WithFields(logrus.Fields{
		"Parent":      c.parent,
		"Browse Name": key.String(),
		"Node Id":     id,
	}).Debugln("Child node resolved ✅")
	return resolution{nodeID: id, found: true}, nil
}

// Len is the number of cached handles, including expired ones not yet evicted.
func (c *NodeCache) Len() int {
	return c.handles.Len()
}

// Invalidate drops the cached handle for key.
func (c *NodeCache) Invalidate(key models.AttributeKey) {
	c.handles.Delete(key.ID())
}
