package models

import (
	"fmt"
	"reflect"

	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
)

// NamespaceUA is the URI of the standard OPC-UA information model.
const NamespaceUA = "http://opcfoundation.org/UA/"

// ValueRank is the declared rank of a property value.
type ValueRank int32

const (
	ValueRankScalar       = ValueRank(ua.ValueRankScalar)
	ValueRankOneDimension = ValueRank(ua.ValueRankOneDimension)
)

func (r ValueRank) String() string {
	switch r {
	case ValueRankScalar:
		return "Scalar"
	case ValueRankOneDimension:
		return "OneDimension"
	default:
		return fmt.Sprintf("ValueRank(%d)", int32(r))
	}
}

// KeyID is the comparable identity of an AttributeKey.
type KeyID struct {
	NamespaceURI string
	BrowseName   string
}

func (id KeyID) String() string {
	if id.NamespaceURI == NamespaceUA {
		return id.BrowseName
	}
	return fmt.Sprintf("nsu=%s;%s", id.NamespaceURI, id.BrowseName)
}

var byteStringType = reflect.TypeOf(ua.ByteString(""))

// AttributeKey identifies a named child of an object type: where to find it
// (namespace + browse name) and what it holds (data type, rank, Go type).
// Two keys are equal when namespace and browse name are equal.
type AttributeKey struct {
	namespaceURI string
	browseName   string
	dataType     ua.NodeID
	valueRank    ValueRank
	declaredType reflect.Type
}

// NewAttributeKey builds a key. An empty namespaceURI means NamespaceUA.
func NewAttributeKey(namespaceURI, browseName string, dataType ua.NodeID, rank ValueRank, declaredType reflect.Type) AttributeKey {
	if namespaceURI == "" {
		namespaceURI = NamespaceUA
	}
	return AttributeKey{
		namespaceURI: namespaceURI,
		browseName:   browseName,
		dataType:     dataType,
		valueRank:    rank,
		declaredType: declaredType,
	}
}

func (k AttributeKey) NamespaceURI() string       { return k.namespaceURI }
func (k AttributeKey) BrowseName() string         { return k.browseName }
func (k AttributeKey) DataType() ua.NodeID        { return k.dataType }
func (k AttributeKey) ValueRank() ValueRank       { return k.valueRank }
func (k AttributeKey) DeclaredType() reflect.Type { return k.declaredType }

func (k AttributeKey) ID() KeyID {
	return KeyID{NamespaceURI: k.namespaceURI, BrowseName: k.browseName}
}

func (k AttributeKey) Equal(other AttributeKey) bool {
	return k.ID() == other.ID()
}

func (k AttributeKey) String() string {
	return k.ID().String()
}

// Validate checks that the declared Go type agrees with the value rank.
func (k AttributeKey) Validate() error {
	if k.browseName == "" {
		return errors.Wrap(ErrInvalidDeclaration, "empty browse name")
	}
	if k.declaredType == nil {
		return errors.Wrapf(ErrInvalidDeclaration, "%s: no declared type", k)
	}
	isSlice := k.declaredType.Kind() == reflect.Slice && k.declaredType != byteStringType
	switch k.valueRank {
	case ValueRankScalar:
		if isSlice {
			return errors.Wrapf(ErrInvalidDeclaration, "%s: scalar property declared as %s", k, k.declaredType)
		}
	case ValueRankOneDimension:
		if !isSlice {
			return errors.Wrapf(ErrInvalidDeclaration, "%s: one-dimension property declared as %s", k, k.declaredType)
		}
	default:
		return errors.Wrapf(ErrInvalidDeclaration, "%s: unsupported value rank %s", k, k.valueRank)
	}
	return nil
}
