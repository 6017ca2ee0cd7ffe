package services

import (
	"reflect"

	"github.com/amine-amaach/uafacade/services/models"
	"github.com/awcullen/opcua/ua"
)

// decodeVariant converts a value received from the server into T.
// A null variant decodes to the zero value.
func decodeVariant[T any](nodeID ua.NodeID, v ua.Variant) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	// arrays of BaseDataType come back as []ua.Variant
	if vs, ok := v.([]ua.Variant); ok {
		target := reflect.TypeOf(zero)
		if target != nil && target.Kind() == reflect.Slice {
			out := reflect.MakeSlice(target, len(vs), len(vs))
			elem := target.Elem()
			for i, e := range vs {
				if e == nil {
					continue
				}
				ev := reflect.ValueOf(e)
				if !ev.Type().AssignableTo(elem) {
					return zero, &models.OperationError{Op: "decode", NodeID: nodeID, StatusCode: ua.BadTypeMismatch}
				}
				out.Index(i).Set(ev)
			}
			return out.Interface().(T), nil
		}
	}
	return zero, &models.OperationError{Op: "decode", NodeID: nodeID, StatusCode: ua.BadTypeMismatch}
}
