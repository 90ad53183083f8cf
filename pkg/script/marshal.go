// Package script is the host embedding API: compiling source text to a
// bytecode Unit, wiring host functions and types into a Context, and
// driving a VM against the result. It plays the role
// funvibe-funxy/pkg/embed plays for that language — New/Bind/Set/Get/
// Call/Eval/LoadFile — generalized from that package's evaluator.Object
// marshalling to this spec's value.Value/managed-heap model.
package script

import (
	"fmt"
	"reflect"

	"github.com/loom-lang/loom/internal/value"
)

// Marshaller converts between Go values and the VM's value.Value
// representation, grounded on funvibe-funxy/pkg/embed's
// Marshaller.ToValue/FromValue reflect-driven switch, adapted to a
// tagged Value plus a managed Heap rather than a tree of
// evaluator.Object interfaces.
type Marshaller struct{}

func NewMarshaller() *Marshaller { return &Marshaller{} }

// ToValue converts a Go value into a script Value, allocating into
// heap whenever the result is a managed payload.
func (m *Marshaller) ToValue(heap *value.Heap, val interface{}) (value.Value, error) {
	if val == nil {
		return value.Unit, nil
	}
	if v, ok := val.(value.Value); ok {
		return v, nil
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Integer(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.Integer(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.Float(rv.Float()), nil
	case reflect.Bool:
		return value.Bool(rv.Bool()), nil
	case reflect.String:
		slot := heap.Allocate(&value.String{S: rv.String()})
		return value.Managed(slot), nil
	case reflect.Slice, reflect.Array:
		elems := make([]value.Value, rv.Len())
		for i := range elems {
			ev, err := m.ToValue(heap, rv.Index(i).Interface())
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = ev
		}
		slot := heap.Allocate(&value.Vec{Elems: elems})
		return value.Managed(slot), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value.Value{}, fmt.Errorf("script: only string-keyed maps can be marshalled, got %s", rv.Type())
		}
		obj := value.NewObject()
		iter := rv.MapRange()
		for iter.Next() {
			ev, err := m.ToValue(heap, iter.Value().Interface())
			if err != nil {
				return value.Value{}, err
			}
			obj.Set(iter.Key().String(), ev)
		}
		slot := heap.Allocate(obj)
		return value.Managed(slot), nil
	case reflect.Struct:
		obj := value.NewObject()
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			ev, err := m.ToValue(heap, rv.Field(i).Interface())
			if err != nil {
				return value.Value{}, err
			}
			obj.Set(f.Name, ev)
		}
		slot := heap.Allocate(obj)
		return value.Managed(slot), nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return value.Unit, nil
		}
		return m.ToValue(heap, rv.Elem().Interface())
	default:
		return value.Value{}, fmt.Errorf("script: cannot marshal Go value of kind %s", rv.Kind())
	}
}

// FromValue converts a script Value back into a Go value, consulting
// heap for managed payloads. targetType, if non-nil, steers numeric
// width and slice/map element conversion the way funxy's
// Marshaller.FromValue does.
func (m *Marshaller) FromValue(heap *value.Heap, v value.Value, targetType reflect.Type) (interface{}, error) {
	switch v.Kind {
	case value.KUnit:
		return nil, nil
	case value.KBool:
		return v.AsBool(), nil
	case value.KByte:
		return v.AsByte(), nil
	case value.KChar:
		return v.AsChar(), nil
	case value.KInteger:
		if targetType != nil {
			switch targetType.Kind() {
			case reflect.Int:
				return int(v.AsInteger()), nil
			case reflect.Float64:
				return float64(v.AsInteger()), nil
			case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
				reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Float32:
				return reflect.ValueOf(v.AsInteger()).Convert(targetType).Interface(), nil
			}
		}
		return int(v.AsInteger()), nil
	case value.KFloat:
		if targetType != nil && targetType.Kind() == reflect.Float32 {
			return reflect.ValueOf(v.AsFloat()).Convert(targetType).Interface(), nil
		}
		return v.AsFloat(), nil
	case value.KManaged:
		return m.fromManaged(heap, v, targetType)
	default:
		return nil, fmt.Errorf("script: cannot unmarshal value of kind %s", v.Kind)
	}
}

func (m *Marshaller) fromManaged(heap *value.Heap, v value.Value, targetType reflect.Type) (interface{}, error) {
	payload := heap.Payload(v.Slot)
	switch p := payload.(type) {
	case *value.String:
		return p.S, nil
	case *value.Vec:
		elemType := reflect.TypeOf((*interface{})(nil)).Elem()
		if targetType != nil && (targetType.Kind() == reflect.Slice || targetType.Kind() == reflect.Array) {
			elemType = targetType.Elem()
		}
		out := reflect.MakeSlice(reflect.SliceOf(elemType), 0, len(p.Elems))
		for _, el := range p.Elems {
			gv, err := m.FromValue(heap, el, elemType)
			if err != nil {
				return nil, err
			}
			if gv == nil {
				out = reflect.Append(out, reflect.Zero(elemType))
				continue
			}
			rv := reflect.ValueOf(gv)
			if rv.Type().AssignableTo(elemType) {
				out = reflect.Append(out, rv)
			} else if rv.Type().ConvertibleTo(elemType) {
				out = reflect.Append(out, rv.Convert(elemType))
			} else {
				return nil, fmt.Errorf("script: cannot convert %s to %s", rv.Type(), elemType)
			}
		}
		return out.Interface(), nil
	case *value.Tuple:
		out := make([]interface{}, len(p.Elems))
		for i, el := range p.Elems {
			gv, err := m.FromValue(heap, el, nil)
			if err != nil {
				return nil, err
			}
			out[i] = gv
		}
		return out, nil
	case *value.Object:
		out := make(map[string]interface{}, len(p.Keys))
		for i, k := range p.Keys {
			gv, err := m.FromValue(heap, p.Values[i], nil)
			if err != nil {
				return nil, err
			}
			out[k] = gv
		}
		return out, nil
	case *value.External:
		return p.Data, nil
	default:
		return nil, fmt.Errorf("script: cannot unmarshal managed value of kind %s", v.Slot.Kind())
	}
}
