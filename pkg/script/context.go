package script

import (
	"fmt"
	"reflect"

	"github.com/loom-lang/loom/internal/hash"
	"github.com/loom-lang/loom/internal/value"
	"github.com/loom-lang/loom/internal/vm"
)

// Context collects the host surface a compiled Unit is run against:
// free functions and instance methods keyed by hash.ID, the same
// addressing scheme internal/vm.VM.Natives uses for both OpCall and
// OpCallInstance lookups (internal/vm/calls.go). It plays the role
// funvibe-funxy/pkg/embed's VM.Bind plays for that language's
// evaluator, generalized to register into a hash-addressed table
// instead of a name-keyed global scope.
type Context struct {
	natives    map[hash.ID]vm.NativeFn
	marshaller *Marshaller
}

// NewContext returns an empty host context.
func NewContext() *Context {
	return &Context{natives: make(map[hash.ID]vm.NativeFn), marshaller: NewMarshaller()}
}

// RegisterNative binds a function directly at the VM calling
// convention ([]value.Value in, value.Value out), for hosts that want
// to manage the heap and argument marshalling themselves.
func (c *Context) RegisterNative(name string, fn vm.NativeFn) {
	c.natives[hash.Path(name)] = fn
}

// RegisterMethodNative is RegisterNative's instance-method counterpart:
// it binds under hash.Field(hash.Zero, name), the address OpCallInstance
// looks up when no compiled instance method claims the hash (e.g. the
// for-loop iterator protocol's "next").
func (c *Context) RegisterMethodNative(name string, fn vm.NativeFn) {
	c.natives[hash.Field(hash.Zero, name)] = fn
}

// RegisterFunc wraps an arbitrary Go func via reflection into a
// vm.NativeFn, converting arguments and the return value through the
// Marshaller, the way funvibe-funxy/pkg/embed.VM.Bind infers a host
// function's arity and plugs it into the evaluator's call path.
// fn's last return value may be an error; if present and non-nil, the
// wrapped native returns it as the VM error.
func (c *Context) RegisterFunc(name string, fn interface{}) error {
	native, err := c.wrapFunc(fn)
	if err != nil {
		return fmt.Errorf("script: registering %q: %w", name, err)
	}
	c.RegisterNative(name, native)
	return nil
}

// RegisterMethod is RegisterFunc's instance-method counterpart: the
// wrapped Go func's first parameter receives the receiver value.
func (c *Context) RegisterMethod(name string, fn interface{}) error {
	native, err := c.wrapFunc(fn)
	if err != nil {
		return fmt.Errorf("script: registering method %q: %w", name, err)
	}
	c.RegisterMethodNative(name, native)
	return nil
}

func (c *Context) wrapFunc(fn interface{}) (vm.NativeFn, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("expected a func, got %T", fn)
	}
	rt := rv.Type()
	variadic := rt.IsVariadic()
	returnsErr := rt.NumOut() > 0 && rt.Out(rt.NumOut()-1) == reflect.TypeOf((*error)(nil)).Elem()

	return func(m *vm.VM, args []value.Value) (value.Value, error) {
		want := rt.NumIn()
		if !variadic && len(args) != want {
			return value.Value{}, fmt.Errorf("script: expected %d arguments, got %d", want, len(args))
		}
		if variadic && len(args) < want-1 {
			return value.Value{}, fmt.Errorf("script: expected at least %d arguments, got %d", want-1, len(args))
		}

		in := make([]reflect.Value, len(args))
		for i, a := range args {
			var target reflect.Type
			switch {
			case variadic && i >= want-1:
				target = rt.In(want - 1).Elem()
			default:
				target = rt.In(i)
			}
			gv, err := c.marshaller.FromValue(m.Heap, a, target)
			if err != nil {
				return value.Value{}, err
			}
			if gv == nil {
				in[i] = reflect.Zero(target)
			} else {
				in[i] = reflect.ValueOf(gv)
			}
		}

		out := rv.Call(in)
		if returnsErr {
			if errv := out[len(out)-1]; !errv.IsNil() {
				return value.Value{}, errv.Interface().(error)
			}
			out = out[:len(out)-1]
		}
		switch len(out) {
		case 0:
			return value.Unit, nil
		case 1:
			return c.marshaller.ToValue(m.Heap, out[0].Interface())
		default:
			elems := make([]value.Value, len(out))
			for i, o := range out {
				ev, err := c.marshaller.ToValue(m.Heap, o.Interface())
				if err != nil {
					return value.Value{}, err
				}
				elems[i] = ev
			}
			slot := m.Heap.Allocate(&value.Tuple{Elems: elems})
			return value.Managed(slot), nil
		}
	}, nil
}
