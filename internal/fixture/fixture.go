// Package fixture builds classfile-shaped test inputs by hand, the same
// way the teacher's vm/*_test.go constructs CompiledMethod literals
// instead of parsing source — class-file parsing is out of scope for
// this module (§9 Non-goals), so cmd/classvm and cmd/classdump both
// need a way to stand up a runnable Class/Method without one.
//
// Everything here is a toy: Build builds a single class with a single
// static method, and toyResolver answers only the two Resolver calls
// InvokeSymbolic makes to reach it. Anything beyond that panics, since
// a real class loader belongs to the embedding runtime, not to this
// repository's demo tooling.
package fixture

import (
	"fmt"

	"github.com/chazu/classvm/interp"
)

// Demo bytecode: iconst_2, iconst_2, iadd, ireturn — computes 2+2 and
// returns it, exercising constant push, arithmetic, and return without
// needing any collaborator beyond method resolution.
var DemoBody = []byte{0x05, 0x05, 0x60, 0xAC}

const (
	DemoClassName  = "Main"
	DemoMethodName = "main"
	DemoMethodSpec = "()I"
)

// Build constructs the demo Main.main()I class/method pair and a
// Collaborators value wired to resolve it, ready to pass to
// interp.NewMachine.
func Build() (*interp.Class, interp.Collaborators) {
	method := &interp.Method{
		Flags:              interp.AccPublic | interp.AccStatic,
		ParameterFootprint: 0,
		ParameterCount:     0,
		ReturnCode:         interp.ReturnInt,
		Name:               DemoMethodName,
		Spec:               DemoMethodSpec,
		Code: &interp.Code{
			Body:      DemoBody,
			MaxStack:  2,
			MaxLocals: 0,
		},
	}
	class := &interp.Class{
		Name:         DemoClassName,
		VirtualTable: []*interp.Method{method},
	}
	method.Class = class

	resolver := &toyResolver{class: class, method: method}
	return class, interp.Collaborators{Resolver: resolver}
}

// toyResolver answers InvokeSymbolic's two calls (ResolveClass,
// FindMethodByName) for the one class Build produces. Every other
// Resolver method is unreachable from the demo bytecode and panics if
// called, rather than silently returning zero values.
type toyResolver struct {
	class  *interp.Class
	method *interp.Method
}

func (r *toyResolver) ResolveClass(loader interp.Ref, nameBytes []byte) (*interp.Class, error) {
	if string(nameBytes) != r.class.Name {
		return nil, fmt.Errorf("fixture: no demo class %q", nameBytes)
	}
	return r.class, nil
}

func (r *toyResolver) FindMethodByName(class *interp.Class, name, spec string) (*interp.Method, error) {
	if class == r.class && name == r.method.Name && spec == r.method.Spec {
		return r.method, nil
	}
	return nil, fmt.Errorf("fixture: no method %s.%s%s", class.Name, name, spec)
}

func (r *toyResolver) ResolveClassInPool(method *interp.Method, idx int) (*interp.Class, error) {
	panic("fixture: ResolveClassInPool not supported by the demo resolver")
}

func (r *toyResolver) ResolveMethod(method *interp.Method, idx int) (*interp.Method, error) {
	panic("fixture: ResolveMethod not supported by the demo resolver")
}

func (r *toyResolver) ResolveField(method *interp.Method, idx int) (*interp.Field, error) {
	panic("fixture: ResolveField not supported by the demo resolver")
}

func (r *toyResolver) FindInterfaceMethod(method *interp.Method, class *interp.Class) (*interp.Method, error) {
	panic("fixture: FindInterfaceMethod not supported by the demo resolver")
}

func (r *toyResolver) FindVirtualMethod(method *interp.Method, class *interp.Class) (*interp.Method, error) {
	panic("fixture: FindVirtualMethod not supported by the demo resolver")
}

func (r *toyResolver) IsSpecialMethod(method *interp.Method, class *interp.Class) bool {
	panic("fixture: IsSpecialMethod not supported by the demo resolver")
}

func (r *toyResolver) InstanceOf(class *interp.Class, obj interp.Ref) bool {
	panic("fixture: InstanceOf not supported by the demo resolver")
}

func (r *toyResolver) ClassOf(obj interp.Ref) *interp.Class {
	panic("fixture: ClassOf not supported by the demo resolver")
}
