// Package typename renders Go types with their full import path, so types
// that share a package name and a type name in different packages stay
// distinct.
package typename

import (
	"fmt"
	"reflect"
)

// Of returns the qualified name of t: "*example.com/app/service.Repo"
// rather than the "*service.Repo" reflect.Type.String reports. Composite
// types qualify their element types. Predeclared types and unnamed structs,
// funcs and interfaces use String.
func Of(t reflect.Type) string {
	if t == nil {
		return "nil"
	}

	if name := t.Name(); name != "" {
		if pkg := t.PkgPath(); pkg != "" {
			return pkg + "." + name
		}
		return name
	}

	switch t.Kind() {
	case reflect.Ptr:
		return "*" + Of(t.Elem())
	case reflect.Slice:
		return "[]" + Of(t.Elem())
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), Of(t.Elem()))
	case reflect.Map:
		return "map[" + Of(t.Key()) + "]" + Of(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + Of(t.Elem())
		case reflect.SendDir:
			return "chan<- " + Of(t.Elem())
		}
		return "chan " + Of(t.Elem())
	}

	return t.String()
}

// OfValue is Of(reflect.TypeOf(v)).
func OfValue(v any) string {
	return Of(reflect.TypeOf(v))
}
