package proxy

import (
	"reflect"
	"sort"
	"strings"
	"sync"
)

// interceptEntryPoint is the generic entry point, the only proxy method that
// a subject operation may share its name with.
const interceptEntryPoint = "Invoke"

// ownOperations is the proxy's exported method set minus the entry point.
// It is fixed at compile time, so it is computed once and shared.
var ownOperations = sync.OnceValue(func() map[string]struct{} {
	t := reflect.TypeOf((*Proxy)(nil))
	names := make(map[string]struct{}, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		if name := t.Method(i).Name; name != interceptEntryPoint {
			names[name] = struct{}{}
		}
	}
	return names
})

// ReservedNames returns the operation names a subject must not expose.
func ReservedNames() []string {
	own := ownOperations()
	names := make([]string, 0, len(own))
	for name := range own {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkConsistency fails when the subject shadows one of the proxy's own names.
func checkConsistency(b *binding) error {
	own := ownOperations()

	var common []string
	for _, name := range b.names() {
		if _, ok := own[name]; ok {
			common = append(common, name)
		}
	}

	if len(common) > 0 {
		return newError(CodeNameCollision, "methods %s are not allowed in the subject %s",
			strings.Join(common, " "), b.typeName)
	}
	return nil
}
