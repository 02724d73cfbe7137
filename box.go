package jsruntime

import (
	"github.com/wippyai/js-runtime/resource"
)

// Box kinds. A box carries Go state through the engine as one word.
const (
	kindFunctionBox uint32 = iota + 1
	kindExternalBox
	kindContextBox
	kindCollectBox
	kindRuntimeBox
)

type boxTable struct {
	table *resource.UnifiedTable
}

var boxes = boxTable{table: resource.NewTable()}

func (b boxTable) put(kind uint32, v any) uintptr {
	return uintptr(b.table.Insert(kind, v))
}

func (b boxTable) get(state uintptr, kind uint32) (any, bool) {
	return b.table.GetTyped(resource.Handle(state), kind)
}

// take frees the box and returns its contents.
func (b boxTable) take(state uintptr) (any, bool) {
	return b.table.Remove(resource.Handle(state))
}

// liveBoxes reports the number of boxes not yet freed.
func liveBoxes() int {
	return boxes.table.Len()
}
