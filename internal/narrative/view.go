package narrative

import "github.com/abelbrown/narratives/internal/reactive"

// Bind derives the grouping from a record container. The grouping is
// recomputed once for every value the container emits and never otherwise;
// filter changes reach it only by replacing the records upstream.
//
// The caller owns the result and must Close it to detach from records.
func Bind(records reactive.Readable[[]Record]) *reactive.Derived[Grouping] {
	return reactive.Derive(records, Group)
}
