package persist

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Kind selects how a container's value is laid out in its slot.
type Kind int

const (
	// KindPlain stores the value as its direct JSON encoding.
	KindPlain Kind = iota
	// KindSet stores a set as a JSON array of its elements in ascending order.
	KindSet
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindSet:
		return "set"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Codec converts a container value to and from slot bytes. The strategy is
// fixed when the codec is built, never inferred from a value.
type Codec[T any] struct {
	kind   Kind
	encode func(T) ([]byte, error)
	decode func([]byte) (T, error)
}

// Kind reports the layout the codec produces.
func (c Codec[T]) Kind() Kind {
	return c.kind
}

// Encode returns the slot bytes for v.
func (c Codec[T]) Encode(v T) ([]byte, error) {
	return c.encode(v)
}

// Decode parses slot bytes.
func (c Codec[T]) Decode(data []byte) (T, error) {
	return c.decode(data)
}

// Plain returns the codec for any JSON-serializable value.
func Plain[T any]() Codec[T] {
	return Codec[T]{
		kind: KindPlain,
		encode: func(v T) ([]byte, error) {
			return json.Marshal(v)
		},
		decode: func(data []byte) (T, error) {
			var v T
			err := json.Unmarshal(data, &v)
			return v, err
		},
	}
}

// Set returns the codec for set-valued state. Sets are written as sorted
// arrays so equal sets always produce identical slot bytes.
func Set[E cmp.Ordered]() Codec[mapset.Set[E]] {
	return Codec[mapset.Set[E]]{
		kind: KindSet,
		encode: func(s mapset.Set[E]) ([]byte, error) {
			elems := []E{}
			if s != nil {
				elems = s.ToSlice()
				slices.Sort(elems)
			}
			return json.Marshal(elems)
		},
		decode: func(data []byte) (mapset.Set[E], error) {
			var elems []E
			if err := json.Unmarshal(data, &elems); err != nil {
				return nil, err
			}
			return mapset.NewSet(elems...), nil
		},
	}
}
