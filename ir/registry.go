package ir

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// TypeRegistry interns types into a Module's type arena.
// Structurally identical TypeInner values collapse to one handle. The
// Validator does not depend on this: it compares types structurally.
type TypeRegistry struct {
	types   *Arena[Type]
	buckets map[uint64][]TypeHandle
	keyBuf  []byte // reusable buffer for building canonical keys
}

// NewTypeRegistry creates a registry appending into types.
// Types already present in the arena are indexed first, so interning can
// resume on a partially built module.
func NewTypeRegistry(types *Arena[Type]) *TypeRegistry {
	r := &TypeRegistry{
		types:   types,
		buckets: make(map[uint64][]TypeHandle, types.Len()+16),
		keyBuf:  make([]byte, 0, 64),
	}
	for h, ty := range types.All() {
		hash := r.hash(ty.Inner)
		r.buckets[hash] = append(r.buckets[hash], h)
	}
	return r
}

// GetOrCreate returns an existing handle for the type if it exists,
// or creates a new one if it's unique.
func (r *TypeRegistry) GetOrCreate(name string, inner TypeInner) TypeHandle {
	hash := r.hash(inner)
	for _, h := range r.buckets[hash] {
		existing := r.types.at(h)
		// Names distinguish otherwise identical structs.
		if _, isStruct := inner.(StructType); isStruct && existing.Name != name {
			continue
		}
		if InnerEqual(r.types, existing.Inner, inner) {
			return h
		}
	}

	handle := r.types.Append(Type{Name: name, Inner: inner})
	r.buckets[hash] = append(r.buckets[hash], handle)
	return handle
}

// Lookup finds a type by its handle.
func (r *TypeRegistry) Lookup(handle TypeHandle) (Type, bool) {
	ty, err := r.types.Get(handle)
	if err != nil {
		return Type{}, false
	}
	return *ty, true
}

// Count returns the number of types in the underlying arena.
func (r *TypeRegistry) Count() int {
	return r.types.Len()
}

// hash computes the canonical hash of a type.
// Nested handles are hashed by the structure they point at, so two arenas
// built in different orders still agree.
func (r *TypeRegistry) hash(inner TypeInner) uint64 {
	r.keyBuf = r.appendKey(r.keyBuf[:0], inner, 0)
	return xxh3.Hash(r.keyBuf)
}

const maxKeyDepth = 32

//nolint:gocyclo,cyclop // one case per type variant
func (r *TypeRegistry) appendKey(b []byte, inner TypeInner, depth int) []byte {
	if depth > maxKeyDepth {
		return append(b, "deep"...)
	}
	switch t := inner.(type) {
	case ScalarType:
		b = append(b, 's')
		b = appendScalar(b, t)
	case VectorType:
		b = append(b, 'v')
		b = strconv.AppendUint(b, uint64(t.Size), 10)
		b = appendScalar(b, t.Scalar)
	case MatrixType:
		b = append(b, 'm')
		b = strconv.AppendUint(b, uint64(t.Columns), 10)
		b = append(b, 'x')
		b = strconv.AppendUint(b, uint64(t.Rows), 10)
		b = appendScalar(b, t.Scalar)
	case AtomicType:
		b = append(b, 'a')
		b = appendScalar(b, t.Scalar)
	case ArrayType:
		b = append(b, "arr("...)
		b = r.appendHandleKey(b, t.Base, depth)
		b = appendArraySize(b, t.Size)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Stride), 10)
		b = append(b, ')')
	case BindingArrayType:
		b = append(b, "barr("...)
		b = r.appendHandleKey(b, t.Base, depth)
		b = appendArraySize(b, t.Size)
		b = append(b, ')')
	case StructType:
		b = append(b, "st("...)
		b = strconv.AppendUint(b, uint64(t.Span), 10)
		for _, m := range t.Members {
			b = append(b, ',')
			b = append(b, m.Name...)
			b = append(b, '@')
			b = strconv.AppendUint(b, uint64(m.Offset), 10)
			b = append(b, ':')
			b = r.appendHandleKey(b, m.Type, depth)
		}
		b = append(b, ')')
	case PointerType:
		b = append(b, "ptr("...)
		b = r.appendHandleKey(b, t.Base, depth)
		b = append(b, ',')
		b = strconv.AppendUint(b, uint64(t.Space), 10)
		b = append(b, ',')
		b = strconv.AppendUint(b, uint64(t.Access), 10)
		b = append(b, ')')
	case ValuePointerType:
		b = append(b, "vptr("...)
		if t.Size != nil {
			b = strconv.AppendUint(b, uint64(*t.Size), 10)
		}
		b = appendScalar(b, t.Scalar)
		b = strconv.AppendUint(b, uint64(t.Space), 10)
		b = append(b, ',')
		b = strconv.AppendUint(b, uint64(t.Access), 10)
		b = append(b, ')')
	case SamplerType:
		if t.Comparison {
			b = append(b, "samplercmp"...)
		} else {
			b = append(b, "sampler"...)
		}
	case ImageType:
		b = append(b, "img("...)
		for _, v := range []uint64{
			uint64(t.Dim), boolBit(t.Arrayed), uint64(t.Class), boolBit(t.Multisampled),
			uint64(t.SampledKind), uint64(t.Format), uint64(t.Access),
		} {
			b = strconv.AppendUint(b, v, 10)
			b = append(b, ',')
		}
		b = append(b, ')')
	default:
		b = append(b, '?')
	}
	return b
}

func (r *TypeRegistry) appendHandleKey(b []byte, h TypeHandle, depth int) []byte {
	if !r.types.Contains(h) {
		b = append(b, '#')
		return strconv.AppendUint(b, uint64(h), 10)
	}
	return r.appendKey(b, r.types.at(h).Inner, depth+1)
}

func appendScalar(b []byte, s ScalarType) []byte {
	b = strconv.AppendUint(b, uint64(s.Kind), 10)
	b = append(b, ':')
	return strconv.AppendUint(b, uint64(s.Width), 10)
}

func appendArraySize(b []byte, size ArraySize) []byte {
	b = append(b, ';')
	if size.Constant == nil {
		return append(b, "rt"...)
	}
	return strconv.AppendUint(b, uint64(*size.Constant), 10)
}

func boolBit(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
