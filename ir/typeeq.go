package ir

import (
	"fmt"
	"strconv"
)

// InnerEqual reports whether a and b describe the same type.
// Handles inside a and b are compared structurally through types, so the
// result does not depend on whether the arena was interned.
//
//nolint:gocyclo,cyclop // one case per type variant
func InnerEqual(types *Arena[Type], a, b TypeInner) bool {
	switch x := a.(type) {
	case ScalarType:
		y, ok := b.(ScalarType)
		return ok && x == y
	case VectorType:
		y, ok := b.(VectorType)
		return ok && x == y
	case MatrixType:
		y, ok := b.(MatrixType)
		return ok && x == y
	case AtomicType:
		y, ok := b.(AtomicType)
		return ok && x == y
	case SamplerType:
		y, ok := b.(SamplerType)
		return ok && x == y
	case ImageType:
		y, ok := b.(ImageType)
		return ok && x == y
	case PointerType:
		switch y := b.(type) {
		case PointerType:
			return x.Space == y.Space && x.Access == y.Access && TypesEqual(types, x.Base, y.Base)
		case ValuePointerType:
			return pointerMatchesValuePointer(types, x, y)
		}
		return false
	case ValuePointerType:
		switch y := b.(type) {
		case ValuePointerType:
			return x.Space == y.Space && x.Access == y.Access && x.Scalar == y.Scalar && sizePtrEqual(x.Size, y.Size)
		case PointerType:
			return pointerMatchesValuePointer(types, y, x)
		}
		return false
	case ArrayType:
		y, ok := b.(ArrayType)
		return ok && x.Stride == y.Stride && arraySizeEqual(x.Size, y.Size) && TypesEqual(types, x.Base, y.Base)
	case BindingArrayType:
		y, ok := b.(BindingArrayType)
		return ok && arraySizeEqual(x.Size, y.Size) && TypesEqual(types, x.Base, y.Base)
	case StructType:
		y, ok := b.(StructType)
		if !ok || x.Span != y.Span || len(x.Members) != len(y.Members) {
			return false
		}
		for i := range x.Members {
			mx, my := x.Members[i], y.Members[i]
			if mx.Name != my.Name || mx.Offset != my.Offset || !TypesEqual(types, mx.Type, my.Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// TypesEqual compares two type handles structurally.
func TypesEqual(types *Arena[Type], a, b TypeHandle) bool {
	if a == b {
		return true
	}
	if !types.Contains(a) || !types.Contains(b) {
		return false
	}
	return InnerEqual(types, types.at(a).Inner, types.at(b).Inner)
}

// ResolutionsEqual compares two resolved expression types structurally.
func ResolutionsEqual(types *Arena[Type], a, b TypeResolution) bool {
	if a.Handle != nil && b.Handle != nil {
		return TypesEqual(types, *a.Handle, *b.Handle)
	}
	ai, bi := a.Inner(types), b.Inner(types)
	if ai == nil || bi == nil {
		return false
	}
	return InnerEqual(types, ai, bi)
}

func pointerMatchesValuePointer(types *Arena[Type], p PointerType, v ValuePointerType) bool {
	if p.Space != v.Space || p.Access != v.Access || !types.Contains(p.Base) {
		return false
	}
	switch base := types.at(p.Base).Inner.(type) {
	case ScalarType:
		return v.Size == nil && base == v.Scalar
	case VectorType:
		return v.Size != nil && *v.Size == base.Size && base.Scalar == v.Scalar
	}
	return false
}

func sizePtrEqual(a, b *VectorSize) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func arraySizeEqual(a, b ArraySize) bool {
	if a.Constant == nil || b.Constant == nil {
		return a.Constant == b.Constant
	}
	return *a.Constant == *b.Constant
}

// FormatType renders a type in WGSL-like notation, e.g. "vec3<f32>".
func FormatType(types *Arena[Type], inner TypeInner) string {
	switch t := inner.(type) {
	case nil:
		return "<unresolved>"
	case ScalarType:
		return scalarName(t)
	case VectorType:
		return fmt.Sprintf("vec%d<%s>", t.Size, scalarName(t.Scalar))
	case MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", t.Columns, t.Rows, scalarName(t.Scalar))
	case AtomicType:
		return "atomic<" + scalarName(t.Scalar) + ">"
	case PointerType:
		return fmt.Sprintf("ptr<%s, %s%s>", t.Space, FormatTypeHandle(types, t.Base), accessSuffix(t.Space, t.Access))
	case ValuePointerType:
		var base string
		if t.Size != nil {
			base = fmt.Sprintf("vec%d<%s>", *t.Size, scalarName(t.Scalar))
		} else {
			base = scalarName(t.Scalar)
		}
		return fmt.Sprintf("ptr<%s, %s%s>", t.Space, base, accessSuffix(t.Space, t.Access))
	case ArrayType:
		if t.Size.Constant != nil {
			return fmt.Sprintf("array<%s, %d>", FormatTypeHandle(types, t.Base), *t.Size.Constant)
		}
		return fmt.Sprintf("array<%s>", FormatTypeHandle(types, t.Base))
	case BindingArrayType:
		if t.Size.Constant != nil {
			return fmt.Sprintf("binding_array<%s, %d>", FormatTypeHandle(types, t.Base), *t.Size.Constant)
		}
		return fmt.Sprintf("binding_array<%s>", FormatTypeHandle(types, t.Base))
	case StructType:
		return "struct"
	case SamplerType:
		if t.Comparison {
			return "sampler_comparison"
		}
		return "sampler"
	case ImageType:
		return formatImage(t)
	default:
		return fmt.Sprintf("%T", inner)
	}
}

// FormatTypeHandle renders the type behind h, preferring its name for structs.
func FormatTypeHandle(types *Arena[Type], h TypeHandle) string {
	if !types.Contains(h) {
		return "<invalid type " + strconv.Itoa(int(h)) + ">"
	}
	ty := types.at(h)
	if _, ok := ty.Inner.(StructType); ok && ty.Name != "" {
		return ty.Name
	}
	return FormatType(types, ty.Inner)
}

// FormatResolution renders a resolved expression type.
func FormatResolution(types *Arena[Type], r TypeResolution) string {
	if r.Handle != nil {
		return FormatTypeHandle(types, *r.Handle)
	}
	return FormatType(types, r.Value)
}

func scalarName(s ScalarType) string {
	switch s.Kind {
	case ScalarBool:
		return "bool"
	case ScalarFloat:
		return "f" + strconv.Itoa(int(s.Width)*8)
	case ScalarSint:
		return "i" + strconv.Itoa(int(s.Width)*8)
	case ScalarUint:
		return "u" + strconv.Itoa(int(s.Width)*8)
	default:
		return "?"
	}
}

func accessSuffix(space AddressSpace, access StorageAccess) string {
	if space != SpaceStorage {
		return ""
	}
	if access&StorageStore != 0 {
		return ", read_write"
	}
	return ", read"
}

func formatImage(t ImageType) string {
	dim := [...]string{"1d", "2d", "3d", "cube"}[t.Dim&3]
	arr := ""
	if t.Arrayed {
		arr = "_array"
	}
	switch t.Class {
	case ImageClassDepth:
		if t.Multisampled {
			return "texture_depth_multisampled_" + dim + arr
		}
		return "texture_depth_" + dim + arr
	case ImageClassStorage:
		return fmt.Sprintf("texture_storage_%s%s<%d>", dim, arr, t.Format)
	default:
		kind := scalarName(ScalarType{Kind: t.SampledKind, Width: 4})
		if t.Multisampled {
			return "texture_multisampled_" + dim + arr + "<" + kind + ">"
		}
		return "texture_" + dim + arr + "<" + kind + ">"
	}
}
