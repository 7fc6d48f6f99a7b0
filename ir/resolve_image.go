package ir

// coordinateType is the type a coordinate of the given dimension and scalar
// kind must have.
func coordinateType(dim ImageDimension, kind ScalarKind) TypeInner {
	sc := ScalarType{Kind: kind, Width: 4}
	n := dim.coordinates()
	if n == 1 {
		return sc
	}
	return VectorType{Size: VectorSize(n), Scalar: sc}
}

// integerScalar reports whether inner is a 32-bit signed or unsigned integer.
func integerScalar(inner TypeInner) bool {
	sc, ok := inner.(ScalarType)
	return ok && sc.Width == 4 && (sc.Kind == ScalarSint || sc.Kind == ScalarUint)
}

// integerCoordinate reports whether inner addresses texels of dim.
func integerCoordinate(dim ImageDimension, inner TypeInner) bool {
	return inner == coordinateType(dim, ScalarSint) || inner == coordinateType(dim, ScalarUint)
}

// texelType is what a load or sample returns for a non-depth image.
func texelType(img ImageType) TypeInner {
	kind := img.SampledKind
	if img.Class == ImageClassStorage {
		kind = img.Format.Kind()
	}
	return VectorType{Size: Vec4, Scalar: ScalarType{Kind: kind, Width: 4}}
}

//nolint:gocyclo,cyclop,funlen // every sampling operand has its own rule
func (r *resolver) resolveImageSample(h ExpressionHandle, e ExprImageSample) (TypeResolution, error) {
	img, err := r.imageOf(h, e.Image)
	if err != nil {
		return TypeResolution{}, err
	}
	samplerInner, _, err := r.operand(e.Sampler)
	if err != nil {
		return TypeResolution{}, err
	}
	sampler, ok := samplerInner.(SamplerType)
	if !ok {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "sampler operand is %s", r.format(samplerInner))
	}
	if img.Class == ImageClassStorage || img.Multisampled {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "%s cannot be sampled", r.format(img))
	}

	coord, _, err := r.operand(e.Coordinate)
	if err != nil {
		return TypeResolution{}, err
	}
	if want := coordinateType(img.Dim, ScalarFloat); coord != want {
		return TypeResolution{}, r.fail(KindMismatch, h, "sample coordinate is %s; expected %s", r.format(coord), r.format(want))
	}

	if (e.ArrayIndex != nil) != img.Arrayed {
		return TypeResolution{}, r.fail(KindMismatch, h, "array index given for %s: %t", r.format(img), e.ArrayIndex != nil)
	}
	if e.ArrayIndex != nil {
		idx, _, err := r.operand(*e.ArrayIndex)
		if err != nil {
			return TypeResolution{}, err
		}
		if !integerScalar(idx) {
			return TypeResolution{}, r.fail(KindMismatch, h, "array index is %s; expected an integer scalar", r.format(idx))
		}
	}

	if e.Offset != nil {
		off, _, err := r.operand(*e.Offset)
		if err != nil {
			return TypeResolution{}, err
		}
		if img.Dim == DimCube {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "cube images take no texel offset")
		}
		if want := coordinateType(img.Dim, ScalarSint); off != want {
			return TypeResolution{}, r.fail(KindMismatch, h, "texel offset is %s; expected %s", r.format(off), r.format(want))
		}
	}

	depth := img.Class == ImageClassDepth
	if (e.DepthRef != nil) != sampler.Comparison {
		return TypeResolution{}, r.fail(KindMismatch, h, "depth reference and comparison sampler must be used together")
	}
	if e.DepthRef != nil {
		if !depth {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "depth comparison on %s", r.format(img))
		}
		ref, _, err := r.operand(*e.DepthRef)
		if err != nil {
			return TypeResolution{}, err
		}
		if ref != TypeInner(ScalarF32) {
			return TypeResolution{}, r.fail(KindMismatch, h, "depth reference is %s; expected f32", r.format(ref))
		}
	}

	switch l := e.Level.(type) {
	case nil:
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "sample has no level of detail mode")
	case SampleLevelAuto, SampleLevelZero:
	case SampleLevelExact:
		lvl, _, err := r.operand(l.Level)
		if err != nil {
			return TypeResolution{}, err
		}
		if lvl != TypeInner(ScalarF32) && !(depth && integerScalar(lvl)) {
			return TypeResolution{}, r.fail(KindMismatch, h, "sample level is %s; expected f32", r.format(lvl))
		}
	case SampleLevelBias:
		if depth {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "depth images take no level bias")
		}
		bias, _, err := r.operand(l.Bias)
		if err != nil {
			return TypeResolution{}, err
		}
		if bias != TypeInner(ScalarF32) {
			return TypeResolution{}, r.fail(KindMismatch, h, "level bias is %s; expected f32", r.format(bias))
		}
	case SampleLevelGradient:
		want := coordinateType(img.Dim, ScalarFloat)
		for _, g := range []ExpressionHandle{l.X, l.Y} {
			grad, _, err := r.operand(g)
			if err != nil {
				return TypeResolution{}, err
			}
			if grad != want {
				return TypeResolution{}, r.fail(KindMismatch, h, "gradient is %s; expected %s", r.format(grad), r.format(want))
			}
		}
	}

	if e.Gather != nil {
		if *e.Gather > SwizzleW || (depth && *e.Gather != SwizzleX) {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "gather component %d is not available for %s", *e.Gather, r.format(img))
		}
		if img.Dim != Dim2D && img.Dim != DimCube {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "gather needs a 2D or cube image")
		}
		if depth {
			return inline(VectorType{Size: Vec4, Scalar: ScalarF32}), nil
		}
		return inline(texelType(img)), nil
	}
	if depth {
		return inline(ScalarF32), nil
	}
	return inline(texelType(img)), nil
}

//nolint:gocyclo,cyclop // every load operand has its own rule
func (r *resolver) resolveImageLoad(h ExpressionHandle, e ExprImageLoad) (TypeResolution, error) {
	img, err := r.imageOf(h, e.Image)
	if err != nil {
		return TypeResolution{}, err
	}
	if img.Class == ImageClassStorage && img.Access&StorageLoad == 0 {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "%s is write-only", r.format(img))
	}
	if img.Dim == DimCube {
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "texels of cube images cannot be loaded")
	}

	coord, _, err := r.operand(e.Coordinate)
	if err != nil {
		return TypeResolution{}, err
	}
	if !integerCoordinate(img.Dim, coord) {
		return TypeResolution{}, r.fail(KindMismatch, h, "load coordinate is %s; expected %s",
			r.format(coord), r.format(coordinateType(img.Dim, ScalarSint)))
	}

	if (e.ArrayIndex != nil) != img.Arrayed {
		return TypeResolution{}, r.fail(KindMismatch, h, "array index given for %s: %t", r.format(img), e.ArrayIndex != nil)
	}
	mipmapped := img.Class != ImageClassStorage && !img.Multisampled
	if (e.Sample != nil) != img.Multisampled {
		return TypeResolution{}, r.fail(KindMismatch, h, "sample index given for %s: %t", r.format(img), e.Sample != nil)
	}
	if (e.Level != nil) != mipmapped {
		return TypeResolution{}, r.fail(KindMismatch, h, "level given for %s: %t", r.format(img), e.Level != nil)
	}
	for _, opt := range []*ExpressionHandle{e.ArrayIndex, e.Sample, e.Level} {
		if opt == nil {
			continue
		}
		inner, _, err := r.operand(*opt)
		if err != nil {
			return TypeResolution{}, err
		}
		if !integerScalar(inner) {
			return TypeResolution{}, r.fail(KindMismatch, h, "image load operand is %s; expected an integer scalar", r.format(inner))
		}
	}

	if img.Class == ImageClassDepth {
		return inline(ScalarF32), nil
	}
	return inline(texelType(img)), nil
}

func (r *resolver) resolveImageQuery(h ExpressionHandle, e ExprImageQuery) (TypeResolution, error) {
	img, err := r.imageOf(h, e.Image)
	if err != nil {
		return TypeResolution{}, err
	}
	mipmapped := img.Class != ImageClassStorage && !img.Multisampled

	switch q := e.Query.(type) {
	case ImageQuerySize:
		if q.Level != nil {
			if !mipmapped {
				return TypeResolution{}, r.fail(KindInvalidOperand, h, "%s has no mip levels", r.format(img))
			}
			lvl, _, err := r.operand(*q.Level)
			if err != nil {
				return TypeResolution{}, err
			}
			if !integerScalar(lvl) {
				return TypeResolution{}, r.fail(KindMismatch, h, "size query level is %s; expected an integer scalar", r.format(lvl))
			}
		}
		switch img.Dim {
		case Dim1D:
			return inline(ScalarU32), nil
		case Dim3D:
			return inline(VectorType{Size: Vec3, Scalar: ScalarU32}), nil
		default:
			return inline(VectorType{Size: Vec2, Scalar: ScalarU32}), nil
		}
	case ImageQueryNumLevels:
		if !mipmapped {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "%s has no mip levels", r.format(img))
		}
	case ImageQueryNumLayers:
		if !img.Arrayed {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "%s is not arrayed", r.format(img))
		}
	case ImageQueryNumSamples:
		if !img.Multisampled {
			return TypeResolution{}, r.fail(KindInvalidOperand, h, "%s is not multisampled", r.format(img))
		}
	default:
		return TypeResolution{}, r.fail(KindInvalidOperand, h, "unknown image query %T", e.Query)
	}
	return inline(ScalarU32), nil
}
