package layout

import (
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// enumTagBytes — v1 ABI: дискриминант enum'а всегда uint32.
const enumTagBytes = 4

func (e *Engine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	if id == types.NoTypeID || e.Types == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, nil
	}

	switch tt.Kind {
	case types.KindUnit:
		return TypeLayout{Size: 0, Align: 1}, nil

	case types.KindBool:
		return scalarLayoutBytes(1), nil

	case types.KindInt, types.KindFloat:
		return scalarLayoutBytes(8), nil

	case types.KindChar:
		return scalarLayoutBytes(4), nil

	case types.KindString:
		// Strings are immutable handles in the v1 ABI contract.
		return e.ptrLayout(), nil

	case types.KindReference:
		return e.ptrLayout(), nil

	case types.KindStruct:
		return e.structLayout(id, state)

	case types.KindEnum:
		return e.enumLayout(id, state)

	case types.KindParam:
		// Параметры не доживают до раскладки: mono уже всё подставил.
		return TypeLayout{Size: 0, Align: 1}, nil

	default:
		return TypeLayout{Size: 0, Align: 1}, nil
	}
}

func (e *Engine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

func scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	return TypeLayout{Size: size, Align: size}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func (e *Engine) structLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	info, ok := e.Types.StructInfo(id)
	if !ok || info == nil || len(info.Fields) == 0 {
		return TypeLayout{Size: 0, Align: 1}, nil
	}

	offsets := make([]int, len(info.Fields))
	size := 0
	align := 1
	for i := range info.Fields {
		fl, err := e.layoutOf(info.Fields[i].Type, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		fAlign := fl.Align
		if fAlign <= 0 {
			fAlign = 1
		}
		size = roundUp(size, fAlign)
		offsets[i] = size
		size += fl.Size
		align = max(align, fAlign)
	}
	size = roundUp(size, align)
	return TypeLayout{
		Size:         size,
		Align:        align,
		FieldOffsets: offsets,
	}, nil
}

func (e *Engine) enumLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	info, ok := e.Types.EnumInfo(id)
	if !ok || info == nil {
		return scalarLayoutBytes(enumTagBytes), nil
	}

	// Payload каждого варианта считаем как анонимный struct; берём максимум.
	payloadSize := 0
	payloadAlign := 1
	for vi := range info.Variants {
		vSize := 0
		vAlign := 1
		for _, fieldType := range info.Variants[vi].Payload {
			fl, err := e.layoutOf(fieldType, state)
			if err != nil {
				return TypeLayout{Size: 0, Align: 1}, err
			}
			fAlign := fl.Align
			if fAlign <= 0 {
				fAlign = 1
			}
			vSize = roundUp(vSize, fAlign)
			vSize += fl.Size
			vAlign = max(vAlign, fAlign)
		}
		payloadSize = max(payloadSize, roundUp(vSize, vAlign))
		payloadAlign = max(payloadAlign, vAlign)
	}

	tag := scalarLayoutBytes(enumTagBytes)
	align := max(tag.Align, payloadAlign)
	payloadOffset := roundUp(tag.Size, payloadAlign)
	size := roundUp(payloadOffset+payloadSize, align)
	return TypeLayout{
		Size:          size,
		Align:         align,
		TagSize:       tag.Size,
		TagAlign:      tag.Align,
		PayloadOffset: payloadOffset,
	}, nil
}
