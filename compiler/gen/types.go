package gen

import (
	"go/types"

	"github.com/dave/jennifer/jen"
)

// typeCode returns the Jennifer code for a loaded field type. Named types
// are qualified by their package path; Jennifer drops the qualifier for the
// package being generated.
func typeCode(t types.Type) jen.Code {
	switch t := t.(type) {
	case *types.Basic:
		return jen.Id(t.Name())
	case *types.Alias:
		return qualified(t.Obj(), t.TypeArgs())
	case *types.Named:
		return qualified(t.Obj(), t.TypeArgs())
	case *types.Pointer:
		return jen.Op("*").Add(typeCode(t.Elem()))
	case *types.Slice:
		return jen.Index().Add(typeCode(t.Elem()))
	case *types.Array:
		return jen.Index(jen.Lit(int(t.Len()))).Add(typeCode(t.Elem()))
	case *types.Map:
		return jen.Map(typeCode(t.Key())).Add(typeCode(t.Elem()))
	case *types.Interface:
		if t.Empty() {
			return jen.Id("any")
		}
	}
	return jen.Id(types.TypeString(t, func(p *types.Package) string { return p.Name() }))
}

func qualified(obj *types.TypeName, args *types.TypeList) jen.Code {
	var s *jen.Statement
	if obj.Pkg() == nil {
		s = jen.Id(obj.Name())
	} else {
		s = jen.Qual(obj.Pkg().Path(), obj.Name())
	}
	if args.Len() > 0 {
		codes := make([]jen.Code, args.Len())
		for i := range args.Len() {
			codes[i] = typeCode(args.At(i))
		}
		s = s.Types(codes...)
	}
	return s
}
