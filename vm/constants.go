package vm

import (
	"fmt"

	"github.com/chazu/saffire/bytecode"
	"github.com/chazu/saffire/object"
)

// LoadConstants materialises the constant pool of bc as runtime objects.
// The caller owns every returned object; release them with
// ReleaseConstants. Code constants become callables wrapping the nested
// frame.
func LoadConstants(rt *object.Runtime, bc *bytecode.Bytecode) ([]*object.Object, error) {
	out := make([]*object.Object, 0, len(bc.Constants))
	for i, c := range bc.Constants {
		var o *object.Object
		switch c.Kind {
		case bytecode.ConstString:
			o = rt.NewString(c.String)
		case bytecode.ConstNumerical:
			o = rt.NewNumerical(c.Number)
		case bytecode.ConstRegex:
			re, err := rt.NewRegex(c.String)
			if err != nil {
				ReleaseConstants(out)
				return nil, fmt.Errorf("%s: constant %d: %w", bc.Name, i, err)
			}
			o = re
		case bytecode.ConstCode:
			if c.Code == nil {
				ReleaseConstants(out)
				return nil, fmt.Errorf("%s: constant %d: code constant without a frame", bc.Name, i)
			}
			if c.Code.SourceFilename == "" {
				c.Code.SourceFilename = bc.SourceFilename
			}
			o = rt.NewCallable(c.Code.Name, c.Code)
		default:
			ReleaseConstants(out)
			return nil, fmt.Errorf("%s: constant %d: unknown kind %s", bc.Name, i, c.Kind)
		}
		out = append(out, o)
	}
	return out, nil
}

// ReleaseConstants drops one reference to each object.
func ReleaseConstants(consts []*object.Object) {
	for _, o := range consts {
		o.DecRef()
	}
}
