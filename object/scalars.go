package object

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/dlclark/regexp2"
	"github.com/zeebo/xxh3"
)

// Small numericals are served from a per-runtime cache.
const (
	numCacheMin = -5
	numCacheMax = 256
)

// ---------------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------------

// BooleanData is the data block of booleans. Only the true and false
// singletons exist; allocation always returns one of them.
type BooleanData struct {
	Value bool
}

func (d *BooleanData) Fresh() Data { return &BooleanData{} }

func (d *BooleanData) Cached(rt *Runtime, class *Object, args []*Object) *Object {
	if len(args) > 0 && Truthy(args[0]) {
		return rt.trueObj
	}
	return rt.falseObj
}

func (d *BooleanData) Hash(obj *Object) uint64 {
	if d.Value {
		return 1
	}
	return 0
}

func (d *BooleanData) Debug(obj *Object) string {
	return strconv.FormatBool(d.Value)
}

// Boolean returns an owned reference to the true or false singleton.
func (rt *Runtime) Boolean(b bool) *Object {
	o := rt.falseObj
	if b {
		o = rt.trueObj
	}
	o.IncRef()
	return o
}

// True returns the true singleton (borrowed).
func (rt *Runtime) True() *Object { return rt.trueObj }

// False returns the false singleton (borrowed).
func (rt *Runtime) False() *Object { return rt.falseObj }

// ---------------------------------------------------------------------------
// Null
// ---------------------------------------------------------------------------

// NullData is the data block of the null singleton.
type NullData struct{}

func (d *NullData) Fresh() Data { return &NullData{} }

func (d *NullData) Cached(rt *Runtime, class *Object, args []*Object) *Object {
	return rt.nullObj
}

func (d *NullData) Hash(obj *Object) uint64 { return 0x6e756c6c }

func (d *NullData) Debug(obj *Object) string { return "null" }

// Null returns an owned reference to the null singleton.
func (rt *Runtime) Null() *Object {
	rt.nullObj.IncRef()
	return rt.nullObj
}

// ---------------------------------------------------------------------------
// Numerical
// ---------------------------------------------------------------------------

// NumericalData is the data block of integers.
type NumericalData struct {
	Value int64
}

func (d *NumericalData) Fresh() Data { return &NumericalData{} }

func (d *NumericalData) Populate(rt *Runtime, obj *Object, args []*Object) error {
	n, err := numericalArg(args)
	if err != nil {
		return err
	}
	d.Value = n
	return nil
}

func (d *NumericalData) Cached(rt *Runtime, class *Object, args []*Object) *Object {
	if class != rt.classes[TypeNumerical] {
		return nil
	}
	n, err := numericalArg(args)
	if err != nil || n < numCacheMin || n > numCacheMax {
		return nil
	}
	return rt.numCache[n-numCacheMin]
}

func (d *NumericalData) Clone(obj *Object) Data { return &NumericalData{Value: d.Value} }

func (d *NumericalData) Hash(obj *Object) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(d.Value))
	return xxh3.Hash(b[:])
}

func (d *NumericalData) Debug(obj *Object) string {
	return strconv.FormatInt(d.Value, 10)
}

func numericalArg(args []*Object) (int64, error) {
	if len(args) == 0 {
		return 0, nil
	}
	switch v := args[0].data.(type) {
	case *NumericalData:
		return v.Value, nil
	case *StringData:
		n, err := strconv.ParseInt(v.Value, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not numerical", ErrBadArguments, v.Value)
		}
		return n, nil
	case *BooleanData:
		if v.Value {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: cannot convert %s to numerical", ErrBadArguments, args[0].typ)
	}
}

// NewNumerical returns an owned numerical object.
func (rt *Runtime) NewNumerical(n int64) *Object {
	if n >= numCacheMin && n <= numCacheMax {
		o := rt.numCache[n-numCacheMin]
		o.IncRef()
		return o
	}
	return rt.newInstance(rt.classes[TypeNumerical], &NumericalData{Value: n})
}

// ---------------------------------------------------------------------------
// String
// ---------------------------------------------------------------------------

// StringData is the data block of strings. Strings are binary safe.
type StringData struct {
	Value string
}

func (d *StringData) Fresh() Data { return &StringData{} }

func (d *StringData) Populate(rt *Runtime, obj *Object, args []*Object) error {
	if len(args) == 0 {
		return nil
	}
	switch v := args[0].data.(type) {
	case *StringData:
		d.Value = v.Value
	case *NumericalData, *BooleanData, *NullData:
		d.Value = Debug(args[0])
	default:
		return fmt.Errorf("%w: cannot convert %s to string", ErrBadArguments, args[0].typ)
	}
	return nil
}

func (d *StringData) Clone(obj *Object) Data { return &StringData{Value: d.Value} }

func (d *StringData) Hash(obj *Object) uint64 {
	return xxh3.HashString(d.Value)
}

func (d *StringData) Debug(obj *Object) string {
	return strconv.Quote(d.Value)
}

// NewString returns an owned string object.
func (rt *Runtime) NewString(s string) *Object {
	return rt.newInstance(rt.classes[TypeString], &StringData{Value: s})
}

// StringValue returns the content of a string object.
func StringValue(o *Object) (string, bool) {
	d, ok := o.data.(*StringData)
	if !ok {
		return "", false
	}
	return d.Value, true
}

// NumericalValue returns the value of a numerical object.
func NumericalValue(o *Object) (int64, bool) {
	d, ok := o.data.(*NumericalData)
	if !ok {
		return 0, false
	}
	return d.Value, true
}

// ---------------------------------------------------------------------------
// Regex
// ---------------------------------------------------------------------------

// RegexData is the data block of compiled regular expressions.
type RegexData struct {
	Pattern string
	re      *regexp2.Regexp
}

func (d *RegexData) Fresh() Data { return &RegexData{} }

func (d *RegexData) Populate(rt *Runtime, obj *Object, args []*Object) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: regex needs a pattern", ErrBadArguments)
	}
	pattern, ok := StringValue(args[0])
	if !ok {
		return fmt.Errorf("%w: regex pattern must be a string", ErrBadArguments)
	}
	return d.compile(pattern)
}

func (d *RegexData) compile(pattern string) error {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	d.Pattern = pattern
	d.re = re
	return nil
}

func (d *RegexData) Clone(obj *Object) Data {
	return &RegexData{Pattern: d.Pattern, re: d.re}
}

func (d *RegexData) Debug(obj *Object) string {
	return "/" + d.Pattern + "/"
}

// Match reports whether s matches the expression.
func (d *RegexData) Match(s string) (bool, error) {
	if d.re == nil {
		return false, fmt.Errorf("regex not compiled")
	}
	return d.re.MatchString(s)
}

// NewRegex compiles pattern into an owned regex object.
func (rt *Runtime) NewRegex(pattern string) (*Object, error) {
	d := &RegexData{}
	if err := d.compile(pattern); err != nil {
		return nil, err
	}
	return rt.newInstance(rt.classes[TypeRegex], d), nil
}

func (rt *Runtime) initRegex() {
	rt.classes[TypeRegex].AddInternalMethod("match", MethodNone, VisibilityPublic, func(rt *Runtime, self *Object, args []*Object) *Object {
		d, _ := self.data.(*RegexData)
		if d == nil || len(args) != 1 {
			rt.RaiseException(nil, ExceptionArgument, "match expects one string argument")
			return nil
		}
		s, ok := StringValue(args[0])
		if !ok {
			rt.RaiseException(nil, ExceptionArgument, "match expects a string, got %s", args[0].typ)
			return nil
		}
		matched, err := d.Match(s)
		if err != nil {
			rt.RaiseException(nil, ExceptionArgument, "match failed: %v", err)
			return nil
		}
		return rt.Boolean(matched)
	})
}

// ---------------------------------------------------------------------------
// Truthiness
// ---------------------------------------------------------------------------

// Truthy reports the boolean interpretation of an object.
func Truthy(o *Object) bool {
	if o == nil {
		return false
	}
	switch d := o.data.(type) {
	case *BooleanData:
		return d.Value
	case *NullData:
		return false
	case *NumericalData:
		return d.Value != 0
	case *StringData:
		return d.Value != ""
	case *ListData:
		return len(d.Items) > 0
	case *TupleData:
		return len(d.Items) > 0
	case *HashData:
		return d.Len() > 0
	default:
		return true
	}
}
