package object

import "strings"

// InstanceOf walks the object and its parent chain, comparing the symbolic
// name and the implemented interfaces at each step. Every object is an
// instance of "base".
func (o *Object) InstanceOf(name string) bool {
	for cur := o; cur != nil; cur = cur.parent {
		if cur.name == name {
			return true
		}
		if cur.HasInterface(name) {
			return true
		}
	}
	return false
}

// HasInterface scans the interface list of the object only.
func (o *Object) HasInterface(name string) bool {
	for _, iface := range o.interfaces {
		if iface.name == name {
			return true
		}
	}
	return false
}

// CheckInterfaceImplementations verifies that every method declared by an
// implemented interface resolves to a concrete method on o. It returns false
// together with the missing "interface.method" names when the
// implementation is incomplete.
func (o *Object) CheckInterfaceImplementations() (bool, []string) {
	var missing []string
	for _, iface := range o.interfaces {
		iface.attributes.Each(func(name string, decl *Object) {
			d := AttributeOf(decl)
			if d == nil || d.Kind != AttribMethod {
				return
			}
			impl := AttributeOf(o.FindAttribute(name))
			if impl == nil || impl.Kind != AttribMethod || impl.Flags&MethodAbstract != 0 {
				missing = append(missing, iface.name+"."+name)
			}
		})
	}
	if len(missing) > 0 {
		log.Warningf("%s does not fully implement its interfaces: missing %s", Debug(o), strings.Join(missing, ", "))
		return false, missing
	}
	return true, nil
}
