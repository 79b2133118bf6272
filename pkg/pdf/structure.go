package pdf

import (
	"errors"
	"fmt"
	"math"

	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/reader"

	"gitlab.com/tinyland/lab/flipbook/pkg/document"
)

// maxDepth bounds recursion through outline and name trees so a malformed
// file cannot blow the stack.
const maxDepth = 64

// structure reads the object graph: page objects, the outline and named
// destinations. The tabula reader seeks a shared file, so callers
// serialise access.
type structure struct {
	rd    *reader.Reader
	refs  map[document.PageRef]int
	pages int
}

func newStructure(rd *reader.Reader) (*structure, error) {
	s := &structure{rd: rd, refs: make(map[document.PageRef]int)}
	cat, err := rd.GetCatalog()
	if err != nil {
		return nil, err
	}
	root := cat.Get("Pages")
	if root == nil {
		return nil, errors.New("catalog has no /Pages")
	}
	if err := s.walkPages(root, 0, make(map[int]bool)); err != nil {
		return nil, err
	}
	return s, nil
}

// walkPages numbers leaf page objects in document order.
func (s *structure) walkPages(obj core.Object, depth int, seen map[int]bool) error {
	if depth > maxDepth {
		return errors.New("page tree too deep")
	}
	ref, isRef := obj.(core.IndirectRef)
	if isRef {
		if seen[ref.Number] {
			return fmt.Errorf("page tree cycle at %v", ref)
		}
		seen[ref.Number] = true
	}
	node, ok := s.dict(obj)
	if !ok {
		return fmt.Errorf("page tree node %v is not a dictionary", obj)
	}

	typ, _ := node.GetName("Type")
	if typ == "Pages" || (typ == "" && node.Has("Kids")) {
		kids, _ := s.array(node.Get("Kids"))
		for _, kid := range kids {
			if err := s.walkPages(kid, depth+1, seen); err != nil {
				return err
			}
		}
		return nil
	}
	if isRef {
		s.refs[document.PageRef{Object: ref.Number, Generation: ref.Generation}] = s.pages
	}
	s.pages++
	return nil
}

// outline returns the document outline, or nil when there is none.
// Entries whose destination cannot be parsed keep their title with a nil
// Dest.
func (s *structure) outline() []document.OutlineNode {
	cat, err := s.rd.GetCatalog()
	if err != nil {
		return nil
	}
	root, ok := s.dict(cat.Get("Outlines"))
	if !ok {
		return nil
	}
	return s.outlineItems(root.Get("First"), 0, make(map[int]bool))
}

func (s *structure) outlineItems(obj core.Object, depth int, seen map[int]bool) []document.OutlineNode {
	if depth > maxDepth {
		return nil
	}
	var nodes []document.OutlineNode
	for obj != nil {
		if ref, ok := obj.(core.IndirectRef); ok {
			if seen[ref.Number] {
				break
			}
			seen[ref.Number] = true
		}
		item, ok := s.dict(obj)
		if !ok {
			break
		}
		t, _ := s.rd.Resolve(item.Get("Title"))
		title, _ := t.(core.String)
		node := document.OutlineNode{Title: decodeText([]byte(title))}
		if d := item.Get("Dest"); d != nil {
			node.Dest = s.destination(d)
		} else if a, ok := s.dict(item.Get("A")); ok {
			if kind, _ := a.GetName("S"); kind == "GoTo" {
				node.Dest = s.destination(a.Get("D"))
			}
		}
		node.Children = s.outlineItems(item.Get("First"), depth+1, seen)
		nodes = append(nodes, node)
		obj = item.Get("Next")
	}
	return nodes
}

// destination converts an outline /Dest or /D value. Names and strings
// stay symbolic; arrays become explicit locations.
func (s *structure) destination(obj core.Object) document.Destination {
	v, err := s.rd.Resolve(obj)
	if err != nil {
		return nil
	}
	switch d := v.(type) {
	case core.Name:
		return document.Named(string(d))
	case core.String:
		return document.Named(string(d))
	case core.Array:
		loc, err := location(d)
		if err != nil {
			return nil
		}
		return loc
	case core.Dict:
		if inner := d.Get("D"); inner != nil {
			return s.destination(inner)
		}
	}
	return nil
}

// named looks name up in the /Names /Dests tree, then in the older
// catalog /Dests dictionary.
func (s *structure) named(name string) (document.Location, error) {
	cat, err := s.rd.GetCatalog()
	if err != nil {
		return document.Location{}, err
	}
	var found core.Object
	if names, ok := s.dict(cat.Get("Names")); ok {
		if tree, ok := s.dict(names.Get("Dests")); ok {
			found, err = s.searchNameTree(tree, name, 0)
			if err != nil {
				return document.Location{}, err
			}
		}
	}
	if found == nil {
		if dests, ok := s.dict(cat.Get("Dests")); ok {
			found = dests.Get(name)
		}
	}
	if found == nil {
		return document.Location{}, fmt.Errorf("%w: %q", document.ErrUnknownDestination, name)
	}

	v, err := s.rd.Resolve(found)
	if err != nil {
		return document.Location{}, err
	}
	if d, ok := v.(core.Dict); ok {
		if v, err = s.rd.Resolve(d.Get("D")); err != nil {
			return document.Location{}, err
		}
	}
	arr, ok := v.(core.Array)
	if !ok {
		return document.Location{}, fmt.Errorf("destination %q is %T, not an array", name, v)
	}
	return location(arr)
}

// searchNameTree finds key in a name tree, using /Limits to skip
// subtrees. It returns nil when the key is absent.
func (s *structure) searchNameTree(node core.Dict, key string, depth int) (core.Object, error) {
	if depth > maxDepth {
		return nil, errors.New("name tree too deep")
	}
	if names, ok := s.array(node.Get("Names")); ok {
		for i := 0; i+1 < len(names); i += 2 {
			k, err := s.rd.Resolve(names[i])
			if err != nil {
				continue
			}
			if ks, ok := k.(core.String); ok && string(ks) == key {
				return names[i+1], nil
			}
		}
	}
	kids, _ := s.array(node.Get("Kids"))
	for _, kid := range kids {
		kd, ok := s.dict(kid)
		if !ok {
			continue
		}
		if lim, ok := s.array(kd.Get("Limits")); ok && len(lim) == 2 {
			lo, _ := lim[0].(core.String)
			hi, _ := lim[1].(core.String)
			if key < string(lo) || key > string(hi) {
				continue
			}
		}
		v, err := s.searchNameTree(kd, key, depth+1)
		if err != nil || v != nil {
			return v, err
		}
	}
	return nil, nil
}

// pageIndex maps a page object reference to its index.
func (s *structure) pageIndex(ref document.PageRef) (int, bool) {
	i, ok := s.refs[ref]
	return i, ok
}

func (s *structure) dict(obj core.Object) (core.Dict, bool) {
	if obj == nil {
		return nil, false
	}
	v, err := s.rd.Resolve(obj)
	if err != nil {
		return nil, false
	}
	d, ok := v.(core.Dict)
	return d, ok
}

func (s *structure) array(obj core.Object) (core.Array, bool) {
	if obj == nil {
		return nil, false
	}
	v, err := s.rd.Resolve(obj)
	if err != nil {
		return nil, false
	}
	a, ok := v.(core.Array)
	return a, ok
}

// location parses an explicit destination array: [page /Fit args...].
// page is an indirect reference to a page object, or an integer page
// number as used by remote go-to actions. Null operands become NaN.
func location(arr core.Array) (document.Location, error) {
	if len(arr) == 0 {
		return document.Location{}, document.ErrDetachedLocation
	}
	var loc document.Location
	switch p := arr[0].(type) {
	case core.IndirectRef:
		loc = document.ForRef(document.PageRef{Object: p.Number, Generation: p.Generation})
	case core.Int:
		loc = document.At(int(p))
	default:
		return document.Location{}, fmt.Errorf("%w: page operand %v", document.ErrDetachedLocation, arr[0])
	}
	if len(arr) > 1 {
		if fit, ok := arr[1].(core.Name); ok {
			loc.Fit = string(fit)
		}
		for _, op := range arr[2:] {
			switch v := op.(type) {
			case core.Int:
				loc.Params = append(loc.Params, float64(v))
			case core.Real:
				loc.Params = append(loc.Params, float64(v))
			default:
				loc.Params = append(loc.Params, math.NaN())
			}
		}
	}
	return loc, nil
}
