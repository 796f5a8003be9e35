package doctpl

// Scope is one frame of the variable lookup chain. The root frame holds the render context;
// every loop iteration spawns a child frame with the loop bindings. The variables of a frame
// never change, so a binding cannot outlive the iteration that introduced it.
type Scope struct {
	parent *Scope
	vars   map[string]any
	flat   map[string]any // lazily built flattened view of vars
}

// NewScope creates a root scope over the given variables. The map is not modified.
func NewScope(vars map[string]any) *Scope {
	if vars == nil {
		vars = map[string]any{}
	}
	return &Scope{vars: vars}
}

// Spawn creates a child scope whose variables shadow the ones of s.
func (s *Scope) Spawn(vars map[string]any) *Scope {
	c := NewScope(vars)
	c.parent = s
	return c
}

// Parent returns the enclosing scope, or nil for the root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

func (s *Scope) Vars() map[string]any {
	return s.vars
}

// Get looks up a top-level key, innermost frame first. Nil values count as missing.
func (s *Scope) Get(key string) (any, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.vars[key]; ok && !isNil(v) {
			return v, true
		}
	}
	return nil, false
}

// Resolve looks up a field path, innermost frame first. In each frame the flattened view is
// tried before the nested walk, see resolvePath.
func (s *Scope) Resolve(path string) (any, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := resolvePath(f.flattened(), f.vars, path); ok {
			return v, true
		}
	}
	return nil, false
}

func (s *Scope) flattened() map[string]any {
	if s.flat == nil {
		s.flat = flatten(s.vars)
	}
	return s.flat
}
