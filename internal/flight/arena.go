package flight

import "fmt"

// Arena owns every branch of one run. Parents are referenced by index, so
// forking never creates ownership cycles.
type Arena struct {
	branches []*Branch
}

func NewArena() *Arena {
	return &Arena{}
}

// NewBranch adds an empty root branch.
func (a *Arena) NewBranch(name string) *Branch {
	b := &Branch{id: BranchID(len(a.branches)), name: name, parent: NoParent}
	a.branches = append(a.branches, b)
	return b
}

// Fork creates a child of parent holding copies of the parent's samples and
// events up to and including time t.
func (a *Arena) Fork(parent BranchID, name string, t float64) (*Branch, error) {
	p, err := a.Get(parent)
	if err != nil {
		return nil, err
	}
	if p.frozen {
		return nil, ErrFrozen
	}

	child := &Branch{
		id:       BranchID(len(a.branches)),
		name:     name,
		parent:   parent,
		forkTime: t,
	}
	for _, s := range p.samples {
		if s.Time > t {
			break
		}
		child.samples = append(child.samples, s)
	}
	for _, e := range p.events {
		if e.Time > t {
			break
		}
		child.events = append(child.events, e)
	}
	a.branches = append(a.branches, child)
	return child, nil
}

func (a *Arena) Get(id BranchID) (*Branch, error) {
	if id < 0 || int(id) >= len(a.branches) {
		return nil, fmt.Errorf("flight: no branch %d", id)
	}
	return a.branches[id], nil
}

func (a *Arena) Len() int { return len(a.branches) }

// Branches returns the branches in creation order.
func (a *Arena) Branches() []*Branch {
	out := make([]*Branch, len(a.branches))
	copy(out, a.branches)
	return out
}

// Freeze makes every branch read-only.
func (a *Arena) Freeze() {
	for _, b := range a.branches {
		b.frozen = true
	}
}
