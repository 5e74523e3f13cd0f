package publish

import (
	"fmt"
)

// WorktreeOps moves an acquired worktree between refs.
type WorktreeOps interface {
	Checkout(path, ref string) error
	Restore(path string) error
}

type treeState int

const (
	treeIdle treeState = iota
	treeCheckedOut
	treeBuilt
)

func (s treeState) String() string {
	switch s {
	case treeIdle:
		return "idle"
	case treeCheckedOut:
		return "checked-out"
	case treeBuilt:
		return "built"
	default:
		return fmt.Sprintf("treeState(%d)", int(s))
	}
}

// sourceTree tracks the single reusable source worktree.
// Transitions: idle -> checked-out -> (built) -> idle.
type sourceTree struct {
	path  string
	ops   WorktreeOps
	state treeState
	ref   string
}

func newSourceTree(path string, ops WorktreeOps) *sourceTree {
	return &sourceTree{path: path, ops: ops}
}

func (t *sourceTree) checkout(ref string) error {
	if t.state != treeIdle {
		return fmt.Errorf("checkout of %s while source tree is %s at %s", ref, t.state, t.ref)
	}
	if err := t.ops.Checkout(t.path, ref); err != nil {
		return err
	}
	t.state = treeCheckedOut
	t.ref = ref
	return nil
}

func (t *sourceTree) markBuilt() error {
	if t.state != treeCheckedOut {
		return fmt.Errorf("source tree is %s, cannot mark %s built", t.state, t.ref)
	}
	t.state = treeBuilt
	return nil
}

// reset discards every modification made since checkout. Idle trees are left alone.
func (t *sourceTree) reset() error {
	if t.state == treeIdle {
		return nil
	}
	if err := t.ops.Restore(t.path); err != nil {
		return err
	}
	t.state = treeIdle
	t.ref = ""
	return nil
}
