package scope

import (
	"testing"

	"github.com/mna/sxcc/lang/types"
	"github.com/stretchr/testify/require"
)

func TestLookupVarWalksChain(t *testing.T) {
	root := New(nil, 0)
	root.Bind("x", Var{Type: types.Type{Head: types.Int}, Slot: 0})

	child := New(root, 1)
	v, ok := child.LookupVar("x")
	require.True(t, ok)
	require.Equal(t, 0, v.Slot)

	_, ok = child.LookupVar("y")
	require.False(t, ok)
}

func TestDeclaredIsNotInherited(t *testing.T) {
	root := New(nil, 0)
	root.Bind("x", Var{Type: types.Type{Head: types.Int}, Slot: 0})
	child := New(root, 1)

	require.True(t, root.Declared("x"))
	require.False(t, child.Declared("x"))
}

func TestChildInheritsLoopLabels(t *testing.T) {
	root := New(nil, 0)
	root.LoopStart, root.LoopEnd = 3, 4

	child := New(root, 0)
	require.Equal(t, 3, child.LoopStart)
	require.Equal(t, 4, child.LoopEnd)
}

func TestFuncOverloadsByArgs(t *testing.T) {
	root := New(nil, 0)
	k1 := FuncKey{Name: "f", Args: "int"}
	k2 := FuncKey{Name: "f", Args: "int,int"}

	root.BindFunc(k1, Func{RType: types.Type{Head: types.Void}, Index: 0})
	root.BindFunc(k2, Func{RType: types.Type{Head: types.Int}, Index: 1})

	require.True(t, root.DeclaredFunc(k1))
	require.True(t, root.DeclaredFunc(k2))

	f, ok := root.LookupFunc(k2)
	require.True(t, ok)
	require.Equal(t, 1, f.Index)
}
