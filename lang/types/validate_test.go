package types

import (
	"testing"

	"github.com/mna/sxcc/lang/sexpr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) sexpr.Node {
	t.Helper()
	n, err := sexpr.Parse(src)
	require.NoError(t, err)
	return n
}

func TestValidateScalars(t *testing.T) {
	tp, err := Validate(mustParse(t, "int"))
	require.Nil(t, err)
	assert.Equal(t, IntType, tp)

	tp, err = Validate(mustParse(t, "byte"))
	require.Nil(t, err)
	assert.Equal(t, ByteType, tp)

	tp, err = Validate(mustParse(t, "void"))
	require.Nil(t, err)
	assert.Equal(t, VoidType, tp)
}

func TestValidatePointerRoundTrip(t *testing.T) {
	tp, err := Validate(mustParse(t, "(ptr int)"))
	require.Nil(t, err)
	assert.True(t, tp.Equal(PtrTo(IntType)))

	again, err := Validate(mustParse(t, "(ptr int)"))
	require.Nil(t, err)
	assert.True(t, tp.Equal(again), "Validate(T) must equal Validate(T) again")
}

func TestValidateRejectsPointerToVoid(t *testing.T) {
	_, err := Validate(mustParse(t, "(ptr void)"))
	require.NotNil(t, err)
	assert.Equal(t, "bad pointer element", err.Msg)
}

func TestValidateRejectsUnknown(t *testing.T) {
	_, err := Validate(mustParse(t, "frobnicate"))
	require.NotNil(t, err)
}

func TestValidateNestedPointer(t *testing.T) {
	tp, err := Validate(mustParse(t, "(ptr ptr int)"))
	require.Nil(t, err)
	assert.True(t, tp.Equal(PtrTo(PtrTo(IntType))))
}

func TestValidatePartsForSignatureTail(t *testing.T) {
	n := mustParse(t, "(main int)").(*sexpr.List)
	tp, err := ValidateParts(n.Elems[1:], n.Pos())
	require.Nil(t, err)
	assert.Equal(t, IntType, tp)
}
