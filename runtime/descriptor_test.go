package runtime

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

// hybridFunc carries both a scalar and an aggregate method set.
type hybridFunc struct {
	sumAggregate
}

func (f *hybridFunc) Apply(ctx *Context, args []*Value) error {
	return nil
}

// peekingSum has Value but no Inverse, so it is not a window function.
type peekingSum struct {
	sumAggregate
}

func (f *peekingSum) Value(ctx *Context) error {
	return nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		f    any
		want funcKind
	}{
		{"scalar", &upcaseFunc{}, kindScalar},
		{"aggregate", &sumAggregate{}, kindAggregate},
		{"window", &windowSum{}, kindWindow},
		{"scalar beats aggregate methods", &hybridFunc{}, kindScalar},
		{"value without inverse stays aggregate", &peekingSum{}, kindAggregate},
		{"unrecognized shape", &notAFunction{}, kindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, classify(reflect.TypeOf(tt.f)))
		})
	}
}

func TestFuncKindString(t *testing.T) {
	require.Equal(t, "scalar", kindScalar.String())
	require.Equal(t, "aggregate", kindAggregate.String())
	require.Equal(t, "window", kindWindow.String())
	require.Equal(t, "unsupported", kindUnsupported.String())
}

func TestDescriptorIdentity(t *testing.T) {
	rt := newTestRuntime(t)

	a := rt.descriptorFor(&upcaseFunc{})
	b := rt.descriptorFor(&upcaseFunc{})
	require.Same(t, a, b, "one descriptor per concrete type")
	require.Equal(t, kindScalar, a.Kind)
	require.True(t, a.HasDestroy)

	c := rt.descriptorFor(&joinFunc{})
	require.NotSame(t, a, c)
	require.False(t, c.HasDestroy)
}

func TestSameCallback(t *testing.T) {
	a, b := &upcaseFunc{}, &upcaseFunc{}
	require.True(t, sameCallback(a, a))
	require.False(t, sameCallback(a, b))
	require.True(t, sameCallback(nil, nil))
	require.False(t, sameCallback(a, nil))
	require.False(t, sameCallback(nil, a))

	// Comparable non-pointer callbacks match by value.
	require.True(t, sameCallback(joinFunc{}, joinFunc{}))
	require.False(t, sameCallback(joinFunc{}, upcaseFunc{}))
}
