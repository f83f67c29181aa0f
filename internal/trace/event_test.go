package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_CanonicalJSON(t *testing.T) {
	e := Event{
		Seq:   7,
		Token: "tok-1",
		Kind:  KindAction,
		Name:  "increment",
	}

	got, err := e.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t,
		`{"kind":"action","name":"increment","seq":7,"token":"tok-1"}`,
		string(got))
}

func TestEvent_DetailOmittedWhenEmpty(t *testing.T) {
	e := Event{Seq: 1, Token: "t", Kind: KindState, Name: "counter"}
	obj := e.Object()

	_, ok := obj["detail"]
	assert.False(t, ok, "empty detail must be absent, not null")

	e.Detail = Object{"count": Int(3)}
	got, err := e.CanonicalJSON()
	require.NoError(t, err)
	assert.Equal(t,
		`{"detail":{"count":3},"kind":"state","name":"counter","seq":1,"token":"t"}`,
		string(got))
}

func TestEvent_ID_StableAndDistinct(t *testing.T) {
	a := Event{Seq: 1, Token: "t", Kind: KindAction, Name: "x"}
	b := Event{Seq: 1, Token: "t", Kind: KindAction, Name: "x"}
	c := Event{Seq: 2, Token: "t", Kind: KindAction, Name: "x"}

	idA, err := a.ID()
	require.NoError(t, err)
	idB, err := b.ID()
	require.NoError(t, err)
	idC, err := c.ID()
	require.NoError(t, err)

	assert.Equal(t, idA, idB, "identical events share an identity")
	assert.NotEqual(t, idA, idC)
	assert.Len(t, idA, 64, "hex-encoded sha256")
}
