package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShareLock_SingleHolder(t *testing.T) {
	var l ShareLock

	assert.True(t, l.Request("A"))
	assert.True(t, l.Request("A"), "re-request by holder is approved")
	assert.False(t, l.Request("B"))

	holder, ok := l.Holder()
	assert.True(t, ok)
	assert.Equal(t, "A", string(holder))
}

func TestShareLock_ReleaseOnlyByHolder(t *testing.T) {
	var l ShareLock
	l.Request("A")

	assert.False(t, l.Release("B"))
	_, ok := l.Holder()
	assert.True(t, ok)

	assert.True(t, l.Release("A"))
	assert.False(t, l.Release("A"), "second release is a no-op")
	_, ok = l.Holder()
	assert.False(t, ok)

	assert.True(t, l.Request("B"))
}
