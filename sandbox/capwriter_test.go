package sandbox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCappedBuffer(t *testing.T) {
	t.Run("StoresBelowCap", func(t *testing.T) {
		b := newCappedBuffer(10)
		n, err := b.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, []byte("hello"), b.Bytes())
		assert.False(t, b.Truncated())
	})

	t.Run("TruncatesAtCapButKeepsConsuming", func(t *testing.T) {
		b := newCappedBuffer(4)
		n, err := b.Write([]byte("hello world"))
		require.NoError(t, err)
		// The writer must report everything consumed so the pipe drain
		// never stalls the child.
		assert.Equal(t, 11, n)
		assert.Equal(t, []byte("hell"), b.Bytes())
		assert.True(t, b.Truncated())

		n, err = b.Write([]byte("more"))
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte("hell"), b.Bytes())
	})

	t.Run("ExactFitIsNotTruncation", func(t *testing.T) {
		b := newCappedBuffer(5)
		_, err := b.Write([]byte("hello"))
		require.NoError(t, err)
		assert.False(t, b.Truncated())
	})

	t.Run("ZeroCapMeansUnbounded", func(t *testing.T) {
		b := newCappedBuffer(0)
		data := bytes.Repeat([]byte("x"), 1<<16)
		_, err := b.Write(data)
		require.NoError(t, err)
		assert.Len(t, b.Bytes(), 1<<16)
		assert.False(t, b.Truncated())
	})

	t.Run("EmptyWritePastCapDoesNotTruncate", func(t *testing.T) {
		b := newCappedBuffer(1)
		_, _ = b.Write([]byte("a"))
		_, err := b.Write(nil)
		require.NoError(t, err)
		assert.False(t, b.Truncated())
	})
}
