package llmclient

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStore(t *testing.T) {
	t.Run("empty key is unusable", func(t *testing.T) {
		ks := NewKeyStore("")
		_, err := ks.Key()
		assert.ErrorIs(t, err, ErrNoCredentials)
		assert.False(t, ks.Configured())
	})

	t.Run("placeholder key is unusable", func(t *testing.T) {
		ks := NewKeyStore("sk-or-YOUR_KEY_HERE")
		_, err := ks.Key()
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("key is trimmed", func(t *testing.T) {
		ks := NewKeyStore("  sk-real \n")
		key, err := ks.Key()
		require.NoError(t, err)
		assert.Equal(t, "sk-real", key)
		assert.True(t, ks.Configured())
	})

	t.Run("SetKey replaces the key", func(t *testing.T) {
		ks := NewKeyStore("")
		ks.SetKey("sk-new")
		key, err := ks.Key()
		require.NoError(t, err)
		assert.Equal(t, "sk-new", key)

		ks.SetKey("")
		assert.False(t, ks.Configured())
	})
}

func TestKeyStore_ConcurrentAccess(t *testing.T) {
	ks := NewKeyStore("sk-a")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ks.SetKey("sk-b")
		}()
		go func() {
			defer wg.Done()
			key, err := ks.Key()
			assert.NoError(t, err)
			assert.Contains(t, []string{"sk-a", "sk-b"}, key)
		}()
	}
	wg.Wait()
}
