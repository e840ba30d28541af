package resultlog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndMessagesOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := []Entry{
		{DeliveryID: "d1", Path: "a.py", Class: "syntax_error", Message: "❌ Error in a.py at line 1: invalid syntax"},
		{DeliveryID: "d1", Path: "b.py", Class: "clean", Message: "✅ b.py: No errors"},
		{DeliveryID: "d2", Path: "a.py", Class: "clean", Message: "✅ a.py: No errors"},
	}
	for _, e := range entries {
		require.NoError(t, s.Append(ctx, e))
	}

	msgs, err := s.Messages(ctx)
	require.NoError(t, err)

	want := []string{
		"❌ Error in a.py at line 1: invalid syntax",
		"✅ b.py: No errors",
		"✅ a.py: No errors",
	}
	assert.Equal(t, want, msgs)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMessagesEmpty(t *testing.T) {
	s := openTestStore(t)

	msgs, err := s.Messages(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestAppendRejectsEmptyMessage(t *testing.T) {
	s := openTestStore(t)
	err := s.Append(context.Background(), Entry{DeliveryID: "d1", Path: "a.py"})
	assert.Error(t, err)
}

func TestAppendConcurrentDeliveries(t *testing.T) {
	// Appends from concurrent deliveries may interleave, but none may be
	// lost and no duplicates may appear.
	s := openTestStore(t)
	ctx := context.Background()

	const deliveries = 8
	const perDelivery = 25

	var wg sync.WaitGroup
	for d := range deliveries {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			for i := range perDelivery {
				e := Entry{
					DeliveryID: fmt.Sprintf("d%d", d),
					Path:       fmt.Sprintf("f%d.py", i),
					Class:      "clean",
					Message:    fmt.Sprintf("✅ d%d/f%d.py: No errors", d, i),
				}
				if err := s.Append(ctx, e); err != nil {
					t.Errorf("Append: %v", err)
					return
				}
			}
		}(d)
	}
	wg.Wait()

	msgs, err := s.Messages(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, deliveries*perDelivery)

	seen := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		assert.False(t, seen[m], "duplicate message %q", m)
		seen[m] = true
	}
}

func TestOpenFileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "results.db")

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(context.Background(), Entry{
		DeliveryID: "d1", Path: "a.py", Class: "clean", Message: "✅ a.py: No errors",
	}))

	msgs, err := s.Messages(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}
