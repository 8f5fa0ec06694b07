package form

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"resumebuilder/internal/errors"
	"resumebuilder/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewReflectsLatestInput(t *testing.T) {
	for _, field := range types.AllFields {
		t.Run(string(field), func(t *testing.T) {
			sess := NewSession("test")

			require.NoError(t, sess.Set(field, "first value"))
			require.NoError(t, sess.Clear(field))
			require.NoError(t, sess.Set(field, "final value"))

			snap, err := sess.Preview()
			require.NoError(t, err)
			assert.Equal(t, "final value", snap.Display(field))

			for _, other := range types.AllFields {
				if other != field {
					assert.Equal(t, types.NotProvided, snap.Display(other))
				}
			}
		})
	}
}

func TestSnapshotUnaffectedByLaterEdits(t *testing.T) {
	sess := NewSession("test")
	require.NoError(t, sess.Set(types.FieldName, "Jane Doe"))
	require.NoError(t, sess.Set(types.FieldSkills, "Go, SQL"))

	snap, err := sess.Preview()
	require.NoError(t, err)

	require.NoError(t, sess.Set(types.FieldName, "John Smith"))
	require.NoError(t, sess.Clear(types.FieldSkills))
	sess.Reset()

	assert.Equal(t, "Jane Doe", snap.Fields.Name)
	assert.Equal(t, "Go, SQL", snap.Fields.Skills)

	stored, ok := sess.LastPreview()
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", stored.Fields.Name)
}

func TestSetUnknownField(t *testing.T) {
	f := New()
	err := f.Set(types.Field("age"), "30")
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeUnknownField, appErr.Code)
}

func TestApplyIsAllOrNothing(t *testing.T) {
	f := New()
	err := f.Apply(map[types.Field]string{types.FieldName: "Jane", types.Field("age"): "30"})
	require.Error(t, err)
	assert.Empty(t, f.Fields().Name)

	require.NoError(t, f.Apply(map[types.Field]string{types.FieldName: "Jane"}))
	assert.Equal(t, "Jane", f.Fields().Name)
}

func TestBeginRejectsWhileBusy(t *testing.T) {
	sess := NewSession("test")

	release, err := sess.Begin()
	require.NoError(t, err)
	assert.True(t, sess.Busy())

	_, err = sess.Begin()
	assert.True(t, errors.IsBusy(err))

	_, err = sess.Preview()
	assert.True(t, errors.IsBusy(err), "preview is a trigger and must report busy")

	release()
	assert.False(t, sess.Busy())

	_, err = sess.Preview()
	assert.NoError(t, err)
}

func TestReleaseClearsExactlyOnce(t *testing.T) {
	sess := NewSession("test")

	var sets, clears atomic.Int32
	sess.OnBusyChange(func(busy bool) {
		if busy {
			sets.Add(1)
		} else {
			clears.Add(1)
		}
	})

	release, err := sess.Begin()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), sets.Load())
	assert.Equal(t, int32(1), clears.Load())
	assert.False(t, sess.Busy())
}

func TestConcurrentBeginAdmitsOne(t *testing.T) {
	sess := NewSession("test")

	var admitted atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := sess.Begin(); err == nil {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
}

func TestScoreReplacement(t *testing.T) {
	sess := NewSession("test")
	_, ok := sess.LastScore()
	assert.False(t, ok)

	first := types.ScoreResult{Score: types.NumericScore(70), Explanation: "first"}
	sess.SetScore(&first)
	first.Explanation = "mutated"

	got, ok := sess.LastScore()
	require.True(t, ok)
	assert.Equal(t, "first", got.Explanation)

	sess.SetScore(nil)
	_, ok = sess.LastScore()
	assert.False(t, ok)
}

func TestStoreLifecycle(t *testing.T) {
	store := NewStore(time.Minute, 0, nil)
	defer store.Close()

	sess := store.Create()
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, store.Len())

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = store.Get("missing")
	assert.True(t, errors.IsNotFound(err))

	assert.True(t, store.Delete(sess.ID))
	assert.False(t, store.Delete(sess.ID))
	assert.Equal(t, 0, store.Len())
}

func TestStoreCleanupSkipsBusySessions(t *testing.T) {
	store := NewStore(time.Minute, 0, nil)
	defer store.Close()

	idle := store.Create()
	busy := store.Create()
	release, err := busy.Begin()
	require.NoError(t, err)
	defer release()

	removed := store.cleanup(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 1, removed)

	_, err = store.Get(idle.ID)
	assert.Error(t, err)
	_, err = store.Get(busy.ID)
	assert.NoError(t, err)

	stats := store.GetStats()
	assert.Equal(t, 1, stats["active_sessions"])
	assert.Equal(t, 1, stats["busy_sessions"])
}
