package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/keyscan/internal/features"
	"github.com/banshee-data/keyscan/internal/keytemplate"
	"github.com/banshee-data/keyscan/internal/pointcloud"
	"github.com/banshee-data/keyscan/internal/testutil"
	"github.com/banshee-data/keyscan/internal/timeutil"
)

var testEpoch = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func testClock() *timeutil.MockClock { return timeutil.NewMockClock(testEpoch) }

// enrolledTemplate builds a template from n key frames the same way a
// completed enrollment would.
func enrolledTemplate(t *testing.T, n int) keytemplate.KeyTemplate {
	t.Helper()
	ex := features.DefaultExtractor()
	vectors := make([][]float32, 0, n)
	for i := 0; i < n; i++ {
		v, err := ex.Extract(testutil.KeyFrame(i).Points)
		require.NoError(t, err)
		vectors = append(vectors, v)
	}
	tmpl, err := keytemplate.New(testEpoch, vectors)
	require.NoError(t, err)
	return tmpl
}

// oppositeTemplate holds a single all-negative vector. Extracted vectors
// are non-negative, so every frame scores at most 0.5 against it.
func oppositeTemplate(t *testing.T) keytemplate.KeyTemplate {
	t.Helper()
	v := make([]float32, features.Dimension)
	for i := range v {
		v[i] = -1
	}
	tmpl, err := keytemplate.New(testEpoch, [][]float32{v})
	require.NoError(t, err)
	return tmpl
}

// oneHotTemplate holds a single synthetic one-hot vector.
func oneHotTemplate(t *testing.T, i int) keytemplate.KeyTemplate {
	t.Helper()
	tmpl, err := keytemplate.New(testEpoch, [][]float32{testutil.OneHot(features.Dimension, i)})
	require.NoError(t, err)
	return tmpl
}

func untrackedFrame() pointcloud.Frame {
	f := testutil.KeyFrame(0)
	f.Tracking = pointcloud.Unavailable()
	return f
}

func emptyFrame() pointcloud.Frame {
	return pointcloud.Frame{Tracking: pointcloud.Normal()}
}

// finishes runs fn and fails the test if it has not returned within two
// seconds, which is how a lock cycle shows up.
func finishes(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("call did not return")
	}
}
