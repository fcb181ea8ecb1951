package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/keyscan/internal/db"
	"github.com/banshee-data/keyscan/internal/pointcloud"
	"github.com/banshee-data/keyscan/internal/session"
	"github.com/banshee-data/keyscan/internal/testutil"
)

func writeRecording(t *testing.T, dir, name string, frames []pointcloud.RecordedFrame) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, pointcloud.WriteRecording(f, frames))
	return path
}

func keyRecording(seeds ...int) []pointcloud.RecordedFrame {
	out := make([]pointcloud.RecordedFrame, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, pointcloud.RecordedFrame{Frame: testutil.KeyFrame(s)})
	}
	return out
}

// withFlags points the global flags at a temp database for one test.
func withFlags(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldDB, oldCfg := *dbPath, *configPath
	*dbPath = filepath.Join(dir, "keys.db")
	*configPath = "../../config/tuning.defaults.json"
	t.Cleanup(func() { *dbPath, *configPath = oldDB, oldCfg })
	return dir
}

var idPattern = regexp.MustCompile(`enrolled ([0-9a-f-]{36}) with (\d+) views`)

func TestRun_EnrollVerifyDelete(t *testing.T) {
	dir := withFlags(t)
	ctx := context.Background()

	enrollFrames := append([]pointcloud.RecordedFrame{
		{Frame: pointcloud.Frame{Tracking: pointcloud.Unavailable()}},
	}, keyRecording(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)...)
	enrollPath := writeRecording(t, dir, "enroll.jsonl", enrollFrames)

	var out bytes.Buffer
	require.NoError(t, run(ctx, "enroll", []string{"-frames", enrollPath}, &out))
	m := idPattern.FindStringSubmatch(out.String())
	require.NotNil(t, m, out.String())
	id := m[1]
	assert.Equal(t, "10", m[2])
	assert.Contains(t, out.String(), "rejected")

	out.Reset()
	require.NoError(t, run(ctx, "list", nil, &out))
	assert.Contains(t, out.String(), id)

	out.Reset()
	require.NoError(t, run(ctx, "show", []string{id}, &out))
	assert.Contains(t, out.String(), `"featureVectors"`)

	verifyPath := writeRecording(t, dir, "verify.jsonl", keyRecording(20, 21, 22, 23, 24))
	out.Reset()
	require.NoError(t, run(ctx, "verify", []string{"-key", id, "-frames", verifyPath}, &out))
	assert.Contains(t, out.String(), "recognised")
	assert.Equal(t, 3, bytes.Count(out.Bytes(), []byte("match=")), "stops at the first confirmed match")

	out.Reset()
	require.NoError(t, run(ctx, "delete", []string{id}, &out))
	out.Reset()
	require.NoError(t, run(ctx, "list", nil, &out))
	assert.Contains(t, out.String(), "no enrolled keys")
}

func TestRun_EnrollWithSelection(t *testing.T) {
	dir := withFlags(t)
	frames := keyRecording(0, 1, 2, 3, 4, 5, 6, 7, 8)
	frames[0].Selection = &pointcloud.SelectionEvent{ROI: pointcloud.ROI{X: 0.2, Y: 0.2, Width: 0.5, Height: 0.5}}
	path := writeRecording(t, dir, "enroll.jsonl", frames)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), "enroll", []string{"-frames", path}, &out))
	m := idPattern.FindStringSubmatch(out.String())
	require.NotNil(t, m, out.String())
	assert.Equal(t, "8", m[2], "the selecting frame is not captured")
}

func TestRun_EnrollTooFewFrames(t *testing.T) {
	dir := withFlags(t)
	path := writeRecording(t, dir, "short.jsonl", keyRecording(0, 1, 2))

	var out bytes.Buffer
	err := run(context.Background(), "enroll", []string{"-frames", path}, &out)
	assert.ErrorContains(t, err, "insufficient frames")

	out.Reset()
	require.NoError(t, run(context.Background(), "list", nil, &out))
	assert.Contains(t, out.String(), "no enrolled keys")
}

func TestRun_Errors(t *testing.T) {
	withFlags(t)
	ctx := context.Background()
	var out bytes.Buffer

	assert.Error(t, run(ctx, "bogus", nil, &out))
	assert.Error(t, run(ctx, "show", nil, &out))
	assert.Error(t, run(ctx, "show", []string{"not-a-uuid"}, &out))
	assert.ErrorContains(t, run(ctx, "delete", []string{"6f1c1a52-52a4-4f0e-9d1b-6a8f1c2d3e4f"}, &out), "key not found")
	assert.Error(t, run(ctx, "enroll", nil, &out))
	assert.Error(t, run(ctx, "verify", []string{"-key", "nope"}, &out))
}

func TestRun_Migrate(t *testing.T) {
	withFlags(t)
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), "migrate", []string{"up"}, &out))
	assert.Contains(t, out.String(), "Current version: 1")
}

func TestRun_VerifyReports(t *testing.T) {
	dir := withFlags(t)
	ctx := context.Background()
	var out bytes.Buffer

	enrollPath := writeRecording(t, dir, "enroll.jsonl", keyRecording(0, 1, 2, 3, 4, 5, 6, 7))
	require.NoError(t, run(ctx, "enroll", []string{"-frames", enrollPath}, &out))
	m := idPattern.FindStringSubmatch(out.String())
	require.NotNil(t, m)

	verifyPath := writeRecording(t, dir, "verify.jsonl", keyRecording(10, 11, 12, 13))
	plot := filepath.Join(dir, "scores.png")
	chart := filepath.Join(dir, "scores.html")
	out.Reset()
	require.NoError(t, run(ctx, "verify", []string{"-key", m[1], "-frames", verifyPath, "-all", "-plot", plot, "-chart", chart}, &out))
	assert.Equal(t, 4, bytes.Count(out.Bytes(), []byte("match=")))

	for _, p := range []string{plot, chart} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Positive(t, info.Size())
	}

	assert.Error(t, run(ctx, "verify", []string{"-key", m[1], "-frames", verifyPath, "-plot", "/proc/self/x.png"}, &out))
}

func TestServeMux(t *testing.T) {
	withFlags(t)
	ctx := context.Background()

	database, err := db.NewDB(*dbPath)
	require.NoError(t, err)
	defer database.Close()

	a, err := newApp(ctx, session.DefaultConfig(), database, io.Discard)
	require.NoError(t, err)
	mux, err := a.newServeMux(database)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/keys", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServeMuxMetrics(t *testing.T) {
	withFlags(t)
	ctx := context.Background()

	database, err := db.NewDB(*dbPath)
	require.NoError(t, err)
	defer database.Close()

	a, err := newApp(ctx, session.DefaultConfig(), database, io.Discard)
	require.NoError(t, err)
	mux, err := a.newServeMux(database)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "keyscan_keys_enrolled 0")
}
