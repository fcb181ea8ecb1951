package db

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachAdminRoutes(t *testing.T) {
	database, err := NewDB(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	defer database.Close()

	mux := http.NewServeMux()
	require.NoError(t, database.AttachAdminRoutes(mux))

	t.Run("tailsql endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusNotFound, rec.Code)
	})

	t.Run("backup endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		require.NotEqual(t, http.StatusNotFound, rec.Code)
		if rec.Code != http.StatusOK {
			t.Skipf("debug handler refused the request: %d", rec.Code)
		}
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "keyscan-backup-")

		gz, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		data, err := io.ReadAll(gz)
		require.NoError(t, err)
		assert.True(t, len(data) > 16 && string(data[:15]) == "SQLite format 3")
	})
}
