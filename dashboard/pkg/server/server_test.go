package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
	"github.com/gridwatch/txlake/dashboard/pkg/loader"
	"github.com/gridwatch/txlake/dashboard/pkg/parquetio"
	"github.com/gridwatch/txlake/dashboard/pkg/schema"
	txtesting "github.com/gridwatch/txlake/utils/pkg/testing"
)

func newTestServer(t *testing.T, dir string, ready func() bool) *Server {
	t.Helper()
	l, err := loader.New(loader.Config{
		Logger:  txtesting.NewLogger(),
		DataDir: dir,
	})
	require.NoError(t, err)

	s, err := New(Config{
		Logger:      txtesting.NewLogger(),
		Loader:      l,
		ListenAddr:  "127.0.0.1:0",
		VersionInfo: VersionInfo{Version: "test", Commit: "abc1234", Date: "2026-03-01"},
		Ready:       ready,
	})
	require.NoError(t, err)
	return s
}

func writePriceMap(t *testing.T, dir string) {
	t.Helper()
	s := schema.Get("price_map")
	f := frame.New(s.ColumnNames()...)
	require.NoError(t, f.AppendRow(
		frame.String("HB_NORTH_1"),
		frame.Float(33.0),
		frame.Float(-96.8),
		frame.Float(4.2),
		frame.String("North"),
		frame.String("2026-03-01T00:00:00Z"),
	))
	require.NoError(t, parquetio.WriteFileAtomic(filepath.Join(dir, s.Filename), f, s))
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestTxLake_Server_ConfigValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)

	l, err := loader.New(loader.Config{Logger: txtesting.NewLogger(), DataDir: t.TempDir()})
	require.NoError(t, err)

	s, err := New(Config{Logger: txtesting.NewLogger(), Loader: l, ListenAddr: ":0"})
	require.NoError(t, err)
	require.Equal(t, defaultReadHeaderTimeout, s.cfg.ReadHeaderTimeout)
	require.Equal(t, defaultShutdownTimeout, s.cfg.ShutdownTimeout)
}

func TestTxLake_Server_GetDataset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePriceMap(t, dir)
	s := newTestServer(t, dir, nil)

	rec := get(t, s, "/api/datasets/price_map")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Dataset string           `json:"dataset"`
		Rows    []map[string]any `json:"rows"`
		Meta    struct {
			RowCount    int    `json:"rowCount"`
			LastUpdated string `json:"lastUpdated"`
			Warning     string `json:"warning"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "price_map", resp.Dataset)
	require.Len(t, resp.Rows, 1)
	require.Equal(t, "HB_NORTH_1", resp.Rows[0]["node_id"])
	require.Equal(t, 4.2, resp.Rows[0]["price_cperkwh"])
	require.Equal(t, 1, resp.Meta.RowCount)
	require.Equal(t, "2026-03-01T00:00:00Z", resp.Meta.LastUpdated)
	require.Empty(t, resp.Meta.Warning)
}

func TestTxLake_Server_GetDatasetUnknown(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, t.TempDir(), nil)
	rec := get(t, s, "/api/datasets/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp["error"], "nope")
}

func TestTxLake_Server_GetDatasetMissingFileStrict(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, t.TempDir(), nil)
	rec := get(t, s, "/api/datasets/fuelmix")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp["error"], "fuelmix")
}

func TestTxLake_Server_GetDatasetAllowEmpty(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, t.TempDir(), nil)
	rec := get(t, s, "/api/datasets/fuelmix?allow_empty=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows []map[string]any `json:"rows"`
		Meta struct {
			RowCount int    `json:"rowCount"`
			Warning  string `json:"warning"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Rows)
	require.Equal(t, 0, resp.Meta.RowCount)
	require.NotEmpty(t, resp.Meta.Warning)
}

func TestTxLake_Server_GetDatasetBadAllowEmpty(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, t.TempDir(), nil)
	rec := get(t, s, "/api/datasets/fuelmix?allow_empty=maybe")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTxLake_Server_ListDatasets(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, t.TempDir(), nil)
	rec := get(t, s, "/api/datasets")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []struct {
		Dataset  string `json:"dataset"`
		Filename string `json:"filename"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, len(schema.Datasets()))
	require.Equal(t, "fuelmix", resp[0].Dataset)
	require.Equal(t, "fuelmix.parquet", resp[0].Filename)
}

func TestTxLake_Server_Probes(t *testing.T) {
	t.Parallel()

	ready := false
	s := newTestServer(t, t.TempDir(), func() bool { return ready })

	require.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
	require.Equal(t, http.StatusServiceUnavailable, get(t, s, "/readyz").Code)

	ready = true
	require.Equal(t, http.StatusOK, get(t, s, "/readyz").Code)

	rec := get(t, s, "/version")
	require.Equal(t, http.StatusOK, rec.Code)
	var v VersionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Equal(t, "test", v.Version)
}

func TestTxLake_Server_Metrics(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, t.TempDir(), nil)
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestTxLake_Server_CORSPreflight(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, t.TempDir(), nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/datasets/fuelmix", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTxLake_Server_RunShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, t.TempDir(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
