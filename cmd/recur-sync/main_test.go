package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tbourn/recur-sync/internal/config"
	"github.com/tbourn/recur-sync/internal/domain"
	"github.com/tbourn/recur-sync/internal/repo"
)

func testConfig(t *testing.T, remoteURL string) config.Config {
	t.Helper()
	return config.Config{
		DBPath:            filepath.Join(t.TempDir(), "queue.db"),
		ClientID:          "test-device",
		OfflineMaxRetries: 3,
		Remote: config.RemoteConfig{
			BaseURL: remoteURL,
			Timeout: 2 * time.Second,
			Burst:   1,
		},
		Connectivity: config.ConnectivityConfig{
			ProbeInterval: time.Second,
			ProbeTimeout:  time.Second,
		},
		SyncSchedule:   "@every 1m",
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{Enabled: false, ServiceName: "recur-sync-test"},
	}
}

func seed(t *testing.T, cfg config.Config, actions ...domain.OfflineAction) {
	t.Helper()
	db, err := openStore(cfg)
	require.NoError(t, err)
	defer closeDB(db)
	for i := range actions {
		require.NoError(t, repo.StoreOfflineAction(context.Background(), db, &actions[i]))
	}
}

func categoryCreate(id, name string, at time.Time) domain.OfflineAction {
	return domain.OfflineAction{
		ID:         id,
		Type:       domain.ActionCreate,
		Entity:     domain.EntityCategory,
		Data:       json.RawMessage(`{"name":"` + name + `"}`),
		Timestamp:  at,
		MaxRetries: 3,
	}
}

func TestRootCommand_Tree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["serve"])
	require.True(t, names["sync"])
	require.True(t, names["queue"])

	sub := map[string]bool{}
	for _, c := range queueCmd.Commands() {
		sub[c.Name()] = true
	}
	require.True(t, sub["list"])
	require.True(t, sub["clear"])
}

func TestQueueClear_RequiresConfirmation(t *testing.T) {
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "queue.db"))
	rootCmd.SetArgs([]string{"queue", "clear"})
	rootCmd.SetOut(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.ErrorContains(t, err, "--yes")
}

func TestListAndClearQueue(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seed(t, cfg,
		categoryCreate("0190a0a0-0000-7000-8000-000000000002", "Music", base.Add(time.Second)),
		categoryCreate("0190a0a0-0000-7000-8000-000000000001", "Video", base),
	)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, listQueue(ctx, cfg, &out, false))
	require.Contains(t, out.String(), "0190a0a0-0000-7000-8000-000000000001")
	require.Contains(t, out.String(), "2 pending")

	out.Reset()
	require.NoError(t, listQueue(ctx, cfg, &out, true))
	var listed []domain.OfflineAction
	require.NoError(t, json.Unmarshal(out.Bytes(), &listed))
	require.Len(t, listed, 2)
	require.Equal(t, "0190a0a0-0000-7000-8000-000000000001", listed[0].ID, "oldest first")

	out.Reset()
	require.NoError(t, clearQueue(ctx, cfg, &out))
	require.Contains(t, out.String(), "cleared 2")

	out.Reset()
	require.NoError(t, listQueue(ctx, cfg, &out, true))
	require.JSONEq(t, `[]`, out.String())
}

func TestRunSyncOnce_OnlineDrainsQueue(t *testing.T) {
	var created []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /health":
			w.WriteHeader(http.StatusOK)
		case "POST /categories":
			var c domain.Category
			_ = json.NewDecoder(r.Body).Decode(&c)
			created = append(created, c.Name)
			c.ID = "cat-1"
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(c)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seed(t, cfg,
		categoryCreate("0190a0a0-0000-7000-8000-000000000001", "Video", base),
		categoryCreate("0190a0a0-0000-7000-8000-000000000002", "Music", base.Add(time.Second)),
	)

	var out bytes.Buffer
	require.NoError(t, runSyncOnce(context.Background(), cfg, &out))

	var res syncOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.True(t, res.Online)
	require.Equal(t, 2, res.Report.Attempted)
	require.Equal(t, 2, res.Report.Succeeded)
	require.Equal(t, 0, res.State.PendingCount)
	require.NotNil(t, res.State.LastSyncTime)
	require.Equal(t, []string{"Video", "Music"}, created)
}

func TestRunSyncOnce_OfflineSkips(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := testConfig(t, url)
	seed(t, cfg, categoryCreate("0190a0a0-0000-7000-8000-000000000001", "Video", time.Now().UTC()))

	var out bytes.Buffer
	require.NoError(t, runSyncOnce(context.Background(), cfg, &out))

	var res syncOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.False(t, res.Online)
	require.True(t, res.Report.Skipped)
	require.Equal(t, 1, res.State.PendingCount)
}

func TestNewSchedulerAndServer(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Port = "0"
	cfg.ReadTimeout = time.Second
	a, err := openApp(context.Background(), cfg, false)
	require.NoError(t, err)
	defer a.Close(context.Background())

	s, err := newScheduler(a)
	require.NoError(t, err)
	require.Equal(t, 2, s.Entries())

	a.cfg.SyncSchedule = ""
	s, err = newScheduler(a)
	require.NoError(t, err)
	require.Equal(t, 1, s.Entries(), "empty schedule disables the sync job")

	srv := newServer(cfg, http.NotFoundHandler())
	require.Equal(t, ":0", srv.Addr)
	require.Equal(t, time.Second, srv.ReadTimeout)
}
