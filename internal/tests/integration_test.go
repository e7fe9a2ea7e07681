package tests

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tg-clicker/internal/app"
	"tg-clicker/internal/config"
	"tg-clicker/internal/domain/dto"
	"tg-clicker/internal/gameclient"
)

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestIntegration(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.New()
	cfg.Server.Address = freeAddress(t)
	cfg.Storage.Driver = config.DriverFile
	cfg.Storage.FileDir = t.TempDir()

	application := app.New(logger, cfg)

	go func() {
		if err := application.HTTPServer.Run(); err != nil {
			logger.Error("Server stopped with error", slog.String("error", err.Error()))
		}
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = application.Stop(ctx)
	})

	baseURL := "http://" + cfg.Server.Address

	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/api/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	client := gameclient.New(baseURL + "/api")
	ctx := context.Background()

	t.Run("Status_test", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/status")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var status dto.StatusResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		require.Equal(t, config.DriverFile, status.Store)
		require.True(t, status.Connected)
	})

	var recordID string

	t.Run("SavePlayer_test", func(t *testing.T) {
		body := `{"telegramId": 31337, "username": "leet", "gameState": {"score": 1337}}`
		resp, err := http.Post(baseURL+"/api/players", "application/json", strToReadCloser(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var player dto.PlayerPayload
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&player))
		require.NotEmpty(t, player.ID)
		recordID = player.ID
	})

	t.Run("GetPlayer_test", func(t *testing.T) {
		player, err := client.GetPlayer(ctx, "31337")
		require.NoError(t, err)
		require.Equal(t, recordID, player.ID)

		_, err = client.GetPlayer(ctx, "999")
		require.ErrorIs(t, err, gameclient.ErrNotFound)
	})

	t.Run("Leaderboard_test", func(t *testing.T) {
		entries, err := client.Leaderboard(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, "leet", entries[0].Username)
	})

	t.Run("Preflight_test", func(t *testing.T) {
		require.NoError(t, client.Probe(ctx))
	})
}

func strToReadCloser(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}
