package snapshot

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/burakenal/data/core/server"
	"github.com/burakenal/data/core/storage/mocks"
)

func setupTestApp(t *testing.T, cfg server.Config) (*fiber.App, *Service) {
	t.Helper()
	svc, _, _ := setupService(t, cfg)
	app := fiber.New()
	NewHandler(svc).RegisterRoutes(app)
	return app, svc
}

func TestHandler(t *testing.T) {
	t.Run("Export", func(t *testing.T) {
		app, svc := setupTestApp(t, server.Config{})
		var data []byte
		expectExport(svc.client.(*mocks.Client), &data)

		resp, err := app.Test(httptest.NewRequest("POST", "/snapshots/users", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var body ExportResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 2, body.Rows)
		assert.NotEmpty(t, data)
	})

	t.Run("Import Dry Run", func(t *testing.T) {
		app, svc := setupTestApp(t, server.Config{})
		expectRead(svc.client.(*mocks.Client), []byte(`{"table":"users","rows":[{"id":1,"name":"Ada","email":"ada@example.com"}]}`))

		resp, err := app.Test(httptest.NewRequest("POST", "/snapshots/users/import?prune=true&confirm=true&dry_run=true", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body ImportResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.False(t, body.Applied)
		assert.Equal(t, 1, body.Plan.Summary.Deletes)
		assert.Equal(t, 1, body.Plan.Summary.Unchanged)
	})

	t.Run("Import Missing Snapshot", func(t *testing.T) {
		app, svc := setupTestApp(t, server.Config{})
		svc.client.(*mocks.Client).On("GetObject", mock.Anything, "snapshots", "tables/users.json", mock.Anything).
			Return(nil, minio.ErrorResponse{Code: "NoSuchKey"})

		resp, err := app.Test(httptest.NewRequest("POST", "/snapshots/users/import", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("Import Read Only", func(t *testing.T) {
		app, _ := setupTestApp(t, server.Config{ReadOnly: true})

		resp, err := app.Test(httptest.NewRequest("POST", "/snapshots/users/import?confirm=true", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("Delete", func(t *testing.T) {
		app, svc := setupTestApp(t, server.Config{})
		client := svc.client.(*mocks.Client)
		client.On("RemoveObject", mock.Anything, "snapshots", "tables/users.json", mock.Anything).Return(nil).Once()

		resp, err := app.Test(httptest.NewRequest("DELETE", "/snapshots/users", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		client.AssertExpectations(t)
	})

	t.Run("List", func(t *testing.T) {
		app, svc := setupTestApp(t, server.Config{})
		ch := make(chan minio.ObjectInfo, 1)
		ch <- minio.ObjectInfo{Key: "tables/users.json", Size: 10}
		close(ch)
		svc.client.(*mocks.Client).On("ListObjects", mock.Anything, "snapshots", mock.Anything).
			Return((<-chan minio.ObjectInfo)(ch))

		resp, err := app.Test(httptest.NewRequest("GET", "/snapshots", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body struct {
			Count     int     `json:"count"`
			Snapshots []Entry `json:"snapshots"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, "users", body.Snapshots[0].Table)
	})
}

func TestFeature(t *testing.T) {
	f := NewFeature(nil, nil, storageCfg, server.Config{}, zap.NewNop())
	assert.Equal(t, "snapshot", f.Name())
	assert.False(t, f.IsEnabled())
}
