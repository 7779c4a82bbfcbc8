package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasktracker/internal/metrics"
	"github.com/BuzzLyutic/tasktracker/internal/model"
	"github.com/BuzzLyutic/tasktracker/internal/repo"
	"github.com/BuzzLyutic/tasktracker/internal/service"
	"github.com/BuzzLyutic/tasktracker/internal/testutil"
)

func setupServer(t *testing.T, gw repo.Gateway) *httptest.Server {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	taskService := service.NewTaskService(gw, zap.NewNop(), m)
	server := httptest.NewServer(NewRouter(NewTaskHandler(taskService, zap.NewNop()), m, []string{"http://allowed.test"}))
	t.Cleanup(server.Close)
	return server
}

// runWorkflow проходит полный сценарий через HTTP
func runWorkflow(t *testing.T, server *httptest.Server) {
	// 1. Create task
	resp, err := http.Post(server.URL+"/api/tasks", "application/json",
		bytes.NewBufferString(`{"title":"E2E Test Task","duration":1.5,"tags":["e2e"]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created model.Task
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	assert.Equal(t, int64(90), created.Duration)

	second, err := http.Post(server.URL+"/api/tasks", "application/json",
		bytes.NewBufferString(`{"title":"Second","duration":2}`))
	require.NoError(t, err)
	second.Body.Close()

	// 2. List tasks
	resp, err = http.Get(server.URL + "/api/tasks")
	require.NoError(t, err)
	var tasks []model.Task
	json.NewDecoder(resp.Body).Decode(&tasks)
	resp.Body.Close()
	require.Len(t, tasks, 2)
	assert.Equal(t, "Second", tasks[0].Title)

	// 3. Complete the first one
	resp, err = http.Post(fmt.Sprintf("%s/api/tasks/%s/complete", server.URL, created.ID), "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// 4. Delete the second one
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/tasks/%s", server.URL, tasks[0].ID), nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// 5. Stats count only the completion
	resp, err = http.Get(server.URL + "/api/stats")
	require.NoError(t, err)
	var stats model.Stats
	json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()
	assert.Equal(t, int64(1), stats.CompletedTasks)

	// 6. Nothing left
	resp, err = http.Get(server.URL + "/api/tasks")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `[]`, string(body))
}

func TestRouter_Workflow(t *testing.T) {
	runWorkflow(t, setupServer(t, repo.NewMemoryGateway()))
}

func TestRouter_WorkflowPostgres(t *testing.T) {
	pool := testutil.SetupTestDB(t)

	runWorkflow(t, setupServer(t, repo.NewPostgresGateway(pool)))
}

func TestRouter_CORS(t *testing.T) {
	server := setupServer(t, repo.NewMemoryGateway())

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/api/tasks", nil)
	req.Header.Set("Origin", "http://allowed.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://allowed.test", resp.Header.Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodGet, server.URL+"/api/tasks", nil)
	req.Header.Set("Origin", "http://evil.test")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_Metrics(t *testing.T) {
	server := setupServer(t, repo.NewMemoryGateway())

	resp, err := http.Post(server.URL+"/api/tasks", "application/json", bytes.NewBufferString(`{"title":"m","duration":1}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "tasktracker_tasks_created_total 1"))
	assert.Contains(t, string(body), "tasktracker_http_request_duration_seconds")
}
