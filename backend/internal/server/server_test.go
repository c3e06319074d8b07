package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"diarygraph/backend/internal/diary"
	"diarygraph/backend/internal/graphview"
	"diarygraph/backend/internal/layout"
	apperrors "diarygraph/backend/pkg/errors"
)

type staticSource []diary.Entry

func (s staticSource) Entries(context.Context, string) ([]diary.Entry, error) {
	return s, nil
}

type failingSource struct{}

func (failingSource) Entries(_ context.Context, userID string) ([]diary.Entry, error) {
	return nil, apperrors.NewEntriesFetchFailed("test", userID, errors.New("connection refused"))
}

// taggedEntries returns 15 entries tagged A:6, B:6, C:6
func taggedEntries() staticSource {
	base := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	out := make(staticSource, 15)
	for i := range out {
		out[i] = diary.Entry{ID: fmt.Sprintf("t%02d", i), Timestamp: base.AddDate(0, 0, i), Mood: "Calm"}
		switch {
		case i < 3:
			out[i].ManualTags = []string{"A"}
		case i < 6:
			out[i].ManualTags = []string{"A", "B"}
		case i < 9:
			out[i].ManualTags = []string{"B"}
		default:
			out[i].ManualTags = []string{"C"}
		}
	}
	return out
}

func newTestManager(source diary.Source) *Manager {
	opts := graphview.DefaultOptions()
	opts.Seed = 3
	return NewManager(source, opts, 0, time.Minute)
}

func newTestRouter(t *testing.T, m *Manager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Cleanup(m.Shutdown)
	return NewRouter(m, zap.NewNop())
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) graphview.Snapshot {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var snap graphview.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

// openSession opens a tag-clustered view and returns its id and snapshot
func openSession(t *testing.T, router *gin.Engine) (string, graphview.Snapshot) {
	t.Helper()
	w := doJSON(router, "POST", "/api/users/u1/graph", OpenRequest{Mode: "tag", Width: 800, Height: 600})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		SessionID string             `json:"session_id"`
		Snapshot  graphview.Snapshot `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID, resp.Snapshot
}

func firstCluster(t *testing.T, snap graphview.Snapshot) layout.Node {
	t.Helper()
	for _, n := range snap.Nodes {
		if n.Kind == layout.KindCluster && !n.Sentinel {
			return n
		}
	}
	t.Fatal("no drillable cluster in snapshot")
	return layout.Node{}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, newTestManager(staticSource{}))

	w := doJSON(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, float64(0), response["sessions"])
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t, newTestManager(staticSource{}))

	w := doJSON(router, "OPTIONS", "/api/graph/x", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenSession(t *testing.T) {
	m := newTestManager(taggedEntries())
	router := newTestRouter(t, m)

	sid, snap := openSession(t, router)
	assert.Equal(t, 1, m.Len())
	assert.True(t, snap.Clustered)
	assert.Equal(t, layout.DimTag, snap.ClusterMode)
	assert.Equal(t, 15, snap.VisibleEntries)
	assert.Len(t, snap.Nodes, 3)
	assert.Equal(t, 800.0, snap.Width)

	got := decodeSnapshot(t, doJSON(router, "GET", "/api/graph/"+sid, nil))
	assert.Len(t, got.Nodes, 3)
}

func TestOpenSession_Errors(t *testing.T) {
	t.Run("source failure", func(t *testing.T) {
		router := newTestRouter(t, newTestManager(failingSource{}))
		w := doJSON(router, "POST", "/api/users/u1/graph", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("unknown mode", func(t *testing.T) {
		router := newTestRouter(t, newTestManager(taggedEntries()))
		w := doJSON(router, "POST", "/api/users/u1/graph", OpenRequest{Mode: "weather"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		router := newTestRouter(t, newTestManager(taggedEntries()))
		req, _ := http.NewRequest("POST", "/api/users/u1/graph", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestUnknownSession(t *testing.T) {
	router := newTestRouter(t, newTestManager(taggedEntries()))

	assert.Equal(t, http.StatusNotFound, doJSON(router, "GET", "/api/graph/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, "DELETE", "/api/graph/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(router, "POST", "/api/graph/missing/zoom/in", nil).Code)
}

func TestCloseSession(t *testing.T) {
	m := newTestManager(taggedEntries())
	router := newTestRouter(t, m)
	sid, _ := openSession(t, router)

	w := doJSON(router, "DELETE", "/api/graph/"+sid, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, http.StatusNotFound, doJSON(router, "GET", "/api/graph/"+sid, nil).Code)
}

func TestDrillAndBack(t *testing.T) {
	router := newTestRouter(t, newTestManager(taggedEntries()))
	sid, snap := openSession(t, router)
	cluster := firstCluster(t, snap)

	w := doJSON(router, "POST", "/api/graph/"+sid+"/drill", gin.H{"node_id": cluster.ID})
	drilled := decodeSnapshot(t, w)
	require.Len(t, drilled.Path, 1)
	assert.Equal(t, layout.DimTag, drilled.Path[0].Mode)
	assert.False(t, drilled.Clustered, "Expected 6 entries to render in detail")
	assert.Equal(t, 6, drilled.VisibleEntries)
	assert.Equal(t, []string{cluster.GroupKey}, drilled.Filters.Tags)

	w = doJSON(router, "PUT", "/api/graph/"+sid+"/mode", gin.H{"mode": "mood"})
	assert.Equal(t, http.StatusConflict, w.Code, "Expected mode to be locked below the root")

	back := decodeSnapshot(t, doJSON(router, "POST", "/api/graph/"+sid+"/back", nil))
	assert.Empty(t, back.Path)
	assert.Empty(t, back.Filters.Tags)
	assert.Equal(t, 15, back.VisibleEntries)
}

func TestDrill_Rejected(t *testing.T) {
	router := newTestRouter(t, newTestManager(taggedEntries()))
	sid, _ := openSession(t, router)

	w := doJSON(router, "POST", "/api/graph/"+sid+"/drill", gin.H{"node_id": "cluster-nope"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, "POST", "/api/graph/"+sid+"/drill", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDoubleClickOnEmptyCanvas(t *testing.T) {
	router := newTestRouter(t, newTestManager(taggedEntries()))
	sid, _ := openSession(t, router)

	w := doJSON(router, "POST", "/api/graph/"+sid+"/dblclick", gin.H{"x": -5000, "y": -5000})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Drilled bool `json:"drilled"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Drilled)
}

func TestSetters(t *testing.T) {
	router := newTestRouter(t, newTestManager(taggedEntries()))
	sid, _ := openSession(t, router)
	base := "/api/graph/" + sid

	snap := decodeSnapshot(t, doJSON(router, "PUT", base+"/mode", gin.H{"mode": "mood"}))
	assert.Equal(t, layout.DimMood, snap.ClusterMode)

	assert.Equal(t, http.StatusBadRequest, doJSON(router, "PUT", base+"/mode", gin.H{"mode": "weather"}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(router, "PUT", base+"/mode", gin.H{}).Code)

	snap = decodeSnapshot(t, doJSON(router, "PUT", base+"/detailed", gin.H{"detailed": true}))
	assert.True(t, snap.ForceDetailed)
	assert.False(t, snap.Clustered)

	snap = decodeSnapshot(t, doJSON(router, "PUT", base+"/filters", diary.FilterState{Tags: []string{"C"}}))
	assert.Equal(t, 6, snap.VisibleEntries)

	snap = decodeSnapshot(t, doJSON(router, "PUT", base+"/size", gin.H{"width": 1024, "height": 768}))
	assert.Equal(t, 1024.0, snap.Width)
	assert.Equal(t, 768.0, snap.Height)
	assert.Equal(t, http.StatusBadRequest, doJSON(router, "PUT", base+"/size", gin.H{"width": 0, "height": 768}).Code)
}

func TestViewportControls(t *testing.T) {
	router := newTestRouter(t, newTestManager(taggedEntries()))
	sid, _ := openSession(t, router)
	base := "/api/graph/" + sid

	snap := decodeSnapshot(t, doJSON(router, "POST", base+"/zoom/in", nil))
	assert.InDelta(t, 1.2, snap.Zoom, 1e-9)

	snap = decodeSnapshot(t, doJSON(router, "POST", base+"/zoom/out", nil))
	assert.InDelta(t, 1.0, snap.Zoom, 1e-9)

	snap = decodeSnapshot(t, doJSON(router, "POST", base+"/wheel", gin.H{"x": 100, "y": 100, "delta_y": -1}))
	assert.Greater(t, snap.Zoom, 1.0)

	snap = decodeSnapshot(t, doJSON(router, "POST", base+"/reset-view", nil))
	assert.Equal(t, 1.0, snap.Zoom)
	assert.Equal(t, layout.Vec{X: 400, Y: 300}, snap.Offset)

	snap = decodeSnapshot(t, doJSON(router, "POST", base+"/fit", nil))
	assert.Greater(t, snap.Zoom, 0.0)
}

func TestPanGesture(t *testing.T) {
	router := newTestRouter(t, newTestManager(taggedEntries()))
	sid, _ := openSession(t, router)
	base := "/api/graph/" + sid

	w := doJSON(router, "POST", base+"/pointer/down", gin.H{"x": -3000, "y": -3000})
	require.Equal(t, http.StatusOK, w.Code)
	var down struct {
		Hit string `json:"hit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &down))
	assert.Empty(t, down.Hit)

	snap := decodeSnapshot(t, doJSON(router, "POST", base+"/pointer/move", gin.H{"x": -2980, "y": -2990}))
	assert.Equal(t, layout.Vec{X: 420, Y: 310}, snap.Offset)

	decodeSnapshot(t, doJSON(router, "POST", base+"/pointer/up", nil))
	snap = decodeSnapshot(t, doJSON(router, "POST", base+"/pointer/move", gin.H{"x": 100, "y": 100}))
	assert.Equal(t, layout.Vec{X: 420, Y: 310}, snap.Offset, "Expected moves after release to be ignored")
}

func TestTickEndpoint(t *testing.T) {
	router := newTestRouter(t, newTestManager(taggedEntries()))
	sid, _ := openSession(t, router)
	base := "/api/graph/" + sid

	snap := decodeSnapshot(t, doJSON(router, "POST", base+"/tick", gin.H{"ticks": 10}))
	assert.Equal(t, 10, snap.Ticks)

	assert.Equal(t, http.StatusBadRequest, doJSON(router, "POST", base+"/tick", gin.H{"ticks": 0}).Code)
}

func TestHistoryAndFacets(t *testing.T) {
	router := newTestRouter(t, newTestManager(taggedEntries()))
	sid, snap := openSession(t, router)
	base := "/api/graph/" + sid
	cluster := firstCluster(t, snap)

	// Select the cluster by pressing on its screen position
	screen := layout.Vec{
		X: cluster.Position.X*snap.Zoom + snap.Offset.X,
		Y: cluster.Position.Y*snap.Zoom + snap.Offset.Y,
	}
	w := doJSON(router, "POST", base+"/pointer/down", gin.H{"x": screen.X, "y": screen.Y})
	require.Equal(t, http.StatusOK, w.Code)
	var down struct {
		Selected *layout.Node `json:"selected"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &down))
	require.NotNil(t, down.Selected)
	doJSON(router, "POST", base+"/pointer/up", nil)

	w = doJSON(router, "POST", base+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		Filters diary.FilterState `json:"filters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Equal(t, []string{down.Selected.GroupKey}, hist.Filters.Tags)

	w = doJSON(router, "GET", base+"/facets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var facets layout.Facets
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &facets))
	assert.Equal(t, []string{"A", "B", "C"}, facets.Tags)
}

func TestSweep(t *testing.T) {
	m := newTestManager(taggedEntries())
	clock := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	defer m.Shutdown()

	idle, err := m.Open(context.Background(), "u1", OpenRequest{})
	require.NoError(t, err)
	busy, err := m.Open(context.Background(), "u2", OpenRequest{})
	require.NoError(t, err)

	clock = clock.Add(45 * time.Second)
	busy.Do(func(*graphview.Controller) {})
	clock = clock.Add(30 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	_, err = m.Get(idle.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeSession))
	_, err = m.Get(busy.ID)
	assert.NoError(t, err)
}

func TestManagerRunsFrameLoop(t *testing.T) {
	opts := graphview.DefaultOptions()
	opts.Seed = 5
	m := NewManager(taggedEntries(), opts, time.Millisecond, time.Minute)
	defer m.Shutdown()

	s, err := m.Open(context.Background(), "u1", OpenRequest{Mode: "tag"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var ticks int
		s.Do(func(ctrl *graphview.Controller) { ticks = ctrl.Snapshot().Ticks })
		return ticks > 5
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, m.Close(s.ID))
}
