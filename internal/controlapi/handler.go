package controlapi

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	internalerrors "mettagrid/internal/errors"
	"mettagrid/internal/events"
	httpmiddleware "mettagrid/internal/middleware/http"
	"mettagrid/internal/logger"
	"mettagrid/internal/transport/wsstream"
)

// Handler exposes the Manager over gin, mirroring the teacher's
// internal/delivery/http handler style (gin.Context methods, gin.H bodies)
// rather than its alternate net/http+mux BaseHandler style, since mux
// isn't part of this module's wired dependency set.
type Handler struct {
	manager  *Manager
	upgrader websocket.Upgrader
}

// NewHandler wraps manager. The upgrader accepts any origin, matching the
// teacher's local-dev websocket hub configuration — this control surface
// is meant to sit behind a trusted proxy, not be exposed directly.
func NewHandler(manager *Manager) *Handler {
	return &Handler{
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "simcore",
	})
}

// CreateEpisode handles POST /episodes.
func (h *Handler) CreateEpisode(c *gin.Context) {
	var req CreateEpisodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpmiddleware.JSONError(c, http.StatusBadRequest, err.Error())
		return
	}

	ep, err := h.manager.Create(req.Config, req.Seed)
	if err != nil {
		httpmiddleware.JSONError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	c.JSON(http.StatusCreated, CreateEpisodeResponse{
		EpisodeID: ep.ID,
		NumAgents: ep.Sim.NumAgents(),
		NumTokens: len(ep.Buffers.Observations[0]) / 3,
	})
}

// GetStats handles GET /episodes/:id/stats.
func (h *Handler) GetStats(c *gin.Context) {
	ep, ok := h.manager.Get(c.Param("id"))
	if !ok {
		notFound(c, c.Param("id"))
		return
	}

	ep.RLock()
	defer ep.RUnlock()

	resp := StatsResponse{
		Step:       ep.Sim.CurrentStep(),
		AgentStats: make([]AgentStatsDTO, ep.Sim.NumAgents()),
	}
	for _, o := range ep.Sim.GridObjects() {
		if o.Agent == nil || o.Agent.AgentID < 0 || o.Agent.AgentID >= len(resp.AgentStats) {
			continue
		}
		resp.AgentStats[o.Agent.AgentID] = AgentStatsDTO{
			AgentIndex:    o.Agent.AgentID,
			LastReward:    o.Agent.LastReward,
			EpisodeReward: o.Agent.EpisodeReward,
			Alive:         o.Alive,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetObjects handles GET /episodes/:id/objects.
func (h *Handler) GetObjects(c *gin.Context) {
	ep, ok := h.manager.Get(c.Param("id"))
	if !ok {
		notFound(c, c.Param("id"))
		return
	}

	ep.RLock()
	defer ep.RUnlock()

	names := newNameTables(ep.Sim.TagIDs())
	objs := ep.Sim.GridObjects()
	dtos := make([]ObjectDTO, len(objs))
	for i, o := range objs {
		dtos[i] = toObjectDTO(o, names)
	}
	c.JSON(http.StatusOK, gin.H{"objects": dtos})
}

// DeleteEpisode handles DELETE /episodes/:id.
func (h *Handler) DeleteEpisode(c *gin.Context) {
	id := c.Param("id")
	if err := h.manager.Delete(id); err != nil {
		notFound(c, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// StreamEpisode handles GET /episodes/:id/stream: it upgrades to a
// websocket and hands the connection to wsstream.Serve for the lifetime
// of the socket, per SPEC_FULL.md §6 "Step/observation stream".
func (h *Handler) StreamEpisode(c *gin.Context) {
	id := c.Param("id")
	ep, ok := h.manager.Get(id)
	if !ok {
		notFound(c, id)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Get().Warn("websocket upgrade failed", zap.String("episode_id", id), zap.Error(err))
		return
	}

	wsConn := wsstream.NewConnection(id, id, conn)
	defer wsConn.Close()

	wsstream.Serve(ep.Sim, ep.Buffers, wsConn, ep)
}

// StreamEvents handles GET /episodes/:id/events: a server-sent-events feed
// of this episode's lifecycle events (episode.started/reset/ended),
// subscribed through the Manager's EventRepository — the handler layer's
// one subscription entry point onto the simulation's event bus, per
// SPEC_FULL.md §6's control surface. Unlike StreamEpisode's per-tick
// websocket, this is a coarse side channel a dashboard can watch without
// driving the simulation itself.
func (h *Handler) StreamEvents(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.manager.Get(id); !ok {
		notFound(c, id)
		return
	}

	feed := make(chan events.Event, 16)
	var closed int32
	forward := func(ctx context.Context, event events.Event) error {
		if event.GetEpisodeID() != id {
			return nil
		}
		if atomic.LoadInt32(&closed) != 0 {
			return nil
		}
		select {
		case feed <- event:
		default:
			logger.Get().Warn("event stream slow consumer, dropping event",
				zap.String("episode_id", id), zap.String("event_type", event.GetType()))
		}
		return nil
	}
	h.manager.Subscribe(events.EventTypeEpisodeStarted, forward)
	h.manager.Subscribe(events.EventTypeEpisodeReset, forward)
	h.manager.Subscribe(events.EventTypeEpisodeEnded, forward)
	defer atomic.StoreInt32(&closed, 1)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case event, ok := <-feed:
			if !ok {
				return false
			}
			c.SSEvent(event.GetType(), event)
			return true
		}
	})
}

func notFound(c *gin.Context, id string) {
	err := &internalerrors.NotFoundError{Resource: "episode", ID: id}
	httpmiddleware.NotFound(c, err.Error())
}
