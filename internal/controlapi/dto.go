package controlapi

import (
	"mettagrid/internal/simcore/config"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
)

// CreateEpisodeRequest is the POST /episodes body: a full config.Config
// document plus the seed driving config.Resolve's OrderRandom evaluation.
type CreateEpisodeRequest struct {
	Config *config.Config `json:"config" binding:"required"`
	Seed   int64           `json:"seed"`
}

// CreateEpisodeResponse echoes the assigned id and buffer shape so a
// controller knows how to size its side of the six shared buffers before
// opening the step stream.
type CreateEpisodeResponse struct {
	EpisodeID string `json:"episode_id"`
	NumAgents int    `json:"num_agents"`
	NumTokens int     `json:"num_tokens"`
}

// StatsResponse answers GET /episodes/:id/stats.
type StatsResponse struct {
	Step       int                `json:"step"`
	GameStats  map[string]float64 `json:"game_stats,omitempty"`
	AgentStats []AgentStatsDTO    `json:"agent_stats"`
}

// AgentStatsDTO is one agent's last reward/episode-reward snapshot. Named
// stats (reward.Entry names) are looked up on demand via Manager/Episode,
// not carried here, since the reward engine doesn't expose an enumerable
// stat-name list beyond what the caller already configured.
type AgentStatsDTO struct {
	AgentIndex    int     `json:"agent_index"`
	LastReward    float32 `json:"last_reward"`
	EpisodeReward float32 `json:"episode_reward"`
	Alive         bool    `json:"alive"`
}

// ObjectDTO is a JSON-safe snapshot of one gridworld.Object, for GET
// /episodes/:id/objects (the spec's "grid_objects()" external accessor).
type ObjectDTO struct {
	ID           uint32   `json:"id"`
	TypeName     string   `json:"type_name"`
	Row          int      `json:"row"`
	Col          int      `json:"col"`
	Tags         []string `json:"tags,omitempty"`
	Inventory    []int32  `json:"inventory,omitempty"`
	Alive        bool     `json:"alive"`
	IsAgent      bool     `json:"is_agent"`
	AgentID      int      `json:"agent_id,omitempty"`
	LastAction   int32    `json:"last_action,omitempty"`
	LastVibe     int32    `json:"last_vibe_action,omitempty"`
}

// nameTables inverts the dense-id maps config.Resolve built once at
// episode creation, so DTOs can carry human-readable tag names instead of
// raw ids.TagID values without the simulation core itself ever doing
// string work at runtime (spec.md §3's "resolved once, never by string").
type nameTables struct {
	tagNames []string // indexed by ids.TagID
}

func newNameTables(tagIDs map[string]ids.TagID) *nameTables {
	max := 0
	for _, id := range tagIDs {
		if int(id)+1 > max {
			max = int(id) + 1
		}
	}
	names := make([]string, max)
	for name, id := range tagIDs {
		names[id] = name
	}
	return &nameTables{tagNames: names}
}

func (t *nameTables) tagName(id ids.TagID) string {
	if int(id) < len(t.tagNames) && t.tagNames[id] != "" {
		return t.tagNames[id]
	}
	return ""
}

func toObjectDTO(o *gridworld.Object, names *nameTables) ObjectDTO {
	dto := ObjectDTO{
		ID:       uint32(o.ID),
		TypeName: o.TypeName,
		Row:      o.Row,
		Col:      o.Col,
		Alive:    o.Alive,
		IsAgent:  o.IsAgent(),
	}
	o.Tags.Each(func(tid ids.TagID) {
		if name := names.tagName(tid); name != "" {
			dto.Tags = append(dto.Tags, name)
		}
	})
	dto.Inventory = o.Inventory.Snapshot()
	if o.Agent != nil {
		dto.AgentID = o.Agent.AgentID
		dto.LastAction = o.Agent.LastAction
		dto.LastVibe = o.Agent.LastVibeAction
	}
	return dto
}
