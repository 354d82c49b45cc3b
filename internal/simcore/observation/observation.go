// Package observation implements the per-agent token encoder of spec §4.11:
// a fixed-size (loc_byte, feature_id, value) token stream per agent, built
// from a local window around the agent plus a fixed set of global tokens.
// Encoding for distinct agents is independent and read-only against
// simulation state, so it may fan out across worker goroutines; the single-
// and multi-threaded paths share the exact same per-agent code path and
// therefore always agree byte-for-byte.
package observation

import (
	"runtime"
	"sort"
	"sync"

	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
)

// Sentinel loc_byte values, per spec §4.11.
const (
	LocEmpty  byte = 0xFF
	LocGlobal byte = 0xFE
)

// Token is one emitted (loc_byte, feature_id, value) triplet.
type Token struct {
	Loc     byte
	Feature ids.FeatureID
	Value   byte
}

// packLoc encodes a local-window coordinate into one byte. Window
// dimensions must each stay within 15 cells (4 bits) per axis so the packed
// byte never collides with the 0xFE/0xFF sentinels.
func packLoc(localRow, localCol int) byte {
	return byte(localRow<<4) | byte(localCol&0x0F)
}

// ObsValueFeature binds a configured GameValue to its pre-resolved global
// feature id, for the ObsValueConfig entries of spec §4.11.
type ObsValueFeature struct {
	Value     gamevalue.Value
	FeatureID ids.FeatureID
}

// GlobalFeatureIDs are the dense feature ids for the fixed global tokens,
// resolved once at config.Resolve time (0 is a valid id; Emit flags gate
// whether each is configured at all).
type GlobalFeatureIDs struct {
	EpisodeCompletionPct ids.FeatureID
	LastAction           ids.FeatureID
	LastReward           ids.FeatureID
	GoalObs              ids.FeatureID
	LPNorth              ids.FeatureID
	LPSouth              ids.FeatureID
	LPEast               ids.FeatureID
	LPWest               ids.FeatureID
	Territory            ids.FeatureID
	AOEMask              ids.FeatureID

	EmitEpisodeCompletionPct bool
	EmitLastAction           bool
	EmitLastReward           bool
	EmitGoalObs              bool
	EmitLocalPosition        bool
	EmitTerritory            bool
	EmitAOEMask              bool
}

// Config is the resolved, ready-to-encode observation schema: every
// resource/tag/stat this simulation's object types may emit has a
// pre-assigned dense feature id, so Encode never does a string lookup.
type Config struct {
	Width, Height int // local window; must each be <= 15
	NumTokens     int

	TypeFeature    ids.FeatureID
	AgentIDFeature ids.FeatureID
	VibeFeature    ids.FeatureID

	TagFeatures       map[ids.TagID]ids.FeatureID       // tag membership -> 1-bit token
	InventoryFeatures map[ids.ResourceID]ids.FeatureID  // per-resource amount token (object's own inventory)
	StatFeatures      map[string]ids.FeatureID           // per-object stat features (future extension point)

	Global    GlobalFeatureIDs
	ObsValues []ObsValueFeature

	GoalObsValue byte // static per-episode goal byte, if EmitGoalObs
}

// TickContext bundles the per-tick, agent-independent state an encode pass
// reads: live object/grid access plus the precomputed territory grid.
type TickContext struct {
	World       *gamevalue.World
	Territory   *TerritoryGrid // nil if territory/AOE-mask layer is unconfigured
	Tick        int
	MaxTicks    int
}

// Encoder holds the resolved schema and encodes one or many agents.
type Encoder struct {
	cfg *Config
}

// New creates an Encoder bound to cfg.
func New(cfg *Config) *Encoder {
	return &Encoder{cfg: cfg}
}

// EncodeAgent builds the full token stream for one agent. This is the
// single code path used by both EncodeAll's sequential and parallel modes —
// it reads agent/world/territory state but never mutates it, which is what
// makes fan-out safe.
func (e *Encoder) EncodeAgent(agent *gridworld.Object, tctx TickContext) []Token {
	tokens := make([]Token, 0, e.cfg.NumTokens)
	tokens = e.appendLocalWindow(tokens, agent, tctx)
	tokens = e.appendGlobalTokens(tokens, agent, tctx)

	if len(tokens) > e.cfg.NumTokens {
		tokens = tokens[:e.cfg.NumTokens]
	}
	for len(tokens) < e.cfg.NumTokens {
		tokens = append(tokens, Token{Loc: LocEmpty})
	}
	return tokens
}

func (e *Encoder) appendLocalWindow(tokens []Token, agent *gridworld.Object, tctx TickContext) []Token {
	halfH := e.cfg.Height / 2
	halfW := e.cfg.Width / 2
	grid := tctx.World.Store.Grid()

	// Row-major traversal over the local window, the fixed order spec
	// §4.11 requires for determinism.
	for dr := -halfH; dr <= halfH; dr++ {
		row := agent.Row + dr
		for dc := -halfW; dc <= halfW; dc++ {
			col := agent.Col + dc
			if !grid.InBounds(row, col) {
				continue
			}
			loc := packLoc(dr+halfH, dc+halfW)
			if obj := tctx.World.Store.At(row, col); obj != nil && obj.Alive {
				tokens = e.appendObjectTokens(tokens, loc, obj, tctx)
			}
			tokens = e.appendTerritoryToken(tokens, loc, row, col, tctx)
			tokens = e.appendAOEMaskToken(tokens, loc, row, col, tctx)
		}
	}
	return tokens
}

func (e *Encoder) appendObjectTokens(tokens []Token, loc byte, obj *gridworld.Object, tctx TickContext) []Token {
	tokens = append(tokens, Token{Loc: loc, Feature: e.cfg.TypeFeature, Value: byte(obj.TypeID)})

	if obj.Agent != nil {
		tokens = append(tokens, Token{Loc: loc, Feature: e.cfg.AgentIDFeature, Value: byte(obj.Agent.AgentID)})
	}
	tokens = append(tokens, Token{Loc: loc, Feature: e.cfg.VibeFeature, Value: byte(obj.Vibe)})

	// Tags, in ascending tag-id order (TagSet.Each's natural order), filtered
	// to the configured feature set.
	obj.Tags.Each(func(t ids.TagID) {
		if fid, ok := e.cfg.TagFeatures[t]; ok {
			tokens = append(tokens, Token{Loc: loc, Feature: fid, Value: 1})
		}
	})

	// Inventory, in ascending feature-id order for determinism across map
	// iteration (Go maps have no stable order).
	tokens = appendSortedByFeature(tokens, e.cfg.InventoryFeatures, loc, func(r ids.ResourceID) byte {
		return clampByte(obj.Inventory.Get(r))
	})

	if obj.Agent != nil && obj.Agent.AgentID < len(tctx.World.AgentStats) {
		table := tctx.World.AgentStats[obj.Agent.AgentID]
		tokens = appendSortedByFeature(tokens, e.cfg.StatFeatures, loc, func(name string) byte {
			return clampByte(int(table.Get(name)))
		})
	}

	return tokens
}

func (e *Encoder) appendTerritoryToken(tokens []Token, loc byte, row, col int, tctx TickContext) []Token {
	if !e.cfg.Global.EmitTerritory || tctx.Territory == nil {
		return tokens
	}
	owner := tctx.Territory.TerritoryOwner(row, col)
	if owner == ids.NoCollective {
		return tokens
	}
	return append(tokens, Token{Loc: loc, Feature: e.cfg.Global.Territory, Value: byte(owner)})
}

// appendAOEMaskToken emits one `aoe_mask` token per covered local-window
// cell, mirroring appendTerritoryToken — spec §4.11 describes both layers
// as per-cell, and `tests/test_weighted_territory.py` probes `aoe_mask` at
// many distinct non-global locations in a single observation. It shares
// TerritoryGrid's weighted-influence computation but not its tie-break
// rule: see TerritoryGrid.AOEMaskOwner.
func (e *Encoder) appendAOEMaskToken(tokens []Token, loc byte, row, col int, tctx TickContext) []Token {
	if !e.cfg.Global.EmitAOEMask || tctx.Territory == nil {
		return tokens
	}
	owner := tctx.Territory.AOEMaskOwner(row, col)
	if owner == ids.NoCollective {
		return tokens
	}
	return append(tokens, Token{Loc: loc, Feature: e.cfg.Global.AOEMask, Value: byte(owner)})
}

func (e *Encoder) appendGlobalTokens(tokens []Token, agent *gridworld.Object, tctx TickContext) []Token {
	g := e.cfg.Global

	if g.EmitEpisodeCompletionPct {
		pct := byte(0)
		if tctx.MaxTicks > 0 {
			pct = clampByte(tctx.Tick * 255 / tctx.MaxTicks)
		}
		tokens = append(tokens, Token{Loc: LocGlobal, Feature: g.EpisodeCompletionPct, Value: pct})
	}
	if g.EmitLastAction && agent.Agent != nil {
		tokens = append(tokens, Token{Loc: LocGlobal, Feature: g.LastAction, Value: clampByte(int(agent.Agent.LastAction))})
	}
	if g.EmitLastReward && agent.Agent != nil {
		tokens = append(tokens, Token{Loc: LocGlobal, Feature: g.LastReward, Value: clampByte(int(agent.Agent.LastReward))})
	}
	if g.EmitGoalObs {
		tokens = append(tokens, Token{Loc: LocGlobal, Feature: g.GoalObs, Value: e.cfg.GoalObsValue})
	}
	if g.EmitLocalPosition {
		grid := tctx.World.Store.Grid()
		if agent.Row == 0 {
			tokens = append(tokens, Token{Loc: LocGlobal, Feature: g.LPNorth, Value: 1})
		}
		if agent.Row == grid.Height()-1 {
			tokens = append(tokens, Token{Loc: LocGlobal, Feature: g.LPSouth, Value: 1})
		}
		if agent.Col == grid.Width()-1 {
			tokens = append(tokens, Token{Loc: LocGlobal, Feature: g.LPEast, Value: 1})
		}
		if agent.Col == 0 {
			tokens = append(tokens, Token{Loc: LocGlobal, Feature: g.LPWest, Value: 1})
		}
	}
	// ObsValueConfig entries in fixed configured order (already stable —
	// not map-derived).
	for _, ov := range e.cfg.ObsValues {
		v := gamevalue.Eval(ov.Value, tctx.World, gamevalue.Context{Actor: agent, Tick: tctx.Tick})
		tokens = append(tokens, Token{Loc: LocGlobal, Feature: ov.FeatureID, Value: clampByte(int(v))})
	}

	return tokens
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func appendSortedByFeature[K comparable](tokens []Token, m map[K]ids.FeatureID, loc byte, value func(K) byte) []Token {
	type pair struct {
		key K
		fid ids.FeatureID
	}
	pairs := make([]pair, 0, len(m))
	for k, fid := range m {
		pairs = append(pairs, pair{k, fid})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].fid < pairs[j].fid })
	for _, p := range pairs {
		v := value(p.key)
		if v == 0 {
			continue
		}
		tokens = append(tokens, Token{Loc: loc, Feature: p.fid, Value: v})
	}
	return tokens
}

// EncodeAll builds every agent's token stream, fanning out across
// threadCount worker goroutines (threadCount <= 1 runs sequentially on the
// calling goroutine). Each agent's result slot is written by exactly one
// goroutine and nothing else is mutated, so the output is identical for any
// threadCount — the hard invariant spec §4.11 requires.
func (e *Encoder) EncodeAll(agents []*gridworld.Object, tctx TickContext, threadCount int) [][]Token {
	out := make([][]Token, len(agents))

	if threadCount <= 1 {
		for i, agent := range agents {
			out[i] = e.EncodeAgent(agent, tctx)
		}
		return out
	}
	if threadCount > runtime.NumCPU() {
		threadCount = runtime.NumCPU()
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < threadCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = e.EncodeAgent(agents[i], tctx)
			}
		}()
	}
	for i := range agents {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}
