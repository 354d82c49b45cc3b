package config

import (
	"fmt"
	"math/rand"
	"sort"

	"mettagrid/internal/simcore/action"
	"mettagrid/internal/simcore/aoe"
	"mettagrid/internal/simcore/collective"
	"mettagrid/internal/simcore/event"
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/handler"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/observation"
	"mettagrid/internal/simcore/query"
	"mettagrid/internal/simcore/reward"
	"mettagrid/internal/simcore/simerrors"
	"mettagrid/internal/simcore/stats"
	"mettagrid/internal/simcore/tagindex"
)

// TypeBlueprint bundles the on_tick and on_tag_added/removed handler bundles
// configured for one object TypeID. on_use is kept separately in
// action.Blueprints, since that's the table action.Dispatch's move effect
// consults directly.
type TypeBlueprint struct {
	OnTick      *handler.MultiHandler
	OnTagAdd    map[ids.TagID]*handler.MultiHandler
	OnTagRemove map[ids.TagID]*handler.MultiHandler
}

// Resolved is everything a simulation driver needs to run, with every name
// turned into the dense id the kernel operates on.
type Resolved struct {
	Width, Height int
	MaxSteps      int

	World *gamevalue.World // Store/Collectives/Tags/GameStats/.../RNG, shared by every compiled rule

	ClipsCollective ids.CollectiveID

	ActionRegistry   *action.Registry
	ActionBlueprints *action.Blueprints
	TypeBlueprints   []*TypeBlueprint // indexed by ids.TypeID
	AOESystem        *aoe.System

	EventSchedule *event.Schedule

	RewardEntries    []reward.Entry
	ObsEncoder       *observation.Encoder
	ObsConfig        *observation.Config
	TerritorySources []observation.TerritorySource

	Agents           []ids.ObjectID // dense by agent id [0..N)
	AgentRoleWeights []reward.RoleWeights

	ResourceIDs   map[string]ids.ResourceID
	TagIDs        map[string]ids.TagID
	CollectiveIDs map[string]ids.CollectiveID
	VibeIDs       map[string]ids.VibeID
	TypeIDs       map[string]ids.TypeID
}

// env carries the name -> dense-id tables every compile step consults, plus
// the shared World compiled Query predicates close over.
type env struct {
	resourceIDs   map[string]ids.ResourceID
	tagIDs        map[string]ids.TagID
	collectiveIDs map[string]ids.CollectiveID
	vibeIDs       map[string]ids.VibeID
	typeIDs       map[string]ids.TypeID
	world         *gamevalue.World
}

func invalid(format string, args ...interface{}) error {
	return &simerrors.ConfigInvalidError{Reason: fmt.Sprintf(format, args...)}
}

// Resolve builds a running simulation's static tables and compiled rule set
// from cfg, and places every object named in cfg.Map. seed drives
// OrderRandom query evaluation and nothing else.
func Resolve(cfg *Config, seed int64) (*Resolved, error) {
	e := &env{
		resourceIDs:   indexResourceNames(cfg.ResourceNames),
		collectiveIDs: indexCollectiveNames(cfg.CollectiveNames),
		vibeIDs:       indexVibeNames(cfg.VibeNames),
	}

	typeNames := sortedTypeNames(cfg.ObjectTypes)
	e.typeIDs = make(map[string]ids.TypeID, len(typeNames))
	for i, name := range typeNames {
		e.typeIDs[name] = ids.TypeID(i)
	}

	tagNames := collectTagNames(cfg, typeNames)
	if len(tagNames) > ids.MaxTags {
		return nil, invalid("simulation declares %d tags, exceeding the %d cap", len(tagNames), ids.MaxTags)
	}
	e.tagIDs = make(map[string]ids.TagID, len(tagNames))
	for i, name := range tagNames {
		e.tagIDs[name] = ids.TagID(i)
	}

	limits, err := resolveLimits(e, cfg)
	if err != nil {
		return nil, err
	}

	grid := gridworld.NewGrid(cfg.Width, cfg.Height)
	store := gridworld.NewStore(grid, len(cfg.ResourceNames), limits)
	tagIdx := tagindex.New(len(tagNames))
	store.SetTagObserver(tagIdx)

	collTable := collective.NewTable(cfg.CollectiveNames, len(cfg.ResourceNames), limits)

	gameStats := stats.New()
	collStats := make([]*stats.Table, len(cfg.CollectiveNames))
	for i := range collStats {
		collStats[i] = stats.New()
	}

	world := &gamevalue.World{
		Store:       store,
		Collectives: collTable,
		Tags:        tagIdx,
		GameStats:   gameStats,
		RNG:         rand.New(rand.NewSource(seed)),
	}
	e.world = world

	clipsID := ids.NoCollective
	if cfg.ClipsCollective != "" {
		cid, ok := e.collectiveIDs[cfg.ClipsCollective]
		if !ok {
			return nil, invalid("clips_collective %q is not a declared collective", cfg.ClipsCollective)
		}
		clipsID = cid
	}

	onUse := make([]*handler.MultiHandler, len(typeNames))
	typeBlueprints := make([]*TypeBlueprint, len(typeNames))
	aoeSystem := aoe.New(grid)

	for i, name := range typeNames {
		spec := cfg.ObjectTypes[name]
		mh, err := resolveMultiHandler(e, spec.OnUse, handler.FirstMatch)
		if err != nil {
			return nil, err
		}
		onUse[i] = mh

		tickMH, err := resolveMultiHandler(e, spec.OnTick, handler.All)
		if err != nil {
			return nil, err
		}
		addMap, err := resolveTagHandlerMap(e, spec.OnTagAdd)
		if err != nil {
			return nil, err
		}
		removeMap, err := resolveTagHandlerMap(e, spec.OnTagRemove)
		if err != nil {
			return nil, err
		}
		typeBlueprints[i] = &TypeBlueprint{OnTick: tickMH, OnTagAdd: addMap, OnTagRemove: removeMap}
	}

	var agentIDs []ids.ObjectID
	var agentRoles []reward.RoleWeights

	for row, cells := range cfg.Map {
		for col, name := range cells {
			if name == "" {
				continue
			}
			spec, ok := cfg.ObjectTypes[name]
			if !ok {
				return nil, invalid("map cell (%d,%d) references unknown object type %q", row, col, name)
			}
			tid := e.typeIDs[name]

			objID := store.Reserve()
			obj := gridworld.Object{
				ID:        objID,
				TypeID:    tid,
				TypeName:  name,
				Kind:      spec.Kind.resolve(),
				Inventory: store.NewInventory(),
			}
			obj.Tags.Add(e.tagIDs["type:"+name])
			for _, t := range spec.Tags {
				obj.Tags.Add(e.tagIDs[t])
			}
			for res, amt := range spec.InitialInventory {
				rid, ok := e.resourceIDs[res]
				if !ok {
					return nil, invalid("object type %q: unknown resource %q", name, res)
				}
				obj.Inventory.Delta(rid, amt)
			}
			if spec.Vibe != "" {
				vid, ok := e.vibeIDs[spec.Vibe]
				if !ok {
					return nil, invalid("object type %q: unknown vibe %q", name, spec.Vibe)
				}
				obj.Vibe = vid
			}
			obj.CollectiveID = ids.NoCollective
			if spec.Collective != "" {
				cid, ok := e.collectiveIDs[spec.Collective]
				if !ok {
					return nil, invalid("object type %q: unknown collective %q", name, spec.Collective)
				}
				obj.CollectiveID = cid
			}

			if spec.Kind == KindAgent {
				agentID := store.ReserveAgentID()
				obj.Agent = &gridworld.AgentState{AgentID: agentID, TeamID: spec.TeamID, GroupID: spec.GroupID}
				agentIDs = append(agentIDs, objID)
				agentRoles = append(agentRoles, reward.RoleWeights(spec.Roles))
			}

			if err := store.Place(obj, row, col); err != nil {
				return nil, invalid("map cell (%d,%d): %v", row, col, err)
			}

			for i := range spec.AOEs {
				aoeCfg, err := resolveAOE(e, &spec.AOEs[i])
				if err != nil {
					return nil, err
				}
				aoeSystem.Register(objID, aoeCfg, row, col)
			}
		}
	}

	agentStats := make([]*stats.Table, len(agentIDs))
	for i := range agentStats {
		agentStats[i] = stats.New()
	}
	world.CollectiveStats = collStats
	world.AgentStats = agentStats

	actionRegistry, err := resolveActions(e, cfg.Actions)
	if err != nil {
		return nil, err
	}

	eventSchedule, err := resolveEvents(e, cfg.Events)
	if err != nil {
		return nil, err
	}

	rewardEntries, err := resolveRewards(e, cfg.Rewards)
	if err != nil {
		return nil, err
	}

	var territorySources []observation.TerritorySource
	for _, ts := range cfg.Obs.TerritorySources {
		cid, ok := e.collectiveIDs[ts.Collective]
		if !ok {
			return nil, invalid("territory source references unknown collective %q", ts.Collective)
		}
		territorySources = append(territorySources, observation.TerritorySource{
			CollectiveID: cid, Row: ts.Row, Col: ts.Col, Radius: ts.Radius,
		})
	}

	obsConfig, err := resolveObs(e, &cfg.Obs)
	if err != nil {
		return nil, err
	}

	for _, mq := range cfg.MaterializeQueries {
		q, err := resolveQuery(e, &mq.Query)
		if err != nil {
			return nil, err
		}
		tid, ok := e.tagIDs[mq.TagName]
		if !ok {
			return nil, invalid("materialize_query references unknown tag %q", mq.TagName)
		}
		query.Materialize(q, tid, store, tagIdx)
	}

	gameStats.CaptureBaseline()
	for _, t := range collStats {
		t.CaptureBaseline()
	}
	for _, t := range agentStats {
		t.CaptureBaseline()
	}

	return &Resolved{
		Width: cfg.Width, Height: cfg.Height, MaxSteps: cfg.MaxSteps,
		World:            world,
		ClipsCollective:  clipsID,
		ActionRegistry:   actionRegistry,
		ActionBlueprints: &action.Blueprints{OnUse: onUse},
		TypeBlueprints:   typeBlueprints,
		AOESystem:        aoeSystem,
		EventSchedule:    eventSchedule,
		RewardEntries:    rewardEntries,
		ObsEncoder:       observation.New(obsConfig),
		ObsConfig:        obsConfig,
		TerritorySources: territorySources,
		Agents:           agentIDs,
		AgentRoleWeights: agentRoles,
		ResourceIDs:      e.resourceIDs,
		TagIDs:           e.tagIDs,
		CollectiveIDs:    e.collectiveIDs,
		VibeIDs:          e.vibeIDs,
		TypeIDs:          e.typeIDs,
	}, nil
}

func indexResourceNames(names []string) map[string]ids.ResourceID {
	m := make(map[string]ids.ResourceID, len(names))
	for i, n := range names {
		m[n] = ids.ResourceID(i)
	}
	return m
}

func indexCollectiveNames(names []string) map[string]ids.CollectiveID {
	m := make(map[string]ids.CollectiveID, len(names))
	for i, n := range names {
		m[n] = ids.CollectiveID(i)
	}
	return m
}

func indexVibeNames(names []string) map[string]ids.VibeID {
	m := make(map[string]ids.VibeID, len(names))
	for i, n := range names {
		m[n] = ids.VibeID(i)
	}
	return m
}

func sortedTypeNames(m map[string]*ObjectTypeSpec) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// collectTagNames gathers every tag name referenced anywhere in cfg — the
// full set assigned dense ids at init.
func collectTagNames(cfg *Config, typeNames []string) []string {
	set := make(map[string]bool)
	add := func(name string) {
		if name != "" {
			set[name] = true
		}
	}
	for _, name := range typeNames {
		add("type:" + name)
		spec := cfg.ObjectTypes[name]
		for _, t := range spec.Tags {
			add(t)
		}
		collectTagsFromHandlers(spec.OnUse, add)
		collectTagsFromHandlers(spec.OnTick, add)
		for tag, hs := range spec.OnTagAdd {
			add(tag)
			collectTagsFromHandlers(hs, add)
		}
		for tag, hs := range spec.OnTagRemove {
			add(tag)
			collectTagsFromHandlers(hs, add)
		}
		for _, a := range spec.AOEs {
			collectTagsFromFilters(a.Filters, add)
			collectTagsFromMutations(a.Mutations, add)
			collectTagsFromMutations(a.OnEnter, add)
			collectTagsFromMutations(a.OnExit, add)
		}
	}
	for _, evt := range cfg.Events {
		add(evt.TargetTag)
		collectTagsFromFilters(evt.Filters, add)
		collectTagsFromMutations(evt.Mutations, add)
	}
	for _, mq := range cfg.MaterializeQueries {
		add(mq.TagName)
		collectTagsFromQuery(&mq.Query, add)
	}
	for _, t := range cfg.Obs.Tags {
		add(t)
	}
	for i := range cfg.Rewards {
		r := &cfg.Rewards[i]
		collectTagsFromGameValue(&r.Numerator, add)
		for j := range r.Denominators {
			collectTagsFromGameValue(&r.Denominators[j], add)
		}
	}
	for _, v := range cfg.Obs.Values {
		collectTagsFromGameValue(&v.Value, add)
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func collectTagsFromHandlers(hs []HandlerSpec, add func(string)) {
	for _, h := range hs {
		collectTagsFromFilters(h.Filters, add)
		collectTagsFromMutations(h.Mutations, add)
	}
}

func collectTagsFromFilters(fs []FilterSpec, add func(string)) {
	for i := range fs {
		f := &fs[i]
		add(f.Tag)
		if f.Query != nil {
			collectTagsFromQuery(f.Query, add)
		}
		if f.Inner != nil {
			collectTagsFromFilters([]FilterSpec{*f.Inner}, add)
		}
		collectTagsFromFilters(f.Or, add)
		collectTagsFromGameValue(f.Value, add)
	}
}

func collectTagsFromMutations(ms []MutationSpec, add func(string)) {
	for i := range ms {
		m := &ms[i]
		add(m.Tag)
		if m.Query != nil {
			collectTagsFromQuery(m.Query, add)
		}
		collectTagsFromGameValue(m.Value, add)
		collectTagsFromGameValue(m.Source, add)
	}
}

func collectTagsFromQuery(q *QuerySpec, add func(string)) {
	if q == nil {
		return
	}
	add(q.SourceTag)
	collectTagsFromFilters(q.Filters, add)
	collectTagsFromQuery(q.Nested, add)
}

func collectTagsFromGameValue(v *GameValueSpec, add func(string)) {
	if v == nil {
		return
	}
	if v.Kind == GameValueTagCount {
		add(v.Tag)
	}
}

func resolveLimits(e *env, cfg *Config) (*gridworld.LimitTable, error) {
	lt := gridworld.NewLimitTable(len(cfg.ResourceNames), cfg.DefaultLimitMax)
	for _, g := range cfg.LimitGroups {
		resources := make([]ids.ResourceID, 0, len(g.Resources))
		for _, r := range g.Resources {
			rid, ok := e.resourceIDs[r]
			if !ok {
				return nil, invalid("limit group %q references unknown resource %q", g.Name, r)
			}
			resources = append(resources, rid)
		}
		mods := make([]gridworld.LimitModifier, 0, len(g.Modifiers))
		for _, m := range g.Modifiers {
			rid, ok := e.resourceIDs[m.Resource]
			if !ok {
				return nil, invalid("limit group %q modifier references unknown resource %q", g.Name, m.Resource)
			}
			mods = append(mods, gridworld.LimitModifier{Resource: rid, Amount: m.Amount})
		}
		lt.AddGroup(gridworld.LimitGroup{Name: g.Name, Resources: resources, Max: g.Max, Modifiers: mods})
	}
	return lt, nil
}
