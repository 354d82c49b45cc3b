package config

import (
	"sort"

	"mettagrid/internal/simcore/action"
	"mettagrid/internal/simcore/aoe"
	"mettagrid/internal/simcore/event"
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/handler"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/observation"
	"mettagrid/internal/simcore/reward"
	"mettagrid/internal/simcore/simerrors"
)

func resolveMultiHandler(e *env, specs []HandlerSpec, mode handler.Mode) (*handler.MultiHandler, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	handlers := make([]*handler.Handler, 0, len(specs))
	for i := range specs {
		s := &specs[i]
		filters, err := resolveFilters(e, s.Filters)
		if err != nil {
			return nil, err
		}
		mutations, err := resolveMutations(e, s.Mutations)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, &handler.Handler{Name: s.Name, Filters: filters, Mutations: mutations})
	}
	return &handler.MultiHandler{Mode: mode, Handlers: handlers}, nil
}

func resolveTagHandlerMap(e *env, specs map[string][]HandlerSpec) (map[ids.TagID]*handler.MultiHandler, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[ids.TagID]*handler.MultiHandler, len(specs))
	for _, name := range names {
		tid, ok := e.tagIDs[name]
		if !ok {
			return nil, invalid("tag handler: unknown tag %q", name)
		}
		mh, err := resolveMultiHandler(e, specs[name], handler.All)
		if err != nil {
			return nil, err
		}
		out[tid] = mh
	}
	return out, nil
}

func resolveAOE(e *env, s *AOESpec) (*aoe.Config, error) {
	filters, err := resolveFilters(e, s.Filters)
	if err != nil {
		return nil, err
	}
	mutations, err := resolveMutations(e, s.Mutations)
	if err != nil {
		return nil, err
	}
	onEnter, err := resolveMutations(e, s.OnEnter)
	if err != nil {
		return nil, err
	}
	onExit, err := resolveMutations(e, s.OnExit)
	if err != nil {
		return nil, err
	}

	var mh *handler.MultiHandler
	if len(filters) > 0 || len(mutations) > 0 {
		mh = &handler.MultiHandler{
			Mode:     handler.All,
			Handlers: []*handler.Handler{{Name: s.Name, Filters: filters, Mutations: mutations}},
		}
	}

	metric := gridworld.Chebyshev
	if s.Metric == "euclidean" {
		metric = gridworld.Euclidean
	}

	return &aoe.Config{
		Name:       s.Name,
		Radius:     s.Radius,
		Metric:     metric,
		Mobile:     s.Mobile,
		EffectSelf: s.EffectSelf,
		Handlers:   mh,
		OnEnter:    onEnter,
		OnExit:     onExit,
	}, nil
}

func resolveFacing(s string) (gridworld.Facing, error) {
	switch s {
	case "north":
		return gridworld.FacingNorth, nil
	case "south":
		return gridworld.FacingSouth, nil
	case "east":
		return gridworld.FacingEast, nil
	case "west":
		return gridworld.FacingWest, nil
	default:
		return 0, invalid("unknown facing %q", s)
	}
}

func resolveResourceAmounts(e *env, m map[string]int) (map[ids.ResourceID]int, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[ids.ResourceID]int, len(m))
	for name, amt := range m {
		rid, ok := e.resourceIDs[name]
		if !ok {
			return nil, invalid("unknown resource %q", name)
		}
		out[rid] = amt
	}
	return out, nil
}

func resolveResourceWeights(e *env, m map[string]float64) (map[ids.ResourceID]float64, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[ids.ResourceID]float64, len(m))
	for name, w := range m {
		rid, ok := e.resourceIDs[name]
		if !ok {
			return nil, invalid("unknown resource %q", name)
		}
		out[rid] = w
	}
	return out, nil
}

func resolveVibeWeights(e *env, m map[string]float64) (map[ids.VibeID]float64, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[ids.VibeID]float64, len(m))
	for name, w := range m {
		vid, ok := e.vibeIDs[name]
		if !ok {
			return nil, invalid("unknown vibe %q", name)
		}
		out[vid] = w
	}
	return out, nil
}

func resolveAttack(e *env, s *AttackSpec) (*action.AttackConfig, error) {
	if s == nil {
		return nil, nil
	}
	weaponWeights, err := resolveResourceWeights(e, s.WeaponWeights)
	if err != nil {
		return nil, err
	}
	defenseWeights, err := resolveResourceWeights(e, s.DefenseWeights)
	if err != nil {
		return nil, err
	}
	vibeBonus, err := resolveVibeWeights(e, s.VibeBonus)
	if err != nil {
		return nil, err
	}
	actorDelta, err := resolveResourceAmounts(e, s.SuccessActorDelta)
	if err != nil {
		return nil, err
	}
	targetDelta, err := resolveResourceAmounts(e, s.SuccessTargetDelta)
	if err != nil {
		return nil, err
	}
	var loot []ids.ResourceID
	for _, name := range s.Loot {
		rid, ok := e.resourceIDs[name]
		if !ok {
			return nil, invalid("attack loot: unknown resource %q", name)
		}
		loot = append(loot, rid)
	}
	return &action.AttackConfig{
		WeaponWeights:      weaponWeights,
		DefenseWeights:     defenseWeights,
		VibeBonus:          vibeBonus,
		SuccessActorDelta:  actorDelta,
		SuccessTargetDelta: targetDelta,
		Loot:               loot,
		FreezeDuration:     s.FreezeDuration,
		MaxRange:           s.MaxRange,
	}, nil
}

func resolveActions(e *env, specs []ActionSpec) (*action.Registry, error) {
	out := make([]*action.Spec, 0, len(specs))
	for i := range specs {
		s := &specs[i]
		as := &action.Spec{Name: s.Name}

		required, err := resolveResourceAmounts(e, s.Required)
		if err != nil {
			return nil, err
		}
		consumed, err := resolveResourceAmounts(e, s.Consumed)
		if err != nil {
			return nil, err
		}
		as.Required = required
		as.Consumed = consumed

		switch s.Kind {
		case "noop":
			as.Kind = action.KindNoop
		case "move":
			as.Kind = action.KindMove
			facing, err := resolveFacing(s.Facing)
			if err != nil {
				return nil, err
			}
			as.Facing = facing
		case "attack":
			as.Kind = action.KindAttack
			atk, err := resolveAttack(e, s.Attack)
			if err != nil {
				return nil, err
			}
			as.Attack = atk
		case "change_vibe":
			as.Kind = action.KindChangeVibe
			vid, ok := e.vibeIDs[s.Vibe]
			if !ok {
				return nil, invalid("action %q: unknown vibe %q", s.Name, s.Vibe)
			}
			as.Vibe = vid
		default:
			return nil, invalid("action %q: unknown kind %q", s.Name, s.Kind)
		}

		out = append(out, as)
	}
	return action.NewRegistry(out), nil
}

func resolveEvents(e *env, specs map[string]*EventSpec) (*event.Schedule, error) {
	if len(specs) == 0 {
		return event.NewSchedule(nil), nil
	}
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	configs := make([]*event.Config, 0, len(specs))
	for _, name := range names {
		s := specs[name]

		timesteps := make(map[int]bool, len(s.Timesteps))
		for _, t := range s.Timesteps {
			timesteps[t] = true
		}

		tagID, ok := e.tagIDs[s.TargetTag]
		if !ok {
			return nil, invalid("event %q: unknown target tag %q", name, s.TargetTag)
		}

		filters, err := resolveFilters(e, s.Filters)
		if err != nil {
			return nil, err
		}
		mutations, err := resolveMutations(e, s.Mutations)
		if err != nil {
			return nil, err
		}

		if s.Fallback != "" {
			if _, ok := specs[s.Fallback]; !ok {
				return nil, &simerrors.UnknownEventError{Name: s.Fallback}
			}
		}

		configs = append(configs, &event.Config{
			Name:        name,
			Timesteps:   timesteps,
			TargetTagID: tagID,
			Filters:     filters,
			MaxTargets:  s.MaxTargets,
			Mutations:   mutations,
			Fallback:    s.Fallback,
		})
	}
	return event.NewSchedule(configs), nil
}

func resolveRewards(e *env, specs []RewardSpec) ([]reward.Entry, error) {
	out := make([]reward.Entry, 0, len(specs))
	for i := range specs {
		s := &specs[i]

		num, err := resolveGameValue(e, &s.Numerator)
		if err != nil {
			return nil, err
		}
		var resolvedDenoms []gamevalue.Value
		for j := range s.Denominators {
			d, err := resolveGameValue(e, &s.Denominators[j])
			if err != nil {
				return nil, err
			}
			resolvedDenoms = append(resolvedDenoms, d)
		}

		role, isGated, err := reward.ParseRoleGate(s.Name)
		if err != nil {
			return nil, &simerrors.ConfigInvalidError{Reason: err.Error()}
		}

		out = append(out, reward.Entry{
			Name:         s.Name,
			Numerator:    num,
			Denominators: resolvedDenoms,
			Weight:       s.Weight,
			Max:          s.Max,
			PerTick:      s.PerTick,
			IsRoleGated:  isGated,
			Role:         role,
		})
	}
	return out, nil
}

func resolveObs(e *env, spec *ObsSpec) (*observation.Config, error) {
	next := ids.FeatureID(0)
	alloc := func() ids.FeatureID {
		id := next
		next++
		return id
	}

	cfg := &observation.Config{
		Width: spec.Width, Height: spec.Height, NumTokens: spec.NumTokens,
	}
	cfg.TypeFeature = alloc()
	cfg.AgentIDFeature = alloc()
	cfg.VibeFeature = alloc()

	if len(spec.Tags) > 0 {
		cfg.TagFeatures = make(map[ids.TagID]ids.FeatureID, len(spec.Tags))
		for _, name := range spec.Tags {
			tid, ok := e.tagIDs[name]
			if !ok {
				return nil, invalid("obs: unknown tag %q", name)
			}
			cfg.TagFeatures[tid] = alloc()
		}
	}
	if len(spec.Resources) > 0 {
		cfg.InventoryFeatures = make(map[ids.ResourceID]ids.FeatureID, len(spec.Resources))
		for _, name := range spec.Resources {
			rid, ok := e.resourceIDs[name]
			if !ok {
				return nil, invalid("obs: unknown resource %q", name)
			}
			cfg.InventoryFeatures[rid] = alloc()
		}
	}
	if len(spec.Stats) > 0 {
		cfg.StatFeatures = make(map[string]ids.FeatureID, len(spec.Stats))
		for _, name := range spec.Stats {
			cfg.StatFeatures[name] = alloc()
		}
	}

	g := spec.Global
	if g.EpisodeCompletionPct {
		cfg.Global.EmitEpisodeCompletionPct = true
		cfg.Global.EpisodeCompletionPct = alloc()
	}
	if g.LastAction {
		cfg.Global.EmitLastAction = true
		cfg.Global.LastAction = alloc()
	}
	if g.LastReward {
		cfg.Global.EmitLastReward = true
		cfg.Global.LastReward = alloc()
	}
	if g.GoalObs {
		cfg.Global.EmitGoalObs = true
		cfg.Global.GoalObs = alloc()
	}
	if g.LocalPosition {
		cfg.Global.EmitLocalPosition = true
		cfg.Global.LPNorth = alloc()
		cfg.Global.LPSouth = alloc()
		cfg.Global.LPEast = alloc()
		cfg.Global.LPWest = alloc()
	}
	if g.Territory {
		cfg.Global.EmitTerritory = true
		cfg.Global.Territory = alloc()
	}
	if g.AOEMask {
		cfg.Global.EmitAOEMask = true
		cfg.Global.AOEMask = alloc()
	}

	for i := range spec.Values {
		v := &spec.Values[i]
		gv, err := resolveGameValue(e, &v.Value)
		if err != nil {
			return nil, err
		}
		cfg.ObsValues = append(cfg.ObsValues, observation.ObsValueFeature{Value: gv, FeatureID: alloc()})
	}

	cfg.GoalObsValue = spec.GoalObsValue

	return cfg, nil
}
