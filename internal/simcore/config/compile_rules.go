package config

import (
	"strings"

	"mettagrid/internal/simcore/filter"
	"mettagrid/internal/simcore/gamevalue"
	"mettagrid/internal/simcore/gridworld"
	"mettagrid/internal/simcore/ids"
	"mettagrid/internal/simcore/mutation"
	"mettagrid/internal/simcore/query"
)

func resolveSubject(s string) filter.Subject {
	if s == "actor" {
		return filter.SubjectActor
	}
	return filter.SubjectTarget
}

func resolveMutationSubject(s string) mutation.Subject {
	if s == "actor" {
		return mutation.SubjectActor
	}
	return mutation.SubjectTarget
}

func resolveFilters(e *env, specs []FilterSpec) ([]filter.Filter, error) {
	out := make([]filter.Filter, 0, len(specs))
	for i := range specs {
		f, err := resolveFilter(e, &specs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func resolveFilter(e *env, s *FilterSpec) (filter.Filter, error) {
	switch s.Kind {
	case FilterAlignment:
		f := &filter.AlignmentFilter{Subject: resolveSubject(s.Subject)}
		if s.CollectiveName != "" {
			cid, ok := e.collectiveIDs[s.CollectiveName]
			if !ok {
				return nil, invalid("alignment filter: unknown collective %q", s.CollectiveName)
			}
			f.HasSpecific = true
			f.CollectiveID = cid
		} else {
			cond, err := resolveAlignCondition(s.AlignCondition)
			if err != nil {
				return nil, err
			}
			f.Condition = cond
		}
		return f, nil

	case FilterResource:
		mins, err := resolveResourceAmounts(e, s.Minimums)
		if err != nil {
			return nil, err
		}
		return &filter.ResourceFilter{Subject: resolveSubject(s.Subject), Minimums: mins}, nil

	case FilterVibe:
		vid, ok := e.vibeIDs[s.Vibe]
		if !ok {
			return nil, invalid("vibe filter: unknown vibe %q", s.Vibe)
		}
		return &filter.VibeFilter{Subject: resolveSubject(s.Subject), Vibe: vid}, nil

	case FilterTag:
		tid, ok := e.tagIDs[s.Tag]
		if !ok {
			return nil, invalid("tag filter: unknown tag %q", s.Tag)
		}
		return &filter.TagFilter{Subject: resolveSubject(s.Subject), Tag: tid}, nil

	case FilterTagPrefix:
		mask := resolvePrefixMask(e, s.Prefix)
		return &filter.TagPrefixFilter{Subject: resolveSubject(s.Subject), Mask: mask}, nil

	case FilterSharedPrefix:
		mask := resolvePrefixMask(e, s.Prefix)
		return &filter.SharedTagPrefixFilter{Mask: mask}, nil

	case FilterMaxDistance:
		q, err := resolveQuery(e, s.Query)
		if err != nil {
			return nil, err
		}
		return &filter.MaxDistanceFilter{Subject: resolveSubject(s.Subject), Query: q, Radius: s.Radius}, nil

	case FilterNear:
		tid, ok := e.tagIDs[s.TargetTag]
		if !ok {
			return nil, invalid("near filter: unknown tag %q", s.TargetTag)
		}
		return &filter.NearFilter{Subject: resolveSubject(s.Subject), Radius: s.Radius, TargetTag: tid}, nil

	case FilterGameValue:
		v, err := resolveGameValue(e, s.Value)
		if err != nil {
			return nil, err
		}
		return &filter.GameValueFilter{Subject: resolveSubject(s.Subject), Value: v, Threshold: s.Threshold}, nil

	case FilterNot:
		if s.Inner == nil {
			return nil, invalid("not filter: missing inner filter")
		}
		inner, err := resolveFilter(e, s.Inner)
		if err != nil {
			return nil, err
		}
		return &filter.NotFilter{Inner: inner}, nil

	case FilterOr:
		inners, err := resolveFilters(e, s.Or)
		if err != nil {
			return nil, err
		}
		return &filter.OrFilter{Inner: inners}, nil

	default:
		return nil, invalid("unknown filter kind %q", s.Kind)
	}
}

func resolveAlignCondition(s string) (filter.AlignmentCondition, error) {
	switch s {
	case "aligned":
		return filter.Aligned, nil
	case "unaligned":
		return filter.Unaligned, nil
	case "same_collective":
		return filter.SameCollective, nil
	case "different_collective":
		return filter.DifferentCollective, nil
	default:
		return 0, invalid("unknown alignment condition %q", s)
	}
}

// resolvePrefixMask builds the bitset of every currently-known tag whose
// name starts with prefix — an empty prefix matches every tag.
func resolvePrefixMask(e *env, prefix string) gridworld.TagSet {
	var matched []ids.TagID
	for name, tid := range e.tagIDs {
		if strings.HasPrefix(name, prefix) {
			matched = append(matched, tid)
		}
	}
	return gridworld.NewPrefixMask(matched)
}

func resolveMutations(e *env, specs []MutationSpec) ([]mutation.Mutation, error) {
	out := make([]mutation.Mutation, 0, len(specs))
	for i := range specs {
		m, err := resolveMutation(e, &specs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func resolveMutation(e *env, s *MutationSpec) (mutation.Mutation, error) {
	subj := resolveMutationSubject(s.Subject)
	switch s.Kind {
	case MutationResourceDelta:
		deltas, err := resolveResourceAmounts(e, s.Deltas)
		if err != nil {
			return nil, err
		}
		var remove []ids.ResourceID
		for _, r := range s.RemoveWhenEmpty {
			rid, ok := e.resourceIDs[r]
			if !ok {
				return nil, invalid("resource_delta: unknown resource %q", r)
			}
			remove = append(remove, rid)
		}
		return &mutation.ResourceDeltaMutation{Subject: subj, Deltas: deltas, RemoveWhenEmpty: remove}, nil

	case MutationResourceTransfer:
		rid, ok := e.resourceIDs[s.Resource]
		if !ok {
			return nil, invalid("resource_transfer: unknown resource %q", s.Resource)
		}
		return &mutation.ResourceTransferMutation{
			From: resolveMutationSubject(s.From), To: resolveMutationSubject(s.To),
			Resource: rid, Amount: s.Amount,
		}, nil

	case MutationAlignment:
		m := &mutation.AlignmentMutation{Subject: subj}
		if s.CollectiveName != "" {
			cid, ok := e.collectiveIDs[s.CollectiveName]
			if !ok {
				return nil, invalid("alignment mutation: unknown collective %q", s.CollectiveName)
			}
			m.HasSpecific = true
			m.CollectiveID = cid
		} else if s.AlignTo == "none" {
			m.AlignTo = mutation.AlignNone
		} else {
			m.AlignTo = mutation.AlignActorCollective
		}
		return m, nil

	case MutationFreeze:
		return &mutation.FreezeMutation{Subject: subj, Duration: s.Duration}, nil

	case MutationClearInventory:
		rid, ok := e.resourceIDs[s.Resource]
		if !ok {
			return nil, invalid("clear_inventory: unknown resource %q", s.Resource)
		}
		return &mutation.ClearInventoryMutation{Subject: subj, Resource: rid}, nil

	case MutationStats:
		scope, err := resolveStatsScope(s.StatsScope)
		if err != nil {
			return nil, err
		}
		return &mutation.StatsMutation{Subject: subj, Scope: scope, Name: s.StatName, Delta: s.Delta}, nil

	case MutationAddTag:
		tid, ok := e.tagIDs[s.Tag]
		if !ok {
			return nil, invalid("add_tag: unknown tag %q", s.Tag)
		}
		return &mutation.AddTagMutation{Subject: subj, Tag: tid}, nil

	case MutationRemoveTag:
		tid, ok := e.tagIDs[s.Tag]
		if !ok {
			return nil, invalid("remove_tag: unknown tag %q", s.Tag)
		}
		return &mutation.RemoveTagMutation{Subject: subj, Tag: tid}, nil

	case MutationRemoveTagsWithPrefix:
		mask := resolvePrefixMask(e, s.Prefix)
		return &mutation.RemoveTagsWithPrefixMutation{Subject: subj, Mask: mask}, nil

	case MutationQueryInventory:
		q, err := resolveQuery(e, s.Query)
		if err != nil {
			return nil, err
		}
		deltas, err := resolveResourceAmounts(e, s.Deltas)
		if err != nil {
			return nil, err
		}
		return &mutation.QueryInventoryMutation{Query: q, Deltas: deltas}, nil

	case MutationSetGameValue:
		v, err := resolveGameValue(e, s.Value)
		if err != nil {
			return nil, err
		}
		m := &mutation.SetGameValueMutation{Subject: subj, Value: v, StaticDelta: s.StaticDelta, Accumulate: s.Accumulate}
		if s.Source != nil {
			src, err := resolveGameValue(e, s.Source)
			if err != nil {
				return nil, err
			}
			m.Source = &src
		}
		return m, nil

	case MutationRecomputeQueryTag:
		q, err := resolveQuery(e, s.Query)
		if err != nil {
			return nil, err
		}
		tid, ok := e.tagIDs[s.Tag]
		if !ok {
			return nil, invalid("recompute_query_tag: unknown tag %q", s.Tag)
		}
		return &mutation.RecomputeQueryTagMutation{Query: q, Tag: tid}, nil

	default:
		return nil, invalid("unknown mutation kind %q", s.Kind)
	}
}

func resolveStatsScope(s string) (mutation.StatsScope, error) {
	switch s {
	case "agent":
		return mutation.StatsAgent, nil
	case "collective":
		return mutation.StatsCollective, nil
	case "game":
		return mutation.StatsGame, nil
	default:
		return 0, invalid("unknown stats scope %q", s)
	}
}

func resolveGameValue(e *env, s *GameValueSpec) (gamevalue.Value, error) {
	if s == nil {
		return gamevalue.Value{}, invalid("missing game value")
	}
	switch s.Kind {
	case GameValueConst:
		return gamevalue.Value{Kind: gamevalue.KindConst, Const: s.Const}, nil

	case GameValueInventory:
		rid, ok := e.resourceIDs[s.Resource]
		if !ok {
			return gamevalue.Value{}, invalid("inventory value: unknown resource %q", s.Resource)
		}
		scope, err := resolveValueScope(s.Scope)
		if err != nil {
			return gamevalue.Value{}, err
		}
		return gamevalue.Value{Kind: gamevalue.KindInventory, Resource: rid, Scope: scope}, nil

	case GameValueStat:
		scope, err := resolveValueScope(s.Scope)
		if err != nil {
			return gamevalue.Value{}, err
		}
		return gamevalue.Value{Kind: gamevalue.KindStat, StatName: s.StatName, Scope: scope, Delta: s.Delta}, nil

	case GameValueNumObjects:
		tid, ok := e.typeIDs[s.TypeName]
		if !ok {
			return gamevalue.Value{}, invalid("num_objects value: unknown type %q", s.TypeName)
		}
		return gamevalue.Value{Kind: gamevalue.KindNumObjects, TypeID: tid}, nil

	case GameValueTagCount:
		tid, ok := e.tagIDs[s.Tag]
		if !ok {
			return gamevalue.Value{}, invalid("tag_count value: unknown tag %q", s.Tag)
		}
		return gamevalue.Value{Kind: gamevalue.KindTagCount, Tag: tid}, nil

	default:
		return gamevalue.Value{}, invalid("unknown game value kind %q", s.Kind)
	}
}

func resolveValueScope(s string) (gamevalue.Scope, error) {
	switch s {
	case "agent":
		return gamevalue.ScopeAgent, nil
	case "collective":
		return gamevalue.ScopeCollective, nil
	case "game":
		return gamevalue.ScopeGame, nil
	default:
		return 0, invalid("unknown game value scope %q", s)
	}
}

func resolveQuery(e *env, s *QuerySpec) (*query.Query, error) {
	if s == nil {
		return nil, invalid("missing query")
	}
	q := &query.Query{MaxItems: s.MaxItems}
	if s.Nested != nil {
		nested, err := resolveQuery(e, s.Nested)
		if err != nil {
			return nil, err
		}
		q.Nested = nested
	} else {
		tid, ok := e.tagIDs[s.SourceTag]
		if !ok {
			return nil, invalid("query: unknown source tag %q", s.SourceTag)
		}
		q.SourceTag = tid
	}

	world := e.world
	for i := range s.Filters {
		f, err := resolveFilter(e, &s.Filters[i])
		if err != nil {
			return nil, err
		}
		q.Filters = append(q.Filters, func(candidate *gridworld.Object) bool {
			return f.Eval(filter.Context{Target: candidate, World: world})
		})
	}

	switch s.OrderBy {
	case "last":
		q.OrderBy = query.OrderLast
	case "random":
		q.OrderBy = query.OrderRandom
	default:
		q.OrderBy = query.OrderFirst
	}

	return q, nil
}
