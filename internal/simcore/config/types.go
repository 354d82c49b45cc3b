// Package config takes the already-validated, fully-resolved plain-data game
// config described in spec.md §6 and resolves every name (resource, tag,
// collective, vibe, type, feature) into the dense ids the simulation kernel
// runs on, per spec.md §9's "name-to-ID tables everywhere" design note. It
// also performs the ConfigInvalid checks spec.md §7 assigns to init: unknown
// references, the 256-tag cap, and malformed role-gated reward keys.
//
// This package does not read YAML or any other file format — that layer is
// named in spec.md §1 as an external collaborator out of scope for the core.
// Config arrives here as plain Go structs built by that external loader.
package config

import "mettagrid/internal/simcore/gridworld"

// Config is the plain-data simulation config named in spec.md §6.
type Config struct {
	Width, Height int
	MaxSteps      int

	ResourceNames   []string // id = index, per spec.md §6
	CollectiveNames []string
	ClipsCollective string // canonical "clips" collective name for territory tie-break, "" if none
	VibeNames       []string // index 0 is the default vibe

	DefaultLimitMax int
	LimitGroups     []LimitGroupSpec

	// ObjectTypes is keyed by map cell name (the "map_name" of spec.md §3),
	// already resolved per-agent where needed (e.g. "agent.red.0") by the
	// external map builder — see DESIGN.md for why alias resolution
	// (agent.team_<id>, agent.<color>, ...) is not reimplemented here.
	ObjectTypes map[string]*ObjectTypeSpec

	// Map is the 2-D array of cell names, row-major, "" for an empty cell.
	Map [][]string

	Actions            []ActionSpec
	Events             map[string]*EventSpec
	MaterializeQueries []MaterializedQuerySpec
	Obs                ObsSpec
	Rewards            []RewardSpec
}

// LimitGroupSpec is one named inventory limit group (spec.md §3).
type LimitGroupSpec struct {
	Name      string
	Resources []string
	Max       int
	Modifiers []LimitModifierSpec
}

// LimitModifierSpec adds Amount capacity per unit of Resource held.
type LimitModifierSpec struct {
	Resource string
	Amount   int
}

// ObjectTypeSpec is the per-type configuration of spec.md §3's GridObject
// variant set, keyed in Config.ObjectTypes by map cell name.
type ObjectTypeSpec struct {
	Kind ObjectKindSpec

	Tags             []string // explicit tags; "type:<name>" is added automatically
	InitialInventory map[string]int
	Vibe             string // "" = default vibe (index 0)
	Collective       string // "" = unaligned

	// Agent-only fields.
	TeamID, GroupID int
	Roles           map[string]uint8 // role name -> weight byte in [0,255], spec.md §4.12

	OnUse       []HandlerSpec            // dispatch mode FirstMatch
	OnTick      []HandlerSpec            // dispatch mode All
	OnTagAdd    map[string][]HandlerSpec // tag name -> handlers, dispatch mode All
	OnTagRemove map[string][]HandlerSpec
	AOEs        []AOESpec
}

// ObjectKindSpec mirrors gridworld.ObjectKind as a config-time string enum.
type ObjectKindSpec string

const (
	KindAgent     ObjectKindSpec = "agent"
	KindWall      ObjectKindSpec = "wall"
	KindChest     ObjectKindSpec = "chest"
	KindAssembler ObjectKindSpec = "assembler"
	KindGeneric   ObjectKindSpec = "generic"
)

func (k ObjectKindSpec) resolve() gridworld.ObjectKind {
	switch k {
	case KindAgent:
		return gridworld.KindAgent
	case KindWall:
		return gridworld.KindWall
	case KindChest:
		return gridworld.KindChest
	case KindAssembler:
		return gridworld.KindAssembler
	default:
		return gridworld.KindGeneric
	}
}

// HandlerSpec is one named {filters, mutations} rule (spec.md §3 "Handler").
type HandlerSpec struct {
	Name      string
	Filters   []FilterSpec
	Mutations []MutationSpec
}

// FilterSpec is the tagged-variant filter config of spec.md §4.5.
type FilterSpec struct {
	Kind string // see filterKind* constants below
	Subject string // "actor" or "target"; empty defaults to "target"

	// alignment
	AlignCondition string // "aligned" | "unaligned" | "same_collective" | "different_collective"
	CollectiveName string // alignment (specific collective) and also used by alignment mutation

	// resource
	Minimums map[string]int

	// vibe
	Vibe string

	// tag / tag_prefix / shared_tag_prefix
	Tag    string
	Prefix string

	// max_distance / near
	Radius    int
	TargetTag string
	Query     *QuerySpec

	// game_value
	Value     *GameValueSpec
	Threshold float64

	// not
	Inner *FilterSpec
	// or
	Or []FilterSpec
}

const (
	FilterAlignment      = "alignment"
	FilterResource       = "resource"
	FilterVibe           = "vibe"
	FilterTag            = "tag"
	FilterTagPrefix      = "tag_prefix"
	FilterSharedPrefix   = "shared_tag_prefix"
	FilterMaxDistance    = "max_distance"
	FilterNear           = "near"
	FilterGameValue      = "game_value"
	FilterNot            = "not"
	FilterOr             = "or"
)

// MutationSpec is the tagged-variant mutation config of spec.md §4.6.
type MutationSpec struct {
	Kind string

	Subject string // "actor" or "target"; default "target"

	// resource_delta
	Deltas          map[string]int
	RemoveWhenEmpty []string

	// resource_transfer
	From, To string
	Resource string
	Amount   int

	// alignment
	AlignTo        string // "actor_collective" | "none"
	CollectiveName string

	// freeze
	Duration int

	// stats
	StatsScope string // "agent" | "collective" | "game"
	StatName   string
	Delta      float64

	// add_tag / remove_tag / remove_tags_with_prefix
	Tag    string
	Prefix string

	// query_inventory / recompute_query_tag
	Query *QuerySpec

	// set_game_value
	Value       *GameValueSpec
	Source      *GameValueSpec
	StaticDelta float64
	Accumulate  bool
}

const (
	MutationResourceDelta          = "resource_delta"
	MutationResourceTransfer       = "resource_transfer"
	MutationAlignment              = "alignment"
	MutationFreeze                 = "freeze"
	MutationClearInventory         = "clear_inventory"
	MutationStats                  = "stats"
	MutationAddTag                 = "add_tag"
	MutationRemoveTag              = "remove_tag"
	MutationRemoveTagsWithPrefix   = "remove_tags_with_prefix"
	MutationQueryInventory         = "query_inventory"
	MutationSetGameValue           = "set_game_value"
	MutationRecomputeQueryTag      = "recompute_query_tag"
)

// GameValueSpec is the tagged-variant GameValue expression of spec.md §3/§4.4.
type GameValueSpec struct {
	Kind string // "const" | "inventory" | "stat" | "num_objects" | "tag_count"

	Const float64

	Resource string
	Scope    string // "agent" | "collective" | "game"

	StatName string
	Delta    bool

	TypeName string // num_objects
	Tag      string // tag_count
}

const (
	GameValueConst      = "const"
	GameValueInventory  = "inventory"
	GameValueStat       = "stat"
	GameValueNumObjects = "num_objects"
	GameValueTagCount   = "tag_count"
)

// QuerySpec is the selector config of spec.md §3 "Query".
type QuerySpec struct {
	SourceTag string
	Nested    *QuerySpec
	Filters   []FilterSpec
	MaxItems  int
	OrderBy   string // "first" | "last" | "random"; "" defaults to "first"
}

// AOESpec is one AOEConfig of spec.md §3.
type AOESpec struct {
	Name       string
	Radius     int
	Metric     string // "chebyshev" | "euclidean"; "" defaults to chebyshev
	Mobile     bool
	EffectSelf bool
	Filters    []FilterSpec
	Mutations  []MutationSpec
	OnEnter    []MutationSpec // presence_delta, applied once on entry
	OnExit     []MutationSpec // presence_delta, applied once on exit
}

// ActionSpec is one registered action of spec.md §3/§4.10.
type ActionSpec struct {
	Name   string
	Kind   string // "noop" | "move" | "attack" | "change_vibe"
	Facing string // "north" | "south" | "east" | "west", for move
	Vibe   string // for change_vibe

	Required map[string]int
	Consumed map[string]int
	Attack   *AttackSpec
}

// AttackSpec is the declarative attack sub-protocol config of spec.md §4.10.
type AttackSpec struct {
	WeaponWeights      map[string]float64
	DefenseWeights     map[string]float64
	VibeBonus          map[string]float64
	SuccessActorDelta  map[string]int
	SuccessTargetDelta map[string]int
	Loot               []string
	FreezeDuration     int
	MaxRange           int
}

// EventSpec is one EventConfig of spec.md §3/§4.9.
type EventSpec struct {
	Name       string
	Timesteps  []int
	TargetTag  string
	Filters    []FilterSpec
	MaxTargets int // 0 = unlimited, per spec.md §4.9
	Mutations  []MutationSpec
	Fallback   string
}

// MaterializedQuerySpec tags every match of Query with TagName, once at init
// (spec.md §3 "MaterializedQuery").
type MaterializedQuerySpec struct {
	Query   QuerySpec
	TagName string
}

// ObsSpec is the resolved observation schema of spec.md §4.11/§6.
type ObsSpec struct {
	Width, Height, NumTokens int

	Tags      []string // tag-membership features to emit per object
	Resources []string // per-object inventory features to emit
	Stats     []string // per-agent stat features to emit

	Global GlobalObsSpec
	Values []ObsValueSpec

	GoalObsValue byte

	TerritorySources []TerritorySourceSpec
}

// GlobalObsSpec selects which fixed global tokens spec.md §4.11 enumerates
// are emitted.
type GlobalObsSpec struct {
	EpisodeCompletionPct bool
	LastAction           bool
	LastReward           bool
	GoalObs              bool
	LocalPosition        bool
	Territory            bool
	AOEMask              bool
}

// ObsValueSpec binds a configured GameValue to a named global observation
// token (spec.md §4.11's ObsValueConfig).
type ObsValueSpec struct {
	Name  string
	Value GameValueSpec
}

// TerritorySourceSpec is one non-mutating territory-AOE source contributing
// influence to Collective (spec.md §4.11).
type TerritorySourceSpec struct {
	Collective     string
	Row, Col       int
	Radius         int
}

// RewardSpec is one reward entry of spec.md §3/§4.12. Name beginning with
// "role:<role>:<label>" marks it role-gated.
type RewardSpec struct {
	Name         string
	Numerator    GameValueSpec
	Denominators []GameValueSpec
	Weight       float64
	Max          *float64
	PerTick      bool
}
