// Package ids defines the dense integer identifier types shared across the
// simulation kernel. Every name (tag, resource, type, feature, collective)
// is resolved once at init into one of these; no string lookups happen
// during Step.
package ids

// ObjectID stably identifies a GridObject for the lifetime of a simulation.
// Ids are assigned monotonically at creation and never reused.
type ObjectID int32

// NoObject is the sentinel for an empty cell or an absent reference.
const NoObject ObjectID = -1

// TypeID is a dense id assigned in sorted order over the set of type names.
type TypeID uint16

// TagID is a dense id assigned in sorted order over the set of tag names.
// Capped at 256 tags per simulation (see config.Resolve).
type TagID uint8

// MaxTags is the hard cap on distinct tags in a single simulation.
const MaxTags = 256

// ResourceID is a dense id assigned in config resource_names order.
type ResourceID uint16

// CollectiveID identifies a row in the collectives table.
type CollectiveID int32

// NoCollective is the sentinel meaning "not a member of any collective".
const NoCollective CollectiveID = -1

// VibeID is a small enumerated per-agent state id.
type VibeID uint8

// FeatureID is a dense observation feature id resolved at init.
type FeatureID uint8

// GroupID identifies an inventory limit group.
type GroupID int16

// NoGroup is the sentinel for "uses the default limit, not an explicit group".
const NoGroup GroupID = -1
