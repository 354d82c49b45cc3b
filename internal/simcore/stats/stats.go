// Package stats implements the three named-float stat tables of spec §6
// (game, agent[i], collective[name]) and the delta-since-baseline semantics
// StatValue needs for reward and game-value evaluation (spec §4.4).
package stats

// Table is one {stat_name -> float} table with an init-time baseline
// snapshot, so StatValue(delta=true) reports "since sim init" rather than
// since-process-start.
type Table struct {
	values   map[string]float64
	baseline map[string]float64
}

// New creates an empty table.
func New() *Table {
	return &Table{values: make(map[string]float64), baseline: make(map[string]float64)}
}

// Add accumulates delta into name's running value.
func (t *Table) Add(name string, delta float64) {
	t.values[name] += delta
}

// Set overwrites name's value outright.
func (t *Table) Set(name string, v float64) {
	t.values[name] = v
}

// Get returns name's current value (0 if never set).
func (t *Table) Get(name string) float64 {
	return t.values[name]
}

// Delta returns the value's change since CaptureBaseline was last called.
func (t *Table) Delta(name string) float64 {
	return t.values[name] - t.baseline[name]
}

// CaptureBaseline snapshots every currently-known stat as the new baseline.
// Called once at sim init so pre-existing non-zero state contributes zero
// delta on the first reward evaluation, per spec §4.4.
func (t *Table) CaptureBaseline() {
	t.baseline = make(map[string]float64, len(t.values))
	for k, v := range t.values {
		t.baseline[k] = v
	}
}

// Snapshot returns a copy of the current values, for external observers.
func (t *Table) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}
