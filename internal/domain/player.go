package domain

// PlayerStats is the snapshot of a player character node.
//
// Invariants: Gold never goes negative; HPMax, Gold, Power and Speed are
// written once at creation and survive later profile updates, which may
// only touch Name, Race and Class.
type PlayerStats struct {
	Name      string `json:"name"`
	Race      string `json:"race"`
	Class     string `json:"class"`
	HPCurrent int    `json:"hp_current"`
	HPMax     int    `json:"hp_max"`
	Gold      int    `json:"gold"`
	Power     int    `json:"power"`
	Speed     int    `json:"speed"`
}

// CreationComplete reports whether character creation has finished, i.e.
// both race and class were set to something other than the sentinel.
func (p *PlayerStats) CreationComplete() bool {
	if p == nil {
		return false
	}
	return p.Race != "" && p.Race != UnknownField &&
		p.Class != "" && p.Class != UnknownField
}

// InventoryItem is an owned item with its coarse type classification
// (Weapon / Armor / Item) derived from node labels.
type InventoryItem struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// EntityNode is a generic world fact written by the (external) world-fact
// extractor. Labels are validated against an allow-list before they reach
// the query layer.
type EntityNode struct {
	ID         string
	Label      string
	Properties map[string]any
}

// RelationshipEdge is a generic typed edge between two entities.
type RelationshipEdge struct {
	SourceID   string
	TargetID   string
	Type       string
	Properties map[string]any
}
