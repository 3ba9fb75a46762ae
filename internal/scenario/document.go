package scenario

// Document is the file and wire form of a season. Competitors are referred to
// by the identities listed in Competitors.
type Document struct {
	Name string `koanf:"name" json:"name"`
	// EliminationRank is the default cut for queries on this season. Zero
	// leaves the choice to the caller.
	EliminationRank int       `koanf:"elimination_rank" json:"elimination_rank,omitempty"`
	Competitors     []string  `koanf:"competitors" json:"competitors"`
	Steps           []StepDoc `koanf:"steps" json:"steps"`
}

// Step kinds accepted in StepDoc.Kind.
const (
	KindEvent    = "event"
	KindResolved = "resolved"
	KindTransfer = "transfer"
)

// StepDoc is one step of the season. Awards holds the known points of a
// resolved event or the signed deltas of a transfer window. Event is set for
// events still to be played; Kind may be left empty when Event is set.
type StepDoc struct {
	Kind   string       `koanf:"kind" json:"kind,omitempty"`
	Name   string       `koanf:"name" json:"name"`
	After  []string     `koanf:"after" json:"after,omitempty"`
	Awards []TeamPoints `koanf:"awards" json:"awards,omitempty"`
	Event  *EventDoc    `koanf:"event" json:"event,omitempty"`
}

// TeamPoints pairs a competitor with a point value.
type TeamPoints struct {
	Team   string `koanf:"team" json:"team"`
	Points int64  `koanf:"points" json:"points"`
}

// EventDoc describes a phase: the event itself or one of its group stages.
type EventDoc struct {
	// Name defaults to the step name for events and to GS1/GS2 for group
	// stages.
	Name   string  `koanf:"name" json:"name,omitempty"`
	Link   string  `koanf:"link" json:"link,omitempty"`
	Icon   string  `koanf:"icon" json:"icon,omitempty"`
	Slots  int     `koanf:"slots" json:"slots"`
	Points []int64 `koanf:"points" json:"points"`
	// Groups expands a per-group-position table for groups played in
	// parallel.
	Groups int `koanf:"groups" json:"groups,omitempty"`

	Invited    []string  `koanf:"invited" json:"invited,omitempty"`
	Qualifiers []PoolDoc `koanf:"qualifiers" json:"qualifiers,omitempty"`
	Eliminated []string  `koanf:"eliminated" json:"eliminated,omitempty"`

	SeedA []string `koanf:"seed_a" json:"seed_a,omitempty"`
	SeedB []string `koanf:"seed_b" json:"seed_b,omitempty"`

	Ranges       []RangeDoc `koanf:"ranges" json:"ranges,omitempty"`
	Claims       []ClaimDoc `koanf:"claims" json:"claims,omitempty"`
	LowerBracket [][]string `koanf:"lower_bracket" json:"lower_bracket,omitempty"`

	GroupStage1 *EventDoc   `koanf:"group_stage_1" json:"group_stage_1,omitempty"`
	GroupStage2 *EventDoc   `koanf:"group_stage_2" json:"group_stage_2,omitempty"`
	Linkage     *LinkageDoc `koanf:"linkage" json:"linkage,omitempty"`
}

// PoolDoc is a regional qualifier pool.
type PoolDoc struct {
	Region     string   `koanf:"region" json:"region"`
	Candidates []string `koanf:"candidates" json:"candidates"`
	Qualified  int      `koanf:"qualified" json:"qualified"`
}

// RangeDoc is a known placement window, 1-based and inclusive.
type RangeDoc struct {
	Team  string `koanf:"team" json:"team"`
	Best  int    `koanf:"best" json:"best"`
	Worst int    `koanf:"worst" json:"worst"`
}

// ClaimDoc states that exactly one of Teams finishes at Place.
type ClaimDoc struct {
	Place int      `koanf:"place" json:"place"`
	Teams []string `koanf:"teams" json:"teams"`
}

// LinkageDoc selects how group stages feed the event. Policy is split_half
// (default) or split_at with Cut.
type LinkageDoc struct {
	Policy  string `koanf:"policy" json:"policy,omitempty"`
	Cut     int    `koanf:"cut" json:"cut,omitempty"`
	Playoff int    `koanf:"playoff" json:"playoff,omitempty"`
}
