package model

// Source identifies which upstream query shape a page request targets.
// The primary source is the high-volume FileHash entity store; the
// secondary source is the low-volume Malop process store used only to
// top up sparse results.
type Source int

const (
	// SourcePrimary queries FileHash entities with skip-based pagination.
	SourcePrimary Source = iota

	// SourceSecondary queries MalopProcess entities with a single bounded
	// request and no pagination.
	SourceSecondary
)

// String returns a short label for logging.
func (s Source) String() string {
	switch s {
	case SourcePrimary:
		return "primary"
	case SourceSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// PageRequest describes one bounded query against a source. A request is
// constructed fresh per loop iteration and never mutated after issuance.
type PageRequest struct {
	// Source selects the upstream query shape.
	Source Source

	// PageSize is the number of entities requested for this page.
	PageSize int

	// Skip is the pagination offset. Ignored by the secondary source,
	// which does not page.
	Skip int
}

// FieldValues is the value list carried by one entity field. The API may
// return multiple values per field per entity.
type FieldValues struct {
	Values []string `json:"values"`
}

// Entity is one record in a query response: a mapping from field name to
// its value list. Fields the caller did not request, or that the entity
// does not carry, are simply absent.
type Entity struct {
	SimpleValues map[string]FieldValues `json:"simpleValues"`
}

// EntityMap is the raw per-entity result of one page: opaque entity id to
// entity record.
type EntityMap map[string]Entity
