package model

// Canonical table names, in archive entry order.
const (
	TableNodes           = "nodes"
	TableNodeTags        = "node_tags"
	TableWays            = "ways"
	TableWayTags         = "way_tags"
	TableRelationMembers = "relation_members"
	TableRelationTags    = "relation_tags"
)

// TableNames lists the six tables in canonical order.
var TableNames = []string{
	TableNodes,
	TableNodeTags,
	TableWays,
	TableWayTags,
	TableRelationMembers,
	TableRelationTags,
}

// Member type letters, matching the osmium convention.
const (
	MemberNode     = "n"
	MemberWay      = "w"
	MemberRelation = "r"
)

// NodeRow is one row of the nodes table.
type NodeRow struct {
	ID  int64
	Lon float64
	Lat float64
}

// EdgeRow is one row of the ways table: a directed edge between two
// consecutive node references of a way. A way with k node references
// contributes k-1 edge rows.
type EdgeRow struct {
	WayID int64
	U     int64 // source node id
	V     int64 // target node id
}

// MemberRow is one row of the relation_members table.
type MemberRow struct {
	RelationID int64
	Ref        int64
	Type       string // "n", "w" or "r"
	Role       string
}

// TagRow is one row of a tag table. OwnerID refers to an entity of the
// table's kind; duplicate keys are kept verbatim in stream order.
type TagRow struct {
	OwnerID int64
	Key     string
	Value   string
}
