// Package schema describes the shape of a board: its columns, their
// kinds, and the settings a column kind needs for resolution (a mirror's
// aggregation function, a formula's source text).
package schema

import "fmt"

// ColumnKind is a closed set: every kind the upstream platform can send
// is enumerated here. There is no plugin mechanism for new kinds — a
// kind the extractor doesn't recognise is a bug, not a configuration gap.
type ColumnKind int

const (
	KindUnknown ColumnKind = iota
	KindText
	KindLongText
	KindNumber
	KindDate
	KindTime
	KindTimeline
	KindWeek
	KindHour
	KindStatus
	KindDropdown
	KindPeople
	KindCheckbox
	KindRating
	KindVote
	KindCountry
	KindEmail
	KindLink
	KindPhone
	KindLocation
	KindItemID
	KindCreationLog
	KindLastUpdated
	KindTimeTracking
	KindBoardRelation
	KindDependency
	KindMirror
	KindFormula
	KindWorldClock
)

var kindNames = map[ColumnKind]string{
	KindUnknown:       "unknown",
	KindText:          "text",
	KindLongText:      "long_text",
	KindNumber:        "number",
	KindDate:          "date",
	KindTime:          "time",
	KindTimeline:      "timeline",
	KindWeek:          "week",
	KindHour:          "hour",
	KindStatus:        "status",
	KindDropdown:      "dropdown",
	KindPeople:        "people",
	KindCheckbox:      "checkbox",
	KindRating:        "rating",
	KindVote:          "vote",
	KindCountry:       "country",
	KindEmail:         "email",
	KindLink:          "link",
	KindPhone:         "phone",
	KindLocation:      "location",
	KindItemID:        "item_id",
	KindCreationLog:   "creation_log",
	KindLastUpdated:   "last_updated",
	KindTimeTracking:  "time_tracking",
	KindBoardRelation: "board_relation",
	KindDependency:    "dependency",
	KindMirror:        "mirror",
	KindFormula:       "formula",
	KindWorldClock:    "world_clock",
}

var kindsByName = func() map[string]ColumnKind {
	m := make(map[string]ColumnKind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

func (k ColumnKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ColumnKind(%d)", int(k))
}

// ParseColumnKind looks up a kind by its wire name, returning
// (KindUnknown, false) for anything not in the closed set.
func ParseColumnKind(name string) (ColumnKind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// AggregationFn is a mirror column's aggregation over its linked items'
// displayed values.
type AggregationFn string

const (
	AggSum     AggregationFn = "sum"
	AggAvg     AggregationFn = "avg"
	AggAverage AggregationFn = "average"
	AggCount   AggregationFn = "count"
	AggMin     AggregationFn = "min"
	AggMax     AggregationFn = "max"
	AggNone    AggregationFn = "none"
)

// MirrorSettings configures a mirror column: which relation column it
// rides, which of the linked item's columns it displays, and how those
// displayed values combine when more than one linked item contributes.
type MirrorSettings struct {
	RelationColumnID       string
	DisplayedLinkedColumns []string
	Function               AggregationFn
}

// FormulaSettings configures a formula column.
type FormulaSettings struct {
	FormulaText string
}

// ColumnDef describes one column on a board.
type ColumnDef struct {
	ID    string
	Title string
	Kind  ColumnKind

	Mirror  *MirrorSettings
	Formula *FormulaSettings
}

// BoardSchema is the set of column definitions for one board.
type BoardSchema struct {
	BoardID string
	Columns map[string]*ColumnDef
}

// Column looks up a column definition by id.
func (b *BoardSchema) Column(columnID string) (*ColumnDef, bool) {
	if b == nil {
		return nil, false
	}
	c, ok := b.Columns[columnID]
	return c, ok
}
