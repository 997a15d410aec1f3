package fixture

import (
	"context"
	"fmt"
	"strings"
)

// ColumnSeed describes one column to insert via Seeder.
type ColumnSeed struct {
	ID                     string
	Title                  string
	Kind                   string
	MirrorRelationColumnID string
	MirrorDisplayed        []string
	MirrorFunction         string
	FormulaText            string
}

// ValueSeed describes one item's raw value for one column.
type ValueSeed struct {
	ColumnID            string
	ItemID              string
	Text                string
	Number              float64
	HasNumber           bool
	Date                string
	Time                string
	DisplayValue        string
	HasDisplayValue     bool
	Checkbox            bool
	HasCheckbox         bool
	Labels              []string
	TimelineFrom        string
	TimelineTo          string
	TimeTrackingSeconds int64
	MirrorLinkedNames   []string
}

// MirrorLinkSeed describes one item a mirror column reaches, in order.
type MirrorLinkSeed struct {
	ColumnID      string
	ItemID        string
	Order         int
	LinkedBoardID string
	LinkedItemID  string
	Name          string
}

// Seeder inserts demonstration data into a Store's tables. It is meant
// for the CLI's "seed" command and for test fixtures, not production
// data loading — rows are inserted or, on a key conflict, overwritten;
// there is no delete path.
type Seeder struct {
	store *Store
}

// NewSeeder wraps an opened Store for seeding.
func NewSeeder(store *Store) *Seeder { return &Seeder{store: store} }

// Board inserts a board row (idempotent: INSERT OR IGNORE).
func (s *Seeder) Board(ctx context.Context, boardID string) error {
	_, err := s.store.db.ExecContext(ctx, `INSERT OR IGNORE INTO boards (id) VALUES (?)`, boardID)
	if err != nil {
		return fmt.Errorf("fixture: seed board: %w", err)
	}
	return nil
}

// Column inserts a column definition for boardID.
func (s *Seeder) Column(ctx context.Context, boardID string, c ColumnSeed) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO columns (board_id, id, title, kind, mirror_relation_column_id,
		                      mirror_displayed_linked_columns, mirror_function, formula_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(board_id, id) DO UPDATE SET
			title=excluded.title, kind=excluded.kind,
			mirror_relation_column_id=excluded.mirror_relation_column_id,
			mirror_displayed_linked_columns=excluded.mirror_displayed_linked_columns,
			mirror_function=excluded.mirror_function, formula_text=excluded.formula_text`,
		boardID, c.ID, c.Title, c.Kind, c.MirrorRelationColumnID,
		strings.Join(c.MirrorDisplayed, ","), c.MirrorFunction, c.FormulaText)
	if err != nil {
		return fmt.Errorf("fixture: seed column %s: %w", c.ID, err)
	}
	return nil
}

// Value inserts (or replaces) a raw value for one item's column.
func (s *Seeder) Value(ctx context.Context, boardID string, v ValueSeed) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO item_values (board_id, column_id, item_id, text, number, has_number,
		                          date, time, display_value, has_display_value,
		                          checkbox, has_checkbox, labels, timeline_from, timeline_to,
		                          time_tracking_seconds, mirror_linked_item_names)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(board_id, column_id, item_id) DO UPDATE SET
			text=excluded.text, number=excluded.number, has_number=excluded.has_number,
			date=excluded.date, time=excluded.time, display_value=excluded.display_value,
			has_display_value=excluded.has_display_value, checkbox=excluded.checkbox,
			has_checkbox=excluded.has_checkbox, labels=excluded.labels,
			timeline_from=excluded.timeline_from, timeline_to=excluded.timeline_to,
			time_tracking_seconds=excluded.time_tracking_seconds,
			mirror_linked_item_names=excluded.mirror_linked_item_names`,
		boardID, v.ColumnID, v.ItemID, v.Text, v.Number, boolToInt(v.HasNumber),
		v.Date, v.Time, v.DisplayValue, boolToInt(v.HasDisplayValue),
		boolToInt(v.Checkbox), boolToInt(v.HasCheckbox), strings.Join(v.Labels, ","),
		v.TimelineFrom, v.TimelineTo, v.TimeTrackingSeconds, strings.Join(v.MirrorLinkedNames, ","))
	if err != nil {
		return fmt.Errorf("fixture: seed value %s/%s: %w", v.ColumnID, v.ItemID, err)
	}
	return nil
}

// MirrorLink inserts one linked-item row for a mirror column.
func (s *Seeder) MirrorLink(ctx context.Context, boardID string, l MirrorLinkSeed) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO mirror_links (board_id, column_id, item_id, ord, linked_board_id, linked_item_id, name)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(board_id, column_id, item_id, ord) DO UPDATE SET
			linked_board_id=excluded.linked_board_id, linked_item_id=excluded.linked_item_id,
			name=excluded.name`,
		boardID, l.ColumnID, l.ItemID, l.Order, l.LinkedBoardID, l.LinkedItemID, l.Name)
	if err != nil {
		return fmt.Errorf("fixture: seed mirror link: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
