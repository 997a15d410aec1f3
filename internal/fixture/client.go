package fixture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/formulacore/internal/column"
	"github.com/leapstack-labs/formulacore/internal/queryclient"
	"github.com/leapstack-labs/formulacore/internal/schema"
)

// Client implements queryclient.Client against a Store's SQLite tables.
type Client struct {
	store *Store
}

// NewClient wraps an opened Store as a queryclient.Client.
func NewClient(store *Store) *Client { return &Client{store: store} }

var _ queryclient.Client = (*Client)(nil)

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func (c *Client) Schema(ctx context.Context, boardID string) (*schema.BoardSchema, error) {
	var exists int
	err := c.store.db.QueryRowContext(ctx, `SELECT 1 FROM boards WHERE id = ?`, boardID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fixture: schema lookup: %w", err)
	}

	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, title, kind, mirror_relation_column_id, mirror_displayed_linked_columns,
		       mirror_function, formula_text
		FROM columns WHERE board_id = ?`, boardID)
	if err != nil {
		return nil, fmt.Errorf("fixture: column lookup: %w", err)
	}
	defer rows.Close()

	board := &schema.BoardSchema{BoardID: boardID, Columns: make(map[string]*schema.ColumnDef)}
	for rows.Next() {
		var id, title, kindName, relCol, displayed, fn, formulaText string
		if err := rows.Scan(&id, &title, &kindName, &relCol, &displayed, &fn, &formulaText); err != nil {
			return nil, fmt.Errorf("fixture: scan column: %w", err)
		}
		kind, _ := schema.ParseColumnKind(kindName)
		def := &schema.ColumnDef{ID: id, Title: title, Kind: kind}
		if kind == schema.KindMirror {
			def.Mirror = &schema.MirrorSettings{
				RelationColumnID:       relCol,
				DisplayedLinkedColumns: splitCSV(displayed),
				Function:               schema.AggregationFn(fn),
			}
		}
		if kind == schema.KindFormula {
			def.Formula = &schema.FormulaSettings{FormulaText: formulaText}
		}
		board.Columns[id] = def
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fixture: iterate columns: %w", err)
	}
	return board, nil
}

func (c *Client) rawValueRow(ctx context.Context, boardID, columnID, itemID string) (column.RawValue, bool, error) {
	var rv column.RawValue
	var hasNumber, hasDisplay, checkbox, hasCheckbox int
	var labels, mirrorNames string
	row := c.store.db.QueryRowContext(ctx, `
		SELECT text, number, has_number, date, time, display_value, has_display_value,
		       checkbox, has_checkbox, labels, timeline_from, timeline_to,
		       time_tracking_seconds, mirror_linked_item_names
		FROM item_values WHERE board_id = ? AND column_id = ? AND item_id = ?`,
		boardID, columnID, itemID)
	err := row.Scan(&rv.Text, &rv.Number, &hasNumber, &rv.Date, &rv.Time, &rv.DisplayValue,
		&hasDisplay, &checkbox, &hasCheckbox, &labels, &rv.TimelineFrom, &rv.TimelineTo,
		&rv.TimeTrackingSeconds, &mirrorNames)
	if errors.Is(err, sql.ErrNoRows) {
		return column.RawValue{}, false, nil
	}
	if err != nil {
		return column.RawValue{}, false, fmt.Errorf("fixture: scan item_value: %w", err)
	}
	rv.HasNumber = hasNumber != 0
	rv.HasDisplayValue = hasDisplay != 0
	rv.Checkbox = checkbox != 0
	rv.HasCheckbox = hasCheckbox != 0
	rv.Labels = splitCSV(labels)
	rv.MirrorLinkedItemNames = splitCSV(mirrorNames)
	return rv, true, nil
}

func (c *Client) DisplayValue(ctx context.Context, key queryclient.ResolutionKey) (column.RawValue, bool, error) {
	return c.rawValueRow(ctx, key.BoardID, key.ColumnID, key.ItemID)
}

func (c *Client) DisplayValueBatch(ctx context.Context, boardID, columnID string, itemIDs []string) (map[string]column.RawValue, error) {
	out := make(map[string]column.RawValue, len(itemIDs))
	for _, id := range itemIDs {
		rv, ok, err := c.rawValueRow(ctx, boardID, columnID, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out[id] = rv
		}
	}
	return out, nil
}

func (c *Client) DeepMirror(ctx context.Context, boardID, columnID, itemID string) (queryclient.DeepMirrorResult, error) {
	var result queryclient.DeepMirrorResult

	rv, ok, err := c.rawValueRow(ctx, boardID, columnID, itemID)
	if err != nil {
		return result, err
	}
	if ok && rv.HasDisplayValue {
		result.HasDisplayValue = true
		result.DisplayValue = rv.DisplayValue
	}

	rows, err := c.store.db.QueryContext(ctx, `
		SELECT linked_board_id, linked_item_id, name FROM mirror_links
		WHERE board_id = ? AND column_id = ? AND item_id = ? ORDER BY ord`,
		boardID, columnID, itemID)
	if err != nil {
		return result, fmt.Errorf("fixture: mirror links: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var li queryclient.LinkedItem
		if err := rows.Scan(&li.LinkedBoardID, &li.LinkedItemID, &li.Name); err != nil {
			return result, fmt.Errorf("fixture: scan mirror link: %w", err)
		}
		result.MirroredItems = append(result.MirroredItems, li)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("fixture: iterate mirror links: %w", err)
	}
	return result, nil
}

func (c *Client) MultiColumnsDeep(ctx context.Context, req queryclient.MultiColumnsDeepRequest) (map[queryclient.ResolutionKey]column.RawValue, error) {
	out := make(map[queryclient.ResolutionKey]column.RawValue)
	for _, columnID := range req.ColumnIDs {
		for _, itemID := range req.ItemIDs {
			rv, ok, err := c.rawValueRow(ctx, req.BoardID, columnID, itemID)
			if err != nil {
				return nil, err
			}
			if ok {
				out[queryclient.ResolutionKey{BoardID: req.BoardID, ColumnID: columnID, ItemID: itemID}] = rv
			}
		}
	}
	return out, nil
}
