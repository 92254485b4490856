package model

import "time"

// Column names shared by the store and the service.
const (
	ColID             = "id"
	ColSOPListID      = "sop_list_id"
	ColText           = "text"
	ColOrder          = "order"
	ColIsChecked      = "is_checked"
	ColCheckedAt      = "checked_at"
	ColAssignedUserID = "assigned_user_id"
	ColCreatedByID    = "created_by_id"
)

// Relation aliases embedded in checklist responses.
const (
	RelAssignedUser = "assigned_user"
	RelCreatedBy    = "created_by"
	RelItems        = "items"
)

// Tables names the three tables of the checklist schema.
type Tables struct {
	Users string
	Lists string
	Items string
}

// DefaultTables matches the hosted schema.
func DefaultTables() Tables {
	return Tables{Users: "auth_user", Lists: "sop_lists", Items: "sop_items"}
}

// NewItemRows turns plain item texts into item rows for listID, numbering
// them by their position in texts.
func NewItemRows(listID any, texts []string) []Row {
	rows := make([]Row, 0, len(texts))
	for i, text := range texts {
		rows = append(rows, Row{
			ColSOPListID: listID,
			ColText:      text,
			ColOrder:     i,
		})
	}
	return rows
}

// ToggleUpdate returns the column changes that flip an item from its current
// checked state. checked_at is set to now when the item becomes checked and
// cleared otherwise.
func ToggleUpdate(current Row, now time.Time) Row {
	checked := !current.Bool(ColIsChecked)
	var checkedAt any
	if checked {
		checkedAt = now.UTC()
	}
	return Row{
		ColIsChecked: checked,
		ColCheckedAt: checkedAt,
	}
}
