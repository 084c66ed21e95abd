package status

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the semantic position of a user on the floor. The persisted wire
// format is a single string ("wait", "g_3", "playing_3", "table_wait_3", ...)
// and this package is the only place that reads or writes it.
type Kind int

const (
	Wait Kind = iota
	Outing
	Entrance
	Ready
	Playing
	TableWait
)

// Eight physical tables on the floor.
const (
	MinTable = 1
	MaxTable = 8
)

const (
	literalWait     = "wait"
	literalOuting   = "outing"
	literalEntrance = "entrance"
	prefixReady     = "g_"
	prefixPlaying   = "playing_"
	prefixTableWait = "table_wait_"
)

// Status is the decoded form of the status string. Table is only meaningful
// for Ready, Playing and TableWait kinds.
type Status struct {
	Kind  Kind
	Table int
}

// AtTable reports whether the status carries a table number.
func (s Status) AtTable() bool {
	return s.Kind == Ready || s.Kind == Playing || s.Kind == TableWait
}

// OccupiesTable reports whether the status counts toward a table's occupant
// set (assigned, whether or not the game has started).
func (s Status) OccupiesTable(tableNumber int) bool {
	return (s.Kind == Ready || s.Kind == Playing) && s.Table == tableNumber
}

// Parse decodes a status string. It is total: unknown strings, empty strings
// and table numbers outside [1,8] all decode to Wait so corrupt records can
// never produce a ninth virtual table.
func Parse(raw string) Status {
	switch raw {
	case literalWait, "":
		return Status{Kind: Wait}
	case literalOuting:
		return Status{Kind: Outing}
	case literalEntrance:
		return Status{Kind: Entrance}
	}

	// Order matters: "playing_" and "table_wait_" are not "g_" but every
	// prefix check must see the longest literal first on its own branch.
	switch {
	case strings.HasPrefix(raw, prefixTableWait):
		return tableStatus(TableWait, raw[len(prefixTableWait):])
	case strings.HasPrefix(raw, prefixPlaying):
		return tableStatus(Playing, raw[len(prefixPlaying):])
	case strings.HasPrefix(raw, prefixReady):
		return tableStatus(Ready, raw[len(prefixReady):])
	}

	return Status{Kind: Wait}
}

func tableStatus(kind Kind, digits string) Status {
	n, err := strconv.Atoi(digits)
	if err != nil || n < MinTable || n > MaxTable {
		return Status{Kind: Wait}
	}
	return Status{Kind: kind, Table: n}
}

// Format encodes a status back to its wire string. Exact inverse of Parse
// for every status Parse can produce.
func (s Status) Format() string {
	switch s.Kind {
	case Outing:
		return literalOuting
	case Entrance:
		return literalEntrance
	case Ready:
		return fmt.Sprintf("%s%d", prefixReady, s.Table)
	case Playing:
		return fmt.Sprintf("%s%d", prefixPlaying, s.Table)
	case TableWait:
		return fmt.Sprintf("%s%d", prefixTableWait, s.Table)
	}
	return literalWait
}

// ForWait returns the wire status for the general wait queue.
func ForWait() string {
	return literalWait
}

// ForReady returns the wire status for a user seated at a table before the
// game starts.
func ForReady(tableNumber int) string {
	return Status{Kind: Ready, Table: tableNumber}.Format()
}

// ForPlaying returns the wire status for a user whose game is in progress.
func ForPlaying(tableNumber int) string {
	return Status{Kind: Playing, Table: tableNumber}.Format()
}

// ForTableWait returns the wire status for a user queued for a busy table.
func ForTableWait(tableNumber int) string {
	return Status{Kind: TableWait, Table: tableNumber}.Format()
}

// ValidTable reports whether n addresses one of the eight tables.
func ValidTable(n int) bool {
	return n >= MinTable && n <= MaxTable
}
