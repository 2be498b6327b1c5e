// Package battle defines the battle-start records read from the game feed
// and renders them into notification text.
package battle

import (
	"strconv"
	"strings"
)

// Structure types reported by the feed. Only Realm is enriched; any other
// value is carried verbatim.
const (
	StructureRealm          = "Realm"
	StructureHyperstructure = "Hyperstructure"
	StructureBank           = "Bank"
	StructureFragmentMine   = "FragmentMine"
	StructureSettlement     = "Settlement"
)

// Event is a single open battle-start record. Name, duration and timestamp
// fields hold the feed's packed values and are decoded only for display.
type Event struct {
	EventID        string
	BattleID       string
	Attacker       string // address
	AttackerName   string // packed
	AttackerArmyID string
	Defender       string // address
	DefenderName   string // packed
	DefenderArmyID string
	X              int
	Y              int
	NoLocation     bool // the feed's coordinates did not parse; X and Y are zero
	StructureType  string
	DurationLeft   string // packed seconds
	Timestamp      string // packed epoch seconds
}

// IsRealm reports whether the battle is at a settled realm and needs a
// contextual lookup.
func (e Event) IsRealm() bool {
	return e.StructureType == StructureRealm
}

// RealmInfo is the decoded settlement at a battle's location.
type RealmInfo struct {
	Name      string `json:"name"`
	OwnerName string `json:"owner_name"`
}

// Notification is the rendered text for one battle and the handles it
// targets. Handles are unique.
type Notification struct {
	BattleID string
	Text     string
	Handles  []string
}

// NewNotification builds a Notification, dropping empty and repeated
// handles while keeping first-seen order.
func NewNotification(battleID, text string, handles []string) Notification {
	seen := make(map[string]bool, len(handles))
	unique := make([]string, 0, len(handles))
	for _, h := range handles {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		unique = append(unique, h)
	}
	return Notification{BattleID: battleID, Text: text, Handles: unique}
}

// ParsePacked parses a packed unsigned integer written as 0x-prefixed hex
// or as decimal.
func ParsePacked(packed string) (uint64, error) {
	s := strings.TrimSpace(packed)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}
