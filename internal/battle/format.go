package battle

import (
	"fmt"
	"html"
	"time"

	"github.com/whisper/battlewatch/internal/identity"
)

// unknownValue is rendered for durations and timestamps that do not parse.
const unknownValue = "unknown"

// Formatter renders events into notification text and Details. Names are
// decoded through its Decoder so malformed input is logged.
type Formatter struct {
	decoder *identity.Decoder
	loc     *time.Location
}

// NewFormatter creates a Formatter. A nil decoder decodes without
// diagnostics; a nil loc means time.Local.
func NewFormatter(decoder *identity.Decoder, loc *time.Location) *Formatter {
	if decoder == nil {
		decoder = identity.NewDecoder(nil)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{decoder: decoder, loc: loc}
}

// Format renders the notification text for e. When realm is non-nil the
// settlement and its owner replace the raw defender identity. Timestamps
// are rendered in loc without further normalization; a nil loc means
// time.Local. Decoded names are HTML-escaped.
func Format(e Event, realm *RealmInfo, loc *time.Location) string {
	return NewFormatter(nil, loc).Format(e, realm)
}

// Format renders the notification text for e.
func (f *Formatter) Format(e Event, realm *RealmInfo) string {
	return Text(f.Describe(e, realm))
}

// Text renders the notification text for already decoded details.
func Text(d Details) string {
	attacker := html.EscapeString(d.Attacker.Name)
	if d.Realm != nil {
		return fmt.Sprintf("[%s] %s is attacking %s Realm (owned by %s) - Battle will end in %s",
			d.StartedAt, attacker,
			html.EscapeString(d.Realm.Name),
			html.EscapeString(d.Realm.OwnerName),
			d.DurationLeft,
		)
	}

	return fmt.Sprintf("[%s] %s is attacking %s's %s - Battle will end in %s",
		d.StartedAt, attacker,
		html.EscapeString(d.Defender.Name),
		html.EscapeString(d.StructureType),
		d.DurationLeft,
	)
}

// FormatDuration renders packed seconds as "<m>m <s>s".
func FormatDuration(packed string) string {
	seconds, err := ParsePacked(packed)
	if err != nil {
		return unknownValue
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// FormatTimestamp renders packed epoch seconds as "<day> <Mon> <H>:<MM>"
// in loc.
func FormatTimestamp(packed string, loc *time.Location) string {
	secs, err := ParsePacked(packed)
	if err != nil || secs > uint64(1<<62) {
		return unknownValue
	}
	if loc == nil {
		loc = time.Local
	}
	t := time.Unix(int64(secs), 0).In(loc)
	return fmt.Sprintf("%d %s %d:%02d", t.Day(), t.Month().String()[:3], t.Hour(), t.Minute())
}

// Details is the structured description of a new battle, used for the
// battle log record and the published battle.started event.
type Details struct {
	BattleID      string     `json:"battle_id"`
	EventID       string     `json:"event_id"`
	Attacker      Party      `json:"attacker"`
	Defender      Party      `json:"defender"`
	Location      *Location  `json:"location,omitempty"`
	StructureType string     `json:"structure_type"`
	DurationLeft  string     `json:"duration_left"`
	StartedAt     string     `json:"started_at"`
	Raw           RawPacked  `json:"raw"`
	Realm         *RealmInfo `json:"realm,omitempty"`
}

// Party is one side of a battle.
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	ArmyID  string `json:"army_id"`
}

// Location is the battle's map coordinate. It is absent from Details when
// the feed's coordinates did not parse.
type Location struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RawPacked keeps the undecoded duration and timestamp for diagnostics.
type RawPacked struct {
	DurationLeft string `json:"duration_left"`
	Timestamp    string `json:"timestamp"`
}

// Describe decodes e (and realm, if present) into Details without
// diagnostics.
func Describe(e Event, realm *RealmInfo, loc *time.Location) Details {
	return NewFormatter(nil, loc).Describe(e, realm)
}

// Describe decodes e (and realm, if present) into Details. Each packed
// name is decoded once.
func (f *Formatter) Describe(e Event, realm *RealmInfo) Details {
	var loc *Location
	if !e.NoLocation {
		loc = &Location{X: e.X, Y: e.Y}
	}
	return Details{
		BattleID: e.BattleID,
		EventID:  e.EventID,
		Attacker: Party{
			Name:    f.decoder.Decode(e.AttackerName),
			Address: e.Attacker,
			ArmyID:  e.AttackerArmyID,
		},
		Defender: Party{
			Name:    f.decoder.Decode(e.DefenderName),
			Address: e.Defender,
			ArmyID:  e.DefenderArmyID,
		},
		Location:      loc,
		StructureType: e.StructureType,
		DurationLeft:  FormatDuration(e.DurationLeft),
		StartedAt:     FormatTimestamp(e.Timestamp, f.loc),
		Raw: RawPacked{
			DurationLeft: e.DurationLeft,
			Timestamp:    e.Timestamp,
		},
		Realm: realm,
	}
}
