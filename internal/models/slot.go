package models

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"
)

var ErrInvalidSlotKey = errors.New("invalid class group key")

var startTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

var weekdayNames = [...]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Segunda",
	time.Tuesday:   "Terça",
	time.Wednesday: "Quarta",
	time.Thursday:  "Quinta",
	time.Friday:    "Sexta",
	time.Saturday:  "Sábado",
}

// GridWeekdays is the Monday-Saturday axis of the slot grid
var GridWeekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
}

func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

// ParseWeekday resolves a weekday name (accent-insensitive for "Terça"/"Sábado")
func ParseWeekday(name string) (time.Weekday, bool) {
	n := foldWeekday(name)
	for d, w := range weekdayNames {
		if foldWeekday(w) == n {
			return time.Weekday(d), true
		}
	}
	return 0, false
}

func foldWeekday(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("ç", "c", "á", "a").Replace(s)
}

func ValidStartTime(s string) bool {
	return startTimePattern.MatchString(s)
}

// SlotKey identifies a class group: every class of one modality at one
// start time on one weekday.
type SlotKey struct {
	StartTime string       `json:"t"`
	Weekday   time.Weekday `json:"w"`
	Modality  string       `json:"m"`
}

func (k SlotKey) WeekdayName() string {
	return WeekdayName(k.Weekday)
}

// Encode serializes the key for use in a URL path segment
func (k SlotKey) Encode() string {
	data, _ := json.Marshal(k)
	return base64.RawURLEncoding.EncodeToString(data)
}

// Legacy renders the hyphen-joined form "HH:MM-Weekday-Modality"
func (k SlotKey) Legacy() string {
	return k.StartTime + "-" + k.WeekdayName() + "-" + k.Modality
}

// ParseSlotKey accepts an Encode()d key or the legacy hyphen form. In the
// legacy form only the first two hyphens separate fields, so modality names
// may contain hyphens.
func ParseSlotKey(s string) (SlotKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SlotKey{}, ErrInvalidSlotKey
	}

	if data, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		var k SlotKey
		if err := json.Unmarshal(data, &k); err == nil {
			return k, k.validate()
		}
	}

	parts := strings.SplitN(s, "-", 3)
	if len(parts) != 3 {
		return SlotKey{}, ErrInvalidSlotKey
	}
	day, ok := ParseWeekday(parts[1])
	if !ok {
		return SlotKey{}, ErrInvalidSlotKey
	}
	k := SlotKey{StartTime: parts[0], Weekday: day, Modality: parts[2]}
	return k, k.validate()
}

func (k SlotKey) validate() error {
	if !ValidStartTime(k.StartTime) || k.Weekday < time.Sunday || k.Weekday > time.Saturday || strings.TrimSpace(k.Modality) == "" {
		return ErrInvalidSlotKey
	}
	return nil
}
