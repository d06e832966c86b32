package report

import "strings"

// EventNameParts is the display breakdown of an event name following the
// <action>_<target>_<location> convention, e.g. click_buy-now_hero.
type EventNameParts struct {
	Action   string
	Target   string
	Location string
}

// ParseEventName splits name on its first two underscores. The location
// keeps any further underscores. ok is false unless all three parts are
// non-empty; callers then show the name as-is.
func ParseEventName(name string) (parts EventNameParts, ok bool) {
	pieces := strings.SplitN(name, "_", 3)
	if len(pieces) != 3 || pieces[0] == "" || pieces[1] == "" || pieces[2] == "" {
		return EventNameParts{}, false
	}
	return EventNameParts{Action: pieces[0], Target: pieces[1], Location: pieces[2]}, true
}
