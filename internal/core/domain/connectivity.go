package domain

import "time"

// ConnectivityStatus is the operating mode reported to the UI banner.
type ConnectivityStatus string

const (
	StatusOnline   ConnectivityStatus = "online"
	StatusOffline  ConnectivityStatus = "offline"
	StatusDegraded ConnectivityStatus = "degraded-fallback"
)

// rank orders statuses from worst to best. Transitions towards a worse
// status apply immediately; transitions towards a better one require a
// confirming probe after a cooldown (asymmetric debounce).
var statusRank = map[ConnectivityStatus]int{
	StatusDegraded: 0,
	StatusOffline:  1,
	StatusOnline:   2,
}

// WorseThan reports whether s is a strictly worse operating mode than other.
func (s ConnectivityStatus) WorseThan(other ConnectivityStatus) bool {
	return statusRank[s] < statusRank[other]
}

// ConnectivityState is a point-in-time connectivity report.
type ConnectivityState struct {
	Status    ConnectivityStatus `json:"status"`
	CheckedAt time.Time          `json:"checked_at"`
	Reason    string             `json:"reason,omitempty"`
}
