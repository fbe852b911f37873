package heartbeat

import (
	"time"

	"github.com/jpalmerr/heartbeat/internal/status"
	"github.com/jpalmerr/heartbeat/internal/store"
)

// ErrCorruptSnapshot is wrapped by [Heartbeat.Start] when the persisted
// statuses exist but cannot be decoded.
var ErrCorruptSnapshot = store.ErrCorruptSnapshot

// Offline is the reserved status meaning "deliberately down".
// Checks of an application whose latest status is Offline fail immediately.
const Offline = status.Offline

// Report is an accepted heartbeat, as delivered to callbacks registered
// with [WithReportCallback].
type Report struct {
	AppName   string
	Status    string
	Timestamp time.Time
	Expiry    time.Duration
	ExpiresAt time.Time
}

func toReport(st status.AppStatus) Report {
	return Report{
		AppName:   st.AppName(),
		Status:    st.Status(),
		Timestamp: st.Timestamp(),
		Expiry:    st.Expiry(),
		ExpiresAt: st.ExpiresAt(),
	}
}
