package lifecycle

import (
	"fmt"
	"time"
)

// GracePeriod is how long collected contacts stay downloadable after a session expires.
const GracePeriod = 5 * time.Hour

// Phase is the derived lifecycle state of a session.
// Phases only move forward in time: Active -> Expired -> PermanentlyExpired.
type Phase int

const (
	// Active sessions accept new contacts.
	Active Phase = iota
	// Expired sessions are closed for submissions but still downloadable.
	Expired
	// PermanentlyExpired sessions are past the grace period. Terminal.
	PermanentlyExpired
)

func (p Phase) String() string {
	switch p {
	case Active:
		return "active"
	case Expired:
		return "expired"
	case PermanentlyExpired:
		return "permanently_expired"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so phases render as strings in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	switch p {
	case Active, Expired, PermanentlyExpired:
		return []byte(p.String()), nil
	default:
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*p = Active
	case "expired":
		*p = Expired
	case "permanently_expired":
		*p = PermanentlyExpired
	default:
		return fmt.Errorf("invalid phase %q", string(text))
	}
	return nil
}

// GraceEnds returns the instant after which a session is permanently expired.
func GraceEnds(expiresAt time.Time) time.Time {
	return expiresAt.Add(GracePeriod)
}

// Classify returns the phase of a session expiring at expiresAt, observed at now.
//
// The expiry instant itself is still Active and the end of the grace period
// itself is still Expired; each transition happens strictly after its threshold.
func Classify(now, expiresAt time.Time) Phase {
	if !now.After(expiresAt) {
		return Active
	}
	if !now.After(GraceEnds(expiresAt)) {
		return Expired
	}
	return PermanentlyExpired
}

// FormatRemaining renders the time left before expiry using the two largest
// units, e.g. "2d 3h 4m", "3h 4m 5s" or "4m 5s". Components are truncated and
// never zero padded. Any phase other than Active renders as "Expired".
func FormatRemaining(now, expiresAt time.Time) string {
	if Classify(now, expiresAt) != Active {
		return "Expired"
	}

	secs := int64(expiresAt.Sub(now) / time.Second)

	days := secs / 86400
	hours := secs % 86400 / 3600
	minutes := secs % 3600 / 60
	seconds := secs % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	default:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
}

// FormatGraceRemaining renders the time left in the download window as a zero
// padded "HH:MM:SS" string. Once the window has closed it returns "00:00:00".
// Hours are total hours, so an Active session can render more than 05.
func FormatGraceRemaining(now, expiresAt time.Time) string {
	left := GraceEnds(expiresAt).Sub(now)
	if left <= 0 {
		return "00:00:00"
	}

	secs := int64(left / time.Second)

	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
