package gtfstime

import "time"

// DefaultServiceCutoff is the local time-of-day before which a wall-clock
// instant is associated with the previous calendar day's service day.
const DefaultServiceCutoff = 3 * 60 * 60 // 03:00:00 in seconds

// ServiceDay is the day-of-week a query is associated with, together with
// the calendar date that service day starts on. The query instant's
// seconds relative to that start are returned separately by Normalise.
type ServiceDay struct {
	Weekday Weekday
	// Origin is the calendar date (midnight, in the instant's location)
	// this service day's "seconds since midnight" counts from.
	Origin time.Time
}

// Normalise maps a wall-clock instant to its service day and the
// seconds-from-service-day-start it represents, using cutoffSeconds as the
// boundary before which the instant belongs to the previous service day.
// A cutoffSeconds of 0 disables the previous-day association.
func Normalise(instant time.Time, cutoffSeconds int) (ServiceDay, Seconds) {
	midnight := time.Date(instant.Year(), instant.Month(), instant.Day(), 0, 0, 0, 0, instant.Location())
	secondsSinceMidnight := int(instant.Sub(midnight).Seconds())

	if secondsSinceMidnight < cutoffSeconds {
		prevMidnight := midnight.AddDate(0, 0, -1)
		return ServiceDay{
			Weekday: weekdayOf(prevMidnight),
			Origin:  prevMidnight,
		}, Seconds(secondsSinceMidnight + 24*60*60)
	}
	return ServiceDay{
		Weekday: weekdayOf(midnight),
		Origin:  midnight,
	}, Seconds(secondsSinceMidnight)
}

func weekdayOf(t time.Time) Weekday {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}
