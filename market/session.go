package market

import "time"

// Session classifies an instant within the trading day.
type Session int

const (
	SessionClosed Session = iota
	SessionPreMarket
	SessionRegular
	SessionAfterHours
)

func (s Session) String() string {
	switch s {
	case SessionPreMarket:
		return "PreMarket"
	case SessionRegular:
		return "Regular"
	case SessionAfterHours:
		return "AfterHours"
	}
	return "Closed"
}

// SessionMask selects which sessions a strategy is allowed to signal in.
type SessionMask uint8

const (
	TradePreMarket SessionMask = 1 << iota
	TradeRegular
	TradeAfterHours

	TradeAll = TradePreMarket | TradeRegular | TradeAfterHours
)

// Contains reports whether s is enabled in the mask. SessionClosed is never
// contained in any mask.
func (m SessionMask) Contains(s Session) bool {
	switch s {
	case SessionPreMarket:
		return m&TradePreMarket != 0
	case SessionRegular:
		return m&TradeRegular != 0
	case SessionAfterHours:
		return m&TradeAfterHours != 0
	}
	return false
}

// Hours describes one market's trading day in minutes since local midnight.
// The zero value is not useful; use USEquityHours or build your own.
type Hours struct {
	PreOpen    int // pre-market begins
	Open       int // regular session begins
	Close      int // regular session ends, after-hours begins
	AfterClose int // after-hours ends
}

// USEquityHours is the NYSE/Nasdaq schedule: pre-market 04:00, open 09:30,
// close 16:00, extended until 20:00, local to the exchange time zone.
var USEquityHours = Hours{
	PreOpen:    4 * 60,
	Open:       9*60 + 30,
	Close:      16 * 60,
	AfterClose: 20 * 60,
}

// Classify maps a UTC instant to its session in the given market time zone.
// Weekends are always Closed. Holidays are not modeled: a holiday simply has
// no bars, which a replay skips naturally.
func (h Hours) Classify(utc time.Time, loc *time.Location) Session {
	local := utc.In(loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return SessionClosed
	}

	m := local.Hour()*60 + local.Minute()
	switch {
	case m >= h.PreOpen && m < h.Open:
		return SessionPreMarket
	case m >= h.Open && m < h.Close:
		return SessionRegular
	case m >= h.Close && m < h.AfterClose:
		return SessionAfterHours
	}
	return SessionClosed
}

// TimeOfDay is a civil wall-clock time, used for the end-of-day flatten
// cutoff in the market's local time zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Minutes returns minutes since local midnight.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

// Reached reports whether the instant's local wall clock is at or past t.
func (t TimeOfDay) Reached(utc time.Time, loc *time.Location) bool {
	local := utc.In(loc)
	return local.Hour()*60+local.Minute() >= t.Minutes()
}

// IsZero reports whether no time of day has been set.
func (t TimeOfDay) IsZero() bool { return t.Hour == 0 && t.Minute == 0 }
