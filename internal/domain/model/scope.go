package model

// ScopeLevel selects which dimension a leaderboard query filters on.
type ScopeLevel string

// Supported scope levels.
const (
	ScopeGlobal  ScopeLevel = "global"
	ScopeSubject ScopeLevel = "subject"
	ScopeGrade   ScopeLevel = "grade"
)

// Scope narrows a leaderboard query to a subject or grade. Value is
// required for subject and grade scopes and ignored for global.
type Scope struct {
	Level ScopeLevel
	Value string
}

// Matches reports whether a score record falls inside the scope.
func (s Scope) Matches(r ScoreRecord) bool {
	switch s.Level {
	case ScopeSubject:
		return r.Subject == s.Value
	case ScopeGrade:
		return r.Grade == s.Value
	default:
		return true
	}
}

// Window selects the time range a leaderboard query aggregates over.
type Window string

// Supported aggregation windows.
const (
	WindowToday   Window = "today"
	WindowWeek    Window = "week"
	WindowMonth   Window = "month"
	WindowAllTime Window = "all_time"
)

// Valid reports whether w is one of the supported windows.
func (w Window) Valid() bool {
	switch w {
	case WindowToday, WindowWeek, WindowMonth, WindowAllTime:
		return true
	}
	return false
}
