package intent

// Query actions. The detector maps question text onto one of these and
// the query answerer dispatches on them; unknown text falls through to
// ActionGeneral.
const (
	ActionXP            = "xp"
	ActionStats         = "stats"
	ActionNextClass     = "next_class"
	ActionTodayTasks    = "today_tasks"
	ActionWeeklyClasses = "weekly_classes"
	ActionTips          = "tips"
	ActionGeneral       = "general"
)
