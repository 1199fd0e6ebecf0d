package state

// LevelXP is the XP required to advance one level.
const LevelXP = 100

// TargetDays is the pacing horizon for task XP: finishing every task
// daily for this many days earns one level.
const TargetDays = 7

const (
	// Focus sessions shorter than this are treated as accidental
	// starts and discarded.
	minFocusSeconds = 60

	// One XP per this many seconds of logged focus time.
	focusXPInterval = 300
)

// XPPerTask returns the XP value of completing one task, scaled so a
// full week of completions yields one level regardless of list size.
func XPPerTask(taskCount int) float64 {
	if taskCount <= 0 {
		return 0
	}
	return float64(LevelXP) / float64(TargetDays*taskCount)
}

// applyLevelUps converts accumulated XP into levels. XP carries over
// past each level boundary.
func applyLevelUps(doc *Document) {
	for doc.XP >= LevelXP {
		doc.XP -= LevelXP
		doc.Level++
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
