// Package domain defines the business logic for the fitsync service.
package domain

import "time"

// User is the profile row backing insights and streak tracking.
type User struct {
	ID            string
	Name          string
	FitnessGoal   string
	CurrentStreak int
	LongestStreak int
}

// WorkoutSession is a logged training session with its recorded sets.
type WorkoutSession struct {
	ID        string
	UserID    string
	StartTime time.Time
	Sets      []WorkoutSet
}

// WorkoutSet is a single exercise entry within a session.
type WorkoutSet struct {
	Weight       float64
	Reps         int
	ExerciseName string
}

// Exercise is an entry in the static exercise catalog.
type Exercise struct {
	ID   string
	Name string
}

// SleepEntry is a nightly recovery record.
type SleepEntry struct {
	UserID        string
	SleepDate     time.Time
	HoursSlept    float64
	SleepQuality  int
	SorenessLevel int
	EnergyLevel   int
}

// ParsedSet is one structured set extracted from free-text workout input.
// ExerciseID stays null when no catalog entry matches the parsed name.
type ParsedSet struct {
	ExerciseName string  `json:"exerciseName"`
	Weight       float64 `json:"weight"`
	Sets         int     `json:"sets"`
	Reps         int     `json:"reps"`
	RPE          *int    `json:"rpe,omitempty"`
	ExerciseID   *string `json:"exerciseId"`
}

// SyncOperation identifies the kind of mutation a client change carries.
type SyncOperation string

const (
	SyncOpInsert SyncOperation = "insert"
	SyncOpUpdate SyncOperation = "update"
	SyncOpDelete SyncOperation = "delete"
)

// SyncChange is one client-originated mutation within a sync batch.
type SyncChange struct {
	Table     string         `json:"table"`
	Operation SyncOperation  `json:"operation"`
	Data      map[string]any `json:"data"`
	LocalID   string         `json:"localId,omitempty"`
}

// SyncItemResult reports a change that applied cleanly. ServerData carries the
// affected row when the operation returned one.
type SyncItemResult struct {
	LocalID    string         `json:"localId,omitempty"`
	Table      string         `json:"table"`
	ServerData map[string]any `json:"serverData,omitempty"`
	Success    bool           `json:"success"`
}

// SyncItemError reports a change that failed; the rest of the batch still runs.
type SyncItemError struct {
	LocalID string `json:"localId,omitempty"`
	Table   string `json:"table"`
	Error   string `json:"error"`
}
