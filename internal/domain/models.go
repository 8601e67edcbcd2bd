package domain

import "time"

// Identity is the authenticated caller as resolved by the transport layer.
// Credential registration and login live outside this service; handlers only
// need who is acting and whether they hold admin rights.
type Identity struct {
	ID          string
	DisplayName string
	Admin       bool
}

// ClientMeta carries request hints recorded alongside attempts for auditing.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// LevelStatus tracks where a participant stands on a single level.
type LevelStatus string

const (
	LevelNotStarted LevelStatus = "not_started"
	LevelInProgress LevelStatus = "in_progress"
	LevelCompleted  LevelStatus = "completed"
)

// Participant is the compact per-user record: level-graph position plus the
// session timer accumulator.
type Participant struct {
	ID              string
	DisplayName     string
	Admin           bool
	CurrentLevel    string
	CompletedLevels []string
	StartTime       *time.Time
	EndTime         *time.Time
	TotalTimeMs     int64
}

// TimerSnapshot is the read view of a participant's session timer. While the
// timer runs, TotalTimeMs includes the elapsed portion of the open interval.
type TimerSnapshot struct {
	IsRunning   bool       `json:"isRunning"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	TotalTimeMs int64      `json:"totalTime"`
}

// LevelProgress is the per (participant, level) record. It is created lazily
// on the first submission for the level and never deleted.
type LevelProgress struct {
	Level          string
	Status         LevelStatus
	Attempts       int
	StartTime      time.Time
	LastAttempt    time.Time
	CompletionTime *time.Time
	TimeTakenMs    int64
}

// Submission is one immutable, append-only answer attempt. It feeds auditing
// and analytics only; progression state is never rebuilt from it.
type Submission struct {
	ID            string     `json:"id"`
	ParticipantID string     `json:"participantId"`
	DisplayName   string     `json:"displayName"`
	Level         string     `json:"level"`
	Answer        string     `json:"answer"`
	Correct       bool       `json:"isCorrect"`
	AttemptNumber int        `json:"attemptNumber"`
	TimeTakenMs   int64      `json:"timeTaken"`
	Meta          ClientMeta `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// PhaseAttempt is one entry in the phase engine's forensic trail.
type PhaseAttempt struct {
	Phase     int
	Input     string // truncated before storage, never the full payload
	Success   bool
	Timestamp time.Time
	IP        string
	UserAgent string
}

// RateWindow holds the sliding-window counter and any active lockout.
type RateWindow struct {
	AttemptCount int
	WindowStart  time.Time
	LockoutUntil *time.Time
}

// PhaseProgress is the per-participant state of the multi-phase exercise,
// created lazily on the first phase interaction.
type PhaseProgress struct {
	CompletedPhases []int
	CurrentPhase    int
	Attempts        []PhaseAttempt
	Fragments       []string
	Rate            RateWindow
	IsLocked        bool
	// LockoutBaseline is the index into Attempts from which cumulative
	// failures count toward the next lockout. It moves forward when an
	// expired lockout clears, so a served lockout starts a clean slate.
	LockoutBaseline int
	StartTime       time.Time
	CompletionTime  *time.Time
	TimeTakenMs     int64
}

// PhaseDefinition is server-side only puzzle configuration. It is loaded once
// and must never be serialized to a client.
type PhaseDefinition struct {
	Phase        int
	CanonicalKey string
	Aliases      []string
	Fragment     string
	Hint         string
}

// PhaseSet is an immutable lookup of phase definitions keyed by phase index.
type PhaseSet struct {
	byPhase map[int]PhaseDefinition
	count   int
}

// NewPhaseSet builds the lookup; phases are expected to be numbered 1..N.
func NewPhaseSet(defs []PhaseDefinition) PhaseSet {
	byPhase := make(map[int]PhaseDefinition, len(defs))
	for _, d := range defs {
		byPhase[d.Phase] = d
	}
	return PhaseSet{byPhase: byPhase, count: len(byPhase)}
}

// Get returns the definition for a phase index.
func (s PhaseSet) Get(phase int) (PhaseDefinition, bool) {
	d, ok := s.byPhase[phase]
	return d, ok
}

// Count reports the number of phases.
func (s PhaseSet) Count() int { return s.count }

// Challenge is the server-side reference answer for one level, loaded from
// the challenge store and cached. Only the oracle compares against Answer;
// it is never exposed through read interfaces.
type Challenge struct {
	Level       string `json:"level"`
	Answer      string `json:"answer"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	Points      int    `json:"points"`
	Active      bool   `json:"isActive"`
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank              int      `json:"rank"`
	ParticipantID     string   `json:"participantId"`
	DisplayName       string   `json:"displayName"`
	CompletedLevels   []string `json:"completedLevels"`
	CompletedCount    int      `json:"completedCount"`
	CompletionPercent float64  `json:"completionPercentage"`
	TotalTimeMs       int64    `json:"totalTime"`
	Complete          bool     `json:"isComplete"`
}

// Leaderboard is the ordered ranking snapshot pushed to subscribers.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	Total     int                `json:"totalParticipants"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// LevelStats aggregates the submission log for one level.
type LevelStats struct {
	Level              string  `json:"level"`
	TotalAttempts      int     `json:"totalAttempts"`
	SuccessfulAttempts int     `json:"successfulAttempts"`
	UniqueParticipants int     `json:"uniqueParticipants"`
	SuccessRate        float64 `json:"successRate"`
}
