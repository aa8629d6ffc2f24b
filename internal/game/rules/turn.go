package rules

// Game limits.
const (
	StartingHeroHealth = 25
	MaxHeroHealth      = 25
	MaxMana            = 10
	MaxBattlefield     = 6
	MaxHandSize        = 10

	FirstPlayerHand  = 3
	SecondPlayerHand = 4
)

// Target ids understood by targeted cards and attacks besides creature ids.
const (
	TargetEnemyHero    = "ENEMY_HERO"
	TargetFriendlyHero = "FRIENDLY_HERO"
)

// AIPlayerID is the sentinel player id of the computer opponent.
const AIPlayerID = "AI"

// Status is the lifecycle state of a game.
type Status string

const (
	StatusSetup      Status = "SETUP"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
)

// Active reports whether the game can still change.
func (s Status) Active() bool {
	return s == StatusSetup || s == StatusInProgress
}

// Phase is the step within a turn. Only PhaseMain accepts player actions; the
// others are traversed during start-of-turn processing.
type Phase string

const (
	PhaseStart Phase = "START"
	PhaseDraw  Phase = "DRAW"
	PhaseMain  Phase = "MAIN"
	PhaseEnd   Phase = "END"
)

// Actionable reports whether players may act during the phase.
func (p Phase) Actionable() bool {
	return p == PhaseMain
}
