package effects

import "github.com/spellfaire/spellfaire-engine/internal/card"

// Op is the kind of change an effect makes
type Op int

const (
	OpDamage Op = iota + 1
	OpHeal
	OpFreeze
	OpBuff
	OpGrantKeyword
	OpSummon
	OpDestroy
	OpDraw
	OpReturnFromDiscard
)

var opNames = map[Op]string{
	OpDamage:            "DAMAGE",
	OpHeal:              "HEAL",
	OpFreeze:            "FREEZE",
	OpBuff:              "BUFF",
	OpGrantKeyword:      "GRANT_KEYWORD",
	OpSummon:            "SUMMON",
	OpDestroy:           "DESTROY",
	OpDraw:              "DRAW",
	OpReturnFromDiscard: "RETURN_FROM_DISCARD",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// Selector picks what an effect applies to, relative to the controller of
// the card.
type Selector int

const (
	OnTarget Selector = iota + 1
	OnEnemyHero
	OnFriendlyHero
	OnSelf
	OnEnemyCreatures
	// OnAllCreatures walks the controller's board first, then the opponent's.
	OnAllCreatures
	OnOtherFriendlyCreatures
	OnRandomEnemyCreature
	OnRandomFriendlyCreature
)

// Condition gates an effect on the state at the moment it would apply.
type Condition int

const (
	Always Condition = iota
	// IfSurvived requires the chosen target to still be on the battlefield.
	IfSurvived
	// IfFriendlyGuard requires another friendly creature with Guard.
	IfFriendlyGuard
	// IfOtherFriendly requires another friendly creature.
	IfOtherFriendly
)

// Effect is one step of an ability. Only the fields relevant to Op are read.
type Effect struct {
	Op      Op
	On      Selector
	Amount  int
	Attack  int
	Health  int
	Keyword card.Keyword
	Token   string
	MaxCost int
	When    Condition
	// Announce emits a SPELL_RESOLVED event naming each destroyed creature.
	Announce bool
}

// TargetRule describes the target an ability accepts.
type TargetRule int

const (
	// TargetNone ignores any supplied target.
	TargetNone TargetRule = iota
	// TargetAny accepts either hero or any creature.
	TargetAny
	TargetAnyCreature
	TargetFriendlyCreature
	TargetEnemyCreature
	// TargetOtherFriendly accepts a friendly creature other than the source,
	// picking the first one when no target is given.
	TargetOtherFriendly
	// TargetCreatureOrNothing takes an optional creature. A hero id is
	// accepted and ignored.
	TargetCreatureOrNothing
)

// Ability is the static definition of what a card does.
type Ability struct {
	Target TargetRule
	// Optional abilities resolve without a target when none is given.
	Optional      bool
	RequireFrozen bool
	MaxTargetCost int
	Effects       []Effect
}

// NeedsTarget reports whether the ability cannot resolve without a target.
func (a Ability) NeedsTarget() bool {
	return a.Target != TargetNone && !a.Optional && a.Target != TargetOtherFriendly && a.Target != TargetCreatureOrNothing
}

func dmg(on Selector, n int) Effect { return Effect{Op: OpDamage, On: on, Amount: n} }
func heal(n int) Effect             { return Effect{Op: OpHeal, On: OnFriendlyHero, Amount: n} }
func draw(n int) Effect             { return Effect{Op: OpDraw, On: OnFriendlyHero, Amount: n} }
func freeze(on Selector) Effect     { return Effect{Op: OpFreeze, On: on} }
func buff(on Selector, attack, health int) Effect {
	return Effect{Op: OpBuff, On: on, Attack: attack, Health: health}
}

// Spells maps each spell name to its resolution.
var Spells = map[string]Ability{
	// FIRE
	"Ember Bolt":    {Target: TargetAny, Effects: []Effect{dmg(OnTarget, 2)}},
	"Searing Ping":  {Effects: []Effect{dmg(OnEnemyCreatures, 1)}},
	"Flame Javelin": {Target: TargetAnyCreature, Effects: []Effect{dmg(OnTarget, 4)}},
	"Combust":       {Target: TargetCreatureOrNothing, Effects: []Effect{dmg(OnTarget, 3), dmg(OnEnemyHero, 2)}},
	"Inferno Sweep": {Effects: []Effect{dmg(OnAllCreatures, 2)}},
	"Final Spark":   {Effects: []Effect{dmg(OnEnemyHero, 7)}},

	// FROST
	"Ice Shard": {Target: TargetAnyCreature, Effects: []Effect{
		dmg(OnTarget, 1),
		{Op: OpFreeze, On: OnTarget, When: IfSurvived},
	}},
	"Frost Shield":    {Target: TargetFriendlyCreature, Effects: []Effect{buff(OnTarget, 0, 3)}},
	"Cold Snap":       {Effects: []Effect{freeze(OnEnemyCreatures)}},
	"Shatter":         {Target: TargetAnyCreature, RequireFrozen: true, Effects: []Effect{dmg(OnTarget, 5)}},
	"Glacial Binding": {Target: TargetEnemyCreature, Effects: []Effect{freeze(OnTarget), dmg(OnTarget, 3)}},
	"Deep Winter":     {Effects: []Effect{draw(2), freeze(OnRandomEnemyCreature)}},

	// NATURE
	"Mend":       {Effects: []Effect{heal(3)}},
	"Sproutling": {Effects: []Effect{{Op: OpSummon, On: OnFriendlyHero, Token: "Sproutling"}}},
	"Vine Whip": {Target: TargetEnemyCreature, Effects: []Effect{
		dmg(OnTarget, 2),
		{Op: OpFreeze, On: OnTarget, When: IfSurvived},
	}},
	"Growth":       {Target: TargetFriendlyCreature, Effects: []Effect{buff(OnTarget, 2, 2)}},
	"Bramble Wall": {Effects: []Effect{{Op: OpSummon, On: OnFriendlyHero, Token: "Bramble Wall"}}},
	"Renewal":      {Effects: []Effect{heal(6), draw(1)}},

	// SHADOW
	"Dark Touch":   {Target: TargetAny, Effects: []Effect{dmg(OnTarget, 1), heal(1)}},
	"Wither":       {Target: TargetEnemyCreature, Effects: []Effect{buff(OnTarget, -2, 0)}},
	"Grim Bargain": {Target: TargetFriendlyCreature, Effects: []Effect{{Op: OpDestroy, On: OnTarget}, draw(2)}},
	"Siphon Life":  {Effects: []Effect{dmg(OnEnemyHero, 3), heal(3)}},
	"Haunting Fog": {Effects: []Effect{buff(OnEnemyCreatures, -1, -1)}},
	"Void Snare": {Target: TargetEnemyCreature, MaxTargetCost: 5, Effects: []Effect{
		{Op: OpDestroy, On: OnTarget, Announce: true},
	}},
}

// OnPlay maps creature names to their battlecry.
var OnPlay = map[string]Ability{
	"Squire Captain": {Target: TargetOtherFriendly, Effects: []Effect{buff(OnTarget, 0, 1)}},
	"Banner Knight":  {Effects: []Effect{{Op: OpBuff, On: OnSelf, Attack: 1, When: IfFriendlyGuard}}},
	"Chapel Healer":  {Effects: []Effect{heal(3)}},
	"Pack Runner":    {Effects: []Effect{{Op: OpBuff, On: OnSelf, Attack: 1, When: IfOtherFriendly}}},
	"Alpha Howler":   {Effects: []Effect{buff(OnOtherFriendlyCreatures, 1, 0)}},
	"Frenzied Mauler": {Effects: []Effect{
		dmg(OnFriendlyHero, 1),
		{Op: OpGrantKeyword, On: OnSelf, Keyword: card.KeywordCharge},
	}},
	"Bone Acolyte":       {Target: TargetAny, Optional: true, Effects: []Effect{dmg(OnTarget, 1)}},
	"Rotting Giant":      {Effects: []Effect{dmg(OnFriendlyHero, 2)}},
	"Arc Sparkbot":       {Target: TargetEnemyCreature, Optional: true, Effects: []Effect{dmg(OnTarget, 1)}},
	"Plating Engineer":   {Target: TargetOtherFriendly, Effects: []Effect{{Op: OpGrantKeyword, On: OnTarget, Keyword: card.KeywordWard}}},
	"Overclock Colossus": {Effects: []Effect{dmg(OnFriendlyHero, 2), buff(OnSelf, 1, 0)}},
}

// OnDeath maps creature names to what happens when they die.
var OnDeath = map[string]Ability{
	"Grave Rat":      {Effects: []Effect{draw(1)}},
	"Soul Collector": {Effects: []Effect{heal(3)}},
}

// StartOfTurn maps creature names to their start-of-turn trigger.
var StartOfTurn = map[string]Ability{
	"Royal Tactician": {Effects: []Effect{buff(OnRandomFriendlyCreature, 1, 1)}},
	"Lich Adept":      {Effects: []Effect{{Op: OpReturnFromDiscard, On: OnFriendlyHero, MaxCost: 3}}},
}
