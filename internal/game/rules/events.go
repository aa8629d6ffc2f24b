package rules

import (
	"sync"
)

// EventType indicates the category of a game event.
type EventType string

const (
	EventDamage        EventType = "DAMAGE"
	EventHeal          EventType = "HEAL"
	EventDeath         EventType = "DEATH"
	EventCardPlayed    EventType = "CARD_PLAYED"
	EventCardDrawn     EventType = "CARD_DRAWN"
	EventSpellResolved EventType = "SPELL_RESOLVED"
	EventAttack        EventType = "ATTACK"
	EventFatigue       EventType = "FATIGUE"
	EventBuff          EventType = "BUFF"
	EventFreeze        EventType = "FREEZE"
	EventGameOver      EventType = "GAME_OVER"
	EventSummon        EventType = "SUMMON"
	EventTurnStart     EventType = "TURN_START"
	EventManaGain      EventType = "MANA_GAIN"
)

// Event is one observable occurrence produced by an action. Events are output
// only; the game state stays authoritative.
type Event struct {
	Type     EventType `json:"type"`
	SourceID string    `json:"sourceId,omitempty"`
	TargetID string    `json:"targetId,omitempty"`
	Value    int       `json:"value"`
	Message  string    `json:"message"`
}

// Damage records damage dealt by source to target.
func Damage(sourceID, targetID string, amount int, message string) Event {
	return Event{Type: EventDamage, SourceID: sourceID, TargetID: targetID, Value: amount, Message: message}
}

// Heal records healing applied to target.
func Heal(sourceID, targetID string, amount int, message string) Event {
	return Event{Type: EventHeal, SourceID: sourceID, TargetID: targetID, Value: amount, Message: message}
}

// Death records a creature leaving the battlefield.
func Death(creatureID, message string) Event {
	return Event{Type: EventDeath, SourceID: creatureID, Message: message}
}

// CardPlayed records a card leaving the hand.
func CardPlayed(cardID, message string) Event {
	return Event{Type: EventCardPlayed, SourceID: cardID, Message: message}
}

// CardDrawn records a draw, including a burned draw.
func CardDrawn(playerID, message string) Event {
	return Event{Type: EventCardDrawn, SourceID: playerID, Message: message}
}

// SpellResolved records the resolution of a spell with no other visible output.
func SpellResolved(cardID, message string) Event {
	return Event{Type: EventSpellResolved, SourceID: cardID, Message: message}
}

// Attack records an attack declaration.
func Attack(attackerID, targetID, message string) Event {
	return Event{Type: EventAttack, SourceID: attackerID, TargetID: targetID, Message: message}
}

// Fatigue records fatigue damage taken by a player.
func Fatigue(playerID string, damage int, message string) Event {
	return Event{Type: EventFatigue, SourceID: playerID, Value: damage, Message: message}
}

// Buff records a stat or keyword change on a creature.
func Buff(targetID string, attackDelta int, message string) Event {
	return Event{Type: EventBuff, TargetID: targetID, Value: attackDelta, Message: message}
}

// Freeze records a creature becoming frozen.
func Freeze(targetID, message string) Event {
	return Event{Type: EventFreeze, TargetID: targetID, Message: message}
}

// GameOver records the end of the game.
func GameOver(winnerID, message string) Event {
	return Event{Type: EventGameOver, SourceID: winnerID, Message: message}
}

// Summon records a token entering the battlefield.
func Summon(creatureID, message string) Event {
	return Event{Type: EventSummon, SourceID: creatureID, Message: message}
}

// TurnStart records the beginning of a player's turn.
func TurnStart(playerID string, turnNumber int, message string) Event {
	return Event{Type: EventTurnStart, SourceID: playerID, Value: turnNumber, Message: message}
}

// ManaGain records a mana refill.
func ManaGain(playerID string, maxMana int, message string) Event {
	return Event{Type: EventManaGain, SourceID: playerID, Value: maxMana, Message: message}
}

// Log accumulates the events of a single action in order.
type Log struct {
	events []Event
}

// Add appends events.
func (l *Log) Add(events ...Event) {
	l.events = append(l.events, events...)
}

// Events returns the recorded events.
func (l *Log) Events() []Event {
	return l.events
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	return len(l.events)
}

// Listener receives the events of one game as they are committed.
type Listener func(gameID string, event Event)

// EventBus fans committed events out to observers synchronously, in commit
// order. Listeners must not call back into the engine.
type EventBus struct {
	mu     sync.RWMutex
	all    []Listener
	byType map[EventType][]Listener
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{byType: make(map[EventType][]Listener)}
}

// Subscribe registers l for the given event types, or for every event when
// no type is given.
func (bus *EventBus) Subscribe(l Listener, types ...EventType) {
	if l == nil {
		return
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(types) == 0 {
		bus.all = append(bus.all, l)
		return
	}
	for _, t := range types {
		bus.byType[t] = append(bus.byType[t], l)
	}
}

// Publish delivers events to their listeners.
func (bus *EventBus) Publish(gameID string, events ...Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	for _, e := range events {
		for _, l := range bus.all {
			l(gameID, e)
		}
		for _, l := range bus.byType[e.Type] {
			l(gameID, e)
		}
	}
}
