package state

import (
	"time"

	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
)

// GameView is the game as seen by one participant. The opponent's hand and
// both decks are reduced to counts.
type GameView struct {
	GameID          string       `json:"gameId"`
	ViewerID        string       `json:"viewerId"`
	Status          rules.Status `json:"status"`
	Phase           rules.Phase  `json:"phase"`
	TurnNumber      int          `json:"turnNumber"`
	CurrentPlayerID string       `json:"currentPlayerId"`
	WinnerID        string       `json:"winnerId,omitempty"`
	Self            PlayerView   `json:"self"`
	Opponent        PlayerView   `json:"opponent"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// PlayerView is one seat inside a GameView.
type PlayerView struct {
	PlayerID       string     `json:"playerId"`
	HeroHealth     int        `json:"heroHealth"`
	MaxMana        int        `json:"maxMana"`
	CurrentMana    int        `json:"currentMana"`
	FatigueCounter int        `json:"fatigueCounter"`
	DeckCount      int        `json:"deckCount"`
	HandCount      int        `json:"handCount"`
	Hand           []string   `json:"hand,omitempty"`
	Discard        []string   `json:"discard"`
	Battlefield    []Creature `json:"battlefield"`
}

// ViewFor builds the view of viewerID, which must be one of the seats.
func (g *Game) ViewFor(viewerID string) (GameView, bool) {
	self, ok := g.Player(viewerID)
	if !ok {
		return GameView{}, false
	}
	opp, _ := g.Opponent(viewerID)

	return GameView{
		GameID:          g.ID,
		ViewerID:        viewerID,
		Status:          g.Status,
		Phase:           g.Phase,
		TurnNumber:      g.TurnNumber,
		CurrentPlayerID: g.CurrentPlayerID,
		WinnerID:        g.WinnerID,
		Self:            buildPlayerView(self, true),
		Opponent:        buildPlayerView(opp, false),
		UpdatedAt:       g.UpdatedAt,
	}, true
}

func buildPlayerView(p *Player, revealHand bool) PlayerView {
	v := PlayerView{
		PlayerID:       p.ID,
		HeroHealth:     p.HeroHealth,
		MaxMana:        p.MaxMana,
		CurrentMana:    p.CurrentMana,
		FatigueCounter: p.FatigueCounter,
		DeckCount:      p.DeckSize(),
		HandCount:      p.HandSize(),
		Discard:        cardIDs(p.Cards(ZoneDiscard)),
		Battlefield:    make([]Creature, 0, len(p.Battlefield)),
	}
	if revealHand {
		v.Hand = cardIDs(p.Cards(ZoneHand))
	}
	for _, c := range p.clone().Battlefield {
		v.Battlefield = append(v.Battlefield, *c)
	}
	return v
}

func cardIDs(zcs []ZoneCard) []string {
	out := make([]string, 0, len(zcs))
	for _, zc := range zcs {
		out = append(out, zc.CardID)
	}
	return out
}
