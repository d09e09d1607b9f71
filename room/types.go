package room

import (
	"github.com/google/uuid"

	"pokerhall/card"
)

// MaxPlayers is the seat ceiling (seated + waiting, connected,
// chip-bearing). Exposed as a package constant; the state machine itself
// assumes nothing beyond "at least 2 to play".
const MaxPlayers = 5

// Blind amounts, fixed for now.
const (
	SmallBlindAmount = 1
	BigBlindAmount   = 2
)

// Stage is the tagged variant governing what is legal and what is visible.
type Stage struct {
	Kind Stage_Kind
	// DealRemaining is only meaningful when Kind == StageShowdown: true
	// means at least two players still contest the pot and any missing
	// community cards must be revealed; false means a lone non-folded
	// survivor swept the pots without a reveal.
	DealRemaining bool
}

type Stage_Kind byte

const (
	StageNotEnoughPlayers Stage_Kind = iota
	StagePreFlop
	StageFlop
	StageTurn
	StageRiver
	StageShowdown
)

func (s Stage) String() string {
	switch s.Kind {
	case StageNotEnoughPlayers:
		return "Waiting for players"
	case StagePreFlop:
		return "Pre-flop"
	case StageFlop:
		return "Flop"
	case StageTurn:
		return "Turn"
	case StageRiver:
		return "River"
	case StageShowdown:
		return "Showdown"
	default:
		return "Unknown"
	}
}

func (s Stage) IsShowdown() bool { return s.Kind == StageShowdown }

var (
	stageNotEnoughPlayers = Stage{Kind: StageNotEnoughPlayers}
	stagePreFlop          = Stage{Kind: StagePreFlop}
	stageFlop             = Stage{Kind: StageFlop}
	stageTurn             = Stage{Kind: StageTurn}
	stageRiver            = Stage{Kind: StageRiver}
)

func stageShowdown(dealRemaining bool) Stage {
	return Stage{Kind: StageShowdown, DealRemaining: dealRemaining}
}

// Position orders a seat's blind-related role; the ordering itself
// (Normal < BigBlind < SmallBlind < DealerAndSmallBlind < Dealer) is used
// to locate the outgoing dealer when a new hand begins.
type Position byte

const (
	PositionNormal Position = iota
	PositionBigBlind
	PositionSmallBlind
	PositionDealerAndSmallBlind
	PositionDealer
)

func (p Position) IsDealer() bool {
	return p == PositionDealer || p == PositionDealerAndSmallBlind
}

func (p Position) String() string {
	switch p {
	case PositionNormal:
		return "Normal"
	case PositionBigBlind:
		return "BigBlind"
	case PositionSmallBlind:
		return "SmallBlind"
	case PositionDealerAndSmallBlind:
		return "DealerAndSmallBlind"
	case PositionDealer:
		return "Dealer"
	default:
		return "Unknown"
	}
}

// ActionKind tags a player's move; Raise carries an amount.
type ActionKind byte

const (
	ActionFold ActionKind = iota
	ActionCheck
	ActionCall
	ActionRaise
	ActionAllIn
)

type Action struct {
	Kind   ActionKind
	Amount int64 // only meaningful for ActionRaise
}

func (a ActionKind) String() string {
	switch a {
	case ActionFold:
		return "Fold"
	case ActionCheck:
		return "Check"
	case ActionCall:
		return "Call"
	case ActionRaise:
		return "Raise"
	case ActionAllIn:
		return "AllIn"
	default:
		return "Unknown"
	}
}

// ProceedType is the internal verdict of whether the room can advance.
type ProceedType byte

const (
	ProceedNoAction ProceedType = iota
	ProceedNormal
	ProceedShowdownWithoutDealing
	ProceedShowdownWithDealing
)

func (p ProceedType) CanProceed() bool {
	return p == ProceedNormal || p == ProceedShowdownWithDealing || p == ProceedShowdownWithoutDealing
}

// RequiredAction is what the game service must do after a state-machine
// mutation: fan out a plain snapshot, deal private hole cards, or run a
// showdown.
type RequiredAction byte

const (
	RequiredNoAction RequiredAction = iota
	RequiredFindWinners
	RequiredPlayerReceiveCards
)

func (r RequiredAction) String() string {
	switch r {
	case RequiredNoAction:
		return "NoAction"
	case RequiredFindWinners:
		return "FindWinners"
	case RequiredPlayerReceiveCards:
		return "PlayerReceiveCards"
	default:
		return "Unknown"
	}
}

// Hand is a player's two hole cards.
type Hand [2]card.Card

// Pot is a chip bucket with its eligibility set.
type Pot struct {
	Amount  int64
	Players map[uuid.UUID]struct{}
}

func newPot() Pot {
	return Pot{Players: make(map[uuid.UUID]struct{})}
}

func (p Pot) hasSamePlayers(o Pot) bool {
	if len(p.Players) != len(o.Players) {
		return false
	}
	for id := range p.Players {
		if _, ok := o.Players[id]; !ok {
			return false
		}
	}
	return true
}

// Winnings is one player's payout from one pot split.
type Winnings struct {
	Player uuid.UUID
	Amount int64
}
