package room

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"pokerhall/card"
)

// Room is the authoritative per-table state machine. It holds no
// synchronization of its own — exclusive access is the caller's
// responsibility (see registry.Registry.LockMut) — and it performs no I/O.
type Room struct {
	ID                     uuid.UUID
	Players                []*Player
	Deck                   *Deck
	CommunityCards         []card.Card
	Stage                  Stage
	Pots                   []Pot
	PlayerJoiningNextRound []*Player
	PlayerInTurn           *uuid.UUID
}

// NewRoom creates an empty room in the NotEnoughPlayers stage with a
// random id.
func NewRoom(rng *rand.Rand) *Room {
	return NewRoomWithID(uuid.New(), rng)
}

// NewRoomWithID creates an empty room with a caller-supplied id, e.g. for
// Game service's init_rooms reading configured ids from an external store.
func NewRoomWithID(id uuid.UUID, rng *rand.Rand) *Room {
	return &Room{
		ID:    id,
		Deck:  NewDeck(rng),
		Stage: stageNotEnoughPlayers,
	}
}

// MaxBet is the largest current-round bet among all seated players.
func (r *Room) MaxBet() int64 {
	var max int64
	for _, p := range r.Players {
		if p.Bet > max {
			max = p.Bet
		}
	}
	return max
}

func (r *Room) maxBetAmong(players []*Player) int64 {
	var max int64
	for _, p := range players {
		if p.Bet > max {
			max = p.Bet
		}
	}
	return max
}

func (r *Room) findPlayer(id uuid.UUID) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) indexOf(id uuid.UUID) int {
	for i, p := range r.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// readjustPositions assigns Dealer/SmallBlind/BigBlind/Normal (or, heads-up,
// DealerAndSmallBlind/BigBlind) starting from dealerPosition, clockwise.
func (r *Room) readjustPositions(dealerPosition int) error {
	total := len(r.Players)
	for i := 0; i < total; i++ {
		p := r.Players[(dealerPosition+i)%total]
		if total > 2 {
			switch i {
			case 0:
				p.Position = PositionDealer
			case 1:
				p.Position = PositionSmallBlind
			case 2:
				p.Position = PositionBigBlind
			default:
				p.Position = PositionNormal
			}
		} else {
			switch i {
			case 0:
				p.Position = PositionDealerAndSmallBlind
			case 1:
				p.Position = PositionBigBlind
			}
		}
	}
	return nil
}

// JoinPlayer seats a new player immediately if the room is between hands,
// otherwise queues them for the next hand. A queued player is a spectator
// of the current hand: they get no cards and no turn until seatPlayers
// runs at the next PreFlop setup.
func (r *Room) JoinPlayer(p *Player) (RequiredAction, error) {
	if !r.isJoinable() {
		return RequiredNoAction, ErrRoomIsFull
	}
	if r.Stage.Kind == StageNotEnoughPlayers {
		r.Players = append(r.Players, p)
		return r.Proceed()
	}
	r.PlayerJoiningNextRound = append(r.PlayerJoiningNextRound, p)
	return RequiredNoAction, nil
}

// LeavePlayer marks the player (seated or waiting) disconnected and folded,
// returning their remaining chips for the caller to reimburse. Calling it
// twice in a row is idempotent: the second call simply returns 0 chips for
// an already-disconnected player.
func (r *Room) LeavePlayer(playerID uuid.UUID) int64 {
	var chips int64
	found := false
	for _, p := range r.Players {
		if p.ID == playerID {
			if p.Connected {
				chips = p.Chips
			}
			found = true
			break
		}
	}
	if !found {
		for _, p := range r.PlayerJoiningNextRound {
			if p.ID == playerID {
				if p.Connected {
					chips = p.Chips
				}
				break
			}
		}
	}
	for _, p := range r.Players {
		if p.ID == playerID {
			p.Connected = false
			p.Folded = true
		}
	}
	for _, p := range r.PlayerJoiningNextRound {
		if p.ID == playerID {
			p.Connected = false
			p.Folded = true
		}
	}
	allDisconnected := true
	for _, p := range r.Players {
		if p.Connected {
			allDisconnected = false
			break
		}
	}
	if allDisconnected {
		r.resetTable()
		r.Stage = stageNotEnoughPlayers
	}
	return chips
}

func (r *Room) isJoinable() bool {
	return r.playerCount() < MaxPlayers
}

// playerCount counts connected, chip-bearing players across both the
// seated list and the waiting list.
func (r *Room) playerCount() int {
	count := 0
	for _, p := range r.Players {
		if p.Connected && p.Chips > 0 {
			count++
		}
	}
	for _, p := range r.PlayerJoiningNextRound {
		if p.Connected && p.Chips > 0 {
			count++
		}
	}
	return count
}

func (r *Room) startGame() error {
	r.resetTable()
	for _, p := range r.Players {
		p.Bet = 0
		p.Folded = false
		p.HasTakenTurn = false
		c1, err := r.Deck.Draw()
		if err != nil {
			return err
		}
		c2, err := r.Deck.Draw()
		if err != nil {
			return err
		}
		h := Hand{c1, c2}
		p.Hand = &h
	}

	dealerSeat := -1
	var dealerPos Position = PositionNormal
	for i := len(r.Players) - 1; i >= 0; i-- {
		if dealerSeat == -1 || r.Players[i].Position > dealerPos {
			dealerSeat = i
			dealerPos = r.Players[i].Position
		}
	}
	if dealerSeat == -1 {
		return ErrNoDealer
	}
	nextDealerSeat := dealerSeat
	if r.Players[dealerSeat].Position.IsDealer() {
		nextDealerSeat = (dealerSeat + 1) % len(r.Players)
	}
	if err := r.readjustPositions(nextDealerSeat); err != nil {
		return err
	}

	if err := r.applyBlinds(); err != nil {
		return err
	}

	first, err := r.playerToActFirst()
	if err != nil {
		return err
	}
	r.PlayerInTurn = &first
	return nil
}

func (r *Room) applyBlinds() error {
	for _, p := range r.Players {
		switch p.Position {
		case PositionBigBlind:
			if err := p.betAmount(BigBlindAmount); err != nil {
				return err
			}
		case PositionSmallBlind, PositionDealerAndSmallBlind:
			if err := p.betAmount(SmallBlindAmount); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Room) resetTable() {
	r.seatPlayers()
	r.Pots = nil
	r.CommunityCards = nil
	r.Deck = NewDeck(r.Deck.rng)
	r.PlayerInTurn = nil
}

// seatPlayers drops disconnected or broke players then seats anyone
// waiting, in arrival order. It runs at every hand boundary (once on
// leaving Showdown and again inside startGame's resetTable) and whenever
// resetTable runs after every seated player has disconnected.
func (r *Room) seatPlayers() {
	kept := r.Players[:0:0]
	for _, p := range r.Players {
		if p.Connected && p.Chips > 0 {
			kept = append(kept, p)
		}
	}
	r.Players = kept

	keptWaiting := r.PlayerJoiningNextRound[:0:0]
	for _, p := range r.PlayerJoiningNextRound {
		if p.Connected && p.Chips > 0 {
			keptWaiting = append(keptWaiting, p)
		}
	}
	r.Players = append(r.Players, keptWaiting...)
	r.PlayerJoiningNextRound = nil
}

func (r *Room) playerToActFirst() (uuid.UUID, error) {
	var idx = -1
	if r.Stage.Kind == StagePreFlop {
		for i, p := range r.Players {
			if p.Position == PositionBigBlind {
				idx = i
				break
			}
		}
		if idx == -1 {
			return uuid.UUID{}, errInvalidState("big blind not found")
		}
	} else {
		for i, p := range r.Players {
			if p.Position.IsDealer() {
				idx = i
				break
			}
		}
		if idx == -1 {
			return uuid.UUID{}, ErrNoDealer
		}
	}
	return r.nextPlayerAfter(idx)
}

// nextPlayerAfter finds the first eligible (non-folded, chip-bearing) seat
// clockwise from currPlayerIndex, wrapping around.
func (r *Room) nextPlayerAfter(currPlayerIndex int) (uuid.UUID, error) {
	n := len(r.Players)
	if n == 0 {
		return uuid.UUID{}, errInvalidState("no players to act")
	}
	next := (currPlayerIndex + 1) % n
	for i := 0; i < n; i++ {
		idx := (next + i) % n
		p := r.Players[idx]
		if !p.Folded && p.Chips > 0 {
			return p.ID, nil
		}
	}
	return uuid.UUID{}, errInvalidState("no players to act")
}

func dealStageOf(k Stage_Kind) Stage {
	switch k {
	case StageFlop:
		return stageFlop
	case StageTurn:
		return stageTurn
	case StageRiver:
		return stageRiver
	default:
		return Stage{Kind: k}
	}
}

// DealCommunityCard burns one card, then deals three (Flop) or one
// (Turn/River) community cards.
func (r *Room) DealCommunityCard(stage Stage) error {
	switch stage.Kind {
	case StageFlop:
		if _, err := r.Deck.Draw(); err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			c, err := r.Deck.Draw()
			if err != nil {
				return err
			}
			r.CommunityCards = append(r.CommunityCards, c)
		}
	case StageTurn, StageRiver:
		if _, err := r.Deck.Draw(); err != nil {
			return err
		}
		c, err := r.Deck.Draw()
		if err != nil {
			return err
		}
		r.CommunityCards = append(r.CommunityCards, c)
	default:
		return errInvalidState("invalid stage to deal community card")
	}
	return nil
}

// PlayersCards returns, for every non-folded player, their full 7-card bag
// (hole cards + community cards so far).
func (r *Room) PlayersCards() map[uuid.UUID][]card.Card {
	out := make(map[uuid.UUID][]card.Card)
	for _, p := range r.Players {
		if p.Folded {
			continue
		}
		cards := make([]card.Card, 0, 7)
		if p.Hand != nil {
			cards = append(cards, p.Hand[0], p.Hand[1])
		}
		cards = append(cards, r.CommunityCards...)
		out[p.ID] = cards
	}
	return out
}

// SplitPot credits amount/len(winners) chips to each winner of each pot,
// with the remainder going to whoever is clockwise-closest to the dealer.
// It returns the per-pot payout lists in the same order as winners.
func (r *Room) SplitPot(winners []struct {
	Amount  int64
	Winners map[uuid.UUID]struct{}
}) ([][]Winnings, error) {
	potSplits := make([][]Winnings, 0, len(winners))
	for _, w := range winners {
		n := int64(len(w.Winners))
		if n == 0 {
			potSplits = append(potSplits, nil)
			continue
		}
		earnings := w.Amount / n
		var payouts []Winnings
		for _, p := range r.Players {
			if _, ok := w.Winners[p.ID]; ok {
				payouts = append(payouts, Winnings{Player: p.ID, Amount: earnings})
				p.Chips += earnings
			}
		}
		remainder := w.Amount % n
		remainderWinner, err := r.ClosestToDealer(w.Winners)
		if err != nil {
			return nil, err
		}
		rp := r.findPlayer(remainderWinner)
		if rp == nil {
			return nil, errInvalidState("remainder winner not found")
		}
		rp.Chips += remainder
		for i := range payouts {
			if payouts[i].Player == remainderWinner {
				payouts[i].Amount += remainder
			}
		}
		potSplits = append(potSplits, payouts)
	}
	return potSplits, nil
}

// ClosestToDealer returns whichever of playerIDs sits clockwise-nearest
// the dealer seat, used for pot-remainder tie-breaks.
func (r *Room) ClosestToDealer(playerIDs map[uuid.UUID]struct{}) (uuid.UUID, error) {
	dealerIndex := -1
	for i, p := range r.Players {
		if p.Position.IsDealer() {
			dealerIndex = i
			break
		}
	}
	if dealerIndex == -1 {
		return uuid.UUID{}, ErrNoDealer
	}
	n := len(r.Players)
	nextToDealer := (dealerIndex + 1) % n
	for i := 0; i < n; i++ {
		idx := (nextToDealer + i) % n
		if _, ok := playerIDs[r.Players[idx].ID]; ok {
			return r.Players[idx].ID, nil
		}
	}
	return uuid.UUID{}, errInvalidState("no players found")
}

// CanProceedToNextStage computes whether betting for the current street is
// complete and, if so, what kind of advance it is.
func (r *Room) CanProceedToNextStage() ProceedType {
	switch r.Stage.Kind {
	case StageNotEnoughPlayers:
		if len(r.Players) >= 2 {
			return ProceedNormal
		}
		return ProceedNoAction
	case StageShowdown:
		return ProceedNormal
	default:
		return r.proceedType()
	}
}

func (r *Room) proceedType() ProceedType {
	var inPlay []*Player
	for _, p := range r.Players {
		if !p.Folded {
			inPlay = append(inPlay, p)
		}
	}
	switch len(inPlay) {
	case 0:
		// Every player folded: unreachable in a well-formed hand, since
		// the second-to-last fold always triggers ShowdownWithoutDealing.
		return ProceedShowdownWithoutDealing
	case 1:
		return ProceedShowdownWithoutDealing
	default:
		var withChips []*Player
		for _, p := range inPlay {
			if p.Chips > 0 {
				withChips = append(withChips, p)
			}
		}
		switch len(withChips) {
		case 0:
			return ProceedShowdownWithDealing
		case 1:
			if withChips[0].Bet == r.maxBetAmong(inPlay) {
				return ProceedShowdownWithDealing
			}
			return ProceedNoAction
		default:
			maxBet := r.maxBetAmong(withChips)
			for _, p := range withChips {
				if !p.HasTakenTurn || p.Bet != maxBet {
					return ProceedNoAction
				}
			}
			return ProceedNormal
		}
	}
}

// TakeAction resolves a player's move against the current max bet, then
// advances the state machine. It fails fast, leaving the room unchanged,
// unless it is the player's turn and the action is legal.
func (r *Room) TakeAction(playerID uuid.UUID, action Action) (RequiredAction, error) {
	if r.PlayerInTurn == nil || *r.PlayerInTurn != playerID {
		return RequiredNoAction, ErrNotPlayerTurn
	}
	var maxBet int64
	for _, p := range r.Players {
		if !p.Folded && p.Bet > maxBet {
			maxBet = p.Bet
		}
	}
	player := r.findPlayer(playerID)
	if player == nil {
		return RequiredNoAction, ErrNotInRoom
	}
	switch action.Kind {
	case ActionFold:
		player.Folded = true
	case ActionCheck:
		if player.Bet < maxBet {
			return RequiredNoAction, ErrMustCallOrRaise
		}
	case ActionCall:
		if err := player.betAmount(maxBet - player.Bet); err != nil {
			return RequiredNoAction, err
		}
	case ActionRaise:
		if action.Amount+player.Bet < maxBet {
			return RequiredNoAction, ErrInvalidRaise
		}
		if err := player.betAmount(action.Amount); err != nil {
			return RequiredNoAction, err
		}
	case ActionAllIn:
		if err := player.betAmount(player.Chips); err != nil {
			return RequiredNoAction, err
		}
	default:
		return RequiredNoAction, errInvalidState("unknown action")
	}
	actionCopy := action
	player.LastAction = &actionCopy
	player.HasTakenTurn = true
	return r.Proceed()
}

// Proceed advances the hand when betting for the street is complete, else
// hands the turn to the next eligible player.
func (r *Room) Proceed() (RequiredAction, error) {
	proceedType := r.CanProceedToNextStage()
	if proceedType.CanProceed() {
		if err := r.proceedToNextStage(proceedType); err != nil {
			return RequiredNoAction, err
		}
		return r.setupStage()
	}
	if r.Stage.Kind == StageNotEnoughPlayers {
		return RequiredNoAction, nil
	}
	idx := -1
	if r.PlayerInTurn != nil {
		idx = r.indexOf(*r.PlayerInTurn)
	}
	if idx == -1 {
		return RequiredNoAction, errInvalidState("player in turn not found")
	}
	next, err := r.nextPlayerAfter(idx)
	if err != nil {
		return RequiredNoAction, err
	}
	r.PlayerInTurn = &next
	return RequiredNoAction, nil
}

func (r *Room) setupStage() (RequiredAction, error) {
	switch r.Stage.Kind {
	case StageNotEnoughPlayers:
		r.resetTable()
	case StagePreFlop:
		if err := r.startGame(); err != nil {
			return RequiredNoAction, err
		}
		return RequiredPlayerReceiveCards, nil
	case StageFlop:
		if err := r.DealCommunityCard(dealStageOf(StageFlop)); err != nil {
			return RequiredNoAction, err
		}
		first, err := r.playerToActFirst()
		if err != nil {
			return RequiredNoAction, err
		}
		r.PlayerInTurn = &first
	case StageTurn:
		if err := r.DealCommunityCard(dealStageOf(StageTurn)); err != nil {
			return RequiredNoAction, err
		}
		first, err := r.playerToActFirst()
		if err != nil {
			return RequiredNoAction, err
		}
		r.PlayerInTurn = &first
	case StageRiver:
		if err := r.DealCommunityCard(dealStageOf(StageRiver)); err != nil {
			return RequiredNoAction, err
		}
		first, err := r.playerToActFirst()
		if err != nil {
			return RequiredNoAction, err
		}
		r.PlayerInTurn = &first
	case StageShowdown:
		if r.Stage.DealRemaining {
			switch len(r.CommunityCards) {
			case 0:
				if err := r.DealCommunityCard(dealStageOf(StageFlop)); err != nil {
					return RequiredNoAction, err
				}
				if err := r.DealCommunityCard(dealStageOf(StageTurn)); err != nil {
					return RequiredNoAction, err
				}
				if err := r.DealCommunityCard(dealStageOf(StageRiver)); err != nil {
					return RequiredNoAction, err
				}
			case 3:
				if err := r.DealCommunityCard(dealStageOf(StageTurn)); err != nil {
					return RequiredNoAction, err
				}
				if err := r.DealCommunityCard(dealStageOf(StageRiver)); err != nil {
					return RequiredNoAction, err
				}
			case 4:
				if err := r.DealCommunityCard(dealStageOf(StageRiver)); err != nil {
					return RequiredNoAction, err
				}
			case 5:
			default:
				return RequiredNoAction, errInvalidState("invalid number of community cards")
			}
		}
		r.PlayerInTurn = nil
		return RequiredFindWinners, nil
	}
	return RequiredNoAction, nil
}

// endStage peels side pots off the bets collected for the street that just
// ended, merges consecutive pots with identical eligibility sets, then
// clears per-street player state.
func (r *Room) endStage() error {
	switch r.Stage.Kind {
	case StageNotEnoughPlayers, StageShowdown:
		return nil
	}

	type idBet struct {
		id  uuid.UUID
		bet int64
	}
	var bets []idBet
	for _, p := range r.Players {
		if p.Bet > 0 {
			bets = append(bets, idBet{p.ID, p.Bet})
		}
	}
	sort.Slice(bets, func(i, j int) bool { return bets[i].bet > bets[j].bet })

	for len(bets) > 0 {
		smallest := bets[len(bets)-1].bet
		pot := newPot()
		for i := len(bets) - 1; i >= 0; i-- {
			bets[i].bet -= smallest
			pot.Amount += smallest
			pot.Players[bets[i].id] = struct{}{}
		}
		r.Pots = append(r.Pots, pot)
		kept := bets[:0]
		for _, b := range bets {
			if b.bet > 0 {
				kept = append(kept, b)
			}
		}
		bets = kept
	}

	if len(r.Pots) == 0 {
		return errInvalidState("no pots")
	}
	merged := []Pot{r.Pots[0]}
	for i := 1; i < len(r.Pots); i++ {
		last := &merged[len(merged)-1]
		if last.hasSamePlayers(r.Pots[i]) {
			last.Amount += r.Pots[i].Amount
		} else {
			merged = append(merged, r.Pots[i])
		}
	}
	r.Pots = merged

	for _, p := range r.Players {
		p.HasTakenTurn = false
		p.Bet = 0
		p.LastAction = nil
	}
	return nil
}

func (r *Room) proceedToNextStage(proceedType ProceedType) error {
	if err := r.endStage(); err != nil {
		return err
	}
	switch proceedType {
	case ProceedNoAction:
		return errInvalidState("impossible to reach this state")
	case ProceedNormal:
		// fallthrough to the stage-advance switch below
	case ProceedShowdownWithoutDealing:
		r.Stage = stageShowdown(false)
		return nil
	case ProceedShowdownWithDealing:
		r.Stage = stageShowdown(true)
		return nil
	}

	switch r.Stage.Kind {
	case StageShowdown:
		r.seatPlayers()
		if len(r.Players) >= 2 {
			r.Stage = stagePreFlop
		} else {
			r.Stage = stageNotEnoughPlayers
		}
	case StageNotEnoughPlayers:
		if len(r.Players) >= 2 {
			r.Stage = stagePreFlop
		} else {
			return errInvalidState("impossible to reach this state")
		}
	case StagePreFlop:
		r.Stage = stageFlop
	case StageFlop:
		r.Stage = stageTurn
	case StageTurn:
		r.Stage = stageRiver
	case StageRiver:
		r.Stage = stageShowdown(true)
	}
	return nil
}
