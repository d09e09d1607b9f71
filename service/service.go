// Package service orchestrates the external effects (buy-in accounting,
// socket subscriptions, broadcast fan-out) around the pure room state
// machine in package room. It is grounded on original_source's
// GameService / service_action_required: every mutation holds the room's
// exclusive lock across both the state-machine call and the resulting
// broadcast, including the showdown reveal and payout delays, so
// observers never see transitions interleaved with a concurrent action.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"pokerhall/evaluator"
	"pokerhall/registry"
	"pokerhall/room"
	"pokerhall/store"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

const (
	showdownRevealDelay = 5 * time.Second
	payoutDelay         = 3 * time.Second
)

// GameService is the single entry point external callers (the transport
// gateway) drive.
type GameService struct {
	registry  *registry.Registry
	evaluator *evaluator.Evaluator
	roomInfo  store.RoomInfoStore
	users     store.UserStore
	fabric    Fabric
	clock     quartz.Clock
}

// New wires a GameService. A nil clock defaults to the real wall clock.
func New(reg *registry.Registry, eval *evaluator.Evaluator, roomInfo store.RoomInfoStore, users store.UserStore, fabric Fabric, clock quartz.Clock) *GameService {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &GameService{registry: reg, evaluator: eval, roomInfo: roomInfo, users: users, fabric: fabric, clock: clock}
}

// InitRooms reads the configured room ids from the external room-info
// store and upserts an empty Room for each.
func (s *GameService) InitRooms(ctx context.Context) error {
	ids, err := s.roomInfo.RoomIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.registry.Upsert(room.NewRoomWithID(id, nil))
	}
	return nil
}

// JoinPlayer seats userID into roomID, buying in for buyIn chips, and
// subscribes sid to the room's broadcast topic.
func (s *GameService) JoinPlayer(ctx context.Context, roomID, userID uuid.UUID, name string, buyIn int64, sid string) error {
	tx, err := s.roomInfo.LockForUpdate(ctx, roomID)
	if err != nil {
		return err
	}

	h, err := s.registry.LockMut(roomID)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer h.Unlock()

	if err := s.joinPlayerLocked(ctx, tx, h, roomID, userID, name, buyIn, sid); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *GameService) joinPlayerLocked(ctx context.Context, tx store.RoomInfoTx, h *registry.Handle, roomID, userID uuid.UUID, name string, buyIn int64, sid string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if buyIn > user.Balance {
		return ErrInsufficientBalance
	}

	p := room.NewPlayer(userID, name, buyIn, sid)
	required, err := h.Room().JoinPlayer(p)
	if err != nil {
		return err
	}

	if err := s.users.Debit(ctx, userID, buyIn, roomID); err != nil {
		return err
	}
	s.fabric.Subscribe(sid, roomID)

	count, err := tx.PlayerCount(ctx)
	if err != nil {
		return err
	}
	if err := tx.SetPlayerCount(ctx, count+1); err != nil {
		return err
	}

	return s.execRequiredAction(ctx, h, required)
}

// TakeAction resolves a player's move and runs whatever RequiredAction it
// produces.
func (s *GameService) TakeAction(ctx context.Context, roomID, userID uuid.UUID, action room.Action) error {
	h, err := s.registry.LockMut(roomID)
	if err != nil {
		return err
	}
	defer h.Unlock()

	required, err := h.Room().TakeAction(userID, action)
	if err != nil {
		return err
	}
	return s.execRequiredAction(ctx, h, required)
}

// LeavePlayer looks up userID's current room via the external collaborator
// and, if seated anywhere, removes them and reimburses their chips.
func (s *GameService) LeavePlayer(ctx context.Context, userID uuid.UUID, sid string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.CurrentRoom == nil {
		return nil
	}
	roomID := *user.CurrentRoom

	tx, err := s.roomInfo.LockForUpdate(ctx, roomID)
	if err != nil {
		return err
	}

	h, err := s.registry.LockMut(roomID)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer h.Unlock()

	chips := h.Room().LeavePlayer(userID)
	if err := s.users.Credit(ctx, userID, chips); err != nil {
		tx.Rollback()
		return err
	}
	if err := s.users.SetCurrentRoom(ctx, userID, nil); err != nil {
		tx.Rollback()
		return err
	}
	s.fabric.Unsubscribe(sid, roomID)

	count, err := tx.PlayerCount(ctx)
	if err != nil {
		tx.Rollback()
		return err
	}
	if count > 0 {
		if err := tx.SetPlayerCount(ctx, count-1); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	// A leaver who was player-in-turn must not leave the turn stuck, so
	// we re-run proceed and execute whatever it returns.
	required, err := h.Room().Proceed()
	if err != nil {
		return err
	}
	return s.execRequiredAction(ctx, h, required)
}

// execRequiredAction runs with the room's Handle held for its entire
// body, including the showdown reveal and payout delays, and recurses
// into whatever RequiredAction the next transition produces.
func (s *GameService) execRequiredAction(ctx context.Context, h *registry.Handle, required room.RequiredAction) error {
	r := h.Room()
	switch required {
	case room.RequiredNoAction:
		s.fabric.PublishRoom(r.ID, room.NewTimestamped(r.Snapshot(false, nil)))
		return nil

	case room.RequiredPlayerReceiveCards:
		s.fabric.PublishRoom(r.ID, room.NewTimestamped(r.Snapshot(false, nil)))
		for _, p := range r.Players {
			if p.Hand == nil {
				continue
			}
			hole := [2]string{p.Hand[0].String(), p.Hand[1].String()}
			s.fabric.PublishHand(p.SocketID, room.NewTimestamped(hole))
		}
		return nil

	case room.RequiredFindWinners:
		return s.findWinners(ctx, h)
	}
	return nil
}

// findWinners runs the showdown sequence: evaluate, reveal, sleep, split,
// emit payouts (reversed, main pot last), sleep between each, clear, then
// recurse into the next hand's setup.
func (s *GameService) findWinners(ctx context.Context, h *registry.Handle) error {
	r := h.Room()
	if !r.Stage.IsShowdown() {
		return room.ErrNotShowdown
	}

	var potWinners []struct {
		Amount  int64
		Winners map[uuid.UUID]struct{}
	}
	evals := map[uuid.UUID]string{}

	if !r.Stage.DealRemaining {
		// Showdown(false): the sole non-folded player sweeps every pot
		// without any hand evaluation.
		var sole uuid.UUID
		found := false
		var total int64
		for _, pot := range r.Pots {
			total += pot.Amount
		}
		for _, p := range r.Players {
			if !p.Folded {
				sole = p.ID
				found = true
				break
			}
		}
		if !found {
			return room.ErrNotShowdown
		}
		potWinners = append(potWinners, struct {
			Amount  int64
			Winners map[uuid.UUID]struct{}
		}{Amount: total, Winners: map[uuid.UUID]struct{}{sole: {}}})
	} else {
		playersCards := r.PlayersCards()
		ranks, err := s.evaluator.EvaluateAll(playersCards)
		if err != nil {
			return err
		}
		for id, rank := range ranks {
			evals[id] = rank.String()
		}
		for _, pot := range r.Pots {
			ids := make([]uuid.UUID, 0, len(pot.Players))
			for id := range pot.Players {
				ids = append(ids, id)
			}
			best := evaluator.AllBestHands(ids, ranks)
			potWinners = append(potWinners, struct {
				Amount  int64
				Winners map[uuid.UUID]struct{}
			}{Amount: pot.Amount, Winners: best})
		}
	}

	s.fabric.PublishRoom(r.ID, room.NewTimestamped(r.Snapshot(true, evals)))
	s.clock.Sleep(showdownRevealDelay)

	potSplits, err := r.SplitPot(potWinners)
	if err != nil {
		return err
	}

	// Reverse so the main pot (evaluated first, appended first) is shown
	// last.
	for i, j := 0, len(potSplits)-1; i < j; i, j = i+1, j-1 {
		potSplits[i], potSplits[j] = potSplits[j], potSplits[i]
	}

	for _, split := range potSplits {
		payout := make([]room.OutcomePayout, 0, len(split))
		for _, w := range split {
			payout = append(payout, room.OutcomePayout{Player: w.Player, Amount: w.Amount})
		}
		s.fabric.PublishOutcome(r.ID, room.NewTimestamped(payout))
		s.clock.Sleep(payoutDelay)
	}
	s.fabric.PublishOutcome(r.ID, room.NewTimestamped([]room.OutcomePayout{}))

	next, err := r.Proceed()
	if err != nil {
		return err
	}
	return s.execRequiredAction(ctx, h, next)
}

// LogBroadcastFailure logs (without rolling back state) a broadcast that
// failed after a transition already committed.
func LogBroadcastFailure(roomID uuid.UUID, err error) {
	log.Printf("[service] broadcast failed for room %s: %v", roomID, err)
}
