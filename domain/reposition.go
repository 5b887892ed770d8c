package domain

import (
	"context"
	"errors"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// moveMaxRetries bounds transparent retries on concurrency conflicts before
// the error is surfaced to the caller.
const moveMaxRetries = 3

// ContainerStore is the persistence boundary for ordered containers.
type ContainerStore interface {
	// FindContainer resolves a board or list id. Missing containers yield
	// ErrContainerNotFound.
	FindContainer(ctx context.Context, id string) (Container, error)
	// ListItems returns the container's items sorted by position.
	ListItems(ctx context.Context, containerID string) ([]Item, error)
	// ApplyMove commits the write set atomically with respect to other
	// ApplyMove calls on the same containers. It fails with
	// ErrConcurrencyConflict when a container's Seq snapshot is stale and
	// with ErrItemNotFound when the moved item vanished.
	ApplyMove(ctx context.Context, commit MoveCommit) (Item, error)
}

// BoardAccess answers whether a user may observe and mutate a board.
type BoardAccess interface {
	CanAccess(ctx context.Context, userID, boardID string) (bool, error)
}

// Reposition orchestrates item moves: validate, plan the position shifts,
// commit through the store, retry on conflicts. It is the only component
// that mutates item positions and parent references.
type Reposition struct {
	store  ContainerStore
	access BoardAccess
	log    *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewReposition(store ContainerStore, access BoardAccess, logger *log.Logger) *Reposition {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Reposition{
		store:  store,
		access: access,
		log:    logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// MoveItem relocates an item to destination index within (or across)
// containers. A failed move leaves both containers exactly as they were.
// The result lists every item whose position changed so callers can build a
// minimal broadcast payload.
func (r *Reposition) MoveItem(ctx context.Context, userID string, intent MoveIntent) (MoveResult, error) {
	unlock := r.lockContainers(intent.SourceContainerID, intent.DestinationContainerID)
	defer unlock()

	var res MoveResult
	var err error
	for attempt := 0; ; attempt++ {
		res, err = r.attempt(ctx, userID, intent)
		res.Retries = attempt
		if err == nil || !errors.Is(err, ErrConcurrencyConflict) || attempt >= moveMaxRetries {
			return res, err
		}
		r.log.WithFields(log.Fields{
			"item":    intent.ItemID,
			"dest":    intent.DestinationContainerID,
			"attempt": attempt + 1,
		}).Warn("move conflicted, recomputing shift")
	}
}

func (r *Reposition) attempt(ctx context.Context, userID string, intent MoveIntent) (MoveResult, error) {
	src, err := r.store.FindContainer(ctx, intent.SourceContainerID)
	if err != nil {
		return MoveResult{}, err
	}
	dst := src
	if intent.DestinationContainerID != intent.SourceContainerID {
		dst, err = r.store.FindContainer(ctx, intent.DestinationContainerID)
		if err != nil {
			return MoveResult{}, err
		}
		if dst.Kind != src.Kind {
			return MoveResult{}, ErrStaleMoveRequest
		}
	}

	if err := r.authorize(ctx, userID, src.BoardID, dst.BoardID); err != nil {
		return MoveResult{}, err
	}

	srcItems, err := r.store.ListItems(ctx, src.ID)
	if err != nil {
		return MoveResult{}, err
	}
	moving, ok := findItem(srcItems, intent.ItemID)
	if !ok {
		return MoveResult{}, ErrStaleMoveRequest
	}

	if src.ID == dst.ID {
		return r.commitReorder(ctx, src, srcItems, moving, intent.DestinationIndex)
	}

	destItems, err := r.store.ListItems(ctx, dst.ID)
	if err != nil {
		return MoveResult{}, err
	}
	return r.commitTransfer(ctx, src, dst, srcItems, destItems, moving, intent.DestinationIndex)
}

func (r *Reposition) authorize(ctx context.Context, userID, srcBoard, dstBoard string) (err error) {
	ok, err := r.access.CanAccess(ctx, userID, srcBoard)
	if err != nil {
		return err
	}
	if ok && dstBoard != srcBoard {
		ok, err = r.access.CanAccess(ctx, userID, dstBoard)
		if err != nil {
			return err
		}
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// commitReorder handles a move within a single container: splice the item
// out, reinsert at the clamped index and renumber densely. When nothing
// moves the container is left untouched and no commit happens.
func (r *Reposition) commitReorder(ctx context.Context, c Container, items []Item, moving Item, index int) (MoveResult, error) {
	ordered := make([]Item, len(items))
	copy(ordered, items)
	SortItems(ordered)

	index = ClampIndex(len(ordered), index)
	without := removeItem(ordered, moving.ID)
	if index > len(without) {
		index = len(without)
	}
	reordered := make([]Item, 0, len(ordered))
	reordered = append(reordered, without[:index]...)
	reordered = append(reordered, moving)
	reordered = append(reordered, without[index:]...)

	var updates []ItemPosition
	newPos := moving.Position
	for i, it := range reordered {
		if it.Position != i {
			updates = append(updates, ItemPosition{ItemID: it.ID, Position: i})
		}
		if it.ID == moving.ID {
			newPos = i
		}
	}
	change := ContainerChange{ContainerID: c.ID, Kind: c.Kind, BoardID: c.BoardID}
	if len(updates) == 0 {
		return MoveResult{Item: moving, Source: change, Dest: change, NoOp: true}, nil
	}

	item := moving
	item.Position = newPos
	committed, err := r.store.ApplyMove(ctx, MoveCommit{
		Item:        item,
		Source:      c,
		Dest:        c,
		DestUpdates: siblingUpdates(updates, moving.ID),
	})
	if err != nil {
		return MoveResult{}, err
	}
	change.Items = updates
	return MoveResult{Item: committed, Source: ContainerChange{ContainerID: c.ID, Kind: c.Kind, BoardID: c.BoardID}, Dest: change}, nil
}

// commitTransfer handles a cross-container move: the destination occupants
// at or above the insertion point shift up by one, the source remainder is
// renumbered densely and the item is re-parented, all in one commit.
func (r *Reposition) commitTransfer(ctx context.Context, src, dst Container, srcItems, destItems []Item, moving Item, index int) (MoveResult, error) {
	remaining := removeItem(srcItems, moving.ID)
	sourceUpdates := Renumber(remaining)

	ordered := make([]Item, len(destItems))
	copy(ordered, destItems)
	SortItems(ordered)
	pos, shift := PlanInsert(len(ordered), index)
	var destUpdates []ItemPosition
	for _, it := range ordered {
		if shift.Contains(it.Position) {
			destUpdates = append(destUpdates, ItemPosition{ItemID: it.ID, Position: it.Position + shift.Delta})
		}
	}

	item := moving
	item.ContainerID = dst.ID
	item.BoardID = dst.BoardID
	item.Position = pos
	committed, err := r.store.ApplyMove(ctx, MoveCommit{
		Item:          item,
		Source:        src,
		Dest:          dst,
		SourceUpdates: sourceUpdates,
		DestUpdates:   destUpdates,
	})
	if err != nil {
		return MoveResult{}, err
	}

	destChanged := append([]ItemPosition{{ItemID: committed.ID, Position: committed.Position}}, destUpdates...)
	sort.Slice(destChanged, func(i, j int) bool { return destChanged[i].Position < destChanged[j].Position })
	return MoveResult{
		Item:   committed,
		Source: ContainerChange{ContainerID: src.ID, Kind: src.Kind, BoardID: src.BoardID, Items: sourceUpdates},
		Dest:   ContainerChange{ContainerID: dst.ID, Kind: dst.Kind, BoardID: dst.BoardID, Items: destChanged},
	}, nil
}

// lockContainers serializes moves per container. Locks are taken in
// lexicographic id order so two concurrent moves between the same pair of
// containers cannot deadlock.
func (r *Reposition) lockContainers(ids ...string) func() {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)

	held := make([]*sync.Mutex, 0, len(uniq))
	for _, id := range uniq {
		r.mu.Lock()
		m, ok := r.locks[id]
		if !ok {
			m = &sync.Mutex{}
			r.locks[id] = m
		}
		r.mu.Unlock()
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func findItem(items []Item, id string) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

func removeItem(items []Item, id string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func siblingUpdates(updates []ItemPosition, movedID string) []ItemPosition {
	out := make([]ItemPosition, 0, len(updates))
	for _, u := range updates {
		if u.ItemID != movedID {
			out = append(out, u)
		}
	}
	return out
}
