package domain

import (
	"context"
	"sync"
)

// fakeStore is an in-memory ContainerStore and MembershipStore with the same
// Seq semantics as the table-backed implementation: every committed move
// bumps the touched containers' sequence numbers, and a commit computed
// against a stale snapshot is rejected.
type fakeStore struct {
	mu         sync.Mutex
	containers map[string]Container
	items      map[string]Item
	boards     map[string]Board

	conflicts int // pending ApplyMove failures, for retry tests
	applied   []MoveCommit
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		containers: map[string]Container{},
		items:      map[string]Item{},
		boards:     map[string]Board{},
	}
}

func (f *fakeStore) addContainer(c Container) {
	f.containers[c.ID] = c
}

func (f *fakeStore) addItems(containerID, boardID string, ids ...string) {
	for i, id := range ids {
		f.items[id] = Item{ID: id, ContainerID: containerID, BoardID: boardID, Position: i}
	}
}

func (f *fakeStore) FindContainer(ctx context.Context, id string) (Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return Container{}, ErrContainerNotFound
	}
	return c, nil
}

func (f *fakeStore) ListItems(ctx context.Context, containerID string) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.itemsOf(containerID), nil
}

func (f *fakeStore) itemsOf(containerID string) []Item {
	var out []Item
	for _, it := range f.items {
		if it.ContainerID == containerID {
			out = append(out, it)
		}
	}
	SortItems(out)
	return out
}

func (f *fakeStore) ApplyMove(ctx context.Context, commit MoveCommit) (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflicts > 0 {
		f.conflicts--
		return Item{}, ErrConcurrencyConflict
	}
	src, ok := f.containers[commit.Source.ID]
	if !ok {
		return Item{}, ErrContainerNotFound
	}
	dst, ok := f.containers[commit.Dest.ID]
	if !ok {
		return Item{}, ErrContainerNotFound
	}
	if src.Seq != commit.Source.Seq || dst.Seq != commit.Dest.Seq {
		return Item{}, ErrConcurrencyConflict
	}
	if _, ok := f.items[commit.Item.ID]; !ok {
		return Item{}, ErrItemNotFound
	}
	for _, u := range commit.SourceUpdates {
		it := f.items[u.ItemID]
		it.Position = u.Position
		f.items[u.ItemID] = it
	}
	for _, u := range commit.DestUpdates {
		it := f.items[u.ItemID]
		it.Position = u.Position
		f.items[u.ItemID] = it
	}
	f.items[commit.Item.ID] = commit.Item
	src.Seq++
	f.containers[src.ID] = src
	if dst.ID != src.ID {
		dst.Seq++
		f.containers[dst.ID] = dst
	}
	f.applied = append(f.applied, commit)
	return commit.Item, nil
}

func (f *fakeStore) Board(ctx context.Context, boardID string) (Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[boardID]
	if !ok {
		return Board{}, ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) BoardsFor(ctx context.Context, userID string) ([]Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Board
	for _, b := range f.boards {
		if b.HasObserver(userID) {
			out = append(out, b)
		}
	}
	return out, nil
}

// order returns the item ids of a container in position order.
func (f *fakeStore) order(containerID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.itemsOf(containerID)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
