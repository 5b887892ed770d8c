package domain

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
)

func testBoard(id, owner string, members ...string) Board {
	return Board{ID: id, Title: id, Organization: "org1", Owner: owner, Members: members}
}

// seedLists builds one board container ("b1") with three member users and two
// list containers ("A", "B") holding cards.
func seedCards(t *testing.T) *fakeStore {
	t.Helper()
	st := newFakeStore()
	st.boards["b1"] = testBoard("b1", "u1", "u2")
	st.addContainer(Container{ID: "A", Kind: KindList, BoardID: "b1"})
	st.addContainer(Container{ID: "B", Kind: KindList, BoardID: "b1"})
	return st
}

func newService(st *fakeStore) *Reposition {
	return NewReposition(st, NewMembershipIndex(st), nil)
}

func TestMoveWithinListToFront(t *testing.T) {
	st := seedCards(t)
	st.addItems("A", "b1", "cardA", "cardB", "cardC")
	svc := newService(st)

	res, err := svc.MoveItem(context.Background(), "u1", MoveIntent{
		ItemID:                 "cardB",
		SourceContainerID:      "A",
		DestinationContainerID: "A",
		DestinationIndex:       0,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.NoOp {
		t.Fatal("expected a real move")
	}
	got := st.order("A")
	want := []string{"cardB", "cardA", "cardC"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if res.Item.Position != 0 {
		t.Fatalf("moved item position = %d, want 0", res.Item.Position)
	}
	// cardC never moved, so the changed set is exactly {cardB, cardA}.
	if len(res.Dest.Items) != 2 {
		t.Fatalf("changed set = %v, want two entries", res.Dest.Items)
	}
	assertDense(t, st, "A", 3)
}

func TestMoveToOwnIndexIsNoop(t *testing.T) {
	st := seedCards(t)
	st.addItems("A", "b1", "cardA", "cardB", "cardC")
	svc := newService(st)

	res, err := svc.MoveItem(context.Background(), "u1", MoveIntent{
		ItemID:                 "cardB",
		SourceContainerID:      "A",
		DestinationContainerID: "A",
		DestinationIndex:       1,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !res.NoOp {
		t.Fatal("expected a no-op")
	}
	if len(res.Dest.Items) != 0 || len(res.Source.Items) != 0 {
		t.Fatalf("no-op must not report position changes: %+v", res)
	}
	if len(st.applied) != 0 {
		t.Fatalf("no-op must not commit, got %d commits", len(st.applied))
	}
}

func TestMoveAppendIndex(t *testing.T) {
	st := seedCards(t)
	st.addItems("A", "b1", "cardA", "cardB", "cardC")
	svc := newService(st)

	_, err := svc.MoveItem(context.Background(), "u1", MoveIntent{
		ItemID:                 "cardA",
		SourceContainerID:      "A",
		DestinationContainerID: "A",
		DestinationIndex:       3,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	got := st.order("A")
	want := []string{"cardB", "cardC", "cardA"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestCrossListMove(t *testing.T) {
	st := seedCards(t)
	st.addItems("A", "b1", "a0", "a1", "a2")
	st.addItems("B", "b1", "b0", "b1card")
	svc := newService(st)

	res, err := svc.MoveItem(context.Background(), "u2", MoveIntent{
		ItemID:                 "a1",
		SourceContainerID:      "A",
		DestinationContainerID: "B",
		DestinationIndex:       1,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}

	gotA := st.order("A")
	wantA := []string{"a0", "a2"}
	for i := range wantA {
		if gotA[i] != wantA[i] {
			t.Fatalf("source order = %v, want %v", gotA, wantA)
		}
	}
	assertDense(t, st, "A", 2)

	gotB := st.order("B")
	wantB := []string{"b0", "a1", "b1card"}
	for i := range wantB {
		if gotB[i] != wantB[i] {
			t.Fatalf("dest order = %v, want %v", gotB, wantB)
		}
	}
	assertDense(t, st, "B", 3)

	if res.Item.ContainerID != "B" || res.Item.BoardID != "b1" {
		t.Fatalf("item not re-parented: %+v", res.Item)
	}
	if len(res.BoardIDs()) != 1 || res.BoardIDs()[0] != "b1" {
		t.Fatalf("affected boards = %v", res.BoardIDs())
	}
}

func TestMoveRejectsWrongSource(t *testing.T) {
	st := seedCards(t)
	st.addItems("A", "b1", "a0")
	st.addItems("B", "b1", "b0")
	svc := newService(st)

	_, err := svc.MoveItem(context.Background(), "u1", MoveIntent{
		ItemID:                 "b0",
		SourceContainerID:      "A",
		DestinationContainerID: "A",
		DestinationIndex:       0,
	})
	if !errors.Is(err, ErrStaleMoveRequest) {
		t.Fatalf("expected ErrStaleMoveRequest, got %v", err)
	}
}

func TestMoveRejectsMissingContainer(t *testing.T) {
	st := seedCards(t)
	st.addItems("A", "b1", "a0")
	svc := newService(st)

	_, err := svc.MoveItem(context.Background(), "u1", MoveIntent{
		ItemID:                 "a0",
		SourceContainerID:      "A",
		DestinationContainerID: "missing",
		DestinationIndex:       0,
	})
	if !errors.Is(err, ErrContainerNotFound) {
		t.Fatalf("expected ErrContainerNotFound, got %v", err)
	}
}

func TestMoveRejectsNonMember(t *testing.T) {
	st := seedCards(t)
	st.addItems("A", "b1", "a0", "a1")
	svc := newService(st)

	_, err := svc.MoveItem(context.Background(), "outsider", MoveIntent{
		ItemID:                 "a0",
		SourceContainerID:      "A",
		DestinationContainerID: "A",
		DestinationIndex:       1,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(st.applied) != 0 {
		t.Fatal("unauthorized move must not commit")
	}
}

func TestMoveRetriesOnConflict(t *testing.T) {
	st := seedCards(t)
	st.addItems("A", "b1", "a0", "a1")
	st.conflicts = 2
	svc := newService(st)

	res, err := svc.MoveItem(context.Background(), "u1", MoveIntent{
		ItemID:                 "a1",
		SourceContainerID:      "A",
		DestinationContainerID: "A",
		DestinationIndex:       0,
	})
	if err != nil {
		t.Fatalf("move after retries: %v", err)
	}
	if res.Retries != 2 {
		t.Fatalf("retries = %d, want 2", res.Retries)
	}
}

func TestMoveSurfacesConflictAfterBoundedRetries(t *testing.T) {
	st := seedCards(t)
	st.addItems("A", "b1", "a0", "a1")
	st.conflicts = 10
	svc := newService(st)

	_, err := svc.MoveItem(context.Background(), "u1", MoveIntent{
		ItemID:                 "a1",
		SourceContainerID:      "A",
		DestinationContainerID: "A",
		DestinationIndex:       0,
	})
	if !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}
	// State untouched: the failed move left the container as it was.
	got := st.order("A")
	if got[0] != "a0" || got[1] != "a1" {
		t.Fatalf("container mutated by failed move: %v", got)
	}
}

func TestConcurrentMovesIntoOneContainer(t *testing.T) {
	st := seedCards(t)
	st.addItems("B", "b1", "seed0", "seed1")
	const n = 12
	sources := make([]string, n)
	for i := 0; i < n; i++ {
		id := string(rune('c'+i)) + "-src"
		sources[i] = id
		st.addContainer(Container{ID: id, Kind: KindList, BoardID: "b1"})
		st.addItems(id, "b1", id+"-card")
	}
	svc := newService(st)

	rng := rand.New(rand.NewSource(42))
	indexes := make([]int, n)
	for i := range indexes {
		indexes[i] = rng.Intn(n + 2)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.MoveItem(context.Background(), "u1", MoveIntent{
				ItemID:                 sources[i] + "-card",
				SourceContainerID:      sources[i],
				DestinationContainerID: "B",
				DestinationIndex:       indexes[i],
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent move %d: %v", i, err)
		}
	}
	assertDense(t, st, "B", n+2)
}

// assertDense checks the core ordering invariant: sorting the container's
// items by position yields strictly increasing, unique, dense values.
func assertDense(t *testing.T, st *fakeStore, containerID string, wantLen int) {
	t.Helper()
	items, _ := st.ListItems(context.Background(), containerID)
	if len(items) != wantLen {
		t.Fatalf("container %s has %d items, want %d", containerID, len(items), wantLen)
	}
	for i, it := range items {
		if it.Position != i {
			t.Fatalf("container %s not dense at %d: %+v", containerID, i, items)
		}
	}
}
