package domain

import "context"

// MembershipStore resolves the persisted membership relation. Implementations
// may cache briefly, but must reflect membership mutations promptly; the
// storage cache invalidates on every membership change.
type MembershipStore interface {
	Board(ctx context.Context, boardID string) (Board, error)
	// BoardsFor returns every board the user owns or is a member of.
	BoardsFor(ctx context.Context, userID string) ([]Board, error)
}

// MembershipIndex maps principals to the channels they are entitled to.
// A user's channels are their own id plus one channel per reachable board;
// board membership alone is enough, organization membership is not required.
type MembershipIndex struct {
	store MembershipStore
}

func NewMembershipIndex(store MembershipStore) *MembershipIndex {
	return &MembershipIndex{store: store}
}

// ChannelsFor returns the channel ids the user may subscribe to: the
// personal channel first, then the entitled board channels.
func (m *MembershipIndex) ChannelsFor(ctx context.Context, userID string) ([]string, error) {
	boards, err := m.store.BoardsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	channels := make([]string, 0, len(boards)+1)
	channels = append(channels, userID)
	for _, b := range boards {
		channels = append(channels, b.ID)
	}
	return channels, nil
}

// BoardObservers is the inverse query: every user entitled to the board's
// channel.
func (m *MembershipIndex) BoardObservers(ctx context.Context, boardID string) ([]string, error) {
	board, err := m.store.Board(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return board.Observers(), nil
}

// CanAccess reports whether the user may observe and mutate the board.
func (m *MembershipIndex) CanAccess(ctx context.Context, userID, boardID string) (bool, error) {
	board, err := m.store.Board(ctx, boardID)
	if err != nil {
		return false, err
	}
	return board.HasObserver(userID), nil
}
