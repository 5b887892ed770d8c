package api

import (
	"context"

	"github.com/Tayyab2344/Trello/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	Board(ctx context.Context, boardID string) (domain.Board, error)
	BoardsFor(ctx context.Context, userID string) ([]domain.Board, error)
	CreateBoard(ctx context.Context, title, image, organization, ownerID string) (domain.Board, error)
	DeleteBoard(ctx context.Context, boardID string) (domain.Board, error)
	AddMember(ctx context.Context, boardID, userID string) (domain.Board, error)
	RemoveMember(ctx context.Context, boardID, userID string) (domain.Board, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)

	ListLists(ctx context.Context, boardID string) ([]domain.List, error)
	CreateList(ctx context.Context, boardID, title string, position int) (domain.List, error)
	List(ctx context.Context, listID string) (domain.List, error)
	DeleteList(ctx context.Context, listID string) (domain.List, error)

	ListCards(ctx context.Context, listID string) ([]domain.Card, error)
	CreateCard(ctx context.Context, listID, boardID, title, description string, position int) (domain.Card, error)
	Card(ctx context.Context, cardID string) (domain.Card, error)
	DeleteCard(ctx context.Context, cardID string) (domain.Card, error)

	RecordActivity(ctx context.Context, a domain.Activity) error
}

// Mover relocates lists within a board and cards within or across lists.
type Mover interface {
	MoveItem(ctx context.Context, userID string, intent domain.MoveIntent) (domain.MoveResult, error)
}

// Access answers board membership questions for handler-level checks.
type Access interface {
	CanAccess(ctx context.Context, userID, boardID string) (bool, error)
}

// Fanout publishes board events to every entitled connection.
type Fanout interface {
	AnnounceMove(ctx context.Context, res domain.MoveResult) error
	AnnounceBoardCreated(ctx context.Context, board domain.Board) error
	AnnounceBoardDeleted(ctx context.Context, board domain.Board) error
	AnnounceMemberAdded(ctx context.Context, board domain.Board, member domain.User) error
	AnnounceMemberRemoved(ctx context.Context, board domain.Board, memberID string) error
}

// Authenticator is implemented by types able to extract user IDs from tokens.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
	UserIDFromBearer([]byte) (string, error)
}
