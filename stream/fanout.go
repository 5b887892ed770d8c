package stream

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Tayyab2344/Trello/domain"
)

// Bus carries envelopes to every service instance, which delivers them to
// its locally connected subscribers. Publishing to a channel nobody
// subscribes to is a silent no-op.
type Bus interface {
	Publish(ctx context.Context, env domain.Envelope) error
}

// Fanout turns mutation results into channel-scoped events. It decides the
// audience; the bus and router handle delivery.
type Fanout struct {
	bus     Bus
	members Memberships
	log     *log.Logger
}

func NewFanout(bus Bus, members Memberships, logger *log.Logger) *Fanout {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Fanout{bus: bus, members: members, log: logger}
}

// AnnounceMove publishes one orderChanged event per affected container to
// that container's board channel. No-op moves announce nothing.
func (f *Fanout) AnnounceMove(ctx context.Context, res domain.MoveResult) error {
	if res.NoOp {
		return nil
	}
	dest := res.Dest
	if err := f.publishReorder(ctx, dest); err != nil {
		return err
	}
	if res.Source.ContainerID != dest.ContainerID {
		// Source payload may be empty when no sibling was renumbered; the
		// event still tells clients the container's membership changed.
		if err := f.publishReorder(ctx, res.Source); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fanout) publishReorder(ctx context.Context, change domain.ContainerChange) error {
	return f.bus.Publish(ctx, domain.Envelope{
		Channel: change.BoardID,
		Event: domain.Event{
			Name:    domain.EventOrderChanged,
			Reorder: &change,
		},
	})
}

// AnnounceMemberAdded tells the board its roster grew and tells the new
// member they gained access. The board-channel envelope carries the
// subscribe hint so the member's live connections join the board channel
// before delivery and observe the event themselves.
func (f *Fanout) AnnounceMemberAdded(ctx context.Context, board domain.Board, member domain.User) error {
	b := board
	m := member
	if err := f.bus.Publish(ctx, domain.Envelope{
		Channel:       board.ID,
		SubscribeUser: member.ID,
		Event: domain.Event{
			Name:    domain.EventBoardNotification,
			Type:    domain.NotifyMemberAdded,
			Message: fmt.Sprintf("%s has been added to %s", member.Name, board.Title),
			Board:   &b,
			Member:  &m,
		},
	}); err != nil {
		return err
	}
	return f.bus.Publish(ctx, domain.Envelope{
		Channel: member.ID,
		Event: domain.Event{
			Name:    domain.EventNewBoardAdded,
			Type:    domain.NotifyBoardAccessGranted,
			Message: fmt.Sprintf("You have been added to %s", board.Title),
			Board:   &b,
		},
	})
}

// AnnounceMemberRemoved tells the board channel and detaches the removed
// member's live connections after delivery.
func (f *Fanout) AnnounceMemberRemoved(ctx context.Context, board domain.Board, memberID string) error {
	b := board
	return f.bus.Publish(ctx, domain.Envelope{
		Channel:         board.ID,
		UnsubscribeUser: memberID,
		Event: domain.Event{
			Name:    domain.EventBoardNotification,
			Type:    domain.NotifyMemberRemoved,
			Message: fmt.Sprintf("A member left %s", board.Title),
			Board:   &b,
		},
	})
}

// AnnounceBoardCreated joins the owner's live connections to the new
// board's channel and tells their personal channel about the board.
func (f *Fanout) AnnounceBoardCreated(ctx context.Context, board domain.Board) error {
	b := board
	if err := f.bus.Publish(ctx, domain.Envelope{
		Channel:       board.ID,
		SubscribeUser: board.Owner,
		Event: domain.Event{
			Name:    domain.EventBoardNotification,
			Type:    domain.NotifyBoardCreated,
			Message: fmt.Sprintf("Board %s created", board.Title),
			Board:   &b,
		},
	}); err != nil {
		return err
	}
	return f.bus.Publish(ctx, domain.Envelope{
		Channel: board.Owner,
		Event: domain.Event{
			Name:    domain.EventNewBoardAdded,
			Type:    domain.NotifyBoardAccessGranted,
			Message: fmt.Sprintf("Board %s created", board.Title),
			Board:   &b,
		},
	})
}

// AnnounceBoardDeleted is the last event the board channel sees.
func (f *Fanout) AnnounceBoardDeleted(ctx context.Context, board domain.Board) error {
	b := board
	return f.bus.Publish(ctx, domain.Envelope{
		Channel: board.ID,
		Event: domain.Event{
			Name:    domain.EventBoardNotification,
			Type:    domain.NotifyBoardDeleted,
			Message: fmt.Sprintf("Board %s was deleted", board.Title),
			Board:   &b,
		},
	})
}

// Relay broadcasts a free-form notification into a board channel on behalf
// of a member. Non-members get ErrUnauthorized.
func (f *Fanout) Relay(ctx context.Context, userID, boardID, message, notifyType string) error {
	ok, err := f.members.CanAccess(ctx, userID, boardID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	if notifyType == "" {
		notifyType = "general"
	}
	return f.bus.Publish(ctx, domain.Envelope{
		Channel: boardID,
		Event: domain.Event{
			Name:    domain.EventBoardNotification,
			Type:    notifyType,
			Message: message,
		},
	})
}

// AnnounceTyping relays an ephemeral typing indicator; it is never
// persisted and losing one is fine.
func (f *Fanout) AnnounceTyping(ctx context.Context, userID string, t domain.TypingData) error {
	ok, err := f.members.CanAccess(ctx, userID, t.BoardID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return f.bus.Publish(ctx, domain.Envelope{
		Channel: t.BoardID,
		Event: domain.Event{
			Name:   domain.EventUserTyping,
			Typing: &t,
		},
	})
}
