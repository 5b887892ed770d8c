package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/google/uuid"

	"github.com/Tayyab2344/Trello/domain"
)

// Names holds the table and queue names the storage binds to.
type Names struct {
	Boards        string
	Lists         string
	Cards         string
	Users         string
	Memberships   string
	ActivityQueue string
}

// DefaultNames returns the names used when the environment does not
// override them.
func DefaultNames() Names {
	return Names{
		Boards:        "boards",
		Lists:         "lists",
		Cards:         "cards",
		Users:         "users",
		Memberships:   "memberships",
		ActivityQueue: "activities",
	}
}

// Storage provides access to underlying persistence mechanisms.
type Storage struct {
	boardTable      *aztables.Client
	listTable       *aztables.Client
	cardTable       *aztables.Client
	userTable       *aztables.Client
	membershipTable *aztables.Client
	activityQueue   *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr string, names Names) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	aq, err := azqueue.NewQueueClientFromConnectionString(connStr, names.ActivityQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{
		boardTable:      svc.NewClient(names.Boards),
		listTable:       svc.NewClient(names.Lists),
		cardTable:       svc.NewClient(names.Cards),
		userTable:       svc.NewClient(names.Users),
		membershipTable: svc.NewClient(names.Memberships),
		activityQueue:   aq,
	}, nil
}

// Entities are keyed PartitionKey == RowKey == id, except memberships
// which are keyed user → board so BoardsFor is a single partition scan.

type boardEntity struct {
	aztables.Entity
	ETag         string `json:"odata.etag,omitempty"`
	Title        string `json:"Title"`
	Image        string `json:"Image"`
	Organization string `json:"Organization"`
	Owner        string `json:"Owner"`
	Members      string `json:"Members"` // JSON array of user ids
	Seq          int    `json:"Seq"`
}

type listEntity struct {
	aztables.Entity
	ETag     string `json:"odata.etag,omitempty"`
	BoardID  string `json:"BoardId"`
	Title    string `json:"Title"`
	Position int    `json:"Position"`
	Seq      int    `json:"Seq"`
}

type cardEntity struct {
	aztables.Entity
	ListID      string `json:"ListId"`
	BoardID     string `json:"BoardId"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Position    int    `json:"Position"`
}

type userEntity struct {
	aztables.Entity
	Name  string `json:"Name"`
	Email string `json:"Email"`
}

type membershipEntity struct {
	aztables.Entity
}

func rowEntity(id string) aztables.Entity {
	return aztables.Entity{PartitionKey: id, RowKey: id}
}

// mapTableError translates backend responses onto domain sentinels: a
// missing row becomes notFound, a failed If-Match or an insert collision
// becomes ErrConcurrencyConflict.
func mapTableError(err, notFound error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 404:
			return notFound
		case 409, 412:
			return domain.ErrConcurrencyConflict
		}
	}
	return err
}

func (b boardEntity) toDomain() domain.Board {
	var members []string
	if b.Members != "" {
		_ = json.Unmarshal([]byte(b.Members), &members)
	}
	return domain.Board{
		ID:           b.RowKey,
		Title:        b.Title,
		Image:        b.Image,
		Organization: b.Organization,
		Owner:        b.Owner,
		Members:      members,
	}
}

// FindContainer resolves a board or list id. Boards are tried first; a
// miss falls through to the list table.
func (s *Storage) FindContainer(ctx context.Context, id string) (domain.Container, error) {
	resp, err := s.boardTable.GetEntity(ctx, id, id, nil)
	if err == nil {
		var ent boardEntity
		if err := json.Unmarshal(resp.Value, &ent); err != nil {
			return domain.Container{}, err
		}
		return domain.Container{
			ID:      id,
			Kind:    domain.KindBoard,
			BoardID: id,
			Seq:     int64(ent.Seq),
			ETag:    ent.ETag,
		}, nil
	}
	if mapped := mapTableError(err, domain.ErrContainerNotFound); !errors.Is(mapped, domain.ErrContainerNotFound) {
		return domain.Container{}, mapped
	}

	resp, err = s.listTable.GetEntity(ctx, id, id, nil)
	if err != nil {
		return domain.Container{}, mapTableError(err, domain.ErrContainerNotFound)
	}
	var ent listEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Container{}, err
	}
	return domain.Container{
		ID:      id,
		Kind:    domain.KindList,
		BoardID: ent.BoardID,
		Seq:     int64(ent.Seq),
		ETag:    ent.ETag,
	}, nil
}

// ListItems returns the container's occupants sorted by position: lists
// for a board container, cards for a list container.
func (s *Storage) ListItems(ctx context.Context, containerID string) ([]domain.Item, error) {
	c, err := s.FindContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}
	var items []domain.Item
	if c.Kind == domain.KindBoard {
		lists, err := s.ListLists(ctx, containerID)
		if err != nil {
			return nil, err
		}
		for _, l := range lists {
			items = append(items, domain.Item{ID: l.ID, ContainerID: containerID, BoardID: containerID, Position: l.Position})
		}
	} else {
		cards, err := s.ListCards(ctx, containerID)
		if err != nil {
			return nil, err
		}
		for _, cd := range cards {
			items = append(items, domain.Item{ID: cd.ID, ContainerID: containerID, BoardID: cd.BoardID, Position: cd.Position})
		}
	}
	domain.SortItems(items)
	return items, nil
}

// ApplyMove commits a planned move. Each touched container's sequence is
// bumped with an If-Match on the etag captured at read time, so a move
// planned against a stale snapshot fails with ErrConcurrencyConflict
// before any position is written.
func (s *Storage) ApplyMove(ctx context.Context, commit domain.MoveCommit) (domain.Item, error) {
	if err := s.bumpSeq(ctx, commit.Source); err != nil {
		return domain.Item{}, err
	}
	if commit.Dest.ID != commit.Source.ID {
		if err := s.bumpSeq(ctx, commit.Dest); err != nil {
			return domain.Item{}, err
		}
	}

	if err := s.writePositions(ctx, commit.Source.Kind, commit.SourceUpdates); err != nil {
		return domain.Item{}, err
	}
	if err := s.writePositions(ctx, commit.Dest.Kind, commit.DestUpdates); err != nil {
		return domain.Item{}, err
	}

	if err := s.writeMovedItem(ctx, commit); err != nil {
		return domain.Item{}, err
	}
	return commit.Item, nil
}

func (s *Storage) bumpSeq(ctx context.Context, c domain.Container) error {
	type seqUpdate struct {
		aztables.Entity
		Seq int `json:"Seq"`
	}
	payload, err := json.Marshal(seqUpdate{Entity: rowEntity(c.ID), Seq: int(c.Seq) + 1})
	if err != nil {
		return err
	}
	table := s.boardTable
	if c.Kind == domain.KindList {
		table = s.listTable
	}
	et := azcore.ETag(c.ETag)
	if c.ETag == "" {
		et = azcore.ETagAny
	}
	_, err = table.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		return mapTableError(err, domain.ErrContainerNotFound)
	}
	return nil
}

func (s *Storage) writePositions(ctx context.Context, kind domain.ContainerKind, updates []domain.ItemPosition) error {
	type posUpdate struct {
		aztables.Entity
		Position int `json:"Position"`
	}
	table := s.cardTable
	if kind == domain.KindBoard {
		table = s.listTable
	}
	for _, u := range updates {
		payload, err := json.Marshal(posUpdate{Entity: rowEntity(u.ItemID), Position: u.Position})
		if err != nil {
			return err
		}
		et := azcore.ETagAny
		_, err = table.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
		if err != nil {
			return mapTableError(err, domain.ErrItemNotFound)
		}
	}
	return nil
}

func (s *Storage) writeMovedItem(ctx context.Context, commit domain.MoveCommit) error {
	var payload []byte
	var err error
	table := s.cardTable
	if commit.Dest.Kind == domain.KindBoard {
		// The moved item is a list; re-anchor it to the destination board.
		table = s.listTable
		type listMove struct {
			aztables.Entity
			BoardID  string `json:"BoardId"`
			Position int    `json:"Position"`
		}
		payload, err = json.Marshal(listMove{Entity: rowEntity(commit.Item.ID), BoardID: commit.Item.BoardID, Position: commit.Item.Position})
	} else {
		type cardMove struct {
			aztables.Entity
			ListID   string `json:"ListId"`
			BoardID  string `json:"BoardId"`
			Position int    `json:"Position"`
		}
		payload, err = json.Marshal(cardMove{Entity: rowEntity(commit.Item.ID), ListID: commit.Item.ContainerID, BoardID: commit.Item.BoardID, Position: commit.Item.Position})
	}
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = table.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		return mapTableError(err, domain.ErrItemNotFound)
	}
	return nil
}

// Board retrieves a single board with its membership.
func (s *Storage) Board(ctx context.Context, boardID string) (domain.Board, error) {
	resp, err := s.boardTable.GetEntity(ctx, boardID, boardID, nil)
	if err != nil {
		return domain.Board{}, mapTableError(err, domain.ErrNotFound)
	}
	var ent boardEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Board{}, err
	}
	return ent.toDomain(), nil
}

// BoardsFor retrieves every board the user owns or belongs to by walking
// the user's membership partition.
func (s *Storage) BoardsFor(ctx context.Context, userID string) ([]domain.Board, error) {
	filter := "PartitionKey eq '" + userID + "'"
	pager := s.membershipTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	boards := []domain.Board{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent membershipEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			b, err := s.Board(ctx, ent.RowKey)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					// The board went away; the stale membership row is
					// cleaned up on the next write.
					continue
				}
				return nil, err
			}
			boards = append(boards, b)
		}
	}
	return boards, nil
}

// CreateBoard persists a new board owned by the caller and the owner's
// membership row.
func (s *Storage) CreateBoard(ctx context.Context, title, image, organization, ownerID string) (domain.Board, error) {
	board := domain.Board{
		ID:           uuid.NewString(),
		Title:        title,
		Image:        image,
		Organization: organization,
		Owner:        ownerID,
		Members:      []string{},
	}
	payload, err := json.Marshal(boardEntity{
		Entity:       rowEntity(board.ID),
		Title:        board.Title,
		Image:        board.Image,
		Organization: board.Organization,
		Owner:        board.Owner,
		Members:      "[]",
	})
	if err != nil {
		return domain.Board{}, err
	}
	if _, err := s.boardTable.AddEntity(ctx, payload, nil); err != nil {
		return domain.Board{}, mapTableError(err, domain.ErrNotFound)
	}
	if err := s.addMembershipRow(ctx, ownerID, board.ID); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

// AddMember records the user on the board's member list and in the
// reverse membership index.
func (s *Storage) AddMember(ctx context.Context, boardID, userID string) (domain.Board, error) {
	board, err := s.Board(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	if !board.HasObserver(userID) {
		board.Members = append(board.Members, userID)
		if err := s.writeMembers(ctx, boardID, board.Members); err != nil {
			return domain.Board{}, err
		}
	}
	if err := s.addMembershipRow(ctx, userID, boardID); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

// RemoveMember drops the user from the board and its reverse index.
func (s *Storage) RemoveMember(ctx context.Context, boardID, userID string) (domain.Board, error) {
	board, err := s.Board(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	kept := board.Members[:0:0]
	for _, m := range board.Members {
		if m != userID {
			kept = append(kept, m)
		}
	}
	board.Members = kept
	if err := s.writeMembers(ctx, boardID, kept); err != nil {
		return domain.Board{}, err
	}
	if _, err := s.membershipTable.DeleteEntity(ctx, userID, boardID, nil); err != nil {
		if mapped := mapTableError(err, domain.ErrNotFound); !errors.Is(mapped, domain.ErrNotFound) {
			return domain.Board{}, mapped
		}
	}
	return board, nil
}

func (s *Storage) writeMembers(ctx context.Context, boardID string, members []string) error {
	type memberUpdate struct {
		aztables.Entity
		Members string `json:"Members"`
	}
	data, err := json.Marshal(members)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(memberUpdate{Entity: rowEntity(boardID), Members: string(data)})
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.boardTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		return mapTableError(err, domain.ErrNotFound)
	}
	return nil
}

func (s *Storage) addMembershipRow(ctx context.Context, userID, boardID string) error {
	payload, err := json.Marshal(membershipEntity{Entity: aztables.Entity{PartitionKey: userID, RowKey: boardID}})
	if err != nil {
		return err
	}
	if _, err := s.membershipTable.UpsertEntity(ctx, payload, nil); err != nil {
		return mapTableError(err, domain.ErrNotFound)
	}
	return nil
}

// UpsertUser creates or refreshes the user directory row.
func (s *Storage) UpsertUser(ctx context.Context, u domain.User) error {
	payload, err := json.Marshal(userEntity{Entity: rowEntity(u.ID), Name: u.Name, Email: u.Email})
	if err != nil {
		return err
	}
	_, err = s.userTable.UpsertEntity(ctx, payload, nil)
	return err
}

// FindUserByEmail looks a user up by email address.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	filter := "Email eq '" + email + "'"
	pager := s.userTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return domain.User{}, err
		}
		for _, e := range resp.Entities {
			var ent userEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return domain.User{}, err
			}
			return domain.User{ID: ent.RowKey, Name: ent.Name, Email: ent.Email}, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

// User retrieves a user by id.
func (s *Storage) User(ctx context.Context, userID string) (domain.User, error) {
	resp, err := s.userTable.GetEntity(ctx, userID, userID, nil)
	if err != nil {
		return domain.User{}, mapTableError(err, domain.ErrNotFound)
	}
	var ent userEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: ent.RowKey, Name: ent.Name, Email: ent.Email}, nil
}

// ListLists returns the board's lists sorted by position.
func (s *Storage) ListLists(ctx context.Context, boardID string) ([]domain.List, error) {
	filter := "BoardId eq '" + boardID + "'"
	pager := s.listTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	lists := []domain.List{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent listEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			lists = append(lists, domain.List{ID: ent.RowKey, BoardID: ent.BoardID, Title: ent.Title, Position: ent.Position})
		}
	}
	sortLists(lists)
	return lists, nil
}

// ListCards returns the list's cards sorted by position.
func (s *Storage) ListCards(ctx context.Context, listID string) ([]domain.Card, error) {
	filter := "ListId eq '" + listID + "'"
	pager := s.cardTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	cards := []domain.Card{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent cardEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			cards = append(cards, domain.Card{
				ID:          ent.RowKey,
				ListID:      ent.ListID,
				BoardID:     ent.BoardID,
				Title:       ent.Title,
				Description: ent.Description,
				Position:    ent.Position,
			})
		}
	}
	sortCards(cards)
	return cards, nil
}

// CreateList appends a list at the given position.
func (s *Storage) CreateList(ctx context.Context, boardID, title string, position int) (domain.List, error) {
	l := domain.List{ID: uuid.NewString(), BoardID: boardID, Title: title, Position: position}
	payload, err := json.Marshal(listEntity{Entity: rowEntity(l.ID), BoardID: boardID, Title: title, Position: position})
	if err != nil {
		return domain.List{}, err
	}
	if _, err := s.listTable.AddEntity(ctx, payload, nil); err != nil {
		return domain.List{}, mapTableError(err, domain.ErrNotFound)
	}
	return l, nil
}

// CreateCard appends a card at the given position.
func (s *Storage) CreateCard(ctx context.Context, listID, boardID, title, description string, position int) (domain.Card, error) {
	c := domain.Card{ID: uuid.NewString(), ListID: listID, BoardID: boardID, Title: title, Description: description, Position: position}
	payload, err := json.Marshal(cardEntity{
		Entity:      rowEntity(c.ID),
		ListID:      listID,
		BoardID:     boardID,
		Title:       title,
		Description: description,
		Position:    position,
	})
	if err != nil {
		return domain.Card{}, err
	}
	if _, err := s.cardTable.AddEntity(ctx, payload, nil); err != nil {
		return domain.Card{}, mapTableError(err, domain.ErrNotFound)
	}
	return c, nil
}

// List retrieves a single list.
func (s *Storage) List(ctx context.Context, listID string) (domain.List, error) {
	resp, err := s.listTable.GetEntity(ctx, listID, listID, nil)
	if err != nil {
		return domain.List{}, mapTableError(err, domain.ErrNotFound)
	}
	var ent listEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.List{}, err
	}
	return domain.List{ID: ent.RowKey, BoardID: ent.BoardID, Title: ent.Title, Position: ent.Position}, nil
}

// Card retrieves a single card.
func (s *Storage) Card(ctx context.Context, cardID string) (domain.Card, error) {
	resp, err := s.cardTable.GetEntity(ctx, cardID, cardID, nil)
	if err != nil {
		return domain.Card{}, mapTableError(err, domain.ErrNotFound)
	}
	var ent cardEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Card{}, err
	}
	return domain.Card{
		ID:          ent.RowKey,
		ListID:      ent.ListID,
		BoardID:     ent.BoardID,
		Title:       ent.Title,
		Description: ent.Description,
		Position:    ent.Position,
	}, nil
}

// DeleteCard removes the card and renumbers the remaining siblings
// densely.
func (s *Storage) DeleteCard(ctx context.Context, cardID string) (domain.Card, error) {
	c, err := s.Card(ctx, cardID)
	if err != nil {
		return domain.Card{}, err
	}
	if _, err := s.cardTable.DeleteEntity(ctx, cardID, cardID, nil); err != nil {
		return domain.Card{}, mapTableError(err, domain.ErrNotFound)
	}
	if err := s.renumberCards(ctx, c.ListID); err != nil {
		return domain.Card{}, err
	}
	return c, nil
}

// DeleteList removes the list, its cards, and renumbers the board's
// remaining lists densely.
func (s *Storage) DeleteList(ctx context.Context, listID string) (domain.List, error) {
	l, err := s.List(ctx, listID)
	if err != nil {
		return domain.List{}, err
	}
	cards, err := s.ListCards(ctx, listID)
	if err != nil {
		return domain.List{}, err
	}
	for _, c := range cards {
		if _, err := s.cardTable.DeleteEntity(ctx, c.ID, c.ID, nil); err != nil {
			if mapped := mapTableError(err, domain.ErrNotFound); !errors.Is(mapped, domain.ErrNotFound) {
				return domain.List{}, mapped
			}
		}
	}
	if _, err := s.listTable.DeleteEntity(ctx, listID, listID, nil); err != nil {
		return domain.List{}, mapTableError(err, domain.ErrNotFound)
	}
	if err := s.renumberLists(ctx, l.BoardID); err != nil {
		return domain.List{}, err
	}
	return l, nil
}

// DeleteBoard removes the board, its lists and cards, and every
// membership row pointing at it.
func (s *Storage) DeleteBoard(ctx context.Context, boardID string) (domain.Board, error) {
	board, err := s.Board(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	lists, err := s.ListLists(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	for _, l := range lists {
		if _, err := s.DeleteList(ctx, l.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.Board{}, err
		}
	}
	for _, userID := range board.Observers() {
		if _, err := s.membershipTable.DeleteEntity(ctx, userID, boardID, nil); err != nil {
			if mapped := mapTableError(err, domain.ErrNotFound); !errors.Is(mapped, domain.ErrNotFound) {
				return domain.Board{}, mapped
			}
		}
	}
	if _, err := s.boardTable.DeleteEntity(ctx, boardID, boardID, nil); err != nil {
		return domain.Board{}, mapTableError(err, domain.ErrNotFound)
	}
	return board, nil
}

func (s *Storage) renumberCards(ctx context.Context, listID string) error {
	cards, err := s.ListCards(ctx, listID)
	if err != nil {
		return err
	}
	items := make([]domain.Item, len(cards))
	for i, c := range cards {
		items[i] = domain.Item{ID: c.ID, ContainerID: listID, BoardID: c.BoardID, Position: c.Position}
	}
	return s.writePositions(ctx, domain.KindList, domain.Renumber(items))
}

func (s *Storage) renumberLists(ctx context.Context, boardID string) error {
	lists, err := s.ListLists(ctx, boardID)
	if err != nil {
		return err
	}
	items := make([]domain.Item, len(lists))
	for i, l := range lists {
		items[i] = domain.Item{ID: l.ID, ContainerID: boardID, BoardID: boardID, Position: l.Position}
	}
	return s.writePositions(ctx, domain.KindBoard, domain.Renumber(items))
}

// RecordActivity enqueues one activity feed entry for the external
// consumer.
func (s *Storage) RecordActivity(ctx context.Context, a domain.Activity) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = s.activityQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}

func sortLists(lists []domain.List) {
	sort.Slice(lists, func(i, j int) bool {
		if lists[i].Position != lists[j].Position {
			return lists[i].Position < lists[j].Position
		}
		return lists[i].ID < lists[j].ID
	})
}

func sortCards(cards []domain.Card) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Position != cards[j].Position {
			return cards[i].Position < cards[j].Position
		}
		return cards[i].ID < cards[j].ID
	})
}
