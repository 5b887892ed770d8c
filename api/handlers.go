package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Tayyab2344/Trello/domain"
)

// requestBodyMaxSize caps request bodies well above any legitimate payload.
const requestBodyMaxSize = 1 << 20

// defaultListTitles seed a board's lists on the first read of an empty board.
var defaultListTitles = [...]string{"Todo", "In Progress", "Done"}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, access Access, mover Mover, fanout Fanout, auth Authenticator, logger *log.Logger) {
	e.GET("/api/boards", getBoards(store, auth))
	e.POST("/api/boards", postBoard(store, fanout, auth))
	e.GET("/api/boards/:boardID", getBoard(store, access, auth))
	e.DELETE("/api/boards/:boardID", deleteBoard(store, fanout, auth))
	e.POST("/api/boards/:boardID/members", postMember(store, access, fanout, auth))
	e.DELETE("/api/boards/:boardID/members/:memberID", deleteMember(store, fanout, auth))
	e.GET("/api/boards/:boardID/lists", getLists(store, access, auth))
	e.POST("/api/boards/:boardID/lists", postList(store, access, auth))
	e.POST("/api/lists/:listID/move", moveList(store, mover, fanout, auth, logger))
	e.DELETE("/api/lists/:listID", deleteList(store, access, auth))
	e.GET("/api/lists/:listID/cards", getCards(store, access, auth))
	e.POST("/api/lists/:listID/cards", postCard(store, access, auth))
	e.POST("/api/cards/:cardID/move", moveCard(mover, fanout, auth, logger))
	e.DELETE("/api/cards/:cardID", deleteCard(store, access, auth))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrContainerNotFound),
		errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStaleMoveRequest),
		errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c echo.Context, err error) error {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
		return c.String(status, "internal error")
	}
	return c.String(status, err.Error())
}

func requireMember(c echo.Context, access Access, userID, boardID string) error {
	ok, err := access.CanAccess(c.Request().Context(), userID, boardID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return nil
}

func recordActivity(c echo.Context, store Storage, userID, boardID, action, details string) {
	a := domain.Activity{
		UserID:  userID,
		BoardID: boardID,
		Action:  action,
		Details: details,
		Time:    time.Now().UnixMilli(),
	}
	if err := store.RecordActivity(c.Request().Context(), a); err != nil {
		c.Logger().Warnf("record activity: %v", err)
	}
}

func getBoards(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		boards, err := store.BoardsFor(c.Request().Context(), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, boards)
	}
}

type createBoardRequest struct {
	Title        string `json:"title"`
	Image        string `json:"image"`
	Organization string `json:"organization"`
}

func postBoard(store Storage, fanout Fanout, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req createBoardRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.Title == "" {
			return c.String(http.StatusBadRequest, "missing title")
		}

		ctx := c.Request().Context()
		board, err := store.CreateBoard(ctx, req.Title, req.Image, req.Organization, userID)
		if err != nil {
			return fail(c, err)
		}
		if err := fanout.AnnounceBoardCreated(ctx, board); err != nil {
			c.Logger().Warnf("announce board created: %v", err)
		}
		recordActivity(c, store, userID, board.ID, "board_created", board.Title)
		return c.JSON(http.StatusCreated, board)
	}
}

func getBoard(store Storage, access Access, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		boardID := c.Param("boardID")
		if err := requireMember(c, access, userID, boardID); err != nil {
			return fail(c, err)
		}
		board, err := store.Board(c.Request().Context(), boardID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func deleteBoard(store Storage, fanout Fanout, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		ctx := c.Request().Context()
		boardID := c.Param("boardID")
		board, err := store.Board(ctx, boardID)
		if err != nil {
			return fail(c, err)
		}
		if board.Owner != userID {
			return fail(c, domain.ErrUnauthorized)
		}
		if board, err = store.DeleteBoard(ctx, boardID); err != nil {
			return fail(c, err)
		}
		if err := fanout.AnnounceBoardDeleted(ctx, board); err != nil {
			c.Logger().Warnf("announce board deleted: %v", err)
		}
		recordActivity(c, store, userID, boardID, "board_deleted", board.Title)
		return c.NoContent(http.StatusNoContent)
	}
}

type addMemberRequest struct {
	Email string `json:"email"`
}

func postMember(store Storage, access Access, fanout Fanout, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		boardID := c.Param("boardID")
		if err := requireMember(c, access, userID, boardID); err != nil {
			return fail(c, err)
		}
		var req addMemberRequest
		if err := decodeBody(c, &req); err != nil || req.Email == "" {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		ctx := c.Request().Context()
		member, err := store.FindUserByEmail(ctx, req.Email)
		if err != nil {
			return fail(c, err)
		}
		board, err := store.AddMember(ctx, boardID, member.ID)
		if err != nil {
			return fail(c, err)
		}
		if err := fanout.AnnounceMemberAdded(ctx, board, member); err != nil {
			c.Logger().Warnf("announce member added: %v", err)
		}
		recordActivity(c, store, userID, boardID, "member_added", member.Email)
		return c.JSON(http.StatusOK, board)
	}
}

func deleteMember(store Storage, fanout Fanout, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		ctx := c.Request().Context()
		boardID := c.Param("boardID")
		memberID := c.Param("memberID")
		board, err := store.Board(ctx, boardID)
		if err != nil {
			return fail(c, err)
		}
		// Only the owner removes others; anyone may leave.
		if board.Owner != userID && memberID != userID {
			return fail(c, domain.ErrUnauthorized)
		}
		if memberID == board.Owner {
			return c.String(http.StatusBadRequest, "owner cannot be removed")
		}
		board, err = store.RemoveMember(ctx, boardID, memberID)
		if err != nil {
			return fail(c, err)
		}
		if err := fanout.AnnounceMemberRemoved(ctx, board, memberID); err != nil {
			c.Logger().Warnf("announce member removed: %v", err)
		}
		recordActivity(c, store, userID, boardID, "member_removed", memberID)
		return c.JSON(http.StatusOK, board)
	}
}

func getLists(store Storage, access Access, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		boardID := c.Param("boardID")
		if err := requireMember(c, access, userID, boardID); err != nil {
			return fail(c, err)
		}

		ctx := c.Request().Context()
		lists, err := store.ListLists(ctx, boardID)
		if err != nil {
			return fail(c, err)
		}
		if len(lists) == 0 {
			for i, title := range defaultListTitles {
				l, err := store.CreateList(ctx, boardID, title, i)
				if err != nil {
					return fail(c, err)
				}
				lists = append(lists, l)
			}
		}
		return c.JSON(http.StatusOK, lists)
	}
}

type createListRequest struct {
	Title string `json:"title"`
}

func postList(store Storage, access Access, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		boardID := c.Param("boardID")
		if err := requireMember(c, access, userID, boardID); err != nil {
			return fail(c, err)
		}
		var req createListRequest
		if err := decodeBody(c, &req); err != nil || req.Title == "" {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		ctx := c.Request().Context()
		existing, err := store.ListLists(ctx, boardID)
		if err != nil {
			return fail(c, err)
		}
		l, err := store.CreateList(ctx, boardID, req.Title, len(existing))
		if err != nil {
			return fail(c, err)
		}
		recordActivity(c, store, userID, boardID, "list_created", l.Title)
		return c.JSON(http.StatusCreated, l)
	}
}

func deleteList(store Storage, access Access, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		ctx := c.Request().Context()
		listID := c.Param("listID")
		l, err := store.List(ctx, listID)
		if err != nil {
			return fail(c, err)
		}
		if err := requireMember(c, access, userID, l.BoardID); err != nil {
			return fail(c, err)
		}
		if _, err := store.DeleteList(ctx, listID); err != nil {
			return fail(c, err)
		}
		recordActivity(c, store, userID, l.BoardID, "list_deleted", l.Title)
		return c.NoContent(http.StatusNoContent)
	}
}

func getCards(store Storage, access Access, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		ctx := c.Request().Context()
		listID := c.Param("listID")
		l, err := store.List(ctx, listID)
		if err != nil {
			return fail(c, err)
		}
		if err := requireMember(c, access, userID, l.BoardID); err != nil {
			return fail(c, err)
		}
		cards, err := store.ListCards(ctx, listID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, cards)
	}
}

type createCardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func postCard(store Storage, access Access, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		ctx := c.Request().Context()
		listID := c.Param("listID")
		l, err := store.List(ctx, listID)
		if err != nil {
			return fail(c, err)
		}
		if err := requireMember(c, access, userID, l.BoardID); err != nil {
			return fail(c, err)
		}
		var req createCardRequest
		if err := decodeBody(c, &req); err != nil || req.Title == "" {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		existing, err := store.ListCards(ctx, listID)
		if err != nil {
			return fail(c, err)
		}
		card, err := store.CreateCard(ctx, listID, l.BoardID, req.Title, req.Description, len(existing))
		if err != nil {
			return fail(c, err)
		}
		recordActivity(c, store, userID, l.BoardID, "card_created", card.Title)
		return c.JSON(http.StatusCreated, card)
	}
}

func deleteCard(store Storage, access Access, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		ctx := c.Request().Context()
		cardID := c.Param("cardID")
		card, err := store.Card(ctx, cardID)
		if err != nil {
			return fail(c, err)
		}
		if err := requireMember(c, access, userID, card.BoardID); err != nil {
			return fail(c, err)
		}
		if _, err := store.DeleteCard(ctx, cardID); err != nil {
			return fail(c, err)
		}
		recordActivity(c, store, userID, card.BoardID, "card_deleted", card.Title)
		return c.NoContent(http.StatusNoContent)
	}
}

type moveListRequest struct {
	DestinationIndex int `json:"destinationIndex"`
}

type moveResponse struct {
	ItemID      string `json:"itemId"`
	ContainerID string `json:"containerId"`
	Position    int    `json:"position"`
	NoOp        bool   `json:"noOp,omitempty"`
}

func moveList(store Storage, mover Mover, fanout Fanout, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newMoveRequestMetrics(logger, "/api/lists/:listID/move")
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}
		var req moveListRequest
		if decodeErr := decodeBody(c, &req); decodeErr != nil {
			metrics.SetErrorStage("decode")
			err = c.String(http.StatusBadRequest, "invalid body")
			return err
		}

		ctx := c.Request().Context()
		l, findErr := store.List(ctx, c.Param("listID"))
		if findErr != nil {
			metrics.SetErrorStage("lookup")
			err = fail(c, findErr)
			return err
		}

		moveStart := time.Now()
		res, moveErr := mover.MoveItem(ctx, userID, domain.MoveIntent{
			ItemID:                 l.ID,
			SourceContainerID:      l.BoardID,
			DestinationContainerID: l.BoardID,
			DestinationIndex:       req.DestinationIndex,
		})
		metrics.ObserveMove(time.Since(moveStart), res.Retries)
		if moveErr != nil {
			metrics.SetErrorStage("move")
			err = fail(c, moveErr)
			return err
		}
		metrics.SetNoOp(res.NoOp)

		if announceErr := fanout.AnnounceMove(ctx, res); announceErr != nil {
			c.Logger().Warnf("announce move: %v", announceErr)
		}
		recordActivity(c, store, userID, l.BoardID, "list_moved", l.Title)
		err = c.JSON(http.StatusOK, moveResponse{
			ItemID:      res.Item.ID,
			ContainerID: res.Item.ContainerID,
			Position:    res.Item.Position,
			NoOp:        res.NoOp,
		})
		return err
	}
}

type moveCardRequest struct {
	SourceListID      string `json:"sourceListId"`
	DestinationListID string `json:"destinationListId"`
	DestinationIndex  int    `json:"destinationIndex"`
}

func moveCard(mover Mover, fanout Fanout, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newMoveRequestMetrics(logger, "/api/cards/:cardID/move")
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}
		var req moveCardRequest
		if decodeErr := decodeBody(c, &req); decodeErr != nil || req.SourceListID == "" || req.DestinationListID == "" {
			metrics.SetErrorStage("decode")
			err = c.String(http.StatusBadRequest, "invalid body")
			return err
		}

		ctx := c.Request().Context()
		moveStart := time.Now()
		res, moveErr := mover.MoveItem(ctx, userID, domain.MoveIntent{
			ItemID:                 c.Param("cardID"),
			SourceContainerID:      req.SourceListID,
			DestinationContainerID: req.DestinationListID,
			DestinationIndex:       req.DestinationIndex,
		})
		metrics.ObserveMove(time.Since(moveStart), res.Retries)
		if moveErr != nil {
			metrics.SetErrorStage("move")
			err = fail(c, moveErr)
			return err
		}
		metrics.SetNoOp(res.NoOp)

		if announceErr := fanout.AnnounceMove(ctx, res); announceErr != nil {
			c.Logger().Warnf("announce move: %v", announceErr)
		}
		err = c.JSON(http.StatusOK, moveResponse{
			ItemID:      res.Item.ID,
			ContainerID: res.Item.ContainerID,
			Position:    res.Item.Position,
			NoOp:        res.NoOp,
		})
		return err
	}
}
