package domain

// MoveIntent is a client's request to relocate an item. The source container
// is part of the request so a move computed against stale client state is
// rejected instead of silently applied.
type MoveIntent struct {
	ItemID                 string `json:"itemId"`
	SourceContainerID      string `json:"sourceContainerId"`
	DestinationContainerID string `json:"destinationContainerId"`
	DestinationIndex       int    `json:"destinationIndex"`
}

// MoveCommit is the full write set of one move, applied atomically by a
// ContainerStore. Item already carries its new container, board and
// position. The embedded containers hold the Seq/ETag snapshot the plan was
// computed against; a store must reject the commit with
// ErrConcurrencyConflict when either container has advanced since.
type MoveCommit struct {
	Item          Item
	Source        Container
	Dest          Container
	SourceUpdates []ItemPosition
	DestUpdates   []ItemPosition
}

// ContainerChange describes the position assignments one container received
// from a committed move.
type ContainerChange struct {
	ContainerID string         `json:"containerId"`
	Kind        ContainerKind  `json:"kind"`
	BoardID     string         `json:"boardId"`
	Items       []ItemPosition `json:"items,omitempty"`
}

// MoveResult is returned by a successful (or no-op) move. Dest.Items always
// contains the moved item's assignment unless the move was a no-op;
// Source.Items is populated only for cross-container moves.
type MoveResult struct {
	Item    Item
	Source  ContainerChange
	Dest    ContainerChange
	NoOp    bool
	Retries int
}

// BoardIDs returns the distinct boards affected by the move, destination
// first.
func (r MoveResult) BoardIDs() []string {
	if r.Source.BoardID == "" || r.Source.BoardID == r.Dest.BoardID {
		return []string{r.Dest.BoardID}
	}
	return []string{r.Dest.BoardID, r.Source.BoardID}
}
