package domain

// ContainerKind distinguishes the two ordered-container shapes: a board
// ordering its lists, and a list ordering its cards.
type ContainerKind string

const (
	KindBoard ContainerKind = "board"
	KindList  ContainerKind = "list"
)

// Container is an ordered holder of items. BoardID is the board the
// container ultimately belongs to; for a board container it equals ID.
// Seq increments on every committed structural change and backs the
// optimistic concurrency check in ApplyMove. ETag carries the storage
// row version when the backend provides one.
type Container struct {
	ID      string
	Kind    ContainerKind
	BoardID string
	Seq     int64
	ETag    string
}

// Item is a list or a card as seen by the repositioning engine. Cards keep
// the board back-reference so a move never needs a join to find its board.
type Item struct {
	ID          string
	ContainerID string
	BoardID     string
	Position    int
}

// User identifies a principal. Credential storage and token issuance live
// outside this service; only the directory fields are needed here.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Board groups ordered lists and carries the membership relation.
type Board struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Image        string   `json:"image,omitempty"`
	Organization string   `json:"organization"`
	Owner        string   `json:"owner"`
	Members      []string `json:"members"`
}

// Observers returns every user entitled to the board's channel.
func (b Board) Observers() []string {
	out := make([]string, 0, len(b.Members)+1)
	out = append(out, b.Owner)
	for _, m := range b.Members {
		if m != b.Owner {
			out = append(out, m)
		}
	}
	return out
}

// HasObserver reports whether the user is the owner or a member.
func (b Board) HasObserver(userID string) bool {
	if userID == b.Owner {
		return true
	}
	for _, m := range b.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// List is an ordered container of cards positioned within its board.
type List struct {
	ID       string `json:"id"`
	BoardID  string `json:"boardId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// Card is positioned within its list and stores both parent references.
type Card struct {
	ID          string `json:"id"`
	ListID      string `json:"listId"`
	BoardID     string `json:"boardId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Position    int    `json:"position"`
}

// Activity is one entry of the board activity feed. Entries are enqueued
// for an external consumer; this service never reads them back.
type Activity struct {
	UserID       string `json:"userId"`
	Organization string `json:"organization,omitempty"`
	BoardID      string `json:"boardId"`
	Action       string `json:"action"`
	Details      string `json:"details,omitempty"`
	Time         int64  `json:"time"`
}
