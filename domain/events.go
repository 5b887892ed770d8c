package domain

// Client-facing event names. boardNotification and newBoardAdded keep the
// names the web client already listens for.
const (
	EventBoardNotification = "boardNotification"
	EventNewBoardAdded     = "newBoardAdded"
	EventUserTyping        = "userTyping"
	EventOrderChanged      = "orderChanged"
)

// boardNotification / newBoardAdded subtypes.
const (
	NotifyMemberAdded        = "member_added"
	NotifyBoardCreated       = "board_created"
	NotifyMemberRemoved      = "member_removed"
	NotifyBoardDeleted       = "board_deleted"
	NotifyBoardAccessGranted = "board_access_granted"
)

// Event is one broadcast delivered to subscribed connections. Only the
// fields relevant to the event name are set.
type Event struct {
	Name    string           `json:"name"`
	Type    string           `json:"type,omitempty"`
	Message string           `json:"message,omitempty"`
	Board   *Board           `json:"board,omitempty"`
	Member  *User            `json:"member,omitempty"`
	Reorder *ContainerChange `json:"reorder,omitempty"`
	Typing  *TypingData      `json:"typing,omitempty"`
}

// TypingData is an ephemeral typing indicator, relayed and never persisted.
type TypingData struct {
	BoardID  string `json:"boardId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

// Envelope is the fanout bus message: one event bound for one channel.
// SubscribeUser asks every instance to join that user's live connections to
// the channel before delivery, which is how a freshly added member starts
// observing a board without reconnecting.
// UnsubscribeUser is the inverse: the user's connections leave the channel
// after delivery.
type Envelope struct {
	Channel         string `json:"channel"`
	SubscribeUser   string `json:"subscribeUser,omitempty"`
	UnsubscribeUser string `json:"unsubscribeUser,omitempty"`
	Event           Event  `json:"event"`
}
