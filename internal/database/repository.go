package database

import "errors"

// ErrInsufficientCapacity is returned by PurchaseTicket when the requested
// quantity exceeds the event's remaining capacity.
var ErrInsufficientCapacity = errors.New("not enough tickets available")

type EventSphereRepository interface {
	Ping() error

	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)

	// CreateEvent creates the event, its chat room and the creator's
	// member row in a single transaction.
	CreateEvent(params CreateEventParams) (Event, Room, error)
	UpdateEvent(params UpdateEventParams) (Event, error)
	DeleteEvent(eventId int) error
	GetEventById(eventId int) (Event, error)
	ListEvents(params ListEventsParams) ([]Event, error)
	ListEventLocations() ([]Event, error)
	EventSalesByCreator(creatorId int, category string) ([]EventSales, error)

	GetRoomById(roomId int) (Room, error)
	GetRoomByEventId(eventId int) (Room, error)
	GetRoomMember(roomId, accountId int) (Member, error)
	CreateRoomMember(roomId, accountId int) (Member, error)
	DeleteRoomMember(roomId, accountId int) error
	KickRoomMember(roomId, accountId int) error
	ListRoomMembers(roomId int) ([]Member, error)

	CreateMessage(msg Message) (Message, error)
	GetMessages(roomId, limit int) ([]Message, error)

	CreateNotification(params CreateNotificationParams) (Notification, error)
	ListNotifications(accountId int, unreadOnly bool) ([]Notification, error)
	MarkNotificationRead(accountId, notificationId int) error
	MarkAllNotificationsRead(accountId int) error

	PurchaseTicket(params PurchaseTicketParams) (Ticket, error)
	ListTicketsByAccount(accountId int) ([]Ticket, error)
	GetTicketSummary(accountId, eventId int) (TicketSummary, error)
	HasTicket(accountId, eventId int) (bool, error)

	AddFavorite(accountId, eventId int) (Favorite, error)
	RemoveFavorite(accountId, eventId int) error
	ListFavorites(accountId int) ([]Favorite, error)
}
