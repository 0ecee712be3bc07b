package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	Role         string
	Name         string
	Bio          string
	Location     string
	Interests    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Event struct {
	Id          int
	Name        string
	Location    string
	EventTime   time.Time
	Schedule    string
	Speakers    string
	Category    string
	ImageUrl    string
	Latitude    *float64
	Longitude   *float64
	Capacity    int
	TicketsSold int
	CreatedBy   int
	RoomId      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Room struct {
	Id        int
	EventId   int
	EventName string
	CreatorId int
	CreatedAt time.Time
}

type Member struct {
	Id       int
	RoomId   int
	UserId   int
	Username string
	IsKicked bool
	JoinedAt time.Time
}

type Message struct {
	Id        int
	RoomId    int
	UserId    int
	Username  string
	Content   string
	CreatedAt time.Time
}

type Notification struct {
	Id        int
	UserId    int
	Title     string
	SubTitle  string
	Message   string
	MsgType   string
	UrlLink   string
	IsRead    bool
	CreatedAt time.Time
}

type Ticket struct {
	Id          int
	UserId      int
	EventId     int
	EventName   string
	Email       string
	PhoneNumber string
	Quantity    int
	Reference   string
	CreatedAt   time.Time
}

type Favorite struct {
	Id        int
	UserId    int
	EventId   int
	Event     Event
	CreatedAt time.Time
}

type EventSales struct {
	EventId     int
	EventName   string
	Category    string
	Capacity    int
	TicketsSold int
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
	Role         string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
	Name         string
	Bio          string
	Location     string
	Interests    string
}

type CreateEventParams struct {
	Name      string
	Location  string
	EventTime time.Time
	Schedule  string
	Speakers  string
	Category  string
	ImageUrl  string
	Latitude  *float64
	Longitude *float64
	Capacity  int
	CreatedBy int
}

type UpdateEventParams struct {
	EventId   int
	Name      string
	Location  string
	EventTime time.Time
	Schedule  string
	Speakers  string
	Category  string
	ImageUrl  string
	Latitude  *float64
	Longitude *float64
	Capacity  int
}

type ListEventsParams struct {
	Category string
	Query    string
}

type CreateNotificationParams struct {
	UserId   int
	Title    string
	SubTitle string
	Message  string
	MsgType  string
	UrlLink  string
}

type PurchaseTicketParams struct {
	UserId      int
	EventId     int
	Email       string
	PhoneNumber string
	Quantity    int
	Reference   string
}

// TicketSummary aggregates an account's tickets for one event, used by
// the QR code endpoint.
type TicketSummary struct {
	EventId       int
	EventName     string
	TotalQuantity int
	Reference     string
}
