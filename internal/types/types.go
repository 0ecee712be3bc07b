package types

import (
	"time"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Role         Role      `json:"role,omitempty"`
	Password     string    `json:"-"`
	Name         string    `json:"name,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Location     string    `json:"location,omitempty"`
	Interests    string    `json:"interests,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Event struct {
	Id          int       `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	EventTime   time.Time `json:"event_time"`
	Schedule    string    `json:"schedule,omitempty"`
	Speakers    string    `json:"speakers,omitempty"`
	Category    string    `json:"category,omitempty"`
	ImageUrl    string    `json:"image_url,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Capacity    int       `json:"capacity"`
	TicketsSold int       `json:"tickets_sold"`
	TicketsLeft int       `json:"tickets_left"`
	CreatedBy   int       `json:"created_by"`
	RoomId      int       `json:"room_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

type Room struct {
	Id        int       `json:"id"`
	EventId   int       `json:"event_id"`
	EventName string    `json:"event_name,omitempty"`
	CreatorId int       `json:"creator_id"`
	Members   []Member  `json:"members,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Member struct {
	Id       int       `json:"id"`
	RoomId   int       `json:"room_id"`
	UserId   int       `json:"user_id"`
	Username string    `json:"username,omitempty"`
	IsKicked bool      `json:"is_kicked"`
	JoinedAt time.Time `json:"joined_at,omitempty"`
}

type Message struct {
	Id        int       `json:"id"`
	RoomId    int       `json:"room_id"`
	UserId    int       `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Notification struct {
	Id        int       `json:"id"`
	UserId    int       `json:"-"`
	Title     string    `json:"title"`
	SubTitle  string    `json:"sub_title"`
	Message   string    `json:"message"`
	MsgType   string    `json:"msg_type"`
	UrlLink   string    `json:"url_link"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Ticket struct {
	Id          int       `json:"id"`
	UserId      int       `json:"user_id"`
	EventId     int       `json:"event_id"`
	EventName   string    `json:"event_name,omitempty"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Quantity    int       `json:"quantity"`
	Reference   string    `json:"reference"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type Favorite struct {
	Id        int       `json:"id"`
	EventId   int       `json:"event_id"`
	Event     *Event    `json:"event,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// EventSales is a creator dashboard aggregate for a single event.
type EventSales struct {
	EventId     int    `json:"event_id"`
	EventName   string `json:"event_name"`
	Category    string `json:"category,omitempty"`
	Capacity    int    `json:"capacity"`
	TicketsSold int    `json:"tickets_sold"`
	TicketsLeft int    `json:"tickets_left"`
}
