package database

import (
	"github.com/stretchr/testify/mock"
)

type MockEventSphereRepository struct {
	mock.Mock
}

func (m *MockEventSphereRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockEventSphereRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockEventSphereRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockEventSphereRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockEventSphereRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockEventSphereRepository) CreateEvent(params CreateEventParams) (Event, Room, error) {
	args := m.Called(params)
	return args.Get(0).(Event), args.Get(1).(Room), args.Error(2)
}
func (m *MockEventSphereRepository) UpdateEvent(params UpdateEventParams) (Event, error) {
	args := m.Called(params)
	return args.Get(0).(Event), args.Error(1)
}
func (m *MockEventSphereRepository) DeleteEvent(eventId int) error {
	args := m.Called(eventId)
	return args.Error(0)
}
func (m *MockEventSphereRepository) GetEventById(eventId int) (Event, error) {
	args := m.Called(eventId)
	return args.Get(0).(Event), args.Error(1)
}
func (m *MockEventSphereRepository) ListEvents(params ListEventsParams) ([]Event, error) {
	args := m.Called(params)
	return args.Get(0).([]Event), args.Error(1)
}
func (m *MockEventSphereRepository) ListEventLocations() ([]Event, error) {
	args := m.Called()
	return args.Get(0).([]Event), args.Error(1)
}
func (m *MockEventSphereRepository) EventSalesByCreator(creatorId int, category string) ([]EventSales, error) {
	args := m.Called(creatorId, category)
	return args.Get(0).([]EventSales), args.Error(1)
}
func (m *MockEventSphereRepository) GetRoomById(roomId int) (Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockEventSphereRepository) GetRoomByEventId(eventId int) (Room, error) {
	args := m.Called(eventId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockEventSphereRepository) GetRoomMember(roomId, accountId int) (Member, error) {
	args := m.Called(roomId, accountId)
	return args.Get(0).(Member), args.Error(1)
}
func (m *MockEventSphereRepository) CreateRoomMember(roomId, accountId int) (Member, error) {
	args := m.Called(roomId, accountId)
	return args.Get(0).(Member), args.Error(1)
}
func (m *MockEventSphereRepository) DeleteRoomMember(roomId, accountId int) error {
	args := m.Called(roomId, accountId)
	return args.Error(0)
}
func (m *MockEventSphereRepository) KickRoomMember(roomId, accountId int) error {
	args := m.Called(roomId, accountId)
	return args.Error(0)
}
func (m *MockEventSphereRepository) ListRoomMembers(roomId int) ([]Member, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Member), args.Error(1)
}
func (m *MockEventSphereRepository) CreateMessage(msg Message) (Message, error) {
	args := m.Called(msg)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockEventSphereRepository) GetMessages(roomId, limit int) ([]Message, error) {
	args := m.Called(roomId, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockEventSphereRepository) CreateNotification(params CreateNotificationParams) (Notification, error) {
	args := m.Called(params)
	return args.Get(0).(Notification), args.Error(1)
}
func (m *MockEventSphereRepository) ListNotifications(accountId int, unreadOnly bool) ([]Notification, error) {
	args := m.Called(accountId, unreadOnly)
	return args.Get(0).([]Notification), args.Error(1)
}
func (m *MockEventSphereRepository) MarkNotificationRead(accountId, notificationId int) error {
	args := m.Called(accountId, notificationId)
	return args.Error(0)
}
func (m *MockEventSphereRepository) MarkAllNotificationsRead(accountId int) error {
	args := m.Called(accountId)
	return args.Error(0)
}
func (m *MockEventSphereRepository) PurchaseTicket(params PurchaseTicketParams) (Ticket, error) {
	args := m.Called(params)
	return args.Get(0).(Ticket), args.Error(1)
}
func (m *MockEventSphereRepository) ListTicketsByAccount(accountId int) ([]Ticket, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Ticket), args.Error(1)
}
func (m *MockEventSphereRepository) GetTicketSummary(accountId, eventId int) (TicketSummary, error) {
	args := m.Called(accountId, eventId)
	return args.Get(0).(TicketSummary), args.Error(1)
}
func (m *MockEventSphereRepository) HasTicket(accountId, eventId int) (bool, error) {
	args := m.Called(accountId, eventId)
	return args.Bool(0), args.Error(1)
}
func (m *MockEventSphereRepository) AddFavorite(accountId, eventId int) (Favorite, error) {
	args := m.Called(accountId, eventId)
	return args.Get(0).(Favorite), args.Error(1)
}
func (m *MockEventSphereRepository) RemoveFavorite(accountId, eventId int) error {
	args := m.Called(accountId, eventId)
	return args.Error(0)
}
func (m *MockEventSphereRepository) ListFavorites(accountId int) ([]Favorite, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Favorite), args.Error(1)
}
