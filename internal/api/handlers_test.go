package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/eventsphere/eventsphere/internal/broker"
	"github.com/eventsphere/eventsphere/internal/chat"
	"github.com/eventsphere/eventsphere/internal/config"
	"github.com/eventsphere/eventsphere/internal/database"
	"github.com/eventsphere/eventsphere/internal/stats"
	"github.com/eventsphere/eventsphere/internal/testutil"
	"github.com/eventsphere/eventsphere/internal/types"
)

func newTestApp(t *testing.T, mockRepo *database.MockEventSphereRepository) *EventSphereApp {
	t.Helper()

	logger := testutil.TestLogger(t)
	b := broker.NewMemoryBroker()
	chatSvc := chat.NewService(mockRepo, b, stats.NopStats{}, logger)
	cs := chat.NewChatServer(logger)

	return NewEventSphereApp(http.NewServeMux(), logger, cs, chatSvc, mockRepo, b, nil, stats.NopStats{}, &config.Config{
		ServerAddr: "localhost:8000",
		SigningKey: []byte("test-signing-key"),
	})
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	assert.NoError(t, json.NewEncoder(buf).Encode(v))
	return buf
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "successful health check",
			mockErr: nil,
		},
		{
			name:    "failed health check",
			mockErr: errors.New("db error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockEventSphereRepository{}
			defer mockRepo.AssertExpectations(t)

			mockRepo.On("Ping").Return(tc.mockErr).Once()
			app := newTestApp(t, mockRepo)

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			app.healthCheck(rr, req)

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code)
			} else {
				assert.Equal(t, http.StatusOK, rr.Code)
				assert.Equal(t, "OK", rr.Body.String())
			}
		})
	}
}

func TestCreateAccountHandler(t *testing.T) {
	expectedUser := database.User{
		Id:           1,
		Username:     "newuser",
		EmailAddress: "newuser@example.com",
		PasswordHash: "hashedpassword",
		Role:         "user",
	}

	tcases := []struct {
		name         string
		body         any
		success      bool
		mockUser     database.User
		mockErr      error
		expectedCode int
	}{
		{
			name: "successfully creates a new account",
			body: RegisterRequest{
				Username: expectedUser.Username,
				Email:    expectedUser.EmailAddress,
				Password: "password",
			},
			success:      true,
			mockUser:     expectedUser,
			expectedCode: http.StatusCreated,
		},
		{
			name: "creator role is accepted",
			body: RegisterRequest{
				Username: expectedUser.Username,
				Email:    expectedUser.EmailAddress,
				Password: "password",
				Role:     "creator",
			},
			success:      true,
			mockUser:     expectedUser,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "fails with invalid json body",
			body:         "invalid json",
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "fails with missing username",
			body: RegisterRequest{
				Email:    expectedUser.EmailAddress,
				Password: "password",
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "fails with admin role",
			body: RegisterRequest{
				Username: expectedUser.Username,
				Email:    expectedUser.EmailAddress,
				Password: "password",
				Role:     "admin",
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "fails with db error",
			body: RegisterRequest{
				Username: expectedUser.Username,
				Email:    expectedUser.EmailAddress,
				Password: "password",
			},
			success:      true,
			mockErr:      errors.New("db error"),
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockEventSphereRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.success {
				mockRepo.On("CreateAccount", mock.AnythingOfType("database.CreateAccountParams")).
					Return(tc.mockUser, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, tc.body))
			app.createAccount(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)

			if tc.expectedCode == http.StatusCreated {
				var user types.User
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
				assert.Equal(t, tc.mockUser.Username, user.Username)
				assert.Equal(t, tc.mockUser.EmailAddress, user.EmailAddress)
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	password := "password"
	pwdHash, err := hashPassword(password)
	assert.NoError(t, err)

	dbUser := database.User{
		Id:           1,
		Username:     "testuser",
		EmailAddress: "testuser@example.com",
		PasswordHash: pwdHash,
	}

	t.Run("successful login sets cookie", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountByEmail", dbUser.EmailAddress).Return(dbUser, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			jsonBody(t, LoginRequest{Email: dbUser.EmailAddress, Password: password}))
		app.login(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var tokenCookie *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == tokenCookieKey {
				tokenCookie = c
			}
		}
		assert.NotNil(t, tokenCookie, "expected token cookie to be set")
		assert.True(t, tokenCookie.HttpOnly)

		userId, err := app.extractUserIdFromToken(tokenCookie.Value)
		assert.NoError(t, err)
		assert.Equal(t, dbUser.Id, userId)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountByEmail", dbUser.EmailAddress).Return(dbUser, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			jsonBody(t, LoginRequest{Email: dbUser.EmailAddress, Password: "wrong"}))
		app.login(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountByEmail", "nope@example.com").Return(database.User{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			jsonBody(t, LoginRequest{Email: "nope@example.com", Password: password}))
		app.login(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestListEventsHandler(t *testing.T) {
	mockRepo := &database.MockEventSphereRepository{}
	defer mockRepo.AssertExpectations(t)

	mockRepo.On("ListEvents", database.ListEventsParams{Category: "tech", Query: "go"}).
		Return([]database.Event{
			{Id: 1, Name: "GopherCon", Capacity: 100, TicketsSold: 40},
		}, nil).Once()

	app := newTestApp(t, mockRepo)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events?category=tech&q=go", nil)
	app.listEvents(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var events []types.Event
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&events))
	assert.Len(t, events, 1)
	assert.Equal(t, "GopherCon", events[0].Name)
	assert.Equal(t, 60, events[0].TicketsLeft)
}

func TestCreateEventHandler(t *testing.T) {
	creator := database.User{Id: 1, Username: "carol", Role: "creator"}
	eventTime := time.Now().Add(24 * time.Hour).UTC().Round(time.Second)

	tcases := []struct {
		name         string
		user         database.User
		body         any
		mockCreate   bool
		expectedCode int
	}{
		{
			name: "creator creates an event",
			user: creator,
			body: EventRequest{
				Name:      "GopherCon",
				Location:  "Denver",
				EventTime: eventTime,
				Capacity:  100,
			},
			mockCreate:   true,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "regular user is forbidden",
			user:         database.User{Id: 2, Username: "bob", Role: "user"},
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "missing name fails validation",
			user:         creator,
			body:         EventRequest{Location: "Denver", EventTime: eventTime},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockEventSphereRepository{}
			defer mockRepo.AssertExpectations(t)

			mockRepo.On("GetAccountById", tc.user.Id).Return(tc.user, nil).Once()
			if tc.mockCreate {
				mockRepo.On("CreateEvent", mock.AnythingOfType("database.CreateEventParams")).
					Return(database.Event{Id: 10, Name: "GopherCon", Capacity: 100, RoomId: 5, CreatedBy: tc.user.Id},
						database.Room{Id: 5, EventId: 10}, nil).Once()
			}

			app := newTestApp(t, mockRepo)

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/events", jsonBody(t, tc.body))
			req = req.WithContext(WithUserId(req.Context(), tc.user.Id))
			app.createEvent(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)

			if tc.expectedCode == http.StatusCreated {
				var event types.Event
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&event))
				assert.Equal(t, 5, event.RoomId, "expected the event to carry its chat room id")
			}
		})
	}
}

func TestPurchaseTicketHandler(t *testing.T) {
	user := database.User{Id: 2, Username: "bob", Role: "user"}
	event := database.Event{Id: 10, Name: "GopherCon", Capacity: 100, TicketsSold: 99}

	t.Run("successful purchase", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", user.Id).Return(user, nil).Once()
		mockRepo.On("GetEventById", event.Id).Return(event, nil).Once()
		mockRepo.On("PurchaseTicket", mock.MatchedBy(func(p database.PurchaseTicketParams) bool {
			return p.UserId == user.Id && p.EventId == event.Id && p.Quantity == 1 && p.Reference != ""
		})).Return(database.Ticket{Id: 1, UserId: user.Id, EventId: event.Id, Email: "bob@example.com", Quantity: 1, Reference: "abc123"}, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/events/10/tickets",
			jsonBody(t, PurchaseTicketRequest{Email: "bob@example.com", Quantity: 1}))
		req.SetPathValue("id", "10")
		req = req.WithContext(WithUserId(req.Context(), user.Id))
		app.purchaseTicket(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var ticket types.Ticket
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&ticket))
		assert.Equal(t, "abc123", ticket.Reference)
		assert.Equal(t, event.Name, ticket.EventName)
	})

	t.Run("sold out event", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", user.Id).Return(user, nil).Once()
		mockRepo.On("GetEventById", event.Id).Return(event, nil).Once()
		mockRepo.On("PurchaseTicket", mock.AnythingOfType("database.PurchaseTicketParams")).
			Return(database.Ticket{}, database.ErrInsufficientCapacity).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/events/10/tickets",
			jsonBody(t, PurchaseTicketRequest{Email: "bob@example.com", Quantity: 5}))
		req.SetPathValue("id", "10")
		req = req.WithContext(WithUserId(req.Context(), user.Id))
		app.purchaseTicket(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.True(t, strings.Contains(rr.Body.String(), "Not enough tickets available!"))
	})

	t.Run("zero quantity fails validation", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", user.Id).Return(user, nil).Once()
		mockRepo.On("GetEventById", event.Id).Return(event, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/events/10/tickets",
			jsonBody(t, PurchaseTicketRequest{Email: "bob@example.com", Quantity: 0}))
		req.SetPathValue("id", "10")
		req = req.WithContext(WithUserId(req.Context(), user.Id))
		app.purchaseTicket(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestEventQRCodeHandler(t *testing.T) {
	user := database.User{Id: 2, Username: "bob", Role: "user"}

	t.Run("returns a png for a ticket holder", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", user.Id).Return(user, nil).Once()
		mockRepo.On("GetTicketSummary", user.Id, 10).Return(database.TicketSummary{
			EventId:       10,
			EventName:     "GopherCon",
			TotalQuantity: 2,
			Reference:     "abc123",
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/events/10/qr", nil)
		req.SetPathValue("id", "10")
		req = req.WithContext(WithUserId(req.Context(), user.Id))
		app.eventQRCode(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
		assert.NotEmpty(t, rr.Body.Bytes())
	})

	t.Run("no tickets", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", user.Id).Return(user, nil).Once()
		mockRepo.On("GetTicketSummary", user.Id, 10).Return(database.TicketSummary{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/events/10/qr", nil)
		req.SetPathValue("id", "10")
		req = req.WithContext(WithUserId(req.Context(), user.Id))
		app.eventQRCode(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.True(t, strings.Contains(rr.Body.String(), "No tickets found for this event."))
	})
}

func TestCreatorDashboardHandler(t *testing.T) {
	creator := database.User{Id: 1, Username: "carol", Role: "creator"}

	t.Run("creator sees sales", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", creator.Id).Return(creator, nil).Once()
		mockRepo.On("EventSalesByCreator", creator.Id, "").Return([]database.EventSales{
			{EventId: 10, EventName: "GopherCon", Capacity: 100, TicketsSold: 40},
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/creator/dashboard", nil)
		req = req.WithContext(WithUserId(req.Context(), creator.Id))
		app.creatorDashboard(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var sales []types.EventSales
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&sales))
		assert.Len(t, sales, 1)
		assert.Equal(t, 60, sales[0].TicketsLeft)
	})

	t.Run("regular user is forbidden", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		user := database.User{Id: 2, Username: "bob", Role: "user"}
		mockRepo.On("GetAccountById", user.Id).Return(user, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/creator/dashboard", nil)
		req = req.WithContext(WithUserId(req.Context(), user.Id))
		app.creatorDashboard(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestFavoriteHandlers(t *testing.T) {
	user := database.User{Id: 2, Username: "bob", Role: "user"}

	t.Run("add favorite", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", user.Id).Return(user, nil).Once()
		mockRepo.On("GetEventById", 10).Return(database.Event{Id: 10}, nil).Once()
		mockRepo.On("AddFavorite", user.Id, 10).Return(database.Favorite{Id: 1, UserId: user.Id, EventId: 10}, nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/events/10/favorite", nil)
		req.SetPathValue("id", "10")
		req = req.WithContext(WithUserId(req.Context(), user.Id))
		app.addFavorite(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("remove favorite", func(t *testing.T) {
		mockRepo := &database.MockEventSphereRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", user.Id).Return(user, nil).Once()
		mockRepo.On("RemoveFavorite", user.Id, 10).Return(nil).Once()

		app := newTestApp(t, mockRepo)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/events/10/favorite", nil)
		req.SetPathValue("id", "10")
		req = req.WithContext(WithUserId(req.Context(), user.Id))
		app.removeFavorite(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}
