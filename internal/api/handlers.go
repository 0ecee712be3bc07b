package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/eventsphere/eventsphere/internal/database"
	"github.com/eventsphere/eventsphere/internal/stats"
	"github.com/eventsphere/eventsphere/internal/stream"
	"github.com/eventsphere/eventsphere/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateAccountRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	Interests string `json:"interests"`
}

type EventRequest struct {
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	EventTime time.Time `json:"event_time"`
	Schedule  string    `json:"schedule"`
	Speakers  string    `json:"speakers"`
	Category  string    `json:"category"`
	ImageUrl  string    `json:"image_url"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Capacity  int       `json:"capacity"`
}

type PurchaseTicketRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Quantity    int    `json:"quantity"`
}

func (s *EventSphereApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// currentUser loads the authenticated account for the request, or returns
// the ApiError to render.
func (s *EventSphereApp) currentUser(ctx context.Context) (types.User, *ApiError) {
	userId, ok := UserId(ctx)
	if !ok {
		return types.User{}, NewUnauthorizedError()
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, NewNotFoundError()
		}
		return types.User{}, NewInternalServerError(err)
	}

	return userFromDb(user), nil
}

func pathInt(r *http.Request, name string) (int, error) {
	return strconv.Atoi(r.PathValue(name))
}

func userFromDb(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Username:     u.Username,
		EmailAddress: u.EmailAddress,
		Role:         types.Role(u.Role),
		Name:         u.Name,
		Bio:          u.Bio,
		Location:     u.Location,
		Interests:    u.Interests,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func eventFromDb(e database.Event) types.Event {
	left := e.Capacity - e.TicketsSold
	if left < 0 {
		left = 0
	}

	return types.Event{
		Id:          e.Id,
		Name:        e.Name,
		Location:    e.Location,
		EventTime:   e.EventTime,
		Schedule:    e.Schedule,
		Speakers:    e.Speakers,
		Category:    e.Category,
		ImageUrl:    e.ImageUrl,
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
		Capacity:    e.Capacity,
		TicketsSold: e.TicketsSold,
		TicketsLeft: left,
		CreatedBy:   e.CreatedBy,
		RoomId:      e.RoomId,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (s *EventSphereApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	role := types.Role(req.Role)
	switch role {
	case "":
		role = types.RoleUser
	case types.RoleUser, types.RoleCreator:
	default:
		// admin accounts are provisioned out of band
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
		Role:         string(role),
	}

	newUser, err := s.db.CreateAccount(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, userFromDb(newUser))
}

func (s *EventSphereApp) account(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		user, errResp := s.currentUser(r.Context())
		if errResp != nil {
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, user)
	case http.MethodPut:
		curUser, errResp := s.currentUser(r.Context())
		if errResp != nil {
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		var req UpdateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if req.Username == "" || req.Password == "" {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		pwdHash, err := hashPassword(req.Password)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		dbUser, err := s.db.UpdateAccount(database.UpdateAccountParams{
			UserId:       curUser.Id,
			Username:     req.Username,
			PasswordHash: pwdHash,
			Name:         req.Name,
			Bio:          req.Bio,
			Location:     req.Location,
			Interests:    req.Interests,
		})
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, userFromDb(dbUser))
	default:
		errResp := NewMethodNotAllowedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *EventSphereApp) session(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *EventSphereApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createJwtForSession(dbUser.Id, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, userFromDb(dbUser))
}

func (s *EventSphereApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *EventSphereApp) listEvents(w http.ResponseWriter, r *http.Request) {
	dbEvents, err := s.db.ListEvents(database.ListEventsParams{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	events := make([]types.Event, 0, len(dbEvents))
	for _, e := range dbEvents {
		events = append(events, eventFromDb(e))
	}

	s.writeJson(w, http.StatusOK, events)
}

func (s *EventSphereApp) eventLocations(w http.ResponseWriter, _ *http.Request) {
	dbEvents, err := s.db.ListEventLocations()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	events := make([]types.Event, 0, len(dbEvents))
	for _, e := range dbEvents {
		events = append(events, eventFromDb(e))
	}

	s.writeJson(w, http.StatusOK, events)
}

func (s *EventSphereApp) getEvent(w http.ResponseWriter, r *http.Request) {
	eventId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbEvent, err := s.db.GetEventById(eventId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, eventFromDb(dbEvent))
}

func (s *EventSphereApp) createEvent(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if user.Role != types.RoleCreator && user.Role != types.RoleAdmin {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" || req.Location == "" || req.EventTime.IsZero() || req.Capacity < 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// event + chat room + creator membership commit together
	dbEvent, _, err := s.db.CreateEvent(database.CreateEventParams{
		Name:      req.Name,
		Location:  req.Location,
		EventTime: req.EventTime,
		Schedule:  req.Schedule,
		Speakers:  req.Speakers,
		Category:  req.Category,
		ImageUrl:  req.ImageUrl,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Capacity:  req.Capacity,
		CreatedBy: user.Id,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, eventFromDb(dbEvent))
}

func (s *EventSphereApp) updateEvent(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	eventId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbEvent, err := s.db.GetEventById(eventId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if dbEvent.CreatedBy != user.Id && user.Role != types.RoleAdmin {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" || req.Location == "" || req.EventTime.IsZero() || req.Capacity < 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updated, err := s.db.UpdateEvent(database.UpdateEventParams{
		EventId:   eventId,
		Name:      req.Name,
		Location:  req.Location,
		EventTime: req.EventTime,
		Schedule:  req.Schedule,
		Speakers:  req.Speakers,
		Category:  req.Category,
		ImageUrl:  req.ImageUrl,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Capacity:  req.Capacity,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, eventFromDb(updated))
}

func (s *EventSphereApp) deleteEvent(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	eventId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbEvent, err := s.db.GetEventById(eventId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if dbEvent.CreatedBy != user.Id && user.Role != types.RoleAdmin {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteEvent(eventId); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *EventSphereApp) eventQRCode(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	eventId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	summary, err := s.db.GetTicketSummary(user.Id, eventId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeJson(w, http.StatusNotFound, map[string]string{"error": "No tickets found for this event."})
			return
		}
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	qrData := fmt.Sprintf("User: %s\nEvent: %s\nTotal Tickets: %d\nReference: %s",
		user.Username, summary.EventName, summary.TotalQuantity, summary.Reference)

	png, err := qrcode.Encode(qrData, qrcode.Medium, 256)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (s *EventSphereApp) purchaseTicket(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	eventId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbEvent, err := s.db.GetEventById(eventId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req PurchaseTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Email == "" || req.Quantity <= 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	reference, err := s.generateShortId()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	ticket, err := s.db.PurchaseTicket(database.PurchaseTicketParams{
		UserId:      user.Id,
		EventId:     eventId,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Quantity:    req.Quantity,
		Reference:   reference,
	})
	if err != nil {
		if errors.Is(err, database.ErrInsufficientCapacity) {
			s.writeJson(w, http.StatusConflict, map[string]string{"error": "Not enough tickets available!"})
			return
		}
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.stats.Add(stats.TicketsSold, ticket.Quantity)

	if err := s.sales.Record(r.Context(), stream.TicketSale{
		EventId:   eventId,
		EventName: dbEvent.Name,
		UserId:    user.Id,
		Quantity:  ticket.Quantity,
		Reference: ticket.Reference,
		SoldAt:    ticket.CreatedAt,
	}); err != nil {
		// the sale is committed; the analytics stream is best effort
		s.log.Printf("record ticket sale: %v", err)
	}

	s.writeJson(w, http.StatusCreated, types.Ticket{
		Id:          ticket.Id,
		UserId:      ticket.UserId,
		EventId:     ticket.EventId,
		EventName:   dbEvent.Name,
		Email:       ticket.Email,
		PhoneNumber: ticket.PhoneNumber,
		Quantity:    ticket.Quantity,
		Reference:   ticket.Reference,
		CreatedAt:   ticket.CreatedAt,
	})
}

func (s *EventSphereApp) listTickets(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbTickets, err := s.db.ListTicketsByAccount(user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	tickets := make([]types.Ticket, 0, len(dbTickets))
	for _, t := range dbTickets {
		tickets = append(tickets, types.Ticket{
			Id:          t.Id,
			UserId:      t.UserId,
			EventId:     t.EventId,
			EventName:   t.EventName,
			Email:       t.Email,
			PhoneNumber: t.PhoneNumber,
			Quantity:    t.Quantity,
			Reference:   t.Reference,
			CreatedAt:   t.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, tickets)
}

func (s *EventSphereApp) addFavorite(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	eventId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetEventById(eventId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	fav, err := s.db.AddFavorite(user.Id, eventId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.Favorite{
		Id:        fav.Id,
		EventId:   fav.EventId,
		CreatedAt: fav.CreatedAt,
	})
}

func (s *EventSphereApp) removeFavorite(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	eventId, err := pathInt(r, "id")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.RemoveFavorite(user.Id, eventId); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *EventSphereApp) listFavorites(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbFavs, err := s.db.ListFavorites(user.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	favs := make([]types.Favorite, 0, len(dbFavs))
	for _, f := range dbFavs {
		event := eventFromDb(f.Event)
		favs = append(favs, types.Favorite{
			Id:        f.Id,
			EventId:   f.EventId,
			Event:     &event,
			CreatedAt: f.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, favs)
}

func (s *EventSphereApp) creatorDashboard(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r.Context())
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if user.Role != types.RoleCreator && user.Role != types.RoleAdmin {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbSales, err := s.db.EventSalesByCreator(user.Id, r.URL.Query().Get("category"))
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sales := make([]types.EventSales, 0, len(dbSales))
	for _, es := range dbSales {
		left := es.Capacity - es.TicketsSold
		if left < 0 {
			left = 0
		}
		sales = append(sales, types.EventSales{
			EventId:     es.EventId,
			EventName:   es.EventName,
			Category:    es.Category,
			Capacity:    es.Capacity,
			TicketsSold: es.TicketsSold,
			TicketsLeft: left,
		})
	}

	s.writeJson(w, http.StatusOK, sales)
}
