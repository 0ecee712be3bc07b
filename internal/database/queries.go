package database

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	createMemberQuery = "INSERT INTO room_members (room_id, account_id, joined_at) " +
		"VALUES ($1, $2, $3) RETURNING id, room_id, account_id, is_kicked, joined_at"
	eventColumns = "id, name, location, event_time, schedule, speakers, category, image_url, " +
		"latitude, longitude, capacity, tickets_sold, created_by, created_at, updated_at"
)

func (db *PgEventSphereRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, role, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, username, email, role",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		params.Role,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.Role,
	)

	return u, err
}

func (db *PgEventSphereRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, name = $4, bio = $5, "+
			"location = $6, interests = $7, updated_at = $8 "+
			"WHERE id = $1 RETURNING id, username, email, role, name, bio, location, interests",
		params.UserId,
		params.Username,
		params.PasswordHash,
		params.Name,
		params.Bio,
		params.Location,
		params.Interests,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.Role,
		&u.Name,
		&u.Bio,
		&u.Location,
		&u.Interests,
	)

	return u, err
}

func (db *PgEventSphereRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, role, name, bio, location, interests, created_at, updated_at "+
			"FROM accounts WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.Role,
		&user.Name,
		&user.Bio,
		&user.Location,
		&user.Interests,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgEventSphereRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, role FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.Role,
	)

	return user, err
}

// CreateEvent inserts the event, its chat room and the creator's member row
// in one transaction so every event has a room from the moment it exists.
func (db *PgEventSphereRepository) CreateEvent(params CreateEventParams) (Event, Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Event{}, Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res := tx.QueryRow(
		"INSERT INTO events (name, location, event_time, schedule, speakers, category, image_url, "+
			"latitude, longitude, capacity, created_by, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12) "+
			"RETURNING "+eventColumns,
		params.Name,
		params.Location,
		params.EventTime,
		params.Schedule,
		params.Speakers,
		params.Category,
		params.ImageUrl,
		params.Latitude,
		params.Longitude,
		params.Capacity,
		params.CreatedBy,
		now,
	)

	var event Event
	err = scanEvent(res, &event)
	if err != nil {
		return Event{}, Room{}, err
	}

	var room Room
	err = tx.QueryRow(
		"INSERT INTO chat_rooms (event_id, creator_id, created_at) "+
			"VALUES ($1, $2, $3) RETURNING id, event_id, creator_id, created_at",
		event.Id,
		params.CreatedBy,
		now,
	).Scan(
		&room.Id,
		&room.EventId,
		&room.CreatorId,
		&room.CreatedAt,
	)
	if err != nil {
		return Event{}, Room{}, err
	}

	_, err = tx.Exec(createMemberQuery, room.Id, params.CreatedBy, now)
	if err != nil {
		return Event{}, Room{}, err
	}

	if err = tx.Commit(); err != nil {
		return Event{}, Room{}, err
	}

	event.RoomId = room.Id
	room.EventName = event.Name
	return event, room, nil
}

func (db *PgEventSphereRepository) UpdateEvent(params UpdateEventParams) (Event, error) {
	res := db.conn.QueryRow(
		"UPDATE events SET name = $2, location = $3, event_time = $4, schedule = $5, "+
			"speakers = $6, category = $7, image_url = $8, latitude = $9, longitude = $10, "+
			"capacity = $11, updated_at = $12 WHERE id = $1 RETURNING "+eventColumns,
		params.EventId,
		params.Name,
		params.Location,
		params.EventTime,
		params.Schedule,
		params.Speakers,
		params.Category,
		params.ImageUrl,
		params.Latitude,
		params.Longitude,
		params.Capacity,
		time.Now().UTC(),
	)

	var event Event
	err := scanEvent(res, &event)
	return event, err
}

// DeleteEvent removes the event; the room, members, messages, tickets and
// favorites follow via ON DELETE CASCADE.
func (db *PgEventSphereRepository) DeleteEvent(eventId int) error {
	res, err := db.conn.Exec("DELETE FROM events WHERE id = $1", eventId)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgEventSphereRepository) GetEventById(eventId int) (Event, error) {
	row := db.conn.QueryRow(
		"SELECT e.id, e.name, e.location, e.event_time, e.schedule, e.speakers, e.category, "+
			"e.image_url, e.latitude, e.longitude, e.capacity, e.tickets_sold, e.created_by, "+
			"e.created_at, e.updated_at, COALESCE(r.id, 0) "+
			"FROM events e LEFT JOIN chat_rooms r ON r.event_id = e.id "+
			"WHERE e.id = $1 LIMIT 1",
		eventId,
	)

	var event Event
	err := row.Scan(
		&event.Id,
		&event.Name,
		&event.Location,
		&event.EventTime,
		&event.Schedule,
		&event.Speakers,
		&event.Category,
		&event.ImageUrl,
		&event.Latitude,
		&event.Longitude,
		&event.Capacity,
		&event.TicketsSold,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.UpdatedAt,
		&event.RoomId,
	)

	return event, err
}

func (db *PgEventSphereRepository) ListEvents(params ListEventsParams) ([]Event, error) {
	rows, err := db.conn.Query(
		"SELECT "+eventColumns+" FROM events "+
			"WHERE ($1 = '' OR category = $1) "+
			"AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR location ILIKE '%' || $2 || '%') "+
			"ORDER BY event_time",
		params.Category,
		params.Query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (db *PgEventSphereRepository) ListEventLocations() ([]Event, error) {
	rows, err := db.conn.Query(
		"SELECT " + eventColumns + " FROM events " +
			"WHERE latitude IS NOT NULL AND longitude IS NOT NULL ORDER BY event_time",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (db *PgEventSphereRepository) EventSalesByCreator(creatorId int, category string) ([]EventSales, error) {
	rows, err := db.conn.Query(
		"SELECT id, name, category, capacity, tickets_sold FROM events "+
			"WHERE created_by = $1 AND ($2 = '' OR category = $2) ORDER BY event_time",
		creatorId,
		category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales = make([]EventSales, 0)
	for rows.Next() {
		var s EventSales
		if err = rows.Scan(&s.EventId, &s.EventName, &s.Category, &s.Capacity, &s.TicketsSold); err != nil {
			return nil, err
		}

		sales = append(sales, s)
	}

	return sales, rows.Err()
}

func (db *PgEventSphereRepository) GetRoomById(roomId int) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT r.id, r.event_id, e.name, r.creator_id, r.created_at "+
			"FROM chat_rooms r JOIN events e ON e.id = r.event_id "+
			"WHERE r.id = $1 LIMIT 1",
		roomId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.EventId,
		&room.EventName,
		&room.CreatorId,
		&room.CreatedAt,
	)

	return room, err
}

func (db *PgEventSphereRepository) GetRoomByEventId(eventId int) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT r.id, r.event_id, e.name, r.creator_id, r.created_at "+
			"FROM chat_rooms r JOIN events e ON e.id = r.event_id "+
			"WHERE r.event_id = $1 LIMIT 1",
		eventId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.EventId,
		&room.EventName,
		&room.CreatorId,
		&room.CreatedAt,
	)

	return room, err
}

func (db *PgEventSphereRepository) GetRoomMember(roomId, accountId int) (Member, error) {
	row := db.conn.QueryRow(
		"SELECT m.id, m.room_id, m.account_id, a.username, m.is_kicked, m.joined_at "+
			"FROM room_members m JOIN accounts a ON a.id = m.account_id "+
			"WHERE m.room_id = $1 AND m.account_id = $2 LIMIT 1",
		roomId,
		accountId,
	)

	var member Member
	err := row.Scan(
		&member.Id,
		&member.RoomId,
		&member.UserId,
		&member.Username,
		&member.IsKicked,
		&member.JoinedAt,
	)

	return member, err
}

func (db *PgEventSphereRepository) CreateRoomMember(roomId, accountId int) (Member, error) {
	res := db.conn.QueryRow(
		createMemberQuery,
		roomId,
		accountId,
		time.Now().UTC(),
	)

	var member Member
	err := res.Scan(
		&member.Id,
		&member.RoomId,
		&member.UserId,
		&member.IsKicked,
		&member.JoinedAt,
	)

	return member, err
}

func (db *PgEventSphereRepository) DeleteRoomMember(roomId, accountId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM room_members WHERE room_id = $1 AND account_id = $2",
		roomId,
		accountId,
	)

	return err
}

// KickRoomMember sets the sticky kicked flag. The member row is retained so
// the member cannot rejoin.
func (db *PgEventSphereRepository) KickRoomMember(roomId, accountId int) error {
	res, err := db.conn.Exec(
		"UPDATE room_members SET is_kicked = TRUE WHERE room_id = $1 AND account_id = $2",
		roomId,
		accountId,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgEventSphereRepository) ListRoomMembers(roomId int) ([]Member, error) {
	rows, err := db.conn.Query(
		"SELECT m.id, m.room_id, m.account_id, a.username, m.is_kicked, m.joined_at "+
			"FROM room_members m JOIN accounts a ON a.id = m.account_id "+
			"WHERE m.room_id = $1 ORDER BY m.joined_at",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members = make([]Member, 0)
	for rows.Next() {
		var m Member
		if err = rows.Scan(&m.Id, &m.RoomId, &m.UserId, &m.Username, &m.IsKicked, &m.JoinedAt); err != nil {
			return nil, err
		}

		members = append(members, m)
	}

	return members, rows.Err()
}

func (db *PgEventSphereRepository) CreateMessage(msg Message) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO chat_messages (room_id, account_id, content, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, room_id, account_id, content, created_at",
		msg.RoomId,
		msg.UserId,
		msg.Content,
		msg.CreatedAt,
	)

	var saved Message
	err := res.Scan(
		&saved.Id,
		&saved.RoomId,
		&saved.UserId,
		&saved.Content,
		&saved.CreatedAt,
	)

	return saved, err
}

// GetMessages returns the room's most recent messages in ascending
// timestamp order.
func (db *PgEventSphereRepository) GetMessages(roomId, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(
		"SELECT id, room_id, account_id, username, content, created_at FROM ("+
			"SELECT m.id, m.room_id, m.account_id, a.username, m.content, m.created_at "+
			"FROM chat_messages m JOIN accounts a ON a.id = m.account_id "+
			"WHERE m.room_id = $1 ORDER BY m.created_at DESC, m.id DESC LIMIT $2"+
			") latest ORDER BY created_at, id",
		roomId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.RoomId, &msg.UserId, &msg.Username, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgEventSphereRepository) CreateNotification(params CreateNotificationParams) (Notification, error) {
	res := db.conn.QueryRow(
		"INSERT INTO notifications (account_id, title, sub_title, message, msg_type, url_link, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) "+
			"RETURNING id, account_id, title, sub_title, message, msg_type, url_link, is_read, created_at",
		params.UserId,
		params.Title,
		params.SubTitle,
		params.Message,
		params.MsgType,
		params.UrlLink,
		time.Now().UTC(),
	)

	var notif Notification
	err := res.Scan(
		&notif.Id,
		&notif.UserId,
		&notif.Title,
		&notif.SubTitle,
		&notif.Message,
		&notif.MsgType,
		&notif.UrlLink,
		&notif.IsRead,
		&notif.CreatedAt,
	)

	return notif, err
}

func (db *PgEventSphereRepository) ListNotifications(accountId int, unreadOnly bool) ([]Notification, error) {
	rows, err := db.conn.Query(
		"SELECT id, account_id, title, sub_title, message, msg_type, url_link, is_read, created_at "+
			"FROM notifications WHERE account_id = $1 AND ($2 = FALSE OR is_read = FALSE) "+
			"ORDER BY created_at DESC",
		accountId,
		unreadOnly,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs = make([]Notification, 0)
	for rows.Next() {
		var n Notification
		err = rows.Scan(&n.Id, &n.UserId, &n.Title, &n.SubTitle, &n.Message, &n.MsgType, &n.UrlLink, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, err
		}

		notifs = append(notifs, n)
	}

	return notifs, rows.Err()
}

func (db *PgEventSphereRepository) MarkNotificationRead(accountId, notificationId int) error {
	res, err := db.conn.Exec(
		"UPDATE notifications SET is_read = TRUE WHERE id = $1 AND account_id = $2",
		notificationId,
		accountId,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgEventSphereRepository) MarkAllNotificationsRead(accountId int) error {
	_, err := db.conn.Exec(
		"UPDATE notifications SET is_read = TRUE WHERE account_id = $1 AND is_read = FALSE",
		accountId,
	)

	return err
}

// PurchaseTicket decrements remaining capacity and inserts the ticket row in
// one transaction. The conditional UPDATE serializes concurrent purchases at
// the row level; if no row matches, capacity was insufficient.
func (db *PgEventSphereRepository) PurchaseTicket(params PurchaseTicketParams) (Ticket, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Ticket{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.Exec(
		"UPDATE events SET tickets_sold = tickets_sold + $2, updated_at = $3 "+
			"WHERE id = $1 AND tickets_sold + $2 <= capacity",
		params.EventId,
		params.Quantity,
		time.Now().UTC(),
	)
	if err != nil {
		return Ticket{}, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return Ticket{}, err
	}
	if n == 0 {
		err = ErrInsufficientCapacity
		return Ticket{}, err
	}

	var ticket Ticket
	err = tx.QueryRow(
		"INSERT INTO tickets (account_id, event_id, email, phone_number, quantity, reference, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) "+
			"RETURNING id, account_id, event_id, email, phone_number, quantity, reference, created_at",
		params.UserId,
		params.EventId,
		params.Email,
		params.PhoneNumber,
		params.Quantity,
		params.Reference,
		time.Now().UTC(),
	).Scan(
		&ticket.Id,
		&ticket.UserId,
		&ticket.EventId,
		&ticket.Email,
		&ticket.PhoneNumber,
		&ticket.Quantity,
		&ticket.Reference,
		&ticket.CreatedAt,
	)
	if err != nil {
		return Ticket{}, err
	}

	if err = tx.Commit(); err != nil {
		return Ticket{}, err
	}

	return ticket, nil
}

func (db *PgEventSphereRepository) ListTicketsByAccount(accountId int) ([]Ticket, error) {
	rows, err := db.conn.Query(
		"SELECT t.id, t.account_id, t.event_id, e.name, t.email, t.phone_number, t.quantity, "+
			"t.reference, t.created_at "+
			"FROM tickets t JOIN events e ON e.id = t.event_id "+
			"WHERE t.account_id = $1 ORDER BY t.created_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets = make([]Ticket, 0)
	for rows.Next() {
		var t Ticket
		err = rows.Scan(&t.Id, &t.UserId, &t.EventId, &t.EventName, &t.Email, &t.PhoneNumber, &t.Quantity, &t.Reference, &t.CreatedAt)
		if err != nil {
			return nil, err
		}

		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

func (db *PgEventSphereRepository) GetTicketSummary(accountId, eventId int) (TicketSummary, error) {
	row := db.conn.QueryRow(
		"SELECT t.event_id, e.name, SUM(t.quantity), MIN(t.reference) "+
			"FROM tickets t JOIN events e ON e.id = t.event_id "+
			"WHERE t.account_id = $1 AND t.event_id = $2 "+
			"GROUP BY t.event_id, e.name",
		accountId,
		eventId,
	)

	var summary TicketSummary
	err := row.Scan(
		&summary.EventId,
		&summary.EventName,
		&summary.TotalQuantity,
		&summary.Reference,
	)

	return summary, err
}

func (db *PgEventSphereRepository) HasTicket(accountId, eventId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM tickets WHERE account_id = $1 AND event_id = $2 AND quantity > 0)",
		accountId,
		eventId,
	)

	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

func (db *PgEventSphereRepository) AddFavorite(accountId, eventId int) (Favorite, error) {
	res := db.conn.QueryRow(
		"INSERT INTO favorites (account_id, event_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (account_id, event_id) DO UPDATE SET account_id = EXCLUDED.account_id "+
			"RETURNING id, account_id, event_id, created_at",
		accountId,
		eventId,
		time.Now().UTC(),
	)

	var fav Favorite
	err := res.Scan(
		&fav.Id,
		&fav.UserId,
		&fav.EventId,
		&fav.CreatedAt,
	)

	return fav, err
}

func (db *PgEventSphereRepository) RemoveFavorite(accountId, eventId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM favorites WHERE account_id = $1 AND event_id = $2",
		accountId,
		eventId,
	)

	return err
}

func (db *PgEventSphereRepository) ListFavorites(accountId int) ([]Favorite, error) {
	rows, err := db.conn.Query(
		"SELECT f.id, f.account_id, f.event_id, f.created_at, "+
			"e.id, e.name, e.location, e.event_time, e.schedule, e.speakers, e.category, "+
			"e.image_url, e.latitude, e.longitude, e.capacity, e.tickets_sold, e.created_by, "+
			"e.created_at, e.updated_at "+
			"FROM favorites f JOIN events e ON e.id = f.event_id "+
			"WHERE f.account_id = $1 ORDER BY f.created_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favs = make([]Favorite, 0)
	for rows.Next() {
		var f Favorite
		err = rows.Scan(
			&f.Id,
			&f.UserId,
			&f.EventId,
			&f.CreatedAt,
			&f.Event.Id,
			&f.Event.Name,
			&f.Event.Location,
			&f.Event.EventTime,
			&f.Event.Schedule,
			&f.Event.Speakers,
			&f.Event.Category,
			&f.Event.ImageUrl,
			&f.Event.Latitude,
			&f.Event.Longitude,
			&f.Event.Capacity,
			&f.Event.TicketsSold,
			&f.Event.CreatedBy,
			&f.Event.CreatedAt,
			&f.Event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		favs = append(favs, f)
	}

	return favs, rows.Err()
}

func scanEvent(row *sql.Row, event *Event) error {
	return row.Scan(
		&event.Id,
		&event.Name,
		&event.Location,
		&event.EventTime,
		&event.Schedule,
		&event.Speakers,
		&event.Category,
		&event.ImageUrl,
		&event.Latitude,
		&event.Longitude,
		&event.Capacity,
		&event.TicketsSold,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
}

func collectEvents(rows *sql.Rows) ([]Event, error) {
	var events = make([]Event, 0)
	for rows.Next() {
		var e Event
		err := rows.Scan(
			&e.Id,
			&e.Name,
			&e.Location,
			&e.EventTime,
			&e.Schedule,
			&e.Speakers,
			&e.Category,
			&e.ImageUrl,
			&e.Latitude,
			&e.Longitude,
			&e.Capacity,
			&e.TicketsSold,
			&e.CreatedBy,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		events = append(events, e)
	}

	return events, rows.Err()
}
