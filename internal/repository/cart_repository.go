package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/model"
)

// CartRepo stores cart lines.  A line belongs to exactly one owner: an
// authenticated user (user_id) or an anonymous session (session_id).
type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

const cartColumns = `id, user_id, session_id, ticket_id, quantity, visit_date, note, created_at, updated_at`

// ownerClause returns the WHERE fragment and argument selecting rows owned
// by id.  An invalid identity matches nothing since ids start at 1.
func ownerClause(id model.Identity) (string, any) {
	if uid, ok := id.UserID(); ok {
		return "user_id = ?", uid
	}
	if tok, ok := id.SessionToken(); ok {
		return "session_id = ?", tok
	}
	return "id = ?", uint64(0)
}

func scanCartLine(row interface{ Scan(...any) error }) (*model.CartLine, error) {
	var (
		l       model.CartLine
		userID  sql.NullInt64
		session sql.NullString
		visit   sql.NullTime
		note    sql.NullString
	)
	if err := row.Scan(&l.ID, &userID, &session, &l.TicketID, &l.Quantity, &visit, &note,
		&l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	if userID.Valid {
		uid := uint64(userID.Int64)
		l.UserID = &uid
	}
	l.SessionID = stringPtr(session)
	l.VisitDate = timePtr(visit)
	l.Note = stringPtr(note)
	return &l, nil
}

func ownerArgs(l *model.CartLine) (any, any) {
	var uid, sid any
	if l.UserID != nil {
		uid = *l.UserID
	}
	if l.SessionID != nil {
		sid = *l.SessionID
	}
	return uid, sid
}

// GetByID returns the cart line or ErrNotFound.
func (r *CartRepo) GetByID(ctx context.Context, id uint64) (*model.CartLine, error) {
	return scanCartLine(r.db.QueryRowContext(ctx, `SELECT `+cartColumns+` FROM cart_lines WHERE id = ?`, id))
}

func findByTicket(ctx context.Context, q querier, owner model.Identity, ticketID uint64, lock bool) (*model.CartLine, error) {
	clause, arg := ownerClause(owner)
	query := fmt.Sprintf(`SELECT %s FROM cart_lines WHERE %s AND ticket_id = ? LIMIT 1`, cartColumns, clause)
	if lock {
		query += ` FOR UPDATE`
	}
	return scanCartLine(q.QueryRowContext(ctx, query, arg, ticketID))
}

// FindByTicket returns the owner's line for a ticket or ErrNotFound.
func (r *CartRepo) FindByTicket(ctx context.Context, owner model.Identity, ticketID uint64) (*model.CartLine, error) {
	return findByTicket(ctx, r.db, owner, ticketID, false)
}

// FindByTicketTx is FindByTicket with a row lock.
func (r *CartRepo) FindByTicketTx(ctx context.Context, tx *sql.Tx, owner model.Identity, ticketID uint64) (*model.CartLine, error) {
	return findByTicket(ctx, tx, owner, ticketID, true)
}

// Create inserts a line and fills in its ID.  A second line for the same
// owner and ticket violates a unique key and yields ErrDuplicate.
func (r *CartRepo) Create(ctx context.Context, l *model.CartLine) error {
	uid, sid := ownerArgs(l)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cart_lines (user_id, session_id, ticket_id, quantity, visit_date, note) VALUES (?, ?, ?, ?, ?, ?)`,
		uid, sid, l.TicketID, l.Quantity, l.VisitDate, nullString(l.Note))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

func updateLine(ctx context.Context, q querier, l *model.CartLine) error {
	res, err := q.ExecContext(ctx,
		`UPDATE cart_lines SET quantity = ?, visit_date = ?, note = ? WHERE id = ?`,
		l.Quantity, l.VisitDate, nullString(l.Note), l.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports zero when the values are unchanged; confirm existence.
		var one int
		if err := q.QueryRowContext(ctx, `SELECT 1 FROM cart_lines WHERE id = ?`, l.ID).Scan(&one); err != nil {
			return notFound(err)
		}
	}
	return nil
}

// Update writes quantity, visit date and note of an existing line.
func (r *CartRepo) Update(ctx context.Context, l *model.CartLine) error {
	return updateLine(ctx, r.db, l)
}

func (r *CartRepo) UpdateTx(ctx context.Context, tx *sql.Tx, l *model.CartLine) error {
	return updateLine(ctx, tx, l)
}

// Delete removes a single line.
func (r *CartRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByOwner clears the owner's cart and returns the number of lines removed.
func (r *CartRepo) DeleteByOwner(ctx context.Context, owner model.Identity) (int64, error) {
	clause, arg := ownerClause(owner)
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE `+clause, arg)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListViews returns the owner's lines joined with the current ticket name,
// price and active flag, oldest first.
func (r *CartRepo) ListViews(ctx context.Context, owner model.Identity) ([]model.CartLineView, error) {
	clause, arg := ownerClause(owner)
	query := `SELECT c.id, c.user_id, c.session_id, c.ticket_id, c.quantity, c.visit_date, c.note,
	                 c.created_at, c.updated_at, t.name, t.price, t.is_active
	          FROM cart_lines c
	          JOIN tickets t ON t.id = c.ticket_id
	          WHERE c.` + clause + `
	          ORDER BY c.created_at, c.id`
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var views []model.CartLineView
	for rows.Next() {
		var (
			v       model.CartLineView
			userID  sql.NullInt64
			session sql.NullString
			visit   sql.NullTime
			note    sql.NullString
		)
		if err := rows.Scan(&v.ID, &userID, &session, &v.TicketID, &v.Quantity, &visit, &note,
			&v.CreatedAt, &v.UpdatedAt, &v.TicketName, &v.UnitPrice, &v.IsActive); err != nil {
			return nil, err
		}
		if userID.Valid {
			uid := uint64(userID.Int64)
			v.UserID = &uid
		}
		v.SessionID = stringPtr(session)
		v.VisitDate = timePtr(visit)
		v.Note = stringPtr(note)
		v.Subtotal = v.UnitPrice * int64(v.Quantity)
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListByOwnerTx returns and locks the owner's lines ordered by id.
func (r *CartRepo) ListByOwnerTx(ctx context.Context, tx *sql.Tx, owner model.Identity) ([]model.CartLine, error) {
	clause, arg := ownerClause(owner)
	rows, err := tx.QueryContext(ctx, `SELECT `+cartColumns+` FROM cart_lines WHERE `+clause+` ORDER BY id FOR UPDATE`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []model.CartLine
	for rows.Next() {
		l, err := scanCartLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *l)
	}
	return lines, rows.Err()
}

// ReassignTx moves a line to a new owner.
func (r *CartRepo) ReassignTx(ctx context.Context, tx *sql.Tx, lineID uint64, owner model.Identity) error {
	var l model.CartLine
	l.SetOwner(owner)
	uid, sid := ownerArgs(&l)
	_, err := tx.ExecContext(ctx, `UPDATE cart_lines SET user_id = ?, session_id = ? WHERE id = ?`, uid, sid, lineID)
	return err
}

// DeleteManyTx removes the given lines.  Passing no ids has no effect.
func (r *CartRepo) DeleteManyTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	return err
}
