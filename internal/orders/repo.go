package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrEmptyOrder     = errors.New("order has no items")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct{ DB DB }

// CreateOrder upserts the user, inserts the order and its lines in one
// transaction. Any failure rolls everything back, the user row included.
//
// With a non-empty ExternalID an earlier order of the same user with the same
// key is returned instead (existed=true).
func (r *Repo) CreateOrder(ctx context.Context, o NewOrder) (orderID string, existed bool, err error) {
	if len(o.Items) == 0 {
		return "", false, ErrEmptyOrder
	}
	if o.ExternalID != "" {
		id, found, err := r.orderIDByExternalID(ctx, o.User.ID, o.ExternalID)
		if err != nil {
			return "", false, err
		}
		if found {
			return id, true, nil
		}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    updated_at = now()`,
		o.User.ID, nullable(o.User.Username), o.User.FirstName, nullable(o.User.LastName),
	)
	if err != nil {
		return "", false, fmt.Errorf("upsert user: %w", err)
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, external_id, total_price, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id`,
		o.User.ID, nullable(o.ExternalID), o.TotalPrice,
	).Scan(&id)
	if err != nil {
		if o.ExternalID != "" && isUniqueViolation(err) {
			// A concurrent checkout with the same key committed first.
			_ = tx.Rollback(ctx)
			if prior, found, lerr := r.orderIDByExternalID(ctx, o.User.ID, o.ExternalID); lerr == nil && found {
				return prior, true, nil
			}
		}
		return "", false, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, menu_item_id, quantity, price)
			VALUES ($1, $2, $3, $4)`,
			id, it.MenuItemID, it.Quantity, it.Price,
		)
		if err != nil {
			return "", false, fmt.Errorf("insert order item %s: %w", it.MenuItemID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return "", false, fmt.Errorf("commit order: %w", err)
	}
	return strconv.FormatInt(id, 10), false, nil
}

// orderIDByExternalID only matches orders of the given user.
func (r *Repo) orderIDByExternalID(ctx context.Context, userID int64, externalID string) (string, bool, error) {
	var id int64
	err := r.DB.QueryRow(ctx,
		`SELECT id FROM orders WHERE user_id = $1 AND external_id = $2`, userID, externalID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return strconv.FormatInt(id, 10), true, nil
}

func (r *Repo) GetOrderStatus(ctx context.Context, orderID string) (Status, error) {
	id, ok := parseID(orderID)
	if !ok {
		return "", ErrOrderNotFound
	}
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

// GetOrderByID returns nil, nil when the order does not exist.
func (r *Repo) GetOrderByID(ctx context.Context, orderID string) (*OrderDetail, error) {
	id, ok := parseID(orderID)
	if !ok {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.user_id, o.total_price, o.status, o.created_at, o.updated_at,
		       COALESCE(u.username, ''), u.first_name, COALESCE(u.last_name, ''), u.created_at, u.updated_at,
		       oi.menu_item_id, oi.quantity, oi.price, COALESCE(mi.name, oi.menu_item_id), mi.price
		FROM orders o
		JOIN users u ON u.id = o.user_id
		JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN menu_items mi ON mi.id = oi.menu_item_id
		WHERE o.id = $1
		ORDER BY oi.id`, id)
	if err != nil {
		return nil, err
	}
	details, err := collectDetails(rows)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, nil
	}
	return &details[0], nil
}

// ListOrders pages over all orders, newest first, optionally by status.
func (r *Repo) ListOrders(ctx context.Context, f ListFilter) ([]OrderDetail, error) {
	rows, err := r.DB.Query(ctx, `
		WITH page AS (
			SELECT id FROM orders
			WHERE ($1 = '' OR status = $1)
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3
		)
		SELECT o.id, o.user_id, o.total_price, o.status, o.created_at, o.updated_at,
		       COALESCE(u.username, ''), u.first_name, COALESCE(u.last_name, ''), u.created_at, u.updated_at,
		       oi.menu_item_id, oi.quantity, oi.price, COALESCE(mi.name, oi.menu_item_id), mi.price
		FROM page p
		JOIN orders o ON o.id = p.id
		JOIN users u ON u.id = o.user_id
		JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN menu_items mi ON mi.id = oi.menu_item_id
		ORDER BY o.created_at DESC, o.id DESC, oi.id`,
		string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

// GetUserOrders loads the newest orders of a user with their lines in one
// round trip and groups rows by order id.
func (r *Repo) GetUserOrders(ctx context.Context, userID int64, limit int) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		WITH recent AS (
			SELECT id, user_id, total_price, status, created_at, updated_at
			FROM orders
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		)
		SELECT r.id, r.user_id, r.total_price, r.status, r.created_at, r.updated_at,
		       oi.menu_item_id, oi.quantity, oi.price, COALESCE(mi.name, oi.menu_item_id), mi.price
		FROM recent r
		JOIN order_items oi ON oi.order_id = r.id
		LEFT JOIN menu_items mi ON mi.id = oi.menu_item_id
		ORDER BY r.created_at DESC, r.id DESC, oi.id`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var (
			o      Order
			it     OrderItem
			status string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalPrice, &status, &o.CreatedAt, &o.UpdatedAt,
			&it.MenuItemID, &it.Quantity, &it.Price, &it.Name, &it.CurrentPrice); err != nil {
			return nil, err
		}
		o.Status = Status(status)
		it.OrderID = o.ID
		it.Subtotal = it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		if n := len(out); n > 0 && out[n-1].ID == o.ID {
			out[n-1].Items = append(out[n-1].Items, it)
			continue
		}
		o.Items = []OrderItem{it}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateOrderStatus moves an order from one status to another. It only
// succeeds when the stored status still equals from.
func (r *Repo) UpdateOrderStatus(ctx context.Context, orderID string, from, to Status) error {
	id, ok := parseID(orderID)
	if !ok {
		return ErrOrderNotFound
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrStatusConflict
	}
	return nil
}

func (r *Repo) GetOrderStats(ctx context.Context, topN int) (Stats, error) {
	st := Stats{ByStatus: make(map[Status]int64, len(Statuses))}
	for _, s := range Statuses {
		st.ByStatus[s] = 0
	}

	rows, err := r.DB.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return Stats{}, err
	}
	for rows.Next() {
		var (
			s string
			n int64
		)
		if err := rows.Scan(&s, &n); err != nil {
			rows.Close()
			return Stats{}, err
		}
		st.ByStatus[Status(s)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	err = r.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_price), 0),
		       COUNT(*) FILTER (WHERE created_at >= date_trunc('day', now())),
		       COALESCE(SUM(total_price) FILTER (WHERE created_at >= date_trunc('day', now())), 0)
		FROM orders`).Scan(&st.TotalOrders, &st.TotalRevenue, &st.TodayOrders, &st.TodayRevenue)
	if err != nil {
		return Stats{}, err
	}
	st.AverageOrderValue = decimal.Zero
	if st.TotalOrders > 0 {
		st.AverageOrderValue = st.TotalRevenue.Div(decimal.NewFromInt(st.TotalOrders)).Round(2)
	}

	rows, err = r.DB.Query(ctx, `
		SELECT oi.menu_item_id, COALESCE(mi.name, oi.menu_item_id), SUM(oi.quantity) AS qty
		FROM order_items oi
		LEFT JOIN menu_items mi ON mi.id = oi.menu_item_id
		GROUP BY oi.menu_item_id, mi.name
		ORDER BY qty DESC, oi.menu_item_id
		LIMIT $1`, topN)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	st.TopItems = []TopItem{}
	for rows.Next() {
		var ti TopItem
		if err := rows.Scan(&ti.MenuItemID, &ti.Name, &ti.Quantity); err != nil {
			return Stats{}, err
		}
		st.TopItems = append(st.TopItems, ti)
	}
	return st, rows.Err()
}

// GetUserStats derives per-user figures from orders at read time.
func (r *Repo) GetUserStats(ctx context.Context, userID int64) (UserStats, error) {
	us := UserStats{UserID: userID}
	var last *time.Time
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_price), 0), MAX(created_at)
		FROM orders WHERE user_id = $1`, userID).Scan(&us.OrdersCount, &us.TotalSpent, &last)
	if err != nil {
		return UserStats{}, err
	}
	us.LastOrderDate = last
	return us, nil
}

// collectDetails groups joined order/user/item rows, keeping row order.
func collectDetails(rows pgx.Rows) ([]OrderDetail, error) {
	defer rows.Close()
	out := []OrderDetail{}
	for rows.Next() {
		var (
			d      OrderDetail
			it     OrderItem
			status string
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.TotalPrice, &status, &d.CreatedAt, &d.UpdatedAt,
			&d.User.Username, &d.User.FirstName, &d.User.LastName, &d.User.CreatedAt, &d.User.UpdatedAt,
			&it.MenuItemID, &it.Quantity, &it.Price, &it.Name, &it.CurrentPrice); err != nil {
			return nil, err
		}
		d.Status = Status(status)
		d.User.ID = d.UserID
		it.OrderID = d.ID
		it.Subtotal = it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		if n := len(out); n > 0 && out[n-1].ID == d.ID {
			out[n-1].Items = append(out[n-1].Items, it)
			continue
		}
		d.Items = []OrderItem{it}
		out = append(out, d)
	}
	return out, rows.Err()
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
