// Package mysql is the default Storage implementation, grounded on the
// teacher's internal/storage/mysql/storage.go. The teacher's copy assumed a
// storage.Tx type its own storage.Storage interface never declared; that is
// fixed here, along with matching the interface to int64-ticks-free, order
// id-keyed records the way the rest of this module represents orders.
package mysql

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/oakline-markets/matching-engine/internal/config"
	"github.com/oakline-markets/matching-engine/internal/engine"
	"github.com/oakline-markets/matching-engine/internal/storage"
	"github.com/oakline-markets/matching-engine/internal/types"
)

type mysqlTx struct {
	tx *sql.Tx
}

func (m *mysqlTx) Commit() error   { return m.tx.Commit() }
func (m *mysqlTx) Rollback() error { return m.tx.Rollback() }

type Mysql struct {
	DB *sql.DB
}

// New opens a connection pool and ensures the orders/trades tables exist.
func New(cfg *config.Config) (*Mysql, error) {
	db, err := sql.Open("mysql", cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS orders (
            order_id VARCHAR(64) PRIMARY KEY,
            owner VARCHAR(64) NOT NULL,
            symbol VARCHAR(20) NOT NULL,
            side ENUM('buy', 'sell') NOT NULL,
            type ENUM('limit', 'market', 'stop_loss') NOT NULL,
            price BIGINT,
            trigger_price BIGINT,
            quantity BIGINT NOT NULL,
            remaining BIGINT NOT NULL,
            status VARCHAR(16) NOT NULL,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
            INDEX idx_orders_symbol (symbol)
        )`,
	); err != nil {
		return nil, fmt.Errorf("failed to create 'orders' table: %w", err)
	}

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS trades (
            trade_id VARCHAR(64) PRIMARY KEY,
            symbol VARCHAR(20) NOT NULL,
            buy_order_id VARCHAR(64) NOT NULL,
            sell_order_id VARCHAR(64) NOT NULL,
            price BIGINT NOT NULL,
            quantity BIGINT NOT NULL,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            INDEX idx_trades_symbol (symbol)
        )`,
	); err != nil {
		return nil, fmt.Errorf("failed to create 'trades' table: %w", err)
	}

	return &Mysql{DB: db}, nil
}

func (m *Mysql) Begin() (storage.Tx, error) {
	tx, err := m.DB.Begin()
	if err != nil {
		return nil, err
	}
	return &mysqlTx{tx: tx}, nil
}

func execer(db *sql.DB, tx storage.Tx) interface {
	Exec(query string, args ...any) (sql.Result, error)
} {
	if tx != nil {
		return tx.(*mysqlTx).tx
	}
	return db
}

func (m *Mysql) RecordOrder(tx storage.Tx, o types.OrderView) error {
	_, err := execer(m.DB, tx).Exec(
		`INSERT INTO orders (order_id, owner, symbol, side, type, price, trigger_price, quantity, remaining, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE remaining = VALUES(remaining), status = VALUES(status)`,
		o.OrderID, o.Owner, o.Symbol, o.Side, o.Type,
		types.ToTicks(o.Price), types.ToTicks(o.TriggerPrice), o.Quantity, o.Remaining, o.Status, o.CreatedAt,
	)
	return err
}

func (m *Mysql) RecordTrade(tx storage.Tx, t types.TradeView) error {
	_, err := execer(m.DB, tx).Exec(
		`INSERT INTO trades (trade_id, symbol, buy_order_id, sell_order_id, price, quantity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, t.BuyOrderID, t.SellOrderID, types.ToTicks(t.Price), t.Quantity, t.CreatedAt,
	)
	return err
}

func (m *Mysql) UpdateOrderStatus(tx storage.Tx, orderID string, remaining int64, status types.OrderStatus) error {
	result, err := execer(m.DB, tx).Exec(
		`UPDATE orders SET remaining = ?, status = ? WHERE order_id = ?`,
		remaining, status, orderID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("order %q not found", orderID)
	}
	return nil
}

func (m *Mysql) GetOrder(orderID string) (*types.OrderView, error) {
	var o types.OrderView
	var priceTicks, triggerTicks int64
	err := m.DB.QueryRow(
		`SELECT order_id, owner, symbol, side, type, price, trigger_price, quantity, remaining, status, created_at
		 FROM orders WHERE order_id = ?`, orderID,
	).Scan(&o.OrderID, &o.Owner, &o.Symbol, &o.Side, &o.Type, &priceTicks, &triggerTicks, &o.Quantity, &o.Remaining, &o.Status, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("order %q not found", orderID)
		}
		return nil, err
	}
	o.Price = types.FromTicks(priceTicks)
	o.TriggerPrice = types.FromTicks(triggerTicks)
	return &o, nil
}

func (m *Mysql) ListOrdersBySymbol(symbol string) ([]types.OrderView, error) {
	rows, err := m.DB.Query(
		`SELECT order_id, owner, symbol, side, type, price, trigger_price, quantity, remaining, status, created_at
		 FROM orders WHERE symbol = ? ORDER BY created_at DESC`, symbol,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.OrderView
	for rows.Next() {
		var o types.OrderView
		var priceTicks, triggerTicks int64
		if err := rows.Scan(&o.OrderID, &o.Owner, &o.Symbol, &o.Side, &o.Type, &priceTicks, &triggerTicks, &o.Quantity, &o.Remaining, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Price = types.FromTicks(priceTicks)
		o.TriggerPrice = types.FromTicks(triggerTicks)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (m *Mysql) ListTradesBySymbol(symbol string) ([]types.TradeView, error) {
	return m.queryTrades(`SELECT trade_id, symbol, buy_order_id, sell_order_id, price, quantity, created_at
		FROM trades WHERE symbol = ? ORDER BY created_at DESC`, symbol)
}

func (m *Mysql) ListTradesByOwner(owner string) ([]types.TradeView, error) {
	return m.queryTrades(`SELECT t.trade_id, t.symbol, t.buy_order_id, t.sell_order_id, t.price, t.quantity, t.created_at
		FROM trades t
		JOIN orders o ON o.order_id = t.buy_order_id OR o.order_id = t.sell_order_id
		WHERE o.owner = ? ORDER BY t.created_at DESC`, owner)
}

func (m *Mysql) queryTrades(query string, arg string) ([]types.TradeView, error) {
	rows, err := m.DB.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var out []types.TradeView
	for rows.Next() {
		var t types.TradeView
		var priceTicks int64
		if err := rows.Scan(&t.TradeID, &t.Symbol, &t.BuyOrderID, &t.SellOrderID, &priceTicks, &t.Quantity, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		t.Price = types.FromTicks(priceTicks)
		out = append(out, t)
	}
	return out, rows.Err()
}

// PersistenceAdapter satisfies engine.Persistence by writing straight
// through to Mysql with no caller-managed transaction: each call is its own
// implicit transaction, matching the dispatcher's one-event-at-a-time
// write-behind usage.
type PersistenceAdapter struct {
	store *Mysql
}

func NewPersistenceAdapter(store *Mysql) *PersistenceAdapter {
	return &PersistenceAdapter{store: store}
}

func (a *PersistenceAdapter) RecordTrade(t engine.Trade) error {
	return a.store.RecordTrade(nil, types.TradeView{
		TradeID:     t.ID,
		Symbol:      t.Symbol,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Price:       types.FromTicks(t.Price),
		Quantity:    t.Qty,
		CreatedAt:   time.UnixMicro(t.Timestamp),
	})
}

func (a *PersistenceAdapter) RecordOrder(o *engine.Order) error {
	return a.store.RecordOrder(nil, types.OrderView{
		OrderID:      o.ID,
		Owner:        o.Owner,
		Symbol:       o.Symbol,
		Side:         types.OrderSide(o.Side.String()),
		Type:         types.OrderType(o.Type.String()),
		Price:        types.FromTicks(o.LimitPriceTicks),
		TriggerPrice: types.FromTicks(o.TriggerPriceTicks),
		Quantity:     o.OriginalQty,
		Remaining:    o.RemainingQty,
		Status:       types.OrderStatus(o.Status.String()),
		CreatedAt:    time.UnixMicro(o.CreatedAt),
	})
}
