package portfolio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"portfolio-tracker/models"
)

var (
	// ErrInvalidTransaction is returned when a transaction fails input validation
	ErrInvalidTransaction = errors.New("invalid transaction")
	// ErrInsufficientShares is returned when a sell exceeds the shares held
	ErrInsufficientShares = errors.New("not enough shares to sell")
)

// maxHistory bounds the in-memory activity log
const maxHistory = 200

// Book is the authoritative, concurrency-safe list of positions
type Book struct {
	mu        sync.RWMutex
	positions []models.Position
	history   []models.TransactionRecord
}

// NewBook creates a book holding the given positions
func NewBook(seed []models.Position) *Book {
	b := &Book{}
	b.positions = normalize(seed)
	return b
}

// Positions returns a copy of the positions in insertion order
func (b *Book) Positions() []models.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Position, len(b.positions))
	copy(out, b.positions)
	return out
}

// Len returns the number of open positions
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.positions)
}

// Get returns the position for a ticker
func (b *Book) Get(ticker string) (models.Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if i := b.indexOf(models.NormalizeTicker(ticker)); i >= 0 {
		return b.positions[i], true
	}
	return models.Position{}, false
}

// Tickers returns the held tickers in insertion order
func (b *Book) Tickers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tickers := make([]string, len(b.positions))
	for i, p := range b.positions {
		tickers[i] = p.Ticker
	}
	return tickers
}

// Validate checks a transaction without applying it
func Validate(tx models.Transaction) error {
	if models.NormalizeTicker(tx.Ticker) == "" {
		return fmt.Errorf("%w: ticker is required", ErrInvalidTransaction)
	}
	if !tx.Side.Valid() {
		return fmt.Errorf("%w: side must be buy or sell, got %q", ErrInvalidTransaction, tx.Side)
	}
	if !tx.Shares.IsPositive() {
		return fmt.Errorf("%w: shares must be positive", ErrInvalidTransaction)
	}
	if tx.Side == models.TradeSideBuy && !tx.Price.IsPositive() {
		return fmt.Errorf("%w: buy price must be positive", ErrInvalidTransaction)
	}
	if tx.Side == models.TradeSideSell && tx.Price.IsNegative() {
		return fmt.Errorf("%w: sell price cannot be negative", ErrInvalidTransaction)
	}
	return nil
}

// Apply executes a buy or sell against the book.
// A buy of a held ticker re-weights the average cost; a buy of a new ticker opens
// a position at the fill price. A sell never changes average cost and removes the
// position once no shares remain. On error the book is unchanged.
func (b *Book) Apply(tx models.Transaction) (*models.TransactionRecord, error) {
	if err := Validate(tx); err != nil {
		return nil, err
	}
	tx.Ticker = models.NormalizeTicker(tx.Ticker)

	b.mu.Lock()
	defer b.mu.Unlock()

	record := models.NewTransactionRecord(tx)
	now := record.ExecutedAt
	i := b.indexOf(tx.Ticker)

	switch tx.Side {
	case models.TradeSideBuy:
		if i < 0 {
			pos := models.NewPosition(tx.Ticker, tx.Shares, tx.Price,
				models.DefaultCategory, models.DefaultSector, models.DefaultMarketCap)
			b.positions = append(b.positions, pos)
			record.SharesAfter = pos.Shares
			record.AvgCostAfter = pos.AvgCost
			break
		}
		pos := &b.positions[i]
		pos.AvgCost = weightedAverage(pos.Shares, pos.AvgCost, tx.Shares, tx.Price)
		pos.Shares = pos.Shares.Add(tx.Shares)
		pos.UpdatedAt = now
		record.SharesAfter = pos.Shares
		record.AvgCostAfter = pos.AvgCost

	case models.TradeSideSell:
		if i < 0 || b.positions[i].Shares.LessThan(tx.Shares) {
			return nil, ErrInsufficientShares
		}
		pos := &b.positions[i]
		record.RealizedPL = tx.Price.Sub(pos.AvgCost).Mul(tx.Shares)
		record.AvgCostAfter = pos.AvgCost
		pos.Shares = pos.Shares.Sub(tx.Shares)
		pos.UpdatedAt = now
		record.SharesAfter = pos.Shares
		if !pos.Shares.IsPositive() {
			b.positions = append(b.positions[:i], b.positions[i+1:]...)
		}
	}

	b.history = append(b.history, *record)
	if len(b.history) > maxHistory {
		b.history = b.history[len(b.history)-maxHistory:]
	}

	return record, nil
}

// Replace swaps the whole position list, as done by a spreadsheet upload
func (b *Book) Replace(positions []models.Position) {
	next := normalize(positions)

	b.mu.Lock()
	b.positions = next
	b.mu.Unlock()
}

// History returns applied transactions, most recent first. A limit <= 0 returns all.
func (b *Book) History(limit int) []models.TransactionRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.TransactionRecord, 0, n)
	for i := len(b.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, b.history[i])
	}
	return out
}

// RestoreHistory seeds the activity log, oldest first, e.g. from the database
func (b *Book) RestoreHistory(records []models.TransactionRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append([]models.TransactionRecord(nil), records...)
	if len(b.history) > maxHistory {
		b.history = b.history[len(b.history)-maxHistory:]
	}
}

func (b *Book) indexOf(ticker string) int {
	for i := range b.positions {
		if b.positions[i].Ticker == ticker {
			return i
		}
	}
	return -1
}

// normalize upper-cases tickers, fills IDs and timestamps, drops empty rows and
// merges repeated tickers at their share-weighted average cost
func normalize(in []models.Position) []models.Position {
	now := time.Now()
	out := make([]models.Position, 0, len(in))
	index := make(map[string]int, len(in))

	for _, p := range in {
		p.Ticker = models.NormalizeTicker(p.Ticker)
		if p.Ticker == "" || !p.Shares.IsPositive() {
			continue
		}
		if j, ok := index[p.Ticker]; ok {
			existing := &out[j]
			existing.AvgCost = weightedAverage(existing.Shares, existing.AvgCost, p.Shares, p.AvgCost)
			existing.Shares = existing.Shares.Add(p.Shares)
			continue
		}
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		index[p.Ticker] = len(out)
		out = append(out, p)
	}
	return out
}

// weightedAverage returns (s1×p1 + s2×p2) / (s1+s2)
func weightedAverage(s1, p1, s2, p2 decimal.Decimal) decimal.Decimal {
	total := s1.Add(s2)
	if total.IsZero() {
		return decimal.Zero
	}
	return s1.Mul(p1).Add(s2.Mul(p2)).Div(total)
}
