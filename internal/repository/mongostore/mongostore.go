// Package mongostore keeps trades and the spend counter in MongoDB, in the
// "trades" and "users" collections. New documents store money as Decimal128.
// Trades and spend written by the older dashboard, with prices as plain
// numbers under price/totalPrice, are still read.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TradesCollection = "trades"
	UsersCollection  = "users"
)

type Store struct {
	db     *mongo.Database
	trades *mongo.Collection
	users  *mongo.Collection

	// Now is the clock used for trade dates and the daily buy count.
	Now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{
		db:     db,
		trades: db.Collection(TradesCollection),
		users:  db.Collection(UsersCollection),
		Now:    time.Now,
	}
}

func (s *Store) Trades() *TradeRepo { return &TradeRepo{s: s} }
func (s *Store) Spend() *SpendRepo  { return &SpendRepo{s: s} }

func (s *Store) Ping(ctx context.Context) error {
	return classify(s.db.Client().Ping(ctx, nil))
}

// EnsureIndexes creates the unique symbol index that backs the one-position-per-symbol rule.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.trades.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "symbol", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("symbol_unique"),
	})
	if err != nil {
		return fmt.Errorf("ensure indexes: %w", classify(err))
	}
	return nil
}

type tradeDoc struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	Symbol        string               `bson:"symbol"`
	Shares        int64                `bson:"shares"`
	PurchasePrice primitive.Decimal128 `bson:"purchasePrice"`
	TotalCost     primitive.Decimal128 `bson:"totalCost"`
	TradeDate     time.Time            `bson:"tradeDate"`
}

// storedTrade is the read side of tradeDoc. Legacy documents carry price
// and totalPrice as doubles instead of purchasePrice and totalCost.
type storedTrade struct {
	ID            primitive.ObjectID `bson:"_id"`
	Symbol        string             `bson:"symbol"`
	Shares        int64              `bson:"shares"`
	PurchasePrice bson.RawValue      `bson:"purchasePrice"`
	TotalCost     bson.RawValue      `bson:"totalCost"`
	Price         bson.RawValue      `bson:"price"`
	TotalPrice    bson.RawValue      `bson:"totalPrice"`
	TradeDate     time.Time          `bson:"tradeDate"`
}

type spendDoc struct {
	ID         string        `bson:"_id"`
	TotalSpent bson.RawValue `bson:"totalSpent"`
	// Buys counts buys per trading day (YYYY-MM-DD).
	Buys map[string]int64 `bson:"buys,omitempty"`
}

/* ---- trades ---- */

type TradeRepo struct{ s *Store }

func (r *TradeRepo) FindAll(ctx context.Context) ([]models.Trade, error) {
	opts := options.Find().SetSort(bson.D{{Key: "tradeDate", Value: 1}, {Key: "symbol", Value: 1}})
	cur, err := r.s.trades.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, classify(err)
	}

	var docs []storedTrade
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}

	out := make([]models.Trade, 0, len(docs))
	for _, d := range docs {
		t, err := d.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *TradeRepo) FindBySymbol(ctx context.Context, symbol string) (*models.Trade, error) {
	var d storedTrade
	err := r.s.trades.FindOne(ctx, bson.D{{Key: "symbol", Value: symbol}}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, classify(err)
	}
	t, err := d.toModel()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TradeRepo) Insert(ctx context.Context, t *models.Trade) (*models.Trade, error) {
	d, err := fromModel(t)
	if err != nil {
		return nil, err
	}
	if d.TradeDate.IsZero() {
		d.TradeDate = r.s.Now()
	}
	// Mongo stores milliseconds; truncate so the returned trade matches a re-read.
	d.TradeDate = d.TradeDate.UTC().Truncate(time.Millisecond)

	res, err := r.s.trades.InsertOne(ctx, d)
	if err != nil {
		return nil, classify(err)
	}

	out := *t
	out.TradeDate = d.TradeDate
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		out.ID = oid.Hex()
	}
	return &out, nil
}

func (r *TradeRepo) UpdateShares(ctx context.Context, id string, from, to int64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: bad trade id %q", repository.ErrWriteConflict, id)
	}

	res, err := r.s.trades.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "shares", Value: from}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "shares", Value: to}}}},
	)
	if err != nil {
		return classify(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: trade %s no longer holds %d shares", repository.ErrWriteConflict, id, from)
	}
	return nil
}

func (r *TradeRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: bad trade id %q", repository.ErrWriteConflict, id)
	}

	res, err := r.s.trades.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return classify(err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: trade %s already removed", repository.ErrWriteConflict, id)
	}
	return nil
}

/* ---- spend ---- */

type SpendRepo struct{ s *Store }

// Increment records one buy of amount. totalSpent and the current trading
// day's buy count live in the same document, so one $inc updates both.
func (r *SpendRepo) Increment(ctx context.Context, amount decimal.Decimal) error {
	inc, err := toDecimal128(amount)
	if err != nil {
		return err
	}
	day := repository.TradingDay(r.s.Now())
	_, err = r.s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: models.SpendDocumentID}},
		bson.D{{Key: "$inc", Value: bson.D{
			{Key: "totalSpent", Value: inc},
			{Key: "buys." + day, Value: int64(1)},
		}}},
		options.Update().SetUpsert(true),
	)
	return classify(err)
}

// CountToday returns how many buys were recorded during the current trading day.
func (r *SpendRepo) CountToday(ctx context.Context) (int, error) {
	d, err := r.load(ctx)
	if err != nil || d == nil {
		return 0, err
	}
	return int(d.Buys[repository.TradingDay(r.s.Now())]), nil
}

// load returns nil, nil before the first buy.
func (r *SpendRepo) load(ctx context.Context) (*spendDoc, error) {
	var d spendDoc
	err := r.s.users.FindOne(ctx, bson.D{{Key: "_id", Value: models.SpendDocumentID}}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &d, nil
}

func (r *SpendRepo) Get(ctx context.Context) (*models.AggregateSpend, error) {
	out := &models.AggregateSpend{ID: models.SpendDocumentID}

	d, err := r.load(ctx)
	if err != nil || d == nil {
		return out, err
	}

	total, _, err := decimalValue(d.TotalSpent)
	if err != nil {
		return nil, fmt.Errorf("totalSpent: %w", err)
	}
	out.TotalSpent = total
	return out, nil
}

/* ---- conversion ---- */

func fromModel(t *models.Trade) (tradeDoc, error) {
	price, err := toDecimal128(t.PurchasePrice)
	if err != nil {
		return tradeDoc{}, err
	}
	cost, err := toDecimal128(t.TotalCost)
	if err != nil {
		return tradeDoc{}, err
	}
	return tradeDoc{
		Symbol:        t.Symbol,
		Shares:        t.Shares,
		PurchasePrice: price,
		TotalCost:     cost,
		TradeDate:     t.TradeDate,
	}, nil
}

func (d storedTrade) toModel() (models.Trade, error) {
	price, err := firstDecimal(d.PurchasePrice, d.Price)
	if err != nil {
		return models.Trade{}, fmt.Errorf("trade %s price: %w", d.ID.Hex(), err)
	}
	cost, err := firstDecimal(d.TotalCost, d.TotalPrice)
	if errors.Is(err, errNoValue) {
		cost, err = price.Mul(decimal.NewFromInt(d.Shares)), nil
	}
	if err != nil {
		return models.Trade{}, fmt.Errorf("trade %s total: %w", d.ID.Hex(), err)
	}
	return models.Trade{
		ID:            d.ID.Hex(),
		Symbol:        d.Symbol,
		Shares:        d.Shares,
		PurchasePrice: price,
		TotalCost:     cost,
		TradeDate:     d.TradeDate,
	}, nil
}

var errNoValue = errors.New("field missing")

// firstDecimal returns the first of vs that is present.
func firstDecimal(vs ...bson.RawValue) (decimal.Decimal, error) {
	for _, v := range vs {
		d, ok, err := decimalValue(v)
		if err != nil || ok {
			return d, err
		}
	}
	return decimal.Zero, errNoValue
}

// decimalValue reads a money field stored as Decimal128, double or integer.
// ok is false when the field is absent or null.
func decimalValue(v bson.RawValue) (d decimal.Decimal, ok bool, err error) {
	switch v.Type {
	case bson.TypeDecimal128:
		d, err = fromDecimal128(v.Decimal128())
		return d, err == nil, err
	case bson.TypeDouble:
		return decimal.NewFromFloat(v.Double()), true, nil
	case bson.TypeInt32:
		return decimal.NewFromInt(int64(v.Int32())), true, nil
	case bson.TypeInt64:
		return decimal.NewFromInt(v.Int64()), true, nil
	case 0, bson.TypeNull:
		return decimal.Zero, false, nil
	}
	return decimal.Zero, false, fmt.Errorf("unexpected bson %s", v.Type)
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode decimal %s: %w", v, err)
	}
	return d, nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", repository.ErrWriteConflict, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", repository.ErrConnectionFailure, err)
	}
	return err
}
