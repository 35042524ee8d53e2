package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL   = "https://finnhub.io/api/v1"
	DefaultPricePath = "$.c"
)

var symbolRegexp = regexp.MustCompile(`^[A-Z0-9]+([.\-][A-Z0-9]+)*$`)

// Quoter returns the last traded price for a symbol.
type Quoter interface {
	GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	PricePath string
}

// Client talks to the Finnhub quote endpoint. Every call is a live request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	pricePath  string
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.PricePath == "" {
		opts.PricePath = DefaultPricePath
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		pricePath:  opts.PricePath,
	}
}

// NormalizeSymbol upper-cases and trims symbol, and validates it.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || !symbolRegexp.MatchString(s) {
		return "", newError(symbol, ErrInvalidSymbol, nil)
	}
	return s, nil
}

func (c *Client) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	q := url.Values{}
	q.Set("symbol", sym)
	q.Set("token", c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, newError(sym, ErrNetworkFailure, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, newError(sym, ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return decimal.Zero, newError(sym, ErrRateLimited, nil)
	case resp.StatusCode >= 500:
		return decimal.Zero, newError(sym, ErrNetworkFailure, fmt.Errorf("finnhub returned status %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return decimal.Zero, newError(sym, ErrNotFound, fmt.Errorf("finnhub returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var jobj any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&jobj); err != nil {
		return decimal.Zero, newError(sym, ErrNetworkFailure, fmt.Errorf("decode: %w", err))
	}

	price, err := c.extractPrice(jobj)
	if err != nil {
		return decimal.Zero, newError(sym, ErrNotFound, err)
	}
	return price, nil
}

func (c *Client) extractPrice(jobj any) (decimal.Decimal, error) {
	jval, err := jsonpath.Get(c.pricePath, jobj)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price field %q: %w", c.pricePath, err)
	}
	// jsonpath may answer a list of one value for filter expressions
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return decimal.Zero, fmt.Errorf("price field %q: empty result", c.pricePath)
		}
		jval = jlist[0]
	}

	var price decimal.Decimal
	switch v := jval.(type) {
	case json.Number:
		price, err = decimal.NewFromString(v.String())
	case float64:
		price = decimal.NewFromFloat(v)
	case string:
		price, err = decimal.NewFromString(v)
	case nil:
		err = errors.New("price is null")
	default:
		err = fmt.Errorf("price has unexpected type %T", jval)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("price field %q: %w", c.pricePath, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("price field %q: non-positive price %s", c.pricePath, price)
	}
	return price, nil
}
