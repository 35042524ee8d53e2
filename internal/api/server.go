package api

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/portfolio"
	"github.com/kjannette/paper-trader/internal/quote"
	"github.com/rs/zerolog"
)

const (
	maxQueryLimit   = 1000
	requestIDHeader = "X-Request-ID"
	streamPath      = "/v1/portfolio/stream"

	// A buy can spend a full quote retry budget on the lookup and another
	// on the refreshed view before it answers.
	writeTimeout = 90 * time.Second
)

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Portfolio is the trading surface exposed over HTTP. Satisfied by *portfolio.Service.
type Portfolio interface {
	Refresh(ctx context.Context) (*models.PortfolioView, error)
	Quote(ctx context.Context, symbol string) (*quote.Quote, error)
	Trades(ctx context.Context) ([]models.Trade, error)
	Spend(ctx context.Context) (*models.AggregateSpend, error)
	BuyAtMarket(ctx context.Context, symbol string, shares int64) (*portfolio.BuyResult, error)
	Sell(ctx context.Context, symbol string, shares int64) (*portfolio.SellResult, error)
}

// Feed publishes reconciled views. Satisfied by *scheduler.RefreshScheduler.
type Feed interface {
	Latest() *models.PortfolioView
	Subscribe() (<-chan *models.PortfolioView, func())
	RefreshNow(ctx context.Context) (*models.PortfolioView, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Port       int
	APIKey     string
	CORSOrigin string
	Log        zerolog.Logger
}

type Server struct {
	svc        Portfolio
	feed       Feed
	store      Pinger
	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader
	apiKey     string
	log        zerolog.Logger
}

func NewServer(svc Portfolio, feed Feed, store Pinger, opts Options) *Server {
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	s := &Server{
		svc:    svc,
		feed:   feed,
		store:  store,
		apiKey: opts.APIKey,
		log:    opts.Log.With().Str("component", "api").Logger(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(opts.CORSOrigin),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.accessLog(), corsMiddleware(opts.CORSOrigin), s.authMiddleware())

	// Health check (no auth required)
	r.GET("/health", s.handleHealth)

	v1 := r.Group("/v1")
	v1.GET("/portfolio", s.handlePortfolio)
	v1.GET("/portfolio/stream", s.handleStream)
	v1.GET("/quote/:symbol", s.handleQuote)
	v1.GET("/trades", s.handleTrades)
	v1.GET("/spend", s.handleSpend)
	v1.POST("/trades/buy", s.handleBuy)
	v1.POST("/trades/sell", s.handleSell)

	s.engine = r
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
	}
	return s
}

// Handler exposes the routes, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	fmt.Printf("[API] Live portfolio: ws://localhost%s%s\n", s.httpServer.Addr, streamPath)
	if s.apiKey != "" {
		fmt.Println("[API] Authentication: enabled (Bearer token)")
	} else {
		fmt.Println("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("requestId", c.GetString("requestID")).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

// authMiddleware requires "Authorization: Bearer <API_KEY>" when a key is
// configured. The stream also accepts ?access_token= since browsers cannot
// set headers on a websocket handshake.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.apiKey == "" || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		if c.Request.URL.Path == streamPath && c.Query("access_token") == s.apiKey {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if auth == "" {
			writeError(c, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(c, http.StatusUnauthorized, "invalid API key")
			return
		}

		c.Next()
	}
}

func corsMiddleware(allowOrigin string) gin.HandlerFunc {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)
		c.Header("Access-Control-Expose-Headers", requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func originChecker(allowOrigin string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowOrigin == "*" || origin == "" || origin == allowOrigin
	}
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func parseLimit(c *gin.Context, defaultLimit int) int {
	v := c.Query("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, RequestID: c.GetString("requestID")})
}

// writeFailure maps err onto a status code and logs server-side failures.
func (s *Server) writeFailure(c *gin.Context, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("requestId", c.GetString("requestID")).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Kind: kind, RequestID: c.GetString("requestID")})
}
