package api

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"log/slog"

	"github.com/reemardelarosa/simulation/internal/engine"
	"github.com/reemardelarosa/simulation/internal/ledger"
	"github.com/reemardelarosa/simulation/internal/market"
	"github.com/reemardelarosa/simulation/internal/stats"
	"github.com/reemardelarosa/simulation/libs/health"
	"github.com/reemardelarosa/simulation/libs/httpmiddleware"
)

// Server is the read-only reporting surface over the running simulation. It
// never mutates market or ledger state.
//
// The simulation itself is single-threaded; mu serialises these HTTP reads
// against the step loop, which holds it while a step executes.
type Server struct {
	mu        *sync.Mutex
	ledger    *ledger.Ledger
	market    *market.MarketSet
	collector *stats.Collector
	logger    *slog.Logger
}

func NewServer(mu *sync.Mutex, l *ledger.Ledger, m *market.MarketSet, c *stats.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{mu: mu, ledger: l, market: m, collector: c, logger: logger}
}

// Router assembles the gin handler with the shared middleware, health and
// metrics endpoints.
func (s *Server) Router(ready *health.Manager, metricsPath string, metricsHandler http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(httpmiddleware.RequestID())
	router.Use(httpmiddleware.Logger(s.logger))
	router.Use(httpmiddleware.Recovery(s.logger))

	router.GET("/healthz", health.LivenessHandler)
	router.GET("/readyz", health.ReadinessHandler(ready))
	router.GET(metricsPath, gin.WrapH(metricsHandler))

	v1 := router.Group("/v1")
	v1.GET("/accounts", s.listAccounts)
	v1.GET("/accounts/:id", s.getAccount)
	v1.GET("/markets", s.listMarkets)
	v1.GET("/markets/:pair", s.getMarket)
	v1.GET("/fees/pools", s.getFeePools)
	v1.GET("/stats", s.getStats)
	v1.GET("/stats/latest", s.getLatestStats)

	return router
}

type accountView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Collateral string `json:"collateral"`
	Stable     string `json:"stable"`
	Reference  string `json:"reference"`
	Escrowed   string `json:"escrowed"`
	Issued     string `json:"issued"`
	Wealth     string `json:"wealth"`
}

func (s *Server) accountView(a *ledger.Account) accountView {
	return accountView{
		ID:         a.ID.String(),
		Name:       a.Name,
		Collateral: a.Balance(ledger.Collateral).String(),
		Stable:     a.Balance(ledger.Stable).String(),
		Reference:  a.Balance(ledger.Reference).String(),
		Escrowed:   a.Escrowed().String(),
		Issued:     a.Issued().String(),
		Wealth:     stats.Wealth(s.market, a).String(),
	}
}

func (s *Server) listAccounts(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.ledger.Accounts()
	out := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, s.accountView(a))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

func (s *Server) getAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.ledger.Account(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, s.accountView(account))
}

type marketView struct {
	Pair      string  `json:"pair"`
	LastPrice string  `json:"last_price"`
	BestBid   *string `json:"best_bid"`
	BestAsk   *string `json:"best_ask"`
	BidDepth  int     `json:"bid_depth"`
	AskDepth  int     `json:"ask_depth"`
}

func (s *Server) marketView(p market.Pair) marketView {
	view := marketView{
		Pair:      p.String(),
		LastPrice: s.market.LastPrice(p).String(),
		BidDepth:  s.market.Depth(p, engine.Bid),
		AskDepth:  s.market.Depth(p, engine.Ask),
	}
	if bid, ok := s.market.BestBid(p); ok {
		price := bid.Price.String()
		view.BestBid = &price
	}
	if ask, ok := s.market.BestAsk(p); ok {
		price := ask.Price.String()
		view.BestAsk = &price
	}
	return view
}

func (s *Server) listMarkets(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]marketView, 0, 3)
	for _, p := range market.Pairs() {
		out = append(out, s.marketView(p))
	}
	c.JSON(http.StatusOK, gin.H{"markets": out})
}

func (s *Server) getMarket(c *gin.Context) {
	pair, err := market.ParsePair(c.Param("pair"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.marketView(pair))
}

func (s *Server) getFeePools(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"collateral": s.ledger.FeePool(ledger.Collateral).String(),
		"stable":     s.ledger.FeePool(ledger.Stable).String(),
		"reference":  s.ledger.FeePool(ledger.Reference).String(),
	})
}

func (s *Server) getStats(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	s.mu.Lock()
	series := s.collector.Series()
	s.mu.Unlock()

	if limit > 0 && len(series) > limit {
		series = series[len(series)-limit:]
	}
	c.JSON(http.StatusOK, gin.H{"stats": series})
}

func (s *Server) getLatestStats(c *gin.Context) {
	s.mu.Lock()
	snap, ok := s.collector.Latest()
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no steps collected yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}
