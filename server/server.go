// Package server exposes the catalog over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aluiziolira/okawa-catalog/catalog"
	"github.com/aluiziolira/okawa-catalog/config"
	"github.com/aluiziolira/okawa-catalog/models"
	"github.com/aluiziolira/okawa-catalog/order"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

// Catalog is the read side the handlers serve.
type Catalog interface {
	Query(ctx context.Context, f models.Filters, page, limit int) (*models.Page, error)
	Facet(ctx context.Context, facet catalog.Facet) ([]string, error)
	Lookup(ctx context.Context, code string) (models.Article, bool, error)
	Status(ctx context.Context) (*models.RefreshStatus, error)
}

// Refresher triggers catalog refreshes.
type Refresher interface {
	Refresh(ctx context.Context) (*models.RefreshOutcome, error)
	Running() bool
}

// Server is the catalog HTTP server.
type Server struct {
	cfg       *config.Config
	catalog   Catalog
	refresher Refresher
	pricing   order.Pricing
	limiter   *rate.Limiter
	router    *gin.Engine

	// background refreshes started by /actualizar
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// NewServer builds the router. gatherer may be nil to omit /metrics.
func NewServer(cfg *config.Config, cat Catalog, refresher Refresher, gatherer prometheus.Gatherer) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors())

	bgCtx, bgCancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		catalog:   cat,
		refresher: refresher,
		pricing:   order.NewPricing(cfg.PriceDiscount, cfg.PriceMarkup),
		limiter:   rate.NewLimiter(rate.Every(cfg.ManualRefreshInterval), 1),
		router:    router,
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
	}

	router.GET("/ping", s.handlePing)
	router.GET("/articulos", s.handleArticles)
	router.GET("/rubros", s.handleFacet(catalog.FacetCategory, "rubros"))
	router.GET("/marcas", s.handleFacet(catalog.FacetBrand, "marcas"))
	router.GET("/listas", s.handleFacet(catalog.FacetPriceList, "listas"))
	router.GET("/status", s.handleStatus)
	router.GET("/actualizar", s.handleRefresh)
	router.POST("/pedido", s.handleOrder)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on cfg.ListenAddr until ctx is cancelled, then shuts down
// gracefully and waits for background refreshes.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", s.cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("http server stopped")
	return nil
}

// Close cancels background refreshes and waits for them to return.
func (s *Server) Close() {
	s.bgCancel()
	s.bg.Wait()
}

func (s *Server) startRefresh() {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if _, err := s.refresher.Refresh(s.bgCtx); err != nil {
			slog.Warn("manual refresh did not complete", slog.Any("error", err))
		}
	}()
}
