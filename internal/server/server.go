package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/briefer/config"
	"github.com/mohammad-safakhou/briefer/internal/brief"
	"github.com/mohammad-safakhou/briefer/internal/fetch"
	"github.com/mohammad-safakhou/briefer/internal/llm"
	"github.com/mohammad-safakhou/briefer/internal/store"
)

// Run wires the HTTP API and blocks serving it.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		baseLogger.Printf("migrate: %v", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	llmClient := llm.NewClient(cfg.LLM)
	fetcher := fetch.NewFetcher(cfg.Fetch, log.New(log.Writer(), "[FETCH] ", log.LstdFlags))
	synth := brief.NewSynthesizer(llmClient, log.New(log.Writer(), "[SYNTH] ", log.LstdFlags))

	api := e.Group("/api")

	bh := &BriefsHandler{
		Store:   st,
		Fetcher: fetcher,
		Synth:   synth,
		Logger:  log.New(log.Writer(), "[BRIEF] ", log.LstdFlags),
	}
	bh.Register(api.Group("/briefs"))

	sh := &StatusHandler{Store: st, LLM: llmClient}
	sh.Register(api)

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8080"
	}
	return e.Start(addr)
}
