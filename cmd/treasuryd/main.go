package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rainman456/solana-dappTreasury/config"
	"github.com/rainman456/solana-dappTreasury/events"
	"github.com/rainman456/solana-dappTreasury/observability/logging"
	"github.com/rainman456/solana-dappTreasury/program"
	"github.com/rainman456/solana-dappTreasury/query"
	"github.com/rainman456/solana-dappTreasury/state"
	"github.com/rainman456/solana-dappTreasury/storage"
	"github.com/rainman456/solana-dappTreasury/token"
	"github.com/rainman456/solana-dappTreasury/treasury"
)

// logEmitter surfaces engine events on the structured log.
type logEmitter struct {
	logger *slog.Logger
}

func (l *logEmitter) Emit(evt *events.Event) {
	if evt == nil {
		return
	}
	attrs := make([]any, 0, len(evt.Attributes)*2)
	for k, v := range evt.Attributes {
		attrs = append(attrs, k, v)
	}
	l.logger.Info(evt.Type, attrs...)
}

type executeRequest struct {
	Signer   string `json:"signer"`
	Data     string `json:"data"`
	Accounts struct {
		Treasury     string `json:"treasury,omitempty"`
		User         string `json:"user,omitempty"`
		Recipient    string `json:"recipient,omitempty"`
		Payout       string `json:"payout,omitempty"`
		TokenBalance string `json:"tokenBalance,omitempty"`
	} `json:"accounts"`
}

func parseOptionalKey(raw string) (solana.PublicKey, error) {
	if raw == "" {
		return solana.PublicKey{}, nil
	}
	return solana.PublicKeyFromBase58(raw)
}

// executeHandler accepts a signed instruction envelope and runs it through
// the dispatcher. Dev-facing; production deployments drive the dispatcher
// from their transaction pipeline instead.
func executeHandler(dispatcher *program.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req executeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
			return
		}
		signer, err := solana.PublicKeyFromBase58(req.Signer)
		if err != nil {
			http.Error(w, `{"error":"invalid signer"}`, http.StatusBadRequest)
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			http.Error(w, `{"error":"invalid instruction data"}`, http.StatusBadRequest)
			return
		}
		var accounts program.Accounts
		if accounts.Treasury, err = parseOptionalKey(req.Accounts.Treasury); err == nil {
			if accounts.User, err = parseOptionalKey(req.Accounts.User); err == nil {
				if accounts.Recipient, err = parseOptionalKey(req.Accounts.Recipient); err == nil {
					if accounts.Payout, err = parseOptionalKey(req.Accounts.Payout); err == nil {
						accounts.TokenBalance, err = parseOptionalKey(req.Accounts.TokenBalance)
					}
				}
			}
		}
		if err != nil {
			http.Error(w, `{"error":"invalid account address"}`, http.StatusBadRequest)
			return
		}
		if err := dispatcher.Execute(signer, data, accounts); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func run() error {
	configPath := flag.String("config", "", "path to TOML configuration")
	useMemory := flag.Bool("memdb", false, "use an in-memory database instead of DataDir")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.Setup("treasuryd", cfg.Environment)

	var db storage.Database
	if *useMemory {
		db = storage.NewMemDB()
	} else {
		leveldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		db = leveldb
	}
	defer db.Close()

	manager := state.NewManager(db)
	tokens := token.NewInMemory()

	engine := treasury.NewEngine(cfg.Program())
	engine.SetState(manager)
	engine.SetTokens(tokens)
	engine.SetEmitter(&logEmitter{logger: logger.With("component", "events")})

	dispatcher := program.NewDispatcher(engine, logger)
	queries := query.NewService(manager, cfg.Program(), logger)

	router := chi.NewRouter()
	router.Post("/v1/instructions", executeHandler(dispatcher))
	router.Mount("/", queries.Routes())

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("api listening", "address", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("metrics listening", "address", cfg.MetricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
