package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptobazaar/internal/auth"
	"cryptobazaar/internal/chain"
	"cryptobazaar/internal/config"
	"cryptobazaar/internal/db"
	"cryptobazaar/internal/gateway"
	internalhttp "cryptobazaar/internal/http"
	"cryptobazaar/internal/services"
	"cryptobazaar/internal/settlement"
	"cryptobazaar/internal/store"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	st := store.New(pool)
	gw := gateway.NewClient(cfg.Razorpay.BaseURL, cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret)
	adapter, err := buildAdapter(cfg)
	if err != nil {
		log.Fatalf("chain adapter init failed: %v", err)
	}

	tokens := chain.NewRegistry(tokenList(cfg))
	gasReserve, err := decimal.NewFromString(cfg.Chain.GasReserve)
	if err != nil {
		log.Fatalf("invalid chain.gas_reserve %q: %v", cfg.Chain.GasReserve, err)
	}

	orch := settlement.New(st, gw, adapter, tokens,
		cfg.Razorpay.MinOrderPaise,
		gasReserve,
		time.Duration(cfg.Chain.TransferTimeout)*time.Second)

	authSvc := auth.NewService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	userSvc := &services.UserService{Store: st, Auth: authSvc, Gateway: gw}
	adSvc := &services.AdService{Store: st, FiatCurrency: "INR"}
	payoutSvc := &services.PayoutService{Store: st, Gateway: gw, AccountNumber: cfg.Razorpay.AccountNumber}

	h := internalhttp.NewHandler(userSvc, adSvc, payoutSvc, orch, authSvc, st)
	srv := internalhttp.NewServer(h)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		log.Printf("api listening on %s (chain adapter=%s, wallet=%s)", cfg.Server.Addr, cfg.Chain.Adapter, adapter.Sender())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}

func buildAdapter(cfg *config.Config) (chain.Adapter, error) {
	if cfg.Chain.Adapter == "null" {
		return chain.NewNullAdapter(decimal.NewFromInt(1_000_000)), nil
	}
	return chain.NewEVMAdapter(cfg.Chain.RPCURL, cfg.Chain.ChainID, cfg.Chain.PrivateKey, cfg.Chain.PaymentContract)
}

func tokenList(cfg *config.Config) []chain.Token {
	out := make([]chain.Token, 0, len(cfg.Chain.Tokens))
	for _, t := range cfg.Chain.Tokens {
		out = append(out, chain.Token{
			Symbol:   t.Symbol,
			Address:  t.Address,
			Decimals: t.Decimals,
			Native:   t.Native,
		})
	}
	return out
}
