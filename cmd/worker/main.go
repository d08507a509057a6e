package main

import (
	"context"
	"log"
	"time"

	"cryptobazaar/internal/chain"
	"cryptobazaar/internal/config"
	"cryptobazaar/internal/db"
	"cryptobazaar/internal/gateway"
	"cryptobazaar/internal/settlement"
	"cryptobazaar/internal/store"
	"cryptobazaar/internal/worker"

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

	var adapter chain.Adapter
	if cfg.Chain.Adapter == "null" {
		adapter = chain.NewNullAdapter(decimal.NewFromInt(1_000_000))
	} else {
		adapter, err = chain.NewEVMAdapter(cfg.Chain.RPCURL, cfg.Chain.ChainID, cfg.Chain.PrivateKey, cfg.Chain.PaymentContract)
		if err != nil {
			log.Fatalf("chain adapter init failed: %v", err)
		}
	}

	tokens := make([]chain.Token, 0, len(cfg.Chain.Tokens))
	for _, t := range cfg.Chain.Tokens {
		tokens = append(tokens, chain.Token{Symbol: t.Symbol, Address: t.Address, Decimals: t.Decimals, Native: t.Native})
	}

	gasReserve, err := decimal.NewFromString(cfg.Chain.GasReserve)
	if err != nil {
		log.Fatalf("invalid chain.gas_reserve %q: %v", cfg.Chain.GasReserve, err)
	}

	orch := settlement.New(st, gw, adapter, chain.NewRegistry(tokens),
		cfg.Razorpay.MinOrderPaise,
		gasReserve,
		time.Duration(cfg.Chain.TransferTimeout)*time.Second)

	w := &worker.Worker{
		Ledger:     st,
		Gateway:    gw,
		Settlement: orch,
		PendingTTL: time.Duration(cfg.Orders.PendingTTLMinutes) * time.Minute,
		Interval:   time.Duration(cfg.Worker.IntervalSeconds) * time.Second,
	}

	log.Printf("worker started (interval=%ds, pending_ttl=%dm)", cfg.Worker.IntervalSeconds, cfg.Orders.PendingTTLMinutes)
	w.Run(ctx)
}
