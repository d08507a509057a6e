// Package worker runs the reconciliation loop: it expires stale pending
// purchases and re-checks the gateway for captured payments whose
// webhook never arrived or failed mid-flight.
package worker

import (
	"context"
	"log"
	"time"

	"cryptobazaar/internal/models"
	"cryptobazaar/internal/settlement"
)

type Worker struct {
	Ledger     settlement.Ledger
	Gateway    settlement.Gateway
	Settlement *settlement.Orchestrator
	PendingTTL time.Duration
	Interval   time.Duration
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		if err := w.SyncOnce(ctx); err != nil {
			log.Printf("sync error: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce does one reconciliation pass. Pending transactions older
// than the TTL are failed first so the poll below only touches live
// orders.
func (w *Worker) SyncOnce(ctx context.Context) error {
	expired, err := w.Ledger.ExpirePendingBefore(ctx, time.Now().UTC().Add(-w.PendingTTL))
	if err != nil {
		return err
	}
	if expired > 0 {
		log.Printf("expired %d stale pending transactions", expired)
	}

	pending, err := w.Ledger.ListPendingTransactions(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	log.Printf("sync pending=%d", len(pending))

	for _, tx := range pending {
		if err := w.reconcile(ctx, tx); err != nil {
			log.Printf("reconcile tx %s failed: %v", tx.ID, err)
		}
	}
	return nil
}

// reconcile asks the gateway whether a pending order was actually paid.
// A captured payment goes through the same settlement path the webhook
// uses; the claim there keeps the two racers from double releasing.
func (w *Worker) reconcile(ctx context.Context, tx *models.Transaction) error {
	payments, err := w.Gateway.OrderPayments(ctx, tx.GatewayOrderID)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if !p.Captured() {
			continue
		}
		log.Printf("tx %s: found captured payment %s via poll", tx.ID, p.ID)
		return w.Settlement.SettlePayment(ctx, p, "")
	}
	return nil
}
