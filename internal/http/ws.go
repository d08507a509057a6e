package http

import (
	"log"
	"net/http"
	"time"

	"cryptobazaar/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	wsPollInterval = 2 * time.Second
	wsWriteWait    = 10 * time.Second
	wsMaxLifetime  = 35 * time.Minute
)

type txStatusMessage struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	ReleaseTxHash string `json:"releaseTxHash,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

func statusMessage(tx *models.Transaction) txStatusMessage {
	msg := txStatusMessage{TransactionID: tx.ID, Status: string(tx.Status)}
	if tx.ReleaseTxHash != nil {
		msg.ReleaseTxHash = *tx.ReleaseTxHash
	}
	if tx.FailureReason != nil {
		msg.FailureReason = *tx.FailureReason
	}
	return msg
}

// PurchaseStatusWS streams status changes for one transaction until it
// reaches a terminal state. The client authenticates with a token query
// parameter since browsers cannot set headers on websocket upgrades.
func (h *Handler) PurchaseStatusWS(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "txID")
	tx, err := h.Ledger.GetTransaction(r.Context(), txID)
	if err != nil {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if tx.BuyerID != userID(r) && tx.SellerID != userID(r) {
		writeError(w, http.StatusForbidden, "not a party to this transaction")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed for tx %s: %v", txID, err)
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(tx *models.Transaction) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(statusMessage(tx)) == nil
	}

	if !send(tx) {
		return
	}
	if tx.Status.Terminal() {
		return
	}

	lastStatus := tx.Status
	ticker := time.NewTicker(wsPollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(wsMaxLifetime)
	defer deadline.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
			tx, err := h.Ledger.GetTransaction(r.Context(), txID)
			if err != nil {
				log.Printf("ws poll failed for tx %s: %v", txID, err)
				return
			}
			if tx.Status == lastStatus {
				continue
			}
			lastStatus = tx.Status
			if !send(tx) {
				return
			}
			if tx.Status.Terminal() {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(tx.Status)),
					time.Now().Add(wsWriteWait))
				return
			}
		}
	}
}
