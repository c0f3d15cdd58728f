package http

import (
	"errors"
	"net/http"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/sync"
	"github.com/fitstr/fitstr-wallet/internal/types"
	"github.com/fitstr/fitstr-wallet/internal/wallet"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// HTTPServer exposes the application-facing wallet API to the embedding app.
type HTTPServer struct {
	wallet *wallet.Wallet
	sync   *sync.SyncServer
}

func NewHTTPServer(w *wallet.Wallet, s *sync.SyncServer) *HTTPServer {
	return &HTTPServer{wallet: w, sync: s}
}

func (hs *HTTPServer) Start() {
	r := gin.Default()

	r.GET("/api/v1/balance", hs.handleBalance)
	r.GET("/api/v1/history", hs.handleHistory)
	r.POST("/api/v1/send", hs.handleSend)
	r.POST("/api/v1/receive", hs.handleReceive)
	r.POST("/api/v1/invoice", hs.handleCreateInvoice)
	r.GET("/api/v1/invoice/:quote", hs.handleCheckInvoice)
	r.POST("/api/v1/pay", hs.handlePay)

	addr := ":" + config.AppConfig.HTTPPort
	log.Infof("HTTP server is running on port %s", config.AppConfig.HTTPPort)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start HTTP server: %v", err)
	}
}

func (hs *HTTPServer) handleBalance(c *gin.Context) {
	ws := hs.wallet.GetWalletState()
	c.JSON(http.StatusOK, gin.H{
		"balance": ws.Balance,
		"mint":    ws.MintUrl,
		"unit":    ws.Unit,
		"online":  ws.Online,
	})
}

func (hs *HTTPServer) handleHistory(c *gin.Context) {
	records, err := hs.wallet.GetTransactionHistory(0)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": records})
}

type sendRequest struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount" binding:"required"`
	Memo      string `json:"memo"`
}

func (hs *HTTPServer) handleSend(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// a recipient pubkey makes this a nutzap, delivered over the relays
	if req.Recipient != "" {
		token, err := hs.sync.SendNutzap(c.Request.Context(), req.Recipient, req.Amount, req.Memo)
		if token == "" && err != nil {
			abortWithError(c, err)
			return
		}
		resp := gin.H{"token": token}
		if err != nil {
			resp["warning"] = "notification publish failed, deliver the token out of band"
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	token, err := hs.wallet.SendValue(c.Request.Context(), "", req.Amount, req.Memo)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type receiveRequest struct {
	Token string `json:"token" binding:"required"`
}

func (hs *HTTPServer) handleReceive(c *gin.Context) {
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := hs.wallet.ReceiveToken(c.Request.Context(), req.Token)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": amount})
}

type invoiceRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
	Memo   string `json:"memo"`
}

func (hs *HTTPServer) handleCreateInvoice(c *gin.Context) {
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quote, err := hs.wallet.CreateInvoice(c.Request.Context(), req.Amount, req.Memo)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (hs *HTTPServer) handleCheckInvoice(c *gin.Context) {
	claimed, err := hs.wallet.CheckAndClaimInvoice(c.Request.Context(), c.Param("quote"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claimed": claimed})
}

type payRequest struct {
	Invoice string `json:"invoice" binding:"required"`
}

func (hs *HTTPServer) handlePay(c *gin.Context) {
	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	feePaid, err := hs.wallet.PayInvoice(c.Request.Context(), req.Invoice)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_paid": feePaid})
}

func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
	case errors.Is(err, types.ErrInvalidToken):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrWalletOffline), errors.Is(err, types.ErrMintUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
