// This is a http type of reporter.
// It fetches data from internal state/statedb
// and publishes on the http routes.
//
// All routes are read only; mutation happens exclusively through the
// chain synchronizer.

package reporter

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trustflow-io/escrow-go/common"
	"github.com/trustflow-io/escrow-go/state"
)

const (
	ROUTE_HELLO     = "/hello"
	ROUTE_AGREEMENT = "/agreement"
	ROUTE_DISPUTE   = "/dispute"
	ROUTE_SYNC      = "/sync"
)

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data sources
	statedb *state.StateDB

	// identifies whose cursor /sync reports
	chainID         int64
	contractAddress string // pure hex, no 0x prefix
}

func NewHttpReporter(serverIP string, serverPort string, statedb *state.StateDB, chainID int64, contractAddress string) *HttpReporter {
	return &HttpReporter{
		serverIP:        serverIP,
		serverPort:      serverPort,
		statedb:         statedb,
		chainID:         chainID,
		contractAddress: common.Trim0xPrefix(contractAddress),
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Define routes & handlers
	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_AGREEMENT, h.Agreement)
	router.GET(ROUTE_DISPUTE, h.Dispute)
	router.GET(ROUTE_SYNC, h.Sync)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	if err := router.Run(address); err != nil {
		panic(err)
	}
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

// Fetch one projected agreement by its 32-byte id.
func (h *HttpReporter) Agreement(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be provided"})
		return
	}

	ag, found, err := h.statedb.GetAgreement(common.Trim0xPrefix(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No agreement found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ag})
}

// Fetch the dispute record attached to an agreement, if any.
func (h *HttpReporter) Dispute(c *gin.Context) {
	id := c.Query("agreement_id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agreement_id must be provided"})
		return
	}

	d, found, err := h.statedb.GetDispute(common.Trim0xPrefix(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No dispute found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": d})
}

// Report the persisted sync cursor for the configured chain and contract.
func (h *HttpReporter) Sync(c *gin.Context) {
	cursor, found, err := h.statedb.GetSyncCursor(h.chainID, h.contractAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No sync cursor found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"chain_id":             h.chainID,
		"contract_address":     h.contractAddress,
		"last_processed_block": cursor,
	}})
}
