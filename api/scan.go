package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppphp/portagebrowser/pkg/portage"
	"github.com/ppphp/portagebrowser/pkg/util/msg"
)

// postScan starts a rescan in the background.
func (h *handler) postScan(c *gin.Context) {
	err := h.b.StartScan(context.Background())
	if err == portage.ErrAlreadyRunning {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	go func() {
		if err := h.b.WaitScan(); err != nil {
			msg.Log.Warnf("scan: %v", err)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"running": true})
}

func (h *handler) getScan(c *gin.Context) {
	r := gin.H{"running": h.b.ScanRunning()}
	if res := h.b.LastResult(); res != nil {
		failed := map[string]string{}
		for t, err := range res.Failed {
			failed[string(t)] = err.Error()
		}
		r["packages"] = res.Packages
		r["versions"] = res.Versions
		r["failed"] = failed
	}
	c.JSON(http.StatusOK, r)
}
