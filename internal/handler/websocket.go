package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/CageChen/filehub/internal/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler serves the invoke channel over a WebSocket. Each message is one
// invokeRequest; calls on one connection run concurrently and are answered
// as they finish, matched up by id.
type WSHandler struct {
	inv      *Invoker
	upgrader websocket.Upgrader
}

// NewWSHandler creates a WebSocket handler. Same-origin pages may always
// connect; allowOrigin decides for every other browser origin.
func NewWSHandler(inv *Invoker, allowOrigin func(origin string) bool) *WSHandler {
	return &WSHandler{
		inv: inv,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return sameOrigin(origin, r.Host) || allowOrigin(origin)
			},
		},
	}
}

// HandleWS handles WebSocket upgrade and connection
func (h *WSHandler) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	var (
		wg      sync.WaitGroup
		writeMu sync.Mutex
	)
	defer func() {
		wg.Wait()
		_ = conn.Close()
	}()

	reply := func(resp invokeResponse) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(resp); err != nil {
			log.Debugf("ws write %s: %v", resp.ID, err)
		}
	}

	ctx := context.WithoutCancel(c.Request.Context())
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req invokeRequest
		if err := json.Unmarshal(data, &req); err != nil {
			_, resp := newInvokeResponse("", nil, badRequest("invalid message: "+err.Error()))
			reply(resp)
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		wg.Add(1)
		go func(req invokeRequest) {
			defer wg.Done()
			result, err := h.inv.Invoke(ctx, req.Command, req.Args)
			_, resp := newInvokeResponse(req.ID, result, err)
			reply(resp)
		}(req)
	}
}
