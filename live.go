package docpages

import (
	"fmt"
	"net/http"

	"github.com/dpotapov/go-docpages/doctpl"
	"github.com/gorilla/websocket"
)

// wsUpgrader is a Gorilla WebSocket instance, used to respond HTTP requests with WebSocket.
var wsUpgrader = websocket.Upgrader{}

// liveResponse is the message sent back for every render request received on the live socket.
type liveResponse struct {
	Result *doctpl.Result `json:"result,omitempty"`
	errorResponse
}

// serveLive renders every JSON request received on a WebSocket and answers each with one JSON
// message, until the client closes the connection. Editors use it for a live preview.
func (h *Handler) serveLive(w http.ResponseWriter, r *http.Request) error {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "WebSocket upgrade required", http.StatusBadRequest)
		return nil
	}

	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied to the client
		h.logger.Debug("Upgrade live connection", "error", err)
		return nil
	}
	defer ws.Close()
	ws.SetReadLimit(maxRequestBody)

	for {
		_, rd, err := ws.NextReader()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			h.logger.Debug("Read live message", "error", err)
			return nil
		}

		var resp liveResponse
		req, err := decodeRequest(rd)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp = h.renderLive(req)
		}

		if err := ws.WriteJSON(resp); err != nil {
			return fmt.Errorf("write live message: %w", err)
		}
	}
}

func (h *Handler) renderLive(req doctpl.Request) liveResponse {
	res, err := h.Engine.Render(req)
	if fr, _, ok := failedRender(err); ok {
		return liveResponse{errorResponse: fr}
	}
	if err != nil {
		h.logger.Error("Render live request", "error", err)
		return liveResponse{errorResponse: errorResponse{Error: err.Error()}}
	}
	return liveResponse{Result: res}
}
