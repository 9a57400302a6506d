package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wildlink/relay/internal/services/relay/hub"
	"golang.org/x/net/websocket"
)

const (
	frameTypeJoin    = "join"
	frameTypeSend    = "send"
	frameTypeReceive = "receiveMessage"

	maxFramePayloadBytes   = 16 * 1024
	maxDecodeErrorsPerConn = 3
)

type wsFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	UserName string `json:"userName"`
	Interest string `json:"interest"`
}

type sendPayload struct {
	Sender   string `json:"sender"`
	Message  string `json:"message"`
	Interest string `json:"interest"`
}

type receivePayload struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// wsPeer serializes frame writes onto one websocket connection.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// Send delivers one relay event as a receiveMessage frame.
func (p *wsPeer) Send(from, text string) error {
	payload, err := json.Marshal(receivePayload{User: from, Message: text})
	if err != nil {
		return err
	}
	return p.writeFrame(wsFrame{Type: frameTypeReceive, Payload: payload})
}

var _ hub.Sender = (*wsPeer)(nil)

func newHandler(coordinator *hub.Coordinator) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, coordinator)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func handleWSConn(conn *websocket.Conn, coordinator *hub.Coordinator) {
	defer func() {
		_ = conn.Close()
	}()

	connectionID := uuid.NewString()
	coordinator.HandleConnect(connectionID, resolvedNameFromRequest(conn.Request()))

	var loopErr error
	defer func() {
		// Cleanup runs against a fresh context: the request context is
		// already torn down with the transport, and skipping cleanup would
		// leak registry and store entries.
		coordinator.HandleDisconnect(context.Background(), connectionID, loopErr)
	}()

	decoder := json.NewDecoder(conn)
	peer := newWSPeer(json.NewEncoder(conn))
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			log.Printf("relay: drop malformed frame from connection %s: %v", connectionID, err)
			if decodeErrors >= maxDecodeErrorsPerConn {
				loopErr = err
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			log.Printf("relay: drop oversized frame from connection %s", connectionID)
			continue
		}

		switch frame.Type {
		case frameTypeJoin:
			var payload joinPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				log.Printf("relay: drop join frame from connection %s: %v", connectionID, err)
				continue
			}
			coordinator.HandleJoin(context.Background(), connectionID, payload.UserName, payload.Interest, peer)
		case frameTypeSend:
			var payload sendPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				log.Printf("relay: drop send frame from connection %s: %v", connectionID, err)
				continue
			}
			coordinator.HandleMessage(payload.Sender, payload.Message, payload.Interest)
		default:
			log.Printf("relay: unknown frame type %q from connection %s", frame.Type, connectionID)
		}
	}
}

func resolvedNameFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("name"))
}
