package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"ipormac/internal/app"
	"ipormac/internal/logger"
	"ipormac/internal/monitoring"
)

type WSHandler struct {
	service  *app.DrillService
	metrics  *monitoring.Metrics
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.DrillService, metrics *monitoring.Metrics) *WSHandler {
	return &WSHandler{
		service: service,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Choice     int    `json:"choice"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs a drill for the siteKey
// query parameter. Stats are pushed on connect and after every answer or reset.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	site := h.service.Site(r.URL.Query().Get("siteKey"))
	log := logger.WithFields(logrus.Fields{"site": site.Key, "remote": r.RemoteAddr})

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	updates, cancel, err := h.service.Subscribe(ctx, site.Key)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer cancel()

	h.metrics.ConnectionOpened()
	defer h.metrics.ConnectionClosed()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only this goroutine writes to conn. A failed write closes the conn so the
	// read loop below stops too.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "stats", Payload: update}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		reply, ok := h.handle(ctx, site.Key, inbound, log)
		if ok && !deliver(send, writerDone, reply) {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle runs one client message. ok is false when there is nothing to send back.
func (h *WSHandler) handle(ctx context.Context, siteKey string, inbound inboundMessage, log *logrus.Entry) (outboundMessage[any], bool) {
	switch inbound.Type {
	case "next":
		q, err := h.service.NextQuestion(ctx, siteKey)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "question", Payload: q}, true
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid answer payload"), true
		}
		result, err := h.service.SubmitAnswer(ctx, siteKey, payload.QuestionID, payload.Choice)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "answerResult", Payload: result}, true
	case "stats":
		snapshot, err := h.service.Stats(ctx, siteKey)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "stats", Payload: snapshot}, true
	case "reset":
		// The new snapshot arrives through the subscription.
		if err := h.service.Reset(ctx, siteKey); err != nil {
			log.WithError(err).Error("reset failed")
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{}, false
	default:
		return errorMessage("unsupported message type"), true
	}
}

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}

// deliver queues msg for the writer. It reports false once the writer has
// exited, since nothing will drain send after that.
func deliver(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}
