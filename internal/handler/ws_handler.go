package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prepside/gmat-backend/internal/middleware"
	"github.com/prepside/gmat-backend/internal/service"
	"github.com/prepside/gmat-backend/internal/session"
	ws "github.com/prepside/gmat-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams GMAT Focus run timers and accepts in-section actions.
type WSHandler struct {
	focusService *service.FocusService
	quizService  *service.QuizService
	log          zerolog.Logger
	upgrader     websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(focusService *service.FocusService, quizService *service.QuizService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		focusService: focusService,
		quizService:  quizService,
		log:          log.With().Str("component", "ws_handler").Logger(),
		upgrader:     buildUpgrader(allowedOrigins),
	}
}

// FocusStream godoc
// WS /ws/v1/focus/stream?token=...
// Pushes tick/expired events for the live run and accepts autosave, flag,
// submit, and ping actions.
func (h *WSHandler) FocusStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID := claims.UserID

	// Verify a run exists before paying for the upgrade.
	if _, err := h.focusService.Run(userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active run"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("user_id", userID).Logger()
	wsLog.Info().Msg("Focus stream connected")

	ticks, cancel := h.focusService.SubscribeTicks(userID)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ticks {
			var err error
			if ev.Expired {
				err = ws.WriteTyped(conn, ws.ExpiredResponse{
					Event:        ws.EventExpired,
					Phase:        string(ev.Phase),
					SectionIndex: ev.SectionIndex,
				})
			} else {
				err = ws.WriteTyped(conn, ws.TickResponse{
					Event:            ws.EventTick,
					Phase:            string(ev.Phase),
					SectionIndex:     ev.SectionIndex,
					SectionName:      string(ev.SectionName),
					RemainingSeconds: ev.RemainingSeconds,
				})
			}
			if err != nil {
				return
			}
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, userID, &msg)
		case ws.ActionFlag:
			h.handleFlag(conn, userID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, userID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave records the answer in the live section and queues it for
// durable persistence.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, userID int, msg *ws.RequestPayload) {
	if msg.QID == "" || msg.Answer == "" {
		ws.WriteError(conn, "q_id and ans are required")
		return
	}
	qid, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	if err := h.focusService.Answer(userID, qid, msg.Answer); err != nil {
		ws.WriteError(conn, h.actionError(err))
		return
	}

	// Best effort: the in-memory section already holds the answer; the Redis
	// copy is crash recovery.
	if run, err := h.focusService.Run(userID); err == nil {
		if r := run.Runner(); r != nil {
			if err := h.quizService.Autosave(context.Background(), userID, r.QuizID(), qid, msg.Answer); err != nil {
				h.log.Warn().Err(err).Int("user_id", userID).Msg("Autosave enqueue failed")
			}
		}
	}

	ws.WriteTyped(conn, ws.SuccessResponse{Event: ws.EventSuccess, Status: "saved"})
}

func (h *WSHandler) handleFlag(conn *websocket.Conn, userID int, msg *ws.RequestPayload) {
	qid, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	if err := h.focusService.ToggleFlag(userID, qid); err != nil {
		ws.WriteError(conn, h.actionError(err))
		return
	}
	ws.WriteTyped(conn, ws.SuccessResponse{Event: ws.EventSuccess, Status: "toggled"})
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, userID int) {
	if err := h.focusService.CompleteSection(context.Background(), userID); err != nil {
		wsLog.Error().Err(err).Msg("Section submit failed")
		ws.WriteError(conn, h.actionError(err))
		return
	}

	wsLog.Info().Msg("Section submitted")
	ws.WriteTyped(conn, ws.SuccessResponse{Event: ws.EventSuccess, Status: "submitted"})
}

func (h *WSHandler) actionError(err error) string {
	switch {
	case err == session.ErrNoActiveRun:
		return "no active run"
	case err == session.ErrSectionNotActive:
		return "section not active"
	default:
		return "action failed"
	}
}
