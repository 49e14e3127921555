package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/steveharianto/Flightly/internal/config"
	"github.com/steveharianto/Flightly/internal/intake"
	"github.com/steveharianto/Flightly/internal/models"
	"github.com/steveharianto/Flightly/internal/telemetry"
)

type NATSTransport struct {
	conn     *nats.Conn
	config   *config.Config
	registry *intake.Registry
	history  HistorySource
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	subs     []*nats.Subscription
}

func NewNATSTransport(cfg *config.Config, registry *intake.Registry, history HistorySource, logger *zap.Logger, metrics *telemetry.Metrics) (*NATSTransport, error) {
	// Connect to NATS
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS server", zap.String("url", cfg.NatsURL))

	return newNATSTransport(conn, cfg, registry, history, logger, metrics), nil
}

func newNATSTransport(conn *nats.Conn, cfg *config.Config, registry *intake.Registry, history HistorySource, logger *zap.Logger, metrics *telemetry.Metrics) *NATSTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSTransport{
		conn:     conn,
		config:   cfg,
		registry: registry,
		history:  history,
		logger:   logger,
		metrics:  metrics,
	}
}

// Start subscribes to the intake subjects.
func (nt *NATSTransport) Start() error {
	handlers := map[string]nats.MsgHandler{
		nt.config.NatsTranscriptSubject: nt.handleTranscript,
		nt.config.NatsParseSubject:      nt.reply(nt.parse),
		nt.config.NatsStateSubject:      nt.reply(nt.state),
		nt.config.NatsHistorySubject:    nt.reply(nt.historyFor),
	}
	for subject, handler := range handlers {
		sub, err := nt.conn.Subscribe(subject, handler)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		nt.subs = append(nt.subs, sub)
		nt.logger.Info("Subscribed to subject", zap.String("subject", subject))
	}
	return nil
}

// PublishState sends a session snapshot to its updates subject. It is
// registered as an intake.Observer.
func (nt *NATSTransport) PublishState(state models.SessionState) {
	data, err := json.Marshal(state)
	if err != nil {
		nt.logger.Error("Failed to marshal session state", zap.Error(err))
		return
	}
	subject := nt.config.NatsUpdatesPrefix + "." + state.SessionID
	if err := nt.conn.Publish(subject, data); err != nil {
		nt.logger.Warn("Failed to publish session state", zap.String("subject", subject), zap.Error(err))
	}
}

// handleTranscript is fire-and-forget: capture status and text are
// recorded and the controller decides whether to extract.
func (nt *NATSTransport) handleTranscript(msg *nats.Msg) {
	if err := nt.applyTranscript(msg.Data); err != nil {
		nt.logger.Warn("Dropping transcript update", zap.Error(err))
	}
}

func (nt *NATSTransport) applyTranscript(data []byte) error {
	var update models.TranscriptUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return fmt.Errorf("invalid transcript update: %w", err)
	}
	if update.SessionID == "" {
		return errors.New("session_id is required")
	}
	nt.metrics.RecordTranscriptUpdate("nats")

	ctrl := nt.registry.GetOrCreate(update.SessionID)
	ctrl.UpdateCapture(update.Listening, update.Error)
	ctrl.Submit(update.Text)
	return nil
}

// requestError carries the error code sent back to a NATS requester.
type requestError struct {
	code    string
	message string
}

func (e *requestError) Error() string { return e.code + ": " + e.message }

func (nt *NATSTransport) parse(ctx context.Context, data []byte) (any, error) {
	var request models.ParseRequest
	if err := json.Unmarshal(data, &request); err != nil || request.SessionID == "" {
		return nil, &requestError{models.ErrorInvalidRequest, "session_id is required"}
	}

	ctrl := nt.registry.GetOrCreate(request.SessionID)
	if request.Text != "" {
		ctrl.Submit(request.Text)
	}
	if !ctrl.ParseNow(ctx) {
		return nil, &requestError{models.ErrorExtractionBusy, "an extraction is already in progress"}
	}
	return ctrl.Snapshot(), nil
}

func (nt *NATSTransport) state(ctx context.Context, data []byte) (any, error) {
	ctrl, err := nt.lookup(data)
	if err != nil {
		return nil, err
	}
	return ctrl.Snapshot(), nil
}

func (nt *NATSTransport) historyFor(ctx context.Context, data []byte) (any, error) {
	var request models.StateRequest
	if err := json.Unmarshal(data, &request); err != nil || request.SessionID == "" {
		return nil, &requestError{models.ErrorInvalidRequest, "session_id is required"}
	}
	if _, err := nt.registry.Get(request.SessionID); err != nil {
		exists, err := nt.history.SessionExists(ctx, request.SessionID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &requestError{models.ErrorSessionNotFound, intake.ErrSessionNotFound.Error()}
		}
	}
	msgs, err := nt.history.GetMessages(ctx, request.SessionID)
	if err != nil {
		return nil, err
	}
	return toHistory(msgs), nil
}

func (nt *NATSTransport) lookup(data []byte) (*intake.Controller, error) {
	var request models.StateRequest
	if err := json.Unmarshal(data, &request); err != nil || request.SessionID == "" {
		return nil, &requestError{models.ErrorInvalidRequest, "session_id is required"}
	}
	ctrl, err := nt.registry.Get(request.SessionID)
	if err != nil {
		return nil, &requestError{models.ErrorSessionNotFound, err.Error()}
	}
	return ctrl, nil
}

type requestFunc func(ctx context.Context, data []byte) (any, error)

// reply adapts a request handler to a NATS subscription.
func (nt *NATSTransport) reply(fn requestFunc) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), nt.config.LLMTimeout+nt.config.NatsTimeout)
		defer cancel()

		response := nt.respond(ctx, fn, msg.Data)
		if err := msg.Respond(response); err != nil {
			nt.logger.Error("Error sending response", zap.String("subject", msg.Subject), zap.Error(err))
		}
	}
}

func (nt *NATSTransport) respond(ctx context.Context, fn requestFunc, data []byte) []byte {
	result, err := fn(ctx, data)
	if err != nil {
		return nt.errorResponse(err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nt.errorResponse(err)
	}
	return out
}

func (nt *NATSTransport) errorResponse(err error) []byte {
	response := models.ErrorResponse{
		ErrorCode:    models.ErrorInvalidRequest,
		ErrorMessage: "request could not be processed",
	}
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		response.ErrorCode = reqErr.code
		response.ErrorMessage = reqErr.message
	} else {
		nt.logger.Error("Request failed", zap.Error(err))
	}
	data, _ := json.Marshal(response)
	return data
}

func (nt *NATSTransport) Close() error {
	for _, sub := range nt.subs {
		_ = sub.Unsubscribe()
	}
	if nt.conn != nil {
		nt.conn.Close()
		nt.logger.Info("NATS connection closed")
	}
	return nil
}
