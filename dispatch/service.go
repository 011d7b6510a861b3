package dispatch

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
	"github.com/xraph/conduit/signature"
)

// Input is the creation/update payload for outbound webhooks.
type Input struct {
	Name              string            `json:"name"`
	URL               string            `json:"url"`
	Method            string            `json:"method,omitempty"`
	PayloadTemplate   string            `json:"payload_template,omitempty"`
	Headers           map[string]string `json:"headers,omitempty"`
	TimeoutSeconds    int               `json:"timeout_seconds,omitempty"`
	MaxRetries        int               `json:"max_retries,omitempty"`
	RetryDelaySeconds int               `json:"retry_delay_seconds,omitempty"`
	TriggerEvents     []string          `json:"trigger_events"`
	EmitEvents        []string          `json:"emit_events,omitempty"`
	Status            Status            `json:"status,omitempty"`
	Secret            string            `json:"secret,omitempty"`
}

// Service provides outbound webhook management operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new dispatch service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Create registers a new outbound webhook.
func (svc *Service) Create(ctx context.Context, in Input) (*Webhook, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if _, err := url.ParseRequestURI(in.URL); err != nil {
		return nil, &ValidationError{Field: "url", Message: "invalid URL"}
	}
	if len(in.TriggerEvents) == 0 {
		return nil, &ValidationError{Field: "trigger_events", Message: "at least one trigger event required"}
	}

	status := in.Status
	if status == "" {
		status = StatusActive
	}
	maxRetries := in.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	retryDelay := in.RetryDelaySeconds
	if retryDelay <= 0 {
		retryDelay = 60
	}
	timeout := in.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}

	wh := &Webhook{
		Entity:            entity.New(),
		ID:                id.NewDispatchID(),
		Name:              in.Name,
		URL:               in.URL,
		Method:            in.Method,
		PayloadTemplate:   in.PayloadTemplate,
		Headers:           in.Headers,
		TimeoutSeconds:    timeout,
		MaxRetries:        maxRetries,
		RetryDelaySeconds: retryDelay,
		TriggerEvents:     in.TriggerEvents,
		EmitEvents:        in.EmitEvents,
		Status:            status,
		Secret:            in.Secret,
	}
	if err := svc.store.CreateDispatchWebhook(ctx, wh); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "dispatch webhook created",
		slog.String("webhook_id", wh.ID.String()),
		slog.String("url", wh.URL))

	return wh, nil
}

// Get returns a webhook by ID.
func (svc *Service) Get(ctx context.Context, whID id.ID) (*Webhook, error) {
	return svc.store.GetDispatchWebhook(ctx, whID)
}

// Update modifies an existing webhook.
func (svc *Service) Update(ctx context.Context, whID id.ID, in Input) (*Webhook, error) {
	wh, err := svc.store.GetDispatchWebhook(ctx, whID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		wh.Name = in.Name
	}
	if in.URL != "" {
		if _, err := url.ParseRequestURI(in.URL); err != nil {
			return nil, &ValidationError{Field: "url", Message: "invalid URL"}
		}
		wh.URL = in.URL
	}
	if in.Method != "" {
		wh.Method = in.Method
	}
	if in.PayloadTemplate != "" {
		wh.PayloadTemplate = in.PayloadTemplate
	}
	if in.Headers != nil {
		wh.Headers = in.Headers
	}
	if in.TimeoutSeconds > 0 {
		wh.TimeoutSeconds = in.TimeoutSeconds
	}
	if in.MaxRetries >= 0 {
		wh.MaxRetries = in.MaxRetries
	}
	if in.RetryDelaySeconds > 0 {
		wh.RetryDelaySeconds = in.RetryDelaySeconds
	}
	if len(in.TriggerEvents) > 0 {
		wh.TriggerEvents = in.TriggerEvents
	}
	if in.EmitEvents != nil {
		wh.EmitEvents = in.EmitEvents
	}
	if in.Status != "" {
		wh.Status = in.Status
	}
	if in.Secret != "" {
		wh.Secret = in.Secret
	}
	wh.Touch()

	if err := svc.store.UpdateDispatchWebhook(ctx, wh); err != nil {
		return nil, err
	}
	return wh, nil
}

// RotateSecret generates a new signing secret for a webhook.
func (svc *Service) RotateSecret(ctx context.Context, whID id.ID) (string, error) {
	wh, err := svc.store.GetDispatchWebhook(ctx, whID)
	if err != nil {
		return "", err
	}
	wh.Secret = signature.GenerateSecret()
	wh.Touch()
	if err := svc.store.UpdateDispatchWebhook(ctx, wh); err != nil {
		return "", err
	}
	return wh.Secret, nil
}

// Delete removes a webhook.
func (svc *Service) Delete(ctx context.Context, whID id.ID) error {
	return svc.store.DeleteDispatchWebhook(ctx, whID)
}

// List returns all webhooks.
func (svc *Service) List(ctx context.Context) ([]*Webhook, error) {
	return svc.store.ListDispatchWebhooks(ctx)
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "dispatch validation: " + e.Field + ": " + e.Message
}
