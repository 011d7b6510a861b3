package ingest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
	"github.com/xraph/conduit/transform"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Input is the creation/update payload for inbound webhooks.
type Input struct {
	Name             string            `json:"name"`
	Slug             string            `json:"slug"`
	Token            string            `json:"token,omitempty"`
	AllowedIPs       []string          `json:"allowed_ips,omitempty"`
	Status           Status            `json:"status,omitempty"`
	MappingRules     transform.RuleSet `json:"mapping_rules,omitempty"`
	ValidationSchema json.RawMessage   `json:"validation_schema,omitempty"`
	CustomEvents     []string          `json:"custom_events,omitempty"`
}

// Service provides inbound webhook management operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new ingest service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Create registers a new inbound webhook. An empty token is kept empty:
// it means the webhook requires no authentication. Use RotateToken to
// generate one.
func (svc *Service) Create(ctx context.Context, in Input) (*Webhook, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, &ValidationError{Field: "slug", Message: "must be lowercase letters, digits, and hyphens"}
	}

	status := in.Status
	if status == "" {
		status = StatusActive
	}

	wh := &Webhook{
		Entity:           entity.New(),
		ID:               id.NewIngestID(),
		Name:             in.Name,
		Slug:             slug,
		Token:            in.Token,
		AllowedIPs:       in.AllowedIPs,
		Status:           status,
		MappingRules:     in.MappingRules,
		ValidationSchema: in.ValidationSchema,
		CustomEvents:     in.CustomEvents,
	}
	if err := svc.store.CreateIngestWebhook(ctx, wh); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "ingest webhook created",
		slog.String("webhook_id", wh.ID.String()),
		slog.String("slug", wh.Slug))

	return wh, nil
}

// Get returns a webhook by ID.
func (svc *Service) Get(ctx context.Context, whID id.ID) (*Webhook, error) {
	return svc.store.GetIngestWebhook(ctx, whID)
}

// GetBySlug returns a webhook by slug.
func (svc *Service) GetBySlug(ctx context.Context, slug string) (*Webhook, error) {
	return svc.store.GetIngestWebhookBySlug(ctx, slug)
}

// Update modifies an existing webhook.
func (svc *Service) Update(ctx context.Context, whID id.ID, in Input) (*Webhook, error) {
	wh, err := svc.store.GetIngestWebhook(ctx, whID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		wh.Name = in.Name
	}
	if in.Slug != "" {
		slug := strings.ToLower(strings.TrimSpace(in.Slug))
		if !slugPattern.MatchString(slug) {
			return nil, &ValidationError{Field: "slug", Message: "must be lowercase letters, digits, and hyphens"}
		}
		wh.Slug = slug
	}
	if in.Token != "" {
		wh.Token = in.Token
	}
	if in.AllowedIPs != nil {
		wh.AllowedIPs = in.AllowedIPs
	}
	if in.Status != "" {
		wh.Status = in.Status
	}
	if in.MappingRules != nil {
		wh.MappingRules = in.MappingRules
	}
	if in.ValidationSchema != nil {
		wh.ValidationSchema = in.ValidationSchema
	}
	if in.CustomEvents != nil {
		wh.CustomEvents = in.CustomEvents
	}
	wh.Touch()

	if err := svc.store.UpdateIngestWebhook(ctx, wh); err != nil {
		return nil, err
	}
	return wh, nil
}

// RotateToken generates a fresh delivery token.
func (svc *Service) RotateToken(ctx context.Context, whID id.ID) (string, error) {
	wh, err := svc.store.GetIngestWebhook(ctx, whID)
	if err != nil {
		return "", err
	}
	wh.Token = generateToken()
	wh.Touch()
	if err := svc.store.UpdateIngestWebhook(ctx, wh); err != nil {
		return "", err
	}
	return wh.Token, nil
}

// ClearToken removes the delivery token, turning off authentication for
// the webhook.
func (svc *Service) ClearToken(ctx context.Context, whID id.ID) error {
	wh, err := svc.store.GetIngestWebhook(ctx, whID)
	if err != nil {
		return err
	}
	wh.Token = ""
	wh.Touch()
	return svc.store.UpdateIngestWebhook(ctx, wh)
}

// Delete removes a webhook.
func (svc *Service) Delete(ctx context.Context, whID id.ID) error {
	return svc.store.DeleteIngestWebhook(ctx, whID)
}

// List returns all webhooks.
func (svc *Service) List(ctx context.Context) ([]*Webhook, error) {
	return svc.store.ListIngestWebhooks(ctx)
}

func generateToken() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		panic("conduit: failed to generate webhook token: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "ingest validation: " + e.Field + ": " + e.Message
}
