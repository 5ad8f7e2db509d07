package services

import (
	"context"
	"log/slog"

	"estimator/internal/amqp"
	"estimator/internal/core"
	"estimator/internal/gateway"
)

// ChangePublisher is satisfied by *amqp.Client.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// PublishingBackend stores through the wrapped resources and announces every
// successful estimation change. A failed publish is logged; the stored change
// stands.
type PublishingBackend struct {
	gateway.Resources
	publisher ChangePublisher
}

var _ gateway.Resources = (*PublishingBackend)(nil)

// NewPublishingBackend wraps next. publisher may be nil, in which case changes
// are stored without notification.
func NewPublishingBackend(next gateway.Resources, publisher ChangePublisher) *PublishingBackend {
	return &PublishingBackend{Resources: next, publisher: publisher}
}

func (b *PublishingBackend) CreateEstimation(ctx context.Context, e core.Estimation) (core.Estimation, error) {
	out, err := b.Resources.CreateEstimation(ctx, e)
	if err != nil {
		return out, err
	}
	b.publish(ctx, out.ID, amqp.OpCreated)
	return out, nil
}

func (b *PublishingBackend) UpdateEstimation(ctx context.Context, id string, e core.Estimation) (core.Estimation, error) {
	out, err := b.Resources.UpdateEstimation(ctx, id, e)
	if err != nil {
		return out, err
	}
	b.publish(ctx, id, amqp.OpUpdated)
	return out, nil
}

func (b *PublishingBackend) DeleteEstimation(ctx context.Context, id string) error {
	if err := b.Resources.DeleteEstimation(ctx, id); err != nil {
		return err
	}
	b.publish(ctx, id, amqp.OpDeleted)
	return nil
}

// Nested changes are announced as an update of the owning estimation.

func (b *PublishingBackend) AddSection(ctx context.Context, estimationID string, s core.Section) (core.Section, error) {
	out, err := b.Resources.AddSection(ctx, estimationID, s)
	if err != nil {
		return out, err
	}
	b.publish(ctx, estimationID, amqp.OpUpdated)
	return out, nil
}

func (b *PublishingBackend) UpdateSection(ctx context.Context, estimationID, sectionID string, s core.Section) (core.Section, error) {
	out, err := b.Resources.UpdateSection(ctx, estimationID, sectionID, s)
	if err != nil {
		return out, err
	}
	b.publish(ctx, estimationID, amqp.OpUpdated)
	return out, nil
}

func (b *PublishingBackend) DeleteSection(ctx context.Context, estimationID, sectionID string) error {
	if err := b.Resources.DeleteSection(ctx, estimationID, sectionID); err != nil {
		return err
	}
	b.publish(ctx, estimationID, amqp.OpUpdated)
	return nil
}

func (b *PublishingBackend) AddItem(ctx context.Context, estimationID, sectionID string, it core.Item) (core.Item, error) {
	out, err := b.Resources.AddItem(ctx, estimationID, sectionID, it)
	if err != nil {
		return out, err
	}
	b.publish(ctx, estimationID, amqp.OpUpdated)
	return out, nil
}

func (b *PublishingBackend) UpdateItem(ctx context.Context, estimationID, sectionID, itemID string, it core.Item) (core.Item, error) {
	out, err := b.Resources.UpdateItem(ctx, estimationID, sectionID, itemID, it)
	if err != nil {
		return out, err
	}
	b.publish(ctx, estimationID, amqp.OpUpdated)
	return out, nil
}

func (b *PublishingBackend) DeleteItem(ctx context.Context, estimationID, sectionID, itemID string) error {
	if err := b.Resources.DeleteItem(ctx, estimationID, sectionID, itemID); err != nil {
		return err
	}
	b.publish(ctx, estimationID, amqp.OpUpdated)
	return nil
}

func (b *PublishingBackend) publish(ctx context.Context, estimationID, op string) {
	if b.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping change message",
			"estimation_id", estimationID, "op", op)
		return
	}
	msg := amqp.NewChangeMessage(amqp.ResourceEstimation, estimationID, op)
	if err := b.publisher.PublishChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"estimation_id", estimationID,
			"op", op,
			"error", err)
	}
}
