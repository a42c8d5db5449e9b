package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/templeconnect/backend/internal/mailer"
	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	"github.com/templeconnect/backend/pkg/logger"
	"github.com/templeconnect/backend/pkg/outbox"
	"github.com/templeconnect/backend/pkg/outbox/payloads"
)

const notificationConsumerName = "notifications"

type creator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type emailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer projects domain events into in-app notifications and fires
// best-effort emails. A failed email never fails the event; a failed
// notification write does, so the message is redelivered.
type Consumer struct {
	repo    creator
	users   userReader
	mail    emailSender
	manager idempotencyChecker
	logg    *logger.Logger
}

// NewConsumer builds a notification consumer.
func NewConsumer(repo creator, users userReader, mail emailSender, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users reader required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:    repo,
		users:   users,
		mail:    mail,
		manager: manager,
		logg:    logg,
	}, nil
}

// Process turns one domain event into its notification. Unhandled event
// types are acknowledged without effect.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, notificationConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	if err := c.handle(ctx, eventType, envelope, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.manager.Delete(ctx, notificationConsumerName, eventID)
		return err
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope, logCtx context.Context) error {
	switch eventType {
	case enums.EventWithdrawalProcessed:
		return c.onWithdrawalProcessed(ctx, envelope)
	case enums.EventVendorReviewed:
		return c.onVendorReviewed(ctx, envelope)
	case enums.EventOrderPlaced:
		return c.onOrderPlaced(ctx, envelope)
	case enums.EventOrderStateChanged:
		return c.onOrderStateChanged(ctx, envelope)
	case enums.EventBookingCreated:
		return c.onBookingCreated(ctx, envelope)
	case enums.EventChatMessageSent:
		return c.onChatMessageSent(ctx, envelope)
	default:
		c.logg.Info(logCtx, "event not handled by notification consumer")
		return nil
	}
}

func (c *Consumer) onWithdrawalProcessed(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.WithdrawalProcessedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.VendorUserID == uuid.Nil {
		return fmt.Errorf("vendor user id missing")
	}

	title := "Withdrawal rejected"
	message := fmt.Sprintf("Your withdrawal of %s was rejected.", payload.Amount.StringFixed(2))
	if payload.Status == enums.WithdrawalStatusCompleted {
		title = "Withdrawal approved"
		message = fmt.Sprintf("Your withdrawal of %s has been paid out.", payload.Amount.StringFixed(2))
	}
	if payload.DecisionNote != "" {
		message = fmt.Sprintf("%s Note: %s", message, payload.DecisionNote)
	}
	return c.notify(ctx, payload.VendorUserID, enums.NotificationTypeWithdrawalUpdate, title, message, envelope.Data)
}

func (c *Consumer) onVendorReviewed(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.VendorReviewedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.VendorUserID == uuid.Nil {
		return fmt.Errorf("vendor user id missing")
	}

	var title, message string
	switch payload.Status {
	case enums.VendorStatusApproved:
		title = "Application approved"
		message = "Your vendor application has been approved. You can now list your temple and products."
	case enums.VendorStatusRejected:
		title = "Application rejected"
		message = "Your vendor application was rejected."
	case enums.VendorStatusSuspended:
		title = "Account suspended"
		message = "Your vendor account has been suspended."
	default:
		return nil
	}
	if payload.ReviewNote != "" {
		message = fmt.Sprintf("%s Note: %s", message, payload.ReviewNote)
	}
	return c.notify(ctx, payload.VendorUserID, enums.NotificationTypeVendorReview, title, message, envelope.Data)
}

func (c *Consumer) onOrderPlaced(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.OrderPlacedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.VendorUserID == uuid.Nil {
		return fmt.Errorf("vendor user id missing")
	}
	message := fmt.Sprintf("You received a new order worth %s.", payload.Total.StringFixed(2))
	return c.notify(ctx, payload.VendorUserID, enums.NotificationTypeOrderUpdate, "New order received", message, envelope.Data)
}

func (c *Consumer) onOrderStateChanged(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.OrderStateChangedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}

	var title, message string
	switch payload.To {
	case enums.OrderStatusShipped:
		title = "Order shipped"
		message = "Your order is on its way."
	case enums.OrderStatusDelivered:
		title = "Order delivered"
		message = "Your order has been delivered."
	case enums.OrderStatusCancelled:
		title = "Order cancelled"
		message = "Your order was cancelled."
	default:
		return nil
	}
	if err := c.notify(ctx, payload.UserID, enums.NotificationTypeOrderUpdate, title, message, envelope.Data); err != nil {
		return err
	}
	if payload.To == enums.OrderStatusDelivered {
		c.email(ctx, payload.UserID, title, message)
	}
	return nil
}

func (c *Consumer) onBookingCreated(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.BookingCreatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}

	message := fmt.Sprintf("Your visit on %s is confirmed.", payload.VisitDate.Format("Mon, 2 Jan 2006"))
	if err := c.notify(ctx, payload.UserID, enums.NotificationTypeBookingUpdate, "Booking confirmed", message, envelope.Data); err != nil {
		return err
	}
	c.email(ctx, payload.UserID, "Booking confirmed", message)
	return nil
}

func (c *Consumer) onChatMessageSent(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	var payload payloads.ChatMessageSentEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.RecipientID == uuid.Nil {
		return fmt.Errorf("recipient id missing")
	}
	message := "Support replied to your conversation."
	if payload.Preview != "" {
		message = payload.Preview
	}
	return c.notify(ctx, payload.RecipientID, enums.NotificationTypeChatMessage, "New reply from support", message, envelope.Data)
}

func (c *Consumer) notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, title, body string, data json.RawMessage) error {
	return c.repo.Create(ctx, &models.Notification{
		ID:     uuid.New(),
		UserID: userID,
		Type:   kind,
		Title:  title,
		Body:   body,
		Data:   data,
	})
}

// email looks up the recipient and fires a best-effort message. Errors are
// logged and swallowed so the event still acks.
func (c *Consumer) email(ctx context.Context, userID uuid.UUID, subject, body string) {
	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		c.logg.Error(ctx, "load user for email", err)
		return
	}
	if err := c.mail.Send(ctx, mailer.Message{To: user.Email, Subject: subject, Body: body}); err != nil {
		c.logg.Error(ctx, "send email", err)
	}
}
