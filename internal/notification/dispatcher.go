package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/models"
	"github.com/user/nudge/backend/internal/notification/apns"
	"github.com/user/nudge/backend/internal/notification/fcm"
	"github.com/user/nudge/backend/internal/repository"
)

// Payload represents a push notification payload
type Payload struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Sound    string            `json:"sound,omitempty"`
	Category string            `json:"category,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// ErrNoTransport is returned when a device's platform has no configured client.
var ErrNoTransport = errors.New("notification: no push transport for platform")

// DeviceStore is the slice of the device repository the dispatcher needs.
type DeviceStore interface {
	GetAllPushTokens(userID uuid.UUID) ([]repository.PushTarget, error)
	DeleteByPushToken(pushToken string) error
}

type iosSender interface {
	Send(ctx context.Context, n apns.Notification) error
}

type androidSender interface {
	Send(ctx context.Context, token string, n *fcm.Notification, data map[string]string) error
}

// Dispatcher handles sending notifications to multiple platforms
type Dispatcher struct {
	ios     iosSender
	android androidSender
	devices DeviceStore
}

// NewDispatcher creates a dispatcher. Either client may be nil when that
// platform is not configured.
func NewDispatcher(apnsClient *apns.Client, fcmClient *fcm.Client, devices DeviceStore) *Dispatcher {
	d := &Dispatcher{devices: devices}
	if apnsClient != nil {
		d.ios = apnsClient
	}
	if fcmClient != nil {
		d.android = fcmClient
	}
	return d
}

// SendResult counts per-device outcomes of one fan-out.
type SendResult struct {
	Devices   int
	Delivered int
	Failed    int
	// Skipped devices have no configured client for their platform.
	Skipped int
}

// SendToUser pushes payload to every device of the user in parallel. The
// error is non-nil only when some device failed and none accepted it.
// Devices without a transport are skipped, never retried.
func (d *Dispatcher) SendToUser(ctx context.Context, userID uuid.UUID, payload Payload) (SendResult, error) {
	tokens, err := d.devices.GetAllPushTokens(userID)
	if err != nil {
		return SendResult{}, err
	}

	result := SendResult{Devices: len(tokens)}
	if len(tokens) == 0 {
		return result, nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(tokens))

	for _, token := range tokens {
		wg.Add(1)
		go func(platform models.Platform, pushToken string) {
			defer wg.Done()

			var sendErr error
			switch platform {
			case models.PlatformIOS:
				sendErr = d.sendToIOS(ctx, pushToken, payload)
			case models.PlatformAndroid:
				sendErr = d.sendToAndroid(ctx, pushToken, payload)
			default:
				sendErr = fmt.Errorf("%w: %s", ErrNoTransport, platform)
			}

			if errors.Is(sendErr, ErrNoTransport) {
				errs <- sendErr
				return
			}
			if sendErr != nil {
				if errors.Is(sendErr, apns.ErrUnregistered) || errors.Is(sendErr, fcm.ErrUnregistered) {
					log.Printf("[Dispatcher] Removing unregistered %s device token", platform)
					if err := d.devices.DeleteByPushToken(pushToken); err != nil {
						log.Printf("[Dispatcher] Failed to remove device token: %v", err)
					}
				}
				log.Printf("[Dispatcher] Failed to send notification to %s device: %v", platform, sendErr)
			}
			errs <- sendErr
		}(token.Platform, token.PushToken)
	}

	wg.Wait()
	close(errs)

	var firstErr error
	for err := range errs {
		if err == nil {
			result.Delivered++
			continue
		}
		if errors.Is(err, ErrNoTransport) {
			result.Skipped++
			continue
		}
		result.Failed++
		if firstErr == nil {
			firstErr = err
		}
	}

	if result.Skipped > 0 {
		log.Printf("[Dispatcher] Skipped %d device(s) of user %s with no push transport", result.Skipped, userID)
	}
	if result.Delivered == 0 && result.Failed > 0 {
		return result, firstErr
	}
	return result, nil
}

func (d *Dispatcher) sendToIOS(ctx context.Context, token string, payload Payload) error {
	if d.ios == nil {
		return fmt.Errorf("%w: ios", ErrNoTransport)
	}

	data := make(map[string]interface{}, len(payload.Data))
	for k, v := range payload.Data {
		data[k] = v
	}

	return d.ios.Send(ctx, apns.Notification{
		DeviceToken: token,
		Title:       payload.Title,
		Body:        payload.Body,
		Sound:       payload.Sound,
		Category:    payload.Category,
		Data:        data,
	})
}

func (d *Dispatcher) sendToAndroid(ctx context.Context, token string, payload Payload) error {
	if d.android == nil {
		return fmt.Errorf("%w: android", ErrNoTransport)
	}
	return d.android.Send(ctx, token, &fcm.Notification{
		Title: payload.Title,
		Body:  payload.Body,
	}, payload.Data)
}
