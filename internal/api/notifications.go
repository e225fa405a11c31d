package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/validate"
)

// DefaultNotificationLimit matches the backend's default page size
const DefaultNotificationLimit = 50

// ListNotifications returns the user's most recent notifications
func (c *Client) ListNotifications(ctx context.Context, limit int, unreadOnly bool) ([]model.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("unread_only", strconv.FormatBool(unreadOnly))

	var out []model.Notification
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.endpoint("notifications"),
		query:  q,
	}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Notification{}
	}
	return out, nil
}

// UnreadCount returns the number of unread notifications
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.endpoint("notifications", "unread-count"),
	}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkNotificationRead marks one notification read
func (c *Client) MarkNotificationRead(ctx context.Context, id string) (*model.Notification, error) {
	if err := validate.ID("notification_id", id); err != nil {
		return nil, err
	}
	var out model.Notification
	if err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   c.endpoint("notifications", id, "read"),
		body:   struct{}{},
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkAllNotificationsRead marks every notification read and returns how many changed
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	var out struct {
		MarkedRead int `json:"marked_read"`
	}
	if err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   c.endpoint("notifications", "mark-all-read"),
		body:   struct{}{},
	}, &out); err != nil {
		return 0, err
	}
	return out.MarkedRead, nil
}
