// Package client talks to the /folder-auth REST surface. Mutations are
// single round trips: on success the client forces a full state reload
// instead of merging the change locally, and every failure is surfaced to
// the caller with the server's own words.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/folderguard/folderguard/pkg/observability"
	"github.com/folderguard/folderguard/pkg/rbac"
	"github.com/folderguard/folderguard/pkg/server"
	"github.com/folderguard/folderguard/pkg/validation"
)

// Reloader is invoked after every confirmed mutation to replace the local
// view with server state.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloaderFunc adapts a function to the Reloader interface.
type ReloaderFunc func(ctx context.Context) error

func (f ReloaderFunc) Reload(ctx context.Context) error {
	return f(ctx)
}

// Confirmer gates role deletion on an explicit yes/no answer. A negative
// answer suppresses the request entirely.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(prompt string) bool

func (f ConfirmerFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// Client issues role administration requests against a folderguard server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	reloader   Reloader
	logger     *observability.Logger

	mu       sync.Mutex
	crumb    string
	inflight map[string]bool
}

// New creates a client for the server at baseURL. reloader may be nil when
// the caller performs its own refresh.
func New(baseURL string, httpClient *http.Client, reloader Reloader, logger *observability.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		reloader:   reloader,
		logger:     logger,
		inflight:   make(map[string]bool),
	}
}

// acquire marks a control busy. Each UI control maps to one key, so no two
// requests from the same control are ever in flight together.
func (c *Client) acquire(control string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[control] {
		return ErrRequestInFlight
	}
	c.inflight[control] = true
	return nil
}

func (c *Client) release(control string) {
	c.mu.Lock()
	delete(c.inflight, control)
	c.mu.Unlock()
}

// FetchCrumb obtains a fresh anti-forgery token and attaches it to every
// subsequent mutation.
func (c *Client) FetchCrumb(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/folder-auth/crumb", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkFailure{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkFailure{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &ServerRejection{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var payload struct {
		Crumb string `json:"crumb"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("failed to decode crumb response: %w", err)
	}

	c.mu.Lock()
	c.crumb = payload.Crumb
	c.mu.Unlock()
	return nil
}

// AddRole submits a validated role creation. The submission must come from
// the validation layer; on a 200 the full state is reloaded.
func (c *Client) AddRole(ctx context.Context, sub *validation.RoleSubmission) error {
	control := "add-" + string(sub.Type) + "-role"
	if err := c.acquire(control); err != nil {
		return err
	}
	defer c.release(control)

	payload, err := json.Marshal(map[string]interface{}{
		"name":          sub.Name,
		"permissions":   sub.Permissions,
		"resourceNames": sub.ResourceNames,
	})
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/folder-auth/add%sRole", sub.Type.EndpointSegment())
	if err := c.post(ctx, path, "application/json", bytes.NewReader(payload)); err != nil {
		return err
	}
	return c.reload(ctx)
}

// DeleteRole deletes a role after an explicit confirmation. When the
// confirmer answers no, no request is issued at all and ErrDeleteCancelled
// is returned.
func (c *Client) DeleteRole(ctx context.Context, roleType rbac.RoleType, name string, confirmer Confirmer) error {
	if !roleType.Valid() {
		return &rbac.UnknownRoleTypeError{Value: string(roleType)}
	}
	if confirmer != nil && !confirmer.Confirm(fmt.Sprintf("Are you sure you want to delete the role %q?", name)) {
		return ErrDeleteCancelled
	}

	control := "delete-" + string(roleType) + "-role"
	if err := c.acquire(control); err != nil {
		return err
	}
	defer c.release(control)

	path := fmt.Sprintf("/folder-auth/delete%sRole", roleType.EndpointSegment())
	form := url.Values{"roleName": {name}}
	if err := c.post(ctx, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode())); err != nil {
		return err
	}
	return c.reload(ctx)
}

// AssignSid binds sid to the named role.
func (c *Client) AssignSid(ctx context.Context, roleType rbac.RoleType, roleName, sid string) error {
	return c.sidMutation(ctx, "assignSidTo", roleType, roleName, sid)
}

// RemoveSid unbinds sid from the named role.
func (c *Client) RemoveSid(ctx context.Context, roleType rbac.RoleType, roleName, sid string) error {
	return c.sidMutation(ctx, "removeSidFrom", roleType, roleName, sid)
}

func (c *Client) sidMutation(ctx context.Context, verb string, roleType rbac.RoleType, roleName, sid string) error {
	if !roleType.Valid() {
		return &rbac.UnknownRoleTypeError{Value: string(roleType)}
	}

	control := verb + "-" + string(roleType)
	if err := c.acquire(control); err != nil {
		return err
	}
	defer c.release(control)

	path := fmt.Sprintf("/folder-auth/%s%sRole", verb, roleType.EndpointSegment())
	form := url.Values{"sid": {sid}, "roleName": {roleName}}
	if err := c.post(ctx, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode())); err != nil {
		return err
	}
	return c.reload(ctx)
}

// post issues a crumb-carrying POST and maps the outcome onto the error
// taxonomy: transport errors become NetworkFailure, non-200s become
// ServerRejection with the raw body.
func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	c.mu.Lock()
	crumb := c.crumb
	c.mu.Unlock()
	if crumb != "" {
		req.Header.Set(server.CrumbHeader, crumb)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Warn("request failed")
		return &NetworkFailure{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkFailure{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &ServerRejection{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return nil
}

func (c *Client) reload(ctx context.Context) error {
	if c.reloader == nil {
		return nil
	}
	return c.reloader.Reload(ctx)
}
