package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/folderguard/folderguard/pkg/rbac"
)

// CreationGate tells the role creation UI whether a role type may be
// created right now. With an empty resource catalog, creation is disabled
// and Message directs the user to create a resource first.
type CreationGate struct {
	Enabled   bool
	Message   string
	Resources []string
}

// Catalog fetches and caches the folder and agent name lists the binding UI
// offers. Entries expire so a stale list never outlives its TTL.
type Catalog struct {
	client *Client
	cache  *expirable.LRU[string, []string]
}

// NewCatalog creates a catalog over client with entries cached for ttl.
func NewCatalog(client *Client, ttl time.Duration) *Catalog {
	return &Catalog{
		client: client,
		cache:  expirable.NewLRU[string, []string](8, nil, ttl),
	}
}

func catalogPath(roleType rbac.RoleType) string {
	if roleType == rbac.RoleTypeAgent {
		return "/folder-auth/getAllAgents"
	}
	return "/folder-auth/getAllFolders"
}

// FetchResources returns the ordered resource names for roleType, serving
// from cache when a fresh entry exists. Fetch or decode failures are
// reported as CatalogUnavailable.
func (c *Catalog) FetchResources(ctx context.Context, roleType rbac.RoleType) ([]string, error) {
	if !roleType.Valid() {
		return nil, &rbac.UnknownRoleTypeError{Value: string(roleType)}
	}
	if !roleType.RequiresResources() {
		return []string{}, nil
	}

	if cached, ok := c.cache.Get(string(roleType)); ok {
		return cached, nil
	}
	return c.refetch(ctx, roleType)
}

func (c *Catalog) refetch(ctx context.Context, roleType rbac.RoleType) ([]string, error) {
	var resources []string
	if err := c.client.getJSON(ctx, catalogPath(roleType), &resources); err != nil {
		return nil, &CatalogUnavailable{Err: err}
	}
	if resources == nil {
		resources = []string{}
	}
	c.cache.Add(string(roleType), resources)
	return resources, nil
}

// EnterCreationFlow prepares the create-role form for roleType. The catalog
// is refetched even when cached, so the form never offers resources deleted
// since the last visit.
func (c *Catalog) EnterCreationFlow(ctx context.Context, roleType rbac.RoleType) (*CreationGate, error) {
	if !roleType.Valid() {
		return nil, &rbac.UnknownRoleTypeError{Value: string(roleType)}
	}
	if !roleType.RequiresResources() {
		return &CreationGate{Enabled: true, Resources: []string{}}, nil
	}

	resources, err := c.refetch(ctx, roleType)
	if err != nil {
		return nil, err
	}

	if len(resources) == 0 {
		message := "Please create a folder before adding a folder role."
		if roleType == rbac.RoleTypeAgent {
			message = "Please create an agent before adding an agent role."
		}
		return &CreationGate{
			Enabled: false,
			Message: message,
		}, nil
	}
	return &CreationGate{Enabled: true, Resources: resources}, nil
}

// Permissions returns the server's permission catalog for roleType.
func (c *Catalog) Permissions(ctx context.Context, roleType rbac.RoleType) ([]string, error) {
	if !roleType.Valid() {
		return nil, &rbac.UnknownRoleTypeError{Value: string(roleType)}
	}
	var perms []string
	if err := c.client.getJSON(ctx, "/folder-auth/permissions?type="+string(roleType), &perms); err != nil {
		return nil, &CatalogUnavailable{Err: err}
	}
	return perms, nil
}

// getJSON issues a GET and decodes a JSON response body.
func (c *Client) getJSON(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
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
	return json.Unmarshal(body, dest)
}
