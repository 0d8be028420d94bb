// Package server exposes the role administration REST surface under the
// /folder-auth namespace, with anti-forgery protection on every mutation and
// an optional Redis read cache over the role store.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/folderguard/folderguard/pkg/async"
	"github.com/folderguard/folderguard/pkg/audit"
	"github.com/folderguard/folderguard/pkg/httputil"
	"github.com/folderguard/folderguard/pkg/inventory"
	"github.com/folderguard/folderguard/pkg/observability"
	"github.com/folderguard/folderguard/pkg/rbac"
)

// Handlers handles role administration HTTP requests
type Handlers struct {
	service   RoleService
	inventory *inventory.Registry
	crumbs    *CrumbRegistry
	logger    *observability.Logger
	auditor   audit.Logger
	metrics   *observability.Metrics
}

// NewHandlers creates a new Handlers
func NewHandlers(service RoleService, inv *inventory.Registry, crumbs *CrumbRegistry, logger *observability.Logger, auditor audit.Logger, metrics *observability.Metrics) *Handlers {
	if auditor == nil {
		auditor = audit.NewNoOpLogger()
	}
	return &Handlers{
		service:   service,
		inventory: inv,
		crumbs:    crumbs,
		logger:    logger,
		auditor:   auditor,
		metrics:   metrics,
	}
}

// RegisterRoutes registers the /folder-auth routes. Mutation endpoint names
// embed the role type with its first letter capitalized: addGlobalRole,
// assignSidToFolderRole, removeSidFromAgentRole, and so on.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	sub := router.PathPrefix("/folder-auth").Subrouter()

	sub.HandleFunc("/crumb", h.GetCrumb).Methods("GET")
	sub.HandleFunc("/authorizationStrategy", h.GetAuthorizationStrategy).Methods("GET")
	sub.HandleFunc("/getAllFolders", h.GetAllFolders).Methods("GET")
	sub.HandleFunc("/getAllAgents", h.GetAllAgents).Methods("GET")
	sub.HandleFunc("/getAllRoles", h.GetAllRoles).Methods("GET")
	sub.HandleFunc("/getRole", h.GetRole).Methods("GET")
	sub.HandleFunc("/permissions", h.GetPermissions).Methods("GET")

	for _, t := range rbac.RoleTypes() {
		roleType := t
		seg := roleType.EndpointSegment()
		sub.Handle(fmt.Sprintf("/add%sRole", seg),
			h.crumbs.RequireCrumb(h.addRoleHandler(roleType))).Methods("POST")
		sub.Handle(fmt.Sprintf("/delete%sRole", seg),
			h.crumbs.RequireCrumb(h.deleteRoleHandler(roleType))).Methods("POST")
		sub.Handle(fmt.Sprintf("/assignSidTo%sRole", seg),
			h.crumbs.RequireCrumb(h.assignSidHandler(roleType))).Methods("POST")
		sub.Handle(fmt.Sprintf("/removeSidFrom%sRole", seg),
			h.crumbs.RequireCrumb(h.removeSidHandler(roleType))).Methods("POST")
	}
}

// GetCrumb issues a fresh anti-forgery token
func (h *Handlers) GetCrumb(w http.ResponseWriter, r *http.Request) {
	token := h.crumbs.Issue()
	httputil.WriteSuccess(w, map[string]string{
		"crumb": token,
		"field": CrumbHeader,
	})
}

// GetAuthorizationStrategy describes the active strategy and its roles
func (h *Handlers) GetAuthorizationStrategy(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.AllRoles(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"strategy": "folderBased",
		"roles":    all,
	})
}

// GetAllFolders lists the folder names roles may bind to
func (h *Handlers) GetAllFolders(w http.ResponseWriter, r *http.Request) {
	h.writeResources(w, rbac.RoleTypeFolder)
}

// GetAllAgents lists the agent names roles may bind to
func (h *Handlers) GetAllAgents(w http.ResponseWriter, r *http.Request) {
	h.writeResources(w, rbac.RoleTypeAgent)
}

func (h *Handlers) writeResources(w http.ResponseWriter, roleType rbac.RoleType) {
	resources, err := h.inventory.Resources(roleType)
	if err != nil {
		httputil.WriteTextError(w, http.StatusInternalServerError, err)
		return
	}
	httputil.WriteSuccess(w, resources)
}

// GetAllRoles returns every role grouped by type
func (h *Handlers) GetAllRoles(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.AllRoles(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, all)
}

// GetRole returns a single role addressed by ?type= and ?name=
func (h *Handlers) GetRole(w http.ResponseWriter, r *http.Request) {
	roleType, err := rbac.ParseRoleType(httputil.ParseQueryString(r, "type", ""))
	if err != nil {
		httputil.WriteTextError(w, http.StatusBadRequest, err)
		return
	}
	name := httputil.ParseQueryString(r, "name", "")
	if name == "" {
		httputil.WriteText(w, http.StatusBadRequest, "name is required")
		return
	}

	role, err := h.service.GetRole(r.Context(), roleType, name)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

// GetPermissions returns the permission catalog for ?type=
func (h *Handlers) GetPermissions(w http.ResponseWriter, r *http.Request) {
	roleType, err := rbac.ParseRoleType(httputil.ParseQueryString(r, "type", ""))
	if err != nil {
		httputil.WriteTextError(w, http.StatusBadRequest, err)
		return
	}
	httputil.WriteSuccess(w, rbac.PermissionCatalog(roleType))
}

// addRoleRequest is the JSON body of the add{Type}Role endpoints
type addRoleRequest struct {
	Name          string   `json:"name"`
	Permissions   []string `json:"permissions"`
	ResourceNames []string `json:"resourceNames,omitempty"`
}

func (h *Handlers) addRoleHandler(roleType rbac.RoleType) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req addRoleRequest
		if !httputil.ParseJSONOrError(w, r, &req) {
			return
		}

		// The store checks permissions against the catalog; resource names
		// are checked here against the live inventory.
		if roleType.RequiresResources() {
			for _, resource := range req.ResourceNames {
				if !h.inventory.Has(roleType, resource) {
					err := &rbac.InvalidResourceError{Type: roleType, Resource: resource}
					h.recordRoleMutation(r, audit.EventTypeRoleCreate, "create", roleType, req.Name, err, start)
					httputil.WriteTextError(w, http.StatusBadRequest, err)
					return
				}
			}
		}

		role := &rbac.Role{
			Type:          roleType,
			Name:          req.Name,
			Permissions:   req.Permissions,
			ResourceNames: req.ResourceNames,
		}
		err := h.service.CreateRole(r.Context(), role)
		h.recordRoleMutation(r, audit.EventTypeRoleCreate, "create", roleType, req.Name, err, start)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, role)
	})
}

func (h *Handlers) deleteRoleHandler(roleType rbac.RoleType) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		name, ok := httputil.FormValueRequired(w, r, "roleName")
		if !ok {
			return
		}

		err := h.service.DeleteRole(r.Context(), roleType, name)
		h.recordRoleMutation(r, audit.EventTypeRoleDelete, "delete", roleType, name, err, start)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		httputil.WriteOK(w, fmt.Sprintf("Deleted %s role %q", roleType, name))
	})
}

func (h *Handlers) assignSidHandler(roleType rbac.RoleType) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.sidMutation(w, r, roleType, audit.EventTypeSidBind, "bind", h.service.BindSid)
	})
}

func (h *Handlers) removeSidHandler(roleType rbac.RoleType) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.sidMutation(w, r, roleType, audit.EventTypeSidUnbind, "unbind", h.service.UnbindSid)
	})
}

func (h *Handlers) sidMutation(w http.ResponseWriter, r *http.Request, roleType rbac.RoleType, eventType audit.EventType, operation string, op func(ctx context.Context, roleType rbac.RoleType, name, sid string) error) {
	start := time.Now()

	if err := r.ParseForm(); err != nil {
		httputil.WriteTextError(w, http.StatusBadRequest, err)
		return
	}
	sid := r.FormValue("sid")
	name, ok := httputil.FormValueRequired(w, r, "roleName")
	if !ok {
		return
	}

	err := op(r.Context(), roleType, name, sid)

	status := audit.EventStatusSuccess
	var errMessage string
	if err != nil {
		status = audit.EventStatusFailure
		errMessage = err.Error()
	}
	event := audit.RequestContext(&audit.Event{
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		Status:       status,
		RoleType:     string(roleType),
		RoleName:     name,
		Sid:          sid,
		ErrorMessage: errMessage,
	}, r)
	// The request context is cancelled as soon as the handler returns; the
	// audit write must outlive it.
	async.SafeGo(context.WithoutCancel(r.Context()), 5*time.Second, "audit sid mutation", func(ctx context.Context) error {
		return h.auditor.Log(ctx, event)
	})
	if h.metrics != nil {
		h.metrics.SidMutationsTotal.WithLabelValues(operation, string(roleType), string(status)).Inc()
		h.metrics.RoleMutationDuration.WithLabelValues(operation, string(roleType)).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteOK(w, "Done")
}

// recordRoleMutation emits the audit event and metrics for a create/delete
func (h *Handlers) recordRoleMutation(r *http.Request, eventType audit.EventType, operation string, roleType rbac.RoleType, name string, err error, start time.Time) {
	status := audit.EventStatusSuccess
	var errMessage string
	if err != nil {
		status = audit.EventStatusFailure
		if errors.Is(err, rbac.ErrProtectedRole) {
			status = audit.EventStatusDenied
		}
		errMessage = err.Error()
	}

	event := audit.RequestContext(&audit.Event{
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		Status:       status,
		RoleType:     string(roleType),
		RoleName:     name,
		ErrorMessage: errMessage,
	}, r)
	async.SafeGo(context.WithoutCancel(r.Context()), 5*time.Second, "audit role mutation", func(ctx context.Context) error {
		return h.auditor.Log(ctx, event)
	})

	if h.metrics != nil {
		h.metrics.RoleMutationsTotal.WithLabelValues(operation, string(roleType), string(status)).Inc()
		h.metrics.RoleMutationDuration.WithLabelValues(operation, string(roleType)).Observe(time.Since(start).Seconds())
	}
}

// writeStoreError maps store errors onto plain-text HTTP responses. The body
// is the raw error text so clients can surface it to the user verbatim.
func (h *Handlers) writeStoreError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, rbac.ErrProtectedRole):
		status = http.StatusForbidden
	case rbac.IsNotFound(err):
		status = http.StatusNotFound
	case rbac.IsDuplicate(err):
		status = http.StatusBadRequest
	case errors.Is(err, rbac.ErrBlankSid):
		status = http.StatusBadRequest
	default:
		var unknownType *rbac.UnknownRoleTypeError
		var invalidPerm *rbac.InvalidPermissionError
		var invalidRes *rbac.InvalidResourceError
		if errors.As(err, &unknownType) || errors.As(err, &invalidPerm) || errors.As(err, &invalidRes) {
			status = http.StatusBadRequest
		} else {
			status = http.StatusInternalServerError
		}
	}

	if status == http.StatusInternalServerError && h.logger != nil {
		h.logger.WithError(err).Error("role store operation failed")
	}
	httputil.WriteTextError(w, status, err)
}
