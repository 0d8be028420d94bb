// Package rbac implements the folder-scoped role-based access control data
// model: role types, type-scoped permission catalogs, and the SQL-backed
// authoritative role store.
//
// Three kinds of roles exist. Global roles apply host-wide, folder roles
// apply to the folders they are bound to, and agent roles apply to the agents
// they are bound to. Every role carries a non-empty permission set drawn from
// its type's catalog and a set of bound security identities (sids). Folder
// and agent roles additionally carry a non-empty set of resource bindings.
//
// The store supports create, delete, and sid bind/unbind. There is no
// update-in-place for a role's permissions or resource bindings; callers
// delete and recreate instead. Sid bindings have set semantics: binding a sid
// twice leaves a single binding, and unbinding a sid that is not bound is a
// no-op on an existing role.
//
// A separate authorization engine consumes this data at request time; this
// package only manages the declarative role data.
package rbac
