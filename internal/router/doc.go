// Package router provides the routing collaborator the state layer talks to:
// the Navigator interface, an in-memory router with a route table, and the
// Tracker that mirrors completed navigations into the store.
package router
