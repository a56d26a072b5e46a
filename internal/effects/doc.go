// Package effects runs the reactions to state changes: redirects on sign-in
// and sign-out, page-view analytics and escalation of error notifications.
package effects
