// Package health answers the liveness and readiness endpoints of both
// listeners.
//
// A [Probe] is checked on every request. Readiness for sitepipe is the
// conjunction of the shutdown gate and the content root probe, so a server
// whose content directory disappears, or that has started draining, drops
// out of the load balancer while liveness keeps passing.
package health
