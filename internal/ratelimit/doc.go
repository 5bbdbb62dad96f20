// Package ratelimit provides per-IP token bucket rate limiting with
// background eviction of idle entries and a cap on tracked addresses.
//
// It is a single-instance, in-memory limiter meant as defense in depth for
// one server: it blunts a single address flooding the renderer but does not
// help against distributed traffic or bandwidth-bill attacks. Put an
// upstream WAF or CDN limiter in front for those.
package ratelimit
