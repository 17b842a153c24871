// Package middleware carries the HTTP middleware the kernel API mounts
// in front of its handlers: cross-origin access for the browser shell
// and request rate limiting.
//
// The shell is served from its own origin during development (a Vite
// dev server, usually http://localhost:5173), so every API call it
// makes is cross-origin. CORS is therefore part of the API contract
// here, not an afterthought.
package middleware
