// Package events provides the kernel's synchronous publish/subscribe bus.
//
// One global bus connects kernel components laterally; isolated channels
// give cooperating apps a private bus with the same semantics. Dispatch
// is fully synchronous: Publish returns after every subscriber has run,
// in subscription order.
//
// Features:
//   - Ordered, reentrant-safe dispatch (handlers may publish, subscribe,
//     and unsubscribe while a dispatch is in flight)
//   - Idempotent unsubscribe closures
//   - One-shot subscriptions that cannot double-fire
//   - Isolated namespaced channels with idempotent destroy
//
// Example Usage:
//
//	bus := events.New()
//	off := bus.Subscribe("app.launched", func(e events.Event) {
//	    fmt.Println(e.Topic, e.Payload)
//	})
//	bus.Publish("app.launched", payload)
//	off()
package events
