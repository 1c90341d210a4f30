/*
Package event provides a type-safe pub/sub event system for session and
turn lifecycle notifications.

The bus decouples the session registry from anything interested in its
lifecycle: the registry publishes events when sessions are created, evicted,
removed, or swept, and turn events as agents process user input. Subscribers
(logging, metrics, tests) react without a direct dependency on the registry.

The package is built on watermill's gochannel for infrastructure while
keeping direct-call semantics so event data keeps its Go types.

Publishing:

	event.Publish(event.Event{
		Type: event.SessionCreated,
		Data: event.SessionCreatedData{SessionID: id},
	})

Subscribing:

	unsubscribe := event.Subscribe(event.SessionSwept, func(e event.Event) {
		data := e.Data.(event.SessionSweptData)
		log.Info().Str("sessionID", data.SessionID).Msg("session swept")
	})
	defer unsubscribe()

When using PublishSync, subscribers run in the publisher's goroutine and
must complete quickly, use non-blocking channel sends, and never publish
re-entrantly.

For testing or isolation, create a dedicated bus with NewBus, or call Reset
to replace the global bus.
*/
package event
