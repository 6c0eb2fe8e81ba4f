/*
Package event provides the in-process pub/sub bus the engines signal
each other through.

The bus is a direct dispatcher: subscribers are tracked per event type
(plus a wildcard list) under a single mutex, with no intermediate
channel or broker. This preserves Go type information on Event.Data
across the call and keeps publish latency independent of any external
infrastructure.

# Event Types

  - session.saved: a session row was inserted or updated
  - session.deleted: a session (and its cascade) was removed
  - message.created: a message row was inserted or updated
  - file.changed: the project watcher observed a file event
  - question.asked: a caller is blocked awaiting answers
  - question.resolved: a pending question was answered/skipped/rejected

# Basic Usage

Publishing:

	event.Publish(event.Event{
		Type: event.QuestionAsked,
		Data: event.QuestionAskedData{ID: id, SessionID: sid},
	})

Publish dispatches each subscriber in its own goroutine; PublishSync
calls them in the publisher's goroutine and returns when all have run.

Subscribing:

	unsubscribe := event.Subscribe(event.QuestionResolved, func(e event.Event) {
		data := e.Data.(event.QuestionResolvedData)
		logging.For("broker").Debug().Str("id", data.ID).Msg("question settled")
	})
	defer unsubscribe()

SubscribeAll registers a wildcard subscriber for every type.

# Subscriber Safety

PublishSync runs subscribers on the publisher's goroutine. Subscribers
must complete quickly, must not publish re-entrantly, and must not
acquire locks the publisher might hold. Use a non-blocking channel
send when bridging to slower consumers.

# Custom Bus Instances

For testing or isolation, NewBus creates an independent instance with
the same API; Reset clears the global bus between tests.
*/
package event
