// Package errfwd captures runtime error occurrences from an event source and
// conditionally forwards them to a reporting sink.
//
// A Coordinator holds two ordered filter lists and at most one Sink. For every
// occurrence it decides whether to suppress it, force it through, or forward it
// by default, and records the outcome of the most recent decision.
//
// # Core Components
//
//   - Occurrence: one reported error with message, source location and optional detail
//   - Filter: predicate registered either as an ignore filter or as a force-forward filter
//   - Sink: destination for forwarded occurrences (stderr, noop, multi, cxdb, sentry)
//   - Coordinator: filter registry, decision engine and forward status tracker
//   - EventSource: anything that emits error events (Dispatcher, httpsource)
//
// # Quick Start
//
//	target := errfwd.NewDispatcher()
//	coord, err := errfwd.RegisterElement(target,
//	    errfwd.WithForwarder(stderr.Candidate()),
//	    errfwd.WithIgnoreFilters(filters.ScriptError, filters.BrowserExtension),
//	    errfwd.WithForceForwardFilters(filters.MessagePattern(`(?i)payment`)),
//	)
//	if err != nil {
//	    return err
//	}
//	_ = target.DispatchError(ctx, errfwd.ErrorEvent{Message: "boom", Filename: "app.js"})
//	fmt.Println(coord.ForwardStatus())
//
// # Decision Rule
//
// Without a sink nothing is forwarded. Otherwise an occurrence is forwarded when
// any force-forward filter matches or when no ignore filter matches. Force-forward
// always wins over ignore.
//
// # Registration
//
// Filters and sinks are registered as zero-argument constructors and instantiated
// once. Invalid filter candidates are logged and skipped. A constructible sink
// candidate that does not implement Sink is silently ignored, while a candidate
// that is not a constructor at all is a configuration error.
package errfwd
