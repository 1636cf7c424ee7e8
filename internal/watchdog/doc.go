// Package watchdog watches a long-lived connection to a device gateway.
//
// A Watchdog pings its Target on an interval, classifies the connection as
// alive or offline and, when the gateway stays offline, asks the Target to
// reconnect. Consumers observe it through named events.
//
// # Probe loop
//
// Each tick:
//
//  1. Pings the target (errors and panics count as a failed ping)
//  2. On success, resets every counter; after a reconnect it also restores
//     observers in the background
//  3. On failure, counts the failure and, past the offline threshold, counts
//     offline pings toward the next reconnect attempt
//  4. Schedules the next tick after round(PingInterval * factor^min(5, failures))
//
// Giving up (attempts exhausted or a reconnect that reports failure) halts the
// loop. Stop followed by Start resumes probing; the given-up latch clears on
// the next successful ping.
//
// # Events
//
//	ping succeeded    every successful probe
//	ping failed       every failed probe (FailedPingCount)
//	connection alive  dead -> alive
//	connection lost   alive -> dead
//	gateway offline   failure count reaches the offline threshold
//	reconnecting      a reconnect attempt begins (Attempt, MaxAttempts)
//	give up           attempts exhausted or a reconnect failed
//
// Events of one tick are delivered in that order, synchronously, before the
// next tick is scheduled. A panicking handler is recovered and does not
// affect the watchdog or other handlers.
//
// # Usage
//
//	w, err := watchdog.New(target, &watchdog.Overrides{
//	    PingInterval: watchdog.Ptr(5 * time.Second),
//	})
//	if err != nil {
//	    return err
//	}
//	w.On(watchdog.EventGiveUp, func(watchdog.Event) { log.Warn("gateway unreachable") })
//	if err := w.Start(); err != nil {
//	    return err
//	}
//	defer w.Stop()
package watchdog
