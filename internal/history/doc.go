// Package history keeps a local log of gateway connection transitions.
//
// Only transitions are stored: connection alive, connection lost, gateway
// offline, reconnecting and give up. Per-ping results go to the time-series
// database instead, where volume is not a concern.
//
// The log answers "when did the gateway drop, and how long did recovery
// take" without InfluxDB, and backs GET /api/v1/watchdog/history.
//
// # Usage
//
//	repo := history.NewSQLiteRepository(db.DB)
//	rec := history.NewRecorder(repo, cfg.Gateway.Name, log)
//	d := sink.NewDispatcher(0, log, rec)
//	sink.Attach(w, d)
//
//	go history.RunPruner(ctx, repo, cfg.History.GetRetention(), cfg.History.GetPruneInterval(), log)
package history
