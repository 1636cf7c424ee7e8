// Package sink delivers watchdog events to the outside world.
//
// Every sink implements Handle(watchdog.Event) and is attached with OnAny:
//
//   - MQTTPublisher: gatewatch/{gateway}/event/{kind} plus retained status
//   - AMQPPublisher: topic exchange, routing key gatewatch.{gateway}.{kind}
//   - Metrics: InfluxDB points gateway_probe and gateway_transition
//
// Broker sinks should sit behind a Dispatcher, which queues events off the
// watchdog tick and delivers them in order from one worker:
//
//	enc, _ := sink.NewEncoder(cfg.Events.Encoding)
//	pub := sink.NewMQTTPublisher(mqttClient, cfg.Gateway.Name, enc, w, log)
//	d := sink.NewDispatcher(0, log, pub, sink.NewMetrics(influx, cfg.Gateway.Name))
//	sink.Attach(w, d)
//	defer d.Close()
//
// Payloads are JSON by default or canonical CBOR (events.encoding: cbor).
package sink
