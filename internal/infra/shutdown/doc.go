// Package shutdown coordinates graceful termination of long-running
// pcompress processes.
//
// Usage:
//
//	ctx, stop := shutdown.WithSignals(context.Background())
//	defer stop()
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown("http", srv.Shutdown)
//	h.OnShutdown("catalog", func(context.Context) error { return cat.Close() })
//	err := h.WaitContext(ctx)
//
// Hooks run in reverse registration order with a shared deadline.
package shutdown
