package tasks

import (
	"github.com/hibiken/asynq"

	"github.com/wolfman30/booking-engine/pkg/logging"
)

// Worker runs the asynq server that processes booking tasks.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *logging.Logger
}

// NewWorker wires handlers for every booking task type.
func NewWorker(redisOpt asynq.RedisConnOpt, completer Completer, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{"default": 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCompleteBooking, HandleCompletion(completer, logger))
	return &Worker{srv: srv, mux: mux, logger: logger}
}

// Start begins processing in background goroutines.
func (w *Worker) Start() error {
	w.logger.Info("task worker starting")
	return w.srv.Start(w.mux)
}

// Shutdown waits for in-flight tasks and stops the server.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
	w.logger.Info("task worker stopped")
}
