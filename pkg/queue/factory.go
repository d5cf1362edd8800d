package queue

import (
	"fmt"

	"storepulse/pkg/config"
	"storepulse/pkg/interfaces"
	"storepulse/pkg/queue/asynq"
	"storepulse/pkg/queue/local"
)

// Dispatcher a report dispatcher plus its worker-side lifecycle
type Dispatcher interface {
	interfaces.Dispatcher
	Start() error
	Stop()
}

// CreateDispatcher creates the dispatcher named by providerType. The runner is
// only attached when this process also consumes jobs.
func CreateDispatcher(cfg *config.Config, providerType string, runner interfaces.ReportRunner) (Dispatcher, error) {
	switch providerType {
	case "goroutine", "":
		return local.NewDispatcher(runner), nil
	case "asynq":
		m, err := asynq.NewManager(cfg.Redis, cfg.Queue)
		if err != nil {
			return nil, err
		}
		if runner != nil {
			m.RegisterRunner(runner)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported dispatcher type: %s", providerType)
	}
}
