package plugin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ayusman/reactune/internal/recommend"
)

// Dispatcher delivers recommendations to every sink plugin.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	logger   zerolog.Logger
}

// NewDispatcher creates a Dispatcher over the manager's current sinks.
func NewDispatcher(manager *Manager, executor *Executor, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{manager: manager, executor: executor, logger: logger}
}

// Apply sends rec to each sink in turn. A failing sink is logged and does not
// stop delivery to the others; the number of sinks that accepted is returned.
func (d *Dispatcher) Apply(ctx context.Context, rec recommend.Recommendation) int {
	params, err := json.Marshal(rec)
	if err != nil {
		d.logger.Error().Err(err).Msg("encode recommendation for plugins")
		return 0
	}

	applied := 0
	for _, p := range d.manager.Sinks() {
		if err := ctx.Err(); err != nil {
			return applied
		}
		if err := d.applyOne(ctx, p, rec, params); err != nil {
			d.logger.Warn().Err(err).Str("plugin", p.Manifest.Name).Msg("sink plugin failed")
			continue
		}
		applied++
	}
	return applied
}

func (d *Dispatcher) applyOne(ctx context.Context, p *Plugin, rec recommend.Recommendation, params []byte) error {
	resp, err := d.executor.Execute(ctx, p, &Request{
		Action: ActionApply,
		State:  string(rec.ReactionState),
		Config: p.Manifest.Config,
		Params: params,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s rejected recommendation: %s", p.Manifest.Name, resp.Error)
	}
	return nil
}
