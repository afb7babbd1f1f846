package main

import (
	"context"

	"github.com/ridgecap-labs/roofline/internal/engine"
	"github.com/ridgecap-labs/roofline/internal/model"
)

// resolveLocation runs the selected resolution strategy.
func resolveLocation(ctx context.Context, env *engineEnv, loc model.Location, all bool) (*engine.Resolution, error) {
	if all {
		return env.Engine.ResolveAll(ctx, loc)
	}
	return env.Engine.ResolveTiered(ctx, loc)
}
