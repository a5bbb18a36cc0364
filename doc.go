// Package continuum is the composition root of the Continuum governance core.
//
// It wires a canonical document store, the tiered key resolver, the
// operating-mode resolver, the action gate and the model registry loader into
// a single Engine.
//
// A workspace's operating mode is derived on every call from two sources: the
// readiness reported by an external service and the governed flag of the
// workspace's governance document. Nothing is cached, so a toggle is visible
// on the next call:
//
//	NOT_READY                         -> GUARDED
//	READY, no governance document     -> GUARDED
//	READY, document not governed      -> ADVISORY
//	READY, document governed          -> OPERATIONAL
//
// Usage:
//
//	engine, err := continuum.New("./docs",
//		continuum.WithReadinessURL("http://readiness.internal"),
//		continuum.WithLogger(logger),
//	)
//
//	decision := engine.Authorize(ctx, "ws-1", continuum.Action{
//		Name: "publish", Kind: governance.ActionMutation, Governed: true,
//	})
package continuum
