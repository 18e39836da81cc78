// Package engine drives a setup run through its fixed sequence of stages,
// persisting progress after every completed stage so the run can resume.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/picklr-io/serp2snow/internal/config"
	"github.com/picklr-io/serp2snow/internal/ir"
	"github.com/picklr-io/serp2snow/internal/logging"
	"github.com/picklr-io/serp2snow/internal/state"
)

// Engine orchestrates a setup run.
type Engine struct {
	store        state.Store
	objects      ObjectStore
	identity     Identity
	warehouse    Warehouse
	destinations Destinations
	prompt       Prompter
	out          Reporter

	names       config.Names
	accountID   string
	propagation config.PropagationConfig
}

// Options wires an Engine to its collaborators.
type Options struct {
	Store        state.Store
	ObjectStore  ObjectStore
	Identity     Identity
	Warehouse    Warehouse
	Destinations Destinations
	Prompter     Prompter
	Reporter     Reporter

	// Names defaults to config.DefaultNames when zero.
	Names config.Names
	// AccountID is the AWS account trusted by the role until Snowflake's
	// identity is known.
	AccountID   string
	Propagation config.PropagationConfig
}

func NewEngine(opts Options) *Engine {
	names := opts.Names
	if names == (config.Names{}) {
		names = config.DefaultNames()
	}
	out := opts.Reporter
	if out == nil {
		out = discard{}
	}
	return &Engine{
		store:        opts.Store,
		objects:      opts.ObjectStore,
		identity:     opts.Identity,
		warehouse:    opts.Warehouse,
		destinations: opts.Destinations,
		prompt:       opts.Prompter,
		out:          out,
		names:        names,
		accountID:    opts.AccountID,
		propagation:  opts.Propagation,
	}
}

// Advance runs the step for s.Stage and every following step, persisting
// each completed stage before moving on. It stops after the terminal stage
// or at the first failure.
//
// A failed step leaves the store untouched and is returned as a
// *SetupFailedError after the operator has been told what to do.
//
// Two kinds of error are fatal and returned as is: errors wrapping
// ErrIntegrity, and a failure to persist a completed stage. The latter is
// not an integrity problem, but the external resource already exists while
// the store no longer reflects it, so the run cannot safely continue.
func (e *Engine) Advance(ctx context.Context, s *ir.ProvisioningState) error {
	for {
		next, err := e.Step(ctx, s)
		if err != nil {
			if errors.Is(err, ErrIntegrity) {
				return err
			}
			return e.fail(s, err)
		}
		if s.Stage.Terminal() {
			return nil
		}

		if err := e.store.Set(ctx, next); err != nil {
			return fmt.Errorf("failed to persist setup progress at %s: %w", next.Stage, err)
		}
		logging.Info("stage completed", "stage", next.Stage, "run_id", next.RunID, "resources", len(next.CreatedResources))
		s = next
	}
}

// Step runs the step registered for s.Stage and returns the state it
// produced, without persisting it. s is not modified.
func (e *Engine) Step(ctx context.Context, s *ir.ProvisioningState) (*ir.ProvisioningState, error) {
	if s == nil {
		return nil, integrityErrorf("no setup progress to advance")
	}
	if !s.Stage.Valid() || steps[s.Stage] == nil {
		return nil, integrityErrorf("no step registered for stage %d", int(s.Stage))
	}

	logging.Debug("running step", "stage", s.Stage, "run_id", s.RunID)
	next, err := steps[s.Stage](e, ctx, s)
	if err != nil {
		return nil, err
	}
	if s.Stage.Terminal() {
		return s, nil
	}

	want, _ := s.Stage.Next()
	switch {
	case next == nil:
		return nil, integrityErrorf("step for %s returned no state", s.Stage)
	case next.Stage != want:
		return nil, integrityErrorf("step for %s moved to %s instead of %s", s.Stage, next.Stage, want)
	case len(next.CreatedResources) < len(s.CreatedResources):
		return nil, integrityErrorf("step for %s dropped created resources", s.Stage)
	}
	return next, nil
}

func (e *Engine) fail(s *ir.ProvisioningState, err error) error {
	logging.Error("setup step failed", "stage", s.Stage, "run_id", s.RunID, "error", err)

	msg := Classify(s.Stage, err)
	e.out.Error("Setup did not complete successfully")
	e.out.Warn("%s", msg)

	var partial *ir.IncompleteCreateError
	if errors.As(err, &partial) {
		e.out.Warn("%s was created but is not tracked; delete it before running setup again", partial.Resource)
	}
	return &SetupFailedError{Stage: s.Stage, Message: msg, Err: err}
}

type discard struct{}

func (discard) Activity(string, ...any) {}
func (discard) Success(string, ...any)  {}
func (discard) Warn(string, ...any)     {}
func (discard) Error(string, ...any)    {}
