package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/picklr-io/serp2snow/internal/ir"
	"github.com/picklr-io/serp2snow/internal/logging"
)

const bucketPrompt = "Enter the name of the S3 bucket to be created where SerpWow results will be stored:"

// Start resumes the tracked run when the operator agrees to, or begins a new
// run. Declining to resume offers to forget the tracked run first; keeping
// it returns without starting anything.
func (e *Engine) Start(ctx context.Context) error {
	existing, err := e.load(ctx)
	if err != nil {
		return err
	}

	if existing != nil {
		resume, err := e.prompt.Confirm("Continue from last good state?",
			fmt.Sprintf("A previous setup completed %s.", existing.Stage))
		if err != nil {
			return e.fail(existing, err)
		}
		if resume {
			logging.Info("resuming setup", "stage", existing.Stage, "run_id", existing.RunID)
			return e.Advance(ctx, existing)
		}

		abandon, err := e.confirmAbandon(existing)
		if err != nil {
			return e.fail(existing, err)
		}
		if !abandon {
			return nil
		}
		if err := e.clear(ctx, existing); err != nil {
			return err
		}
	}

	initial, err := e.newRun()
	if err != nil {
		return e.fail(&ir.ProvisioningState{Stage: ir.StageInitialInput}, err)
	}
	logging.Info("starting setup", "run_id", initial.RunID, "bucket", initial.Bucket.Name)
	return e.Advance(ctx, initial)
}

// Reset offers to forget the tracked run without starting a new one. It
// reports whether progress was cleared.
func (e *Engine) Reset(ctx context.Context) (bool, error) {
	existing, err := e.load(ctx)
	if err != nil {
		return false, err
	}
	if existing == nil {
		e.out.Activity("No setup progress is saved")
		return false, nil
	}

	abandon, err := e.confirmAbandon(existing)
	if err != nil || !abandon {
		return false, err
	}
	if err := e.clear(ctx, existing); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) load(ctx context.Context) (*ir.ProvisioningState, error) {
	s, err := e.store.Get(ctx)
	if err != nil {
		if errors.Is(err, ir.ErrUnknownStage) {
			return nil, fmt.Errorf("%w: %w", ErrIntegrity, err)
		}
		return nil, fmt.Errorf("failed to read setup progress: %w", err)
	}
	return s, nil
}

// confirmAbandon lists what the tracked run created and asks whether to
// forget it.
func (e *Engine) confirmAbandon(s *ir.ProvisioningState) (bool, error) {
	ledger := strings.TrimSuffix(ir.FormatLedger(s.Ledger()), "\n")
	if ledger == "" {
		ledger = "(none)"
	}
	e.out.Warn("The previous setup created these resources:\n%s", ledger)
	e.out.Warn("Clearing setup progress does not delete them; remove any you no longer need manually")

	confirmed, err := e.prompt.Confirm("Clear setup progress?", "This cannot be undone.")
	if err != nil {
		return false, err
	}
	if !confirmed {
		e.out.Activity("Setup progress was kept")
	}
	return confirmed, nil
}

func (e *Engine) clear(ctx context.Context, s *ir.ProvisioningState) error {
	if err := e.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear setup progress: %w", err)
	}
	logging.Info("setup progress cleared", "stage", s.Stage, "run_id", s.RunID)
	e.out.Success("Setup progress cleared")
	return nil
}

func (e *Engine) newRun() (*ir.ProvisioningState, error) {
	name, err := e.prompt.Input(bucketPrompt, "")
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "bucket name", Message: "A bucket name is required"}
	}

	return &ir.ProvisioningState{
		Stage:            ir.StageInitialInput,
		RunID:            uuid.NewString(),
		Bucket:           &ir.Bucket{Name: name},
		CreatedResources: []ir.ResourceRecord{},
	}, nil
}
