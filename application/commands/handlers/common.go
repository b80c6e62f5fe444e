package handlers

import (
	"context"

	"go.uber.org/zap"

	"catalog/application/commands"
	"catalog/application/commands/bus"
	"catalog/application/ports"
	"catalog/application/sagas"
	"catalog/domain/config"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	"catalog/domain/events"
	"catalog/domain/services"
	pkgerrors "catalog/pkg/errors"
	"catalog/pkg/utils"
)

// Dependencies are shared by every category command handler. Events and
// Metrics may be nil.
type Dependencies struct {
	Store     ports.CategoryTreeStore
	Slugs     ports.SlugRegistry
	Tx        ports.TxRunner
	Hierarchy *services.CategoryHierarchyService
	Events    ports.EventPublisher
	Metrics   ports.MetricsRecorder
	Clock     ports.Clock
	Config    *config.DomainConfig
	Logger    *zap.Logger
}

type base struct {
	Dependencies
}

func newBase(d Dependencies) base {
	if d.Config == nil {
		d.Config = config.DefaultDomainConfig()
	}
	if d.Hierarchy == nil {
		d.Hierarchy = services.NewCategoryHierarchyService(d.Config)
	}
	if d.Clock == nil {
		d.Clock = utils.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return base{Dependencies: d}
}

// checkVersion rejects a stale or foreign version token.
func checkVersion(c *entities.Category, expected string) error {
	if !c.RowVersion().Matches(expected) {
		return pkgerrors.ConcurrencyConflict(c.ID().Int64()).
			WithDetail("expected_version", expected)
	}
	return nil
}

// parentNotFound turns a missing or archived parent into PARENT_NOT_FOUND.
func parentNotFound(err error, parentID valueobjects.CategoryID) error {
	if pkgerrors.HasCode(err, pkgerrors.CodeCategoryNotFound) {
		return pkgerrors.ErrParentNotFound.New().WithDetail("parent_id", parentID.Int64())
	}
	return err
}

// boundary is the single place storage errors become domain errors.
// Constraint violations surface here already typed by the store.
func boundary(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Normalize(err)
}

// publish sends the uncommitted events of categories after commit. Failures
// are logged; the command has already succeeded.
func (b base) publish(ctx context.Context, categories ...*entities.Category) {
	var batch []events.DomainEvent
	for _, c := range categories {
		batch = append(batch, c.GetUncommittedEvents()...)
		c.MarkEventsAsCommitted()
	}
	if b.Events == nil || len(batch) == 0 {
		return
	}
	if err := b.Events.PublishBatch(ctx, batch); err != nil {
		b.Logger.Warn("Failed to publish category events",
			zap.Int("count", len(batch)),
			zap.Error(err),
		)
	}
}

func (b base) recordCascade(ctx context.Context, operation string, size int) {
	if b.Metrics != nil {
		b.Metrics.RecordCascadeSize(ctx, operation, size)
	}
}

// registryAttempts bounds the tries of a post-commit registry write.
const registryAttempts = 2

// lostSlugRace reports a registration refused by the uniqueness constraint,
// as opposed to a transient storage failure.
func lostSlugRace(err error) bool {
	return pkgerrors.HasCode(err, pkgerrors.CodeSlugAlreadyInUse) ||
		pkgerrors.HasCode(err, pkgerrors.CodeConcurrencyConflict)
}

// registerAfterCommit commits the row change, then registers slug for the
// category. When registration fails, revert runs in a fresh transaction if
// revertOn accepts the error; a nil revertOn accepts every error. kept
// reports whether the committed change is still in place.
func (b base) registerAfterCommit(
	ctx context.Context,
	name string,
	policy ports.TxPolicy,
	commit func(ctx context.Context) error,
	categoryID func() int64,
	slug func() valueobjects.Slug,
	revert func(ctx context.Context) error,
	revertOn func(err error) bool,
) (kept bool, err error) {
	var registerErr error
	saga := sagas.New(name, b.Logger)
	saga.AddStep(sagas.Step{
		Name: "commit_category",
		Execute: func(ctx context.Context) error {
			if err := b.Tx.InTx(ctx, policy, commit); err != nil {
				return err
			}
			kept = true
			return nil
		},
		Compensate: func(ctx context.Context) error {
			if revert == nil || (revertOn != nil && !revertOn(registerErr)) {
				return nil
			}
			if err := b.Tx.InTx(ctx, policy, revert); err != nil {
				return err
			}
			kept = false
			return nil
		},
	})
	saga.AddStep(sagas.Step{
		Name: "register_slug",
		Execute: func(ctx context.Context) error {
			if slug().IsZero() {
				return nil
			}
			registerErr = b.Slugs.RegisterSlug(ctx, valueobjects.EntityTypeCategory, categoryID(), slug())
			return registerErr
		},
		MaxRetries: registryAttempts,
		Retryable:  pkgerrors.IsRetryable,
	})
	err = saga.Execute(ctx)
	return kept, err
}

func categoryResult(c *entities.Category, changed bool, rebased int) *commands.CategoryResult {
	return &commands.CategoryResult{
		CategoryID: c.ID().Int64(),
		Changed:    changed,
		Version:    c.RowVersion().String(),
		Slug:       c.Slug().String(),
		Path:       c.Path().String(),
		Rebased:    rebased,
	}
}

// Adapt exposes a typed handler on the command bus.
func Adapt[C bus.Command, R any](handle func(context.Context, C) (R, error)) bus.CommandHandler {
	return bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
		typed, ok := cmd.(C)
		if !ok {
			return nil, pkgerrors.ErrInvalidCommand.New().WithDetail("command", bus.CommandName(cmd))
		}
		return handle(ctx, typed)
	})
}

// RegisterAll builds every category handler and registers it on b.
func RegisterAll(b *bus.CommandBus, d Dependencies) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.CreateCategoryCommand{}, Adapt(NewCreateCategoryHandler(d).Handle)},
		{commands.UpdateCategoryCommand{}, Adapt(NewUpdateCategoryHandler(d).Handle)},
		{commands.ArchiveCategoryCommand{}, Adapt(NewArchiveCategoryHandler(d).Handle)},
		{commands.RestoreCategoryCommand{}, Adapt(NewRestoreCategoryHandler(d).Handle)},
		{commands.ReparentCategoryCommand{}, Adapt(NewReparentCategoryHandler(d).Handle)},
		{commands.ReslugCategoryCommand{}, Adapt(NewReslugCategoryHandler(d).Handle)},
		{commands.DeleteCategoryCommand{}, Adapt(NewDeleteCategoryHandler(d).Handle)},
	}
	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}
