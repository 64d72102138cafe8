// Package barcode implements alias maintenance on top of the inventory engine.
package barcode

import (
	"context"
	"errors"

	appinventory "github.com/sellerops/console/internal/application/inventory"
	"github.com/sellerops/console/internal/application/tx"
	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/shared"
	"go.uber.org/zap"
)

// AliasService adds, removes and describes barcode aliases.
type AliasService struct {
	scope  tx.Scope
	engine *appinventory.Engine
	logger *zap.Logger
}

// NewAliasService creates a new AliasService
func NewAliasService(scope tx.Scope, engine *appinventory.Engine, logger *zap.Logger) *AliasService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AliasService{scope: scope, engine: engine, logger: logger}
}

// AddAliasRequest is the input of AddAlias.
type AddAliasRequest struct {
	Alias       string `json:"alias" binding:"required"`
	Canonical   string `json:"canonical" binding:"required"`
	MergeStocks *bool  `json:"merge_stocks,omitempty"`
}

// merge reports whether stock should be folded, defaulting to true.
func (r AddAliasRequest) merge() bool {
	return r.MergeStocks == nil || *r.MergeStocks
}

// Normalize returns the canonical form of raw. Empty input yields "".
func (s *AliasService) Normalize(ctx context.Context, raw string) (string, error) {
	var out string
	err := s.scope.Execute(ctx, func(repos tx.Repositories) error {
		var err error
		out, err = barcode.Canonicalize(ctx, repos.Aliases(), raw)
		return err
	})
	return out, err
}

// AddAlias registers req.Alias as a secondary barcode of req.Canonical and,
// unless disabled, moves every unit held under the alias onto the canonical
// barcode in the same transaction.
func (s *AliasService) AddAlias(ctx context.Context, req AddAliasRequest) (*barcode.Info, error) {
	alias, err := barcode.NewAlias(req.Alias, req.Canonical)
	if err != nil {
		return nil, err
	}

	var info *barcode.Info
	err = s.scope.Execute(ctx, func(repos tx.Repositories) error {
		aliases := repos.Aliases()
		if err := s.checkConflicts(ctx, aliases, alias); err != nil {
			return err
		}
		if err := aliases.Save(ctx, alias); err != nil {
			return err
		}
		if req.merge() {
			if err := s.engine.MergeIn(ctx, repos, alias.Alias, alias.Canonical); err != nil {
				return barcode.ErrStockMergeFailure.WithDetails("%s -> %s: %v", alias.Alias, alias.Canonical, err)
			}
		}
		var err error
		info, err = describe(ctx, aliases, alias.Alias)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Barcode alias added",
		zap.String("alias", alias.Alias),
		zap.String("canonical", alias.Canonical),
		zap.Bool("merged", req.merge()))
	return info, nil
}

func (s *AliasService) checkConflicts(ctx context.Context, aliases barcode.AliasRepository, alias *barcode.Alias) error {
	existing, err := aliases.FindByAlias(ctx, alias.Alias)
	switch {
	case err == nil:
		return barcode.ErrAliasConflict.WithDetails("%s is already an alias of %s", alias.Alias, existing.Canonical)
	case !errors.Is(err, shared.ErrNotFound):
		return err
	}

	pointing, err := aliases.FindByCanonical(ctx, alias.Alias)
	if err != nil {
		return err
	}
	if len(pointing) > 0 {
		return barcode.ErrAliasConflict.WithDetails("%s is the canonical of %d aliases", alias.Alias, len(pointing))
	}

	target, err := aliases.FindByAlias(ctx, alias.Canonical)
	switch {
	case err == nil:
		return barcode.ErrAliasConflict.WithDetails("%s is itself an alias of %s", alias.Canonical, target.Canonical)
	case !errors.Is(err, shared.ErrNotFound):
		return err
	}
	return nil
}

// RemoveAlias deletes the alias row. Stock stays with the canonical barcode.
func (s *AliasService) RemoveAlias(ctx context.Context, raw string) error {
	alias, err := barcode.Require(raw)
	if err != nil {
		return err
	}
	err = s.scope.Execute(ctx, func(repos tx.Repositories) error {
		if err := repos.Aliases().Delete(ctx, alias); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrNotFound.WithDetails("alias %s is not registered", alias)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("Barcode alias removed", zap.String("alias", alias))
	return nil
}

// Info tells whether raw is an alias and lists what points at its canonical.
func (s *AliasService) Info(ctx context.Context, raw string) (*barcode.Info, error) {
	b, err := barcode.Require(raw)
	if err != nil {
		return nil, err
	}
	var info *barcode.Info
	err = s.scope.Execute(ctx, func(repos tx.Repositories) error {
		var err error
		info, err = describe(ctx, repos.Aliases(), b)
		return err
	})
	return info, err
}

func describe(ctx context.Context, aliases barcode.AliasRepository, b string) (*barcode.Info, error) {
	info := &barcode.Info{Barcode: b, Canonical: b}
	a, err := aliases.FindByAlias(ctx, b)
	switch {
	case err == nil:
		info.IsAlias = true
		info.Canonical = a.Canonical
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	pointing, err := aliases.FindByCanonical(ctx, info.Canonical)
	if err != nil {
		return nil, err
	}
	for _, p := range pointing {
		info.Aliases = append(info.Aliases, p.Alias)
	}
	return info, nil
}
