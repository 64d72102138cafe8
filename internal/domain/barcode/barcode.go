// Package barcode holds the canonical barcode value rules and the alias model
// that collapses alternative barcodes onto one canonical barcode.
package barcode

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sellerops/console/internal/domain/shared"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Errors raised by alias maintenance.
var (
	ErrAliasConflict     = shared.NewDomainError(shared.CodeAliasConflict, "Alias conflict")
	ErrStockMergeFailure = shared.NewDomainError(shared.CodeStockMergeFailure, "Stock merge failed")
)

// Normalize strips surrounding whitespace and lower-cases the input.
// Non-ASCII runes survive unchanged apart from case folding.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	// cases.Caser is stateful, so each call builds its own.
	return cases.Lower(language.Und).String(trimmed)
}

// Require normalizes raw and rejects empty results.
func Require(raw string) (string, error) {
	b := Normalize(raw)
	if b == "" {
		return "", shared.ErrInvalidBarcode.WithDetails("barcode must not be empty")
	}
	return b, nil
}

// Alias maps a secondary barcode onto its canonical barcode.
type Alias struct {
	Alias     string
	Canonical string
	CreatedAt time.Time
}

// NewAlias validates and normalizes both sides of an alias.
func NewAlias(alias, canonical string) (*Alias, error) {
	a, err := Require(alias)
	if err != nil {
		return nil, err
	}
	c, err := Require(canonical)
	if err != nil {
		return nil, err
	}
	if a == c {
		return nil, ErrAliasConflict.WithDetails("alias %q cannot point to itself", a)
	}
	return &Alias{Alias: a, Canonical: c, CreatedAt: time.Now()}, nil
}

// Info describes how a barcode participates in aliasing.
type Info struct {
	Barcode   string   `json:"barcode"`
	IsAlias   bool     `json:"is_alias"`
	Canonical string   `json:"canonical"`
	Aliases   []string `json:"aliases,omitempty"`
}

// AliasRepository persists alias rows.
type AliasRepository interface {
	// FindByAlias returns shared.ErrNotFound when alias is not registered.
	FindByAlias(ctx context.Context, alias string) (*Alias, error)
	// FindByCanonical lists aliases pointing at canonical, ordered by alias.
	FindByCanonical(ctx context.Context, canonical string) ([]Alias, error)
	// All returns every alias keyed by alias.
	All(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, alias *Alias) error
	Delete(ctx context.Context, alias string) error
}

// Canonicalize normalizes raw and follows its alias, if any. Empty input
// yields an empty result without touching the repository.
func Canonicalize(ctx context.Context, repo AliasRepository, raw string) (string, error) {
	b := Normalize(raw)
	if b == "" {
		return "", nil
	}
	a, err := repo.FindByAlias(ctx, b)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return b, nil
		}
		return "", err
	}
	return a.Canonical, nil
}

// Resolver resolves barcodes against an alias snapshot held in memory.
// It is used when many barcodes are canonicalized in one pass.
type Resolver map[string]string

// NewResolver loads every alias from repo.
func NewResolver(ctx context.Context, repo AliasRepository) (Resolver, error) {
	all, err := repo.All(ctx)
	if err != nil {
		return nil, err
	}
	return Resolver(all), nil
}

// Resolve normalizes raw and follows the alias snapshot.
func (r Resolver) Resolve(raw string) string {
	b := Normalize(raw)
	if c, ok := r[b]; ok {
		return c
	}
	return b
}
