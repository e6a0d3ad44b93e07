package source

import (
	"errors"
	"fmt"
	"strings"
)

const (
	visibilityModePublicConstant          = "public"
	visibilityModePrivateConstant         = "private"
	visibilityModeBothConstant            = "both"
	visibilityModeAllConstant             = "all"
	unsupportedVisibilityModeTemplate     = "unsupported visibility mode %q (expected one of %s)"
	visibilityModeChoiceSeparator         = ", "
	runFilterWithoutVisibilityMessageText = "filter must include public or private repositories"
)

// VisibilityMode selects which repositories a run considers.
type VisibilityMode string

// Supported visibility modes. VisibilityModeAll also includes repositories owned by other accounts.
const (
	VisibilityModePublic  VisibilityMode = visibilityModePublicConstant
	VisibilityModePrivate VisibilityMode = visibilityModePrivateConstant
	VisibilityModeBoth    VisibilityMode = visibilityModeBothConstant
	VisibilityModeAll     VisibilityMode = visibilityModeAllConstant
)

// VisibilityModeChoices lists the textual visibility modes in display order.
func VisibilityModeChoices() []string {
	return []string{visibilityModePublicConstant, visibilityModePrivateConstant, visibilityModeBothConstant, visibilityModeAllConstant}
}

// ParseVisibilityMode normalizes textual visibility modes. An empty value selects VisibilityModePublic.
func ParseVisibilityMode(value string) (VisibilityMode, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(value))
	switch VisibilityMode(normalizedValue) {
	case "", VisibilityModePublic:
		return VisibilityModePublic, nil
	case VisibilityModePrivate:
		return VisibilityModePrivate, nil
	case VisibilityModeBoth:
		return VisibilityModeBoth, nil
	case VisibilityModeAll:
		return VisibilityModeAll, nil
	default:
		return "", fmt.Errorf(unsupportedVisibilityModeTemplate, value, strings.Join(VisibilityModeChoices(), visibilityModeChoiceSeparator))
	}
}

// RunFilter selects the repositories a run migrates.
type RunFilter struct {
	IncludePublic  bool
	IncludePrivate bool
	AnyOwner       bool
	IncludeForks   bool
}

// NewRunFilter builds the filter for a visibility mode.
func NewRunFilter(mode VisibilityMode, includeForks bool) RunFilter {
	filter := RunFilter{IncludeForks: includeForks}
	switch mode {
	case VisibilityModePrivate:
		filter.IncludePrivate = true
	case VisibilityModeBoth:
		filter.IncludePublic = true
		filter.IncludePrivate = true
	case VisibilityModeAll:
		filter.IncludePublic = true
		filter.IncludePrivate = true
		filter.AnyOwner = true
	default:
		filter.IncludePublic = true
	}
	return filter
}

// Validate ensures at least one visibility is selected.
func (filter RunFilter) Validate() error {
	if !filter.IncludePublic && !filter.IncludePrivate {
		return errors.New(runFilterWithoutVisibilityMessageText)
	}
	return nil
}

// RequiresSourceSecret reports whether enumerating this filter needs an authenticated source session.
// Only the public, own-repositories mode can use the unauthenticated listing.
func (filter RunFilter) RequiresSourceSecret() bool {
	return filter.AnyOwner || filter.IncludePrivate
}

// Accepts evaluates the filter for a descriptor on behalf of sourceUser.
//
// Owner matching is skipped when AnyOwner is set. The visibility split only
// applies when exactly one visibility is selected.
func (filter RunFilter) Accepts(descriptor RepositoryDescriptor, sourceUser string) bool {
	ownerMatches := filter.AnyOwner || descriptor.Owner == sourceUser
	forkAllowed := filter.IncludeForks || !descriptor.IsFork

	var visibilityMatches bool
	switch {
	case filter.IncludePublic && filter.IncludePrivate:
		visibilityMatches = ownerMatches
	case filter.IncludePrivate:
		visibilityMatches = ownerMatches && descriptor.Visibility == VisibilityPrivate
	default:
		visibilityMatches = ownerMatches && descriptor.Visibility == VisibilityPublic
	}

	return forkAllowed && visibilityMatches
}
