package source

import (
	"errors"
	"strings"

	"github.com/google/go-github/v58/github"
)

const (
	visibilityPublicValueConstant    = "public"
	visibilityPrivateValueConstant   = "private"
	visibilityInternalValueConstant  = "internal"
	missingNameMessageConstant       = "record is missing name"
	missingOwnerLoginMessageConstant = "record is missing owner.login"
)

// Visibility describes whether a repository is publicly readable.
type Visibility string

// Repository visibility values.
const (
	VisibilityPublic  Visibility = visibilityPublicValueConstant
	VisibilityPrivate Visibility = visibilityPrivateValueConstant
)

var (
	errMissingName       = errors.New(missingNameMessageConstant)
	errMissingOwnerLogin = errors.New(missingOwnerLoginMessageConstant)
)

// RepositoryDescriptor is the subset of remote repository metadata the filter and migration need.
type RepositoryDescriptor struct {
	Name       string
	Owner      string
	Visibility Visibility
	IsFork     bool
}

// FullName renders owner/name.
func (descriptor RepositoryDescriptor) FullName() string {
	return descriptor.Owner + "/" + descriptor.Name
}

// describeRepository converts one listed repository. Name and owner.login are required.
// GitHub Enterprise "internal" repositories count as private; records without a
// visibility field fall back to the legacy private flag.
func describeRepository(repository *github.Repository) (RepositoryDescriptor, error) {
	if len(strings.TrimSpace(repository.GetName())) == 0 {
		return RepositoryDescriptor{}, errMissingName
	}
	if len(strings.TrimSpace(repository.GetOwner().GetLogin())) == 0 {
		return RepositoryDescriptor{}, errMissingOwnerLogin
	}

	return RepositoryDescriptor{
		Name:       repository.GetName(),
		Owner:      repository.GetOwner().GetLogin(),
		Visibility: resolveVisibility(repository),
		IsFork:     repository.GetFork(),
	}, nil
}

func resolveVisibility(repository *github.Repository) Visibility {
	switch strings.ToLower(strings.TrimSpace(repository.GetVisibility())) {
	case visibilityPublicValueConstant:
		return VisibilityPublic
	case visibilityPrivateValueConstant, visibilityInternalValueConstant:
		return VisibilityPrivate
	}
	if repository.GetPrivate() {
		return VisibilityPrivate
	}
	return VisibilityPublic
}
