package publish

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Upload targets
const (
	TargetPersonal     = "personal"
	TargetOrganization = "organization"
)

// Environment variables naming the repository of each target
const (
	EnvPersonalRepo = "PERSONAL_HUB_REPO_PATH"
	EnvOrgRepo      = "ORG_HUB_REPO_PATH"
)

var (
	ErrMissingToken  = errors.New("Hugging Face token not found, set HF_TOKEN")
	ErrMissingRepo   = errors.New("repository name is not provided")
	ErrInvalidRepo   = errors.New("repository name must have the form owner/name")
	ErrInvalidTarget = errors.New("invalid upload target, use 'personal' or 'organization'")
	ErrMissingFile   = errors.New("input file not found")
)

// ResolveRepo picks the repository to publish to. An explicit override
// wins; otherwise target selects the personal or organization repository.
// An empty target means personal.
func ResolveRepo(override, target, personal, org string) (string, error) {
	if override != "" {
		return override, nil
	}

	switch strings.ToLower(strings.TrimSpace(target)) {
	case TargetPersonal, "":
		if personal == "" {
			return "", fmt.Errorf("%w: upload target is '%s' but %s is not set", ErrMissingRepo, TargetPersonal, EnvPersonalRepo)
		}
		return personal, nil
	case TargetOrganization:
		if org == "" {
			return "", fmt.Errorf("%w: upload target is '%s' but %s is not set", ErrMissingRepo, TargetOrganization, EnvOrgRepo)
		}
		return org, nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrInvalidTarget, target)
	}
}

// Request describes one upload
type Request struct {
	FilePath string
	Repo     string
	Token    string
	Private  bool
}

// Validate checks the request without touching the network
func (r Request) Validate() error {
	if r.Token == "" {
		return ErrMissingToken
	}
	if r.Repo == "" {
		return ErrMissingRepo
	}
	owner, name, ok := strings.Cut(r.Repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %s", ErrInvalidRepo, r.Repo)
	}

	info, err := os.Stat(r.FilePath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMissingFile, r.FilePath)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrMissingFile, r.FilePath)
	}
	return nil
}
