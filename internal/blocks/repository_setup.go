package blocks

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// RepositorySetup is the "search a repository" form shared by every built-in
// block. Only repository.full_name survives normalization.
type RepositorySetup struct{}

type repositorySettings struct {
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

func (RepositorySetup) Normalize(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: settings must be a JSON object", ErrInvalidSettings)
	}

	fullName := gjson.GetBytes(raw, "repository.full_name")
	if fullName.Type != gjson.String || fullName.Str == "" {
		return nil, fmt.Errorf("%w: repository.full_name is required", ErrInvalidSettings)
	}
	if _, _, err := splitFullName(fullName.Str); err != nil {
		return nil, err
	}

	var out repositorySettings
	out.Repository.FullName = fullName.Str
	return json.Marshal(out)
}

func (RepositorySetup) Fields() []Field {
	return []Field{{Name: "repository.full_name", Label: "Repository", Kind: "repository", Required: true}}
}

// fullNameOf reads the repository from already-normalized settings.
func fullNameOf(settings json.RawMessage) (string, error) {
	fullName := gjson.GetBytes(settings, "repository.full_name").String()
	if fullName == "" {
		return "", fmt.Errorf("%w: repository.full_name is missing", ErrInvalidSettings)
	}
	return fullName, nil
}

func splitFullName(fullName string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: repository.full_name must look like owner/name, got %q", ErrInvalidSettings, fullName)
	}
	return owner, name, nil
}
