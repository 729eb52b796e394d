package blocks

import (
	"context"
	"errors"

	"github.com/xstevenyung/jumpdash/internal/adapter/github"
)

// PreviewValue stands in for the real metric while a block is being set up.
const PreviewValue = 1234

const (
	TypeGitHubStar  = "github-star"
	TypeGitHubIssue = "github-issue"
	TypeGitHubPR    = "github-pr"
	TypeNPMDownload = "npm-download"
)

var ErrMissingGitHubToken = errors.New("github access required")

type RepositorySource interface {
	Repository(ctx context.Context, token, fullName string) (*github.Repository, error)
	OpenPullRequests(ctx context.Context, token, fullName string) (int64, error)
}

type DownloadSource interface {
	WeeklyDownloads(ctx context.Context, pkg string) (int64, error)
}

// metricDisplay renders one number per repository. fetch is skipped in preview.
type metricDisplay struct {
	title       string
	unit        string
	needsGitHub bool
	fetch       func(ctx context.Context, req RenderRequest, fullName string) (int64, error)
}

func (d metricDisplay) Render(ctx context.Context, req RenderRequest) (*View, error) {
	if req.Preview {
		return &View{Title: d.title, Value: PreviewValue, Unit: d.unit, Badges: []string{}}, nil
	}

	fullName, err := fullNameOf(req.Settings)
	if err != nil {
		return nil, err
	}
	if d.needsGitHub && req.GitHubToken == "" {
		return nil, ErrMissingGitHubToken
	}

	value, err := d.fetch(ctx, req, fullName)
	if err != nil {
		return nil, err
	}
	return &View{Title: d.title, Value: value, Unit: d.unit, Badges: []string{fullName}}, nil
}

// Builtin returns the registry of block types offered to users.
func Builtin(repos RepositorySource, downloads DownloadSource) *Registry {
	setup := RepositorySetup{}

	return NewRegistry(
		Definition{
			Type:        TypeGitHubStar,
			Name:        "Github Star",
			Description: "Star count of a GitHub repository.",
			Setup:       setup,
			Display: metricDisplay{
				title: "Github Stars", unit: "stars", needsGitHub: true,
				fetch: func(ctx context.Context, req RenderRequest, fullName string) (int64, error) {
					repo, err := repos.Repository(ctx, req.GitHubToken, fullName)
					if err != nil {
						return 0, err
					}
					return repo.StargazersCount, nil
				},
			},
			RequiresGitHub: true,
		},
		Definition{
			Type:        TypeGitHubIssue,
			Name:        "Github Issue",
			Description: "Open issues of a GitHub repository.",
			Setup:       setup,
			Display: metricDisplay{
				title: "Github Issues", unit: "issues", needsGitHub: true,
				fetch: func(ctx context.Context, req RenderRequest, fullName string) (int64, error) {
					repo, err := repos.Repository(ctx, req.GitHubToken, fullName)
					if err != nil {
						return 0, err
					}
					return repo.OpenIssuesCount, nil
				},
			},
			RequiresGitHub: true,
		},
		Definition{
			Type:        TypeGitHubPR,
			Name:        "Github PR",
			Description: "Open pull requests of a GitHub repository.",
			Setup:       setup,
			Display: metricDisplay{
				title: "Github PRs", unit: "PRs", needsGitHub: true,
				fetch: func(ctx context.Context, req RenderRequest, fullName string) (int64, error) {
					return repos.OpenPullRequests(ctx, req.GitHubToken, fullName)
				},
			},
			RequiresGitHub: true,
		},
		Definition{
			Type:        TypeNPMDownload,
			Name:        "NPM Download",
			Description: "Last week's npm downloads of the package named after the repository.",
			Setup:       setup,
			Display: metricDisplay{
				title: "NPM Downloads", unit: "downloads",
				fetch: func(ctx context.Context, _ RenderRequest, fullName string) (int64, error) {
					_, pkg, err := splitFullName(fullName)
					if err != nil {
						return 0, err
					}
					return downloads.WeeklyDownloads(ctx, pkg)
				},
			},
		},
	)
}
