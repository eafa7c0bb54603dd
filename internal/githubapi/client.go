package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

const (
	tokenRequiredMessageConstant            = "hosting token not configured"
	apiErrorTemplateConstant                = "%s: %s"
	rateLimiterFailureTemplateConstant      = "failed to create rate limit waiter: %w"
	baseURLConfigurationTemplateConstant    = "failed to configure base URL %s: %w"
	pullRequestCreationOperationConstant    = "create pull request"
	pullRequestLookupOperationConstant      = "list pull requests"
	duplicatePullRequestMarkerConstant      = "already exists"
	duplicatePullRequestMissingConstant     = "pull request reported as duplicate but no open pull request found for %s"
	pullRequestHeadFilterTemplateConstant   = "%s:%s"
	openPullRequestStateConstant            = "open"
	pullRequestListPageSizeConstant         = 100
	rateLimitSingleSleepDurationConstant    = time.Hour
	baseURLTrailingSlashConstant            = "/"
	unprocessableEntityStatusCodeConstant   = http.StatusUnprocessableEntity
)

// ErrTokenRequired indicates the client was constructed without a token.
var ErrTokenRequired = errors.New(tokenRequiredMessageConstant)

// APIError reports a failed hosting API operation.
type APIError struct {
	Operation string
	Cause     error
}

// Error describes the failed operation.
func (apiError APIError) Error() string {
	return fmt.Sprintf(apiErrorTemplateConstant, apiError.Operation, apiError.Cause)
}

// Unwrap exposes the underlying cause.
func (apiError APIError) Unwrap() error {
	return apiError.Cause
}

// PullRequest identifies one pull request on the hosting provider.
type PullRequest struct {
	Number int
	URL    string
}

// ClientOptions configures optional Client behavior.
type ClientOptions struct {
	// BaseURL overrides the API endpoint, primarily for tests.
	BaseURL string
	// HTTPClient overrides the token-authenticated rate-limited default.
	HTTPClient *http.Client
}

// Client wraps the hosting provider REST API used during fork synchronization.
type Client struct {
	gitHubClient *github.Client
}

// NewClient constructs a Client authenticated with the provided token. The
// underlying transport waits out secondary rate limits before retrying.
func NewClient(token string, options ClientOptions) (*Client, error) {
	trimmedToken := strings.TrimSpace(token)
	if len(trimmedToken) == 0 {
		return nil, ErrTokenRequired
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		rateLimitWaiter, rateLimiterError := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(rateLimitSingleSleepDurationConstant, nil))
		if rateLimiterError != nil {
			return nil, fmt.Errorf(rateLimiterFailureTemplateConstant, rateLimiterError)
		}
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: trimmedToken})
		httpClient = &http.Client{
			Transport: &oauth2.Transport{
				Base:   rateLimitWaiter,
				Source: tokenSource,
			},
		}
	}

	gitHubClient := github.NewClient(httpClient)
	trimmedBaseURL := strings.TrimSpace(options.BaseURL)
	if len(trimmedBaseURL) > 0 {
		if !strings.HasSuffix(trimmedBaseURL, baseURLTrailingSlashConstant) {
			trimmedBaseURL += baseURLTrailingSlashConstant
		}
		parsedBaseURL, parseError := url.Parse(trimmedBaseURL)
		if parseError != nil {
			return nil, fmt.Errorf(baseURLConfigurationTemplateConstant, trimmedBaseURL, parseError)
		}
		gitHubClient.BaseURL = parsedBaseURL
	}

	return &Client{gitHubClient: gitHubClient}, nil
}

// OpenPullRequest opens a pull request from headBranch into baseBranch. When
// the provider rejects the request because an equivalent pull request is
// already open, the existing pull request is returned and created is false.
func (client *Client) OpenPullRequest(executionContext context.Context, owner string, repository string, headBranch string, baseBranch string, title string, body string) (PullRequest, bool, error) {
	newPullRequest := &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(headBranch),
		Base:  github.Ptr(baseBranch),
		Body:  github.Ptr(body),
	}

	createdPullRequest, _, creationError := client.gitHubClient.PullRequests.Create(executionContext, owner, repository, newPullRequest)
	if creationError == nil {
		return PullRequest{Number: createdPullRequest.GetNumber(), URL: createdPullRequest.GetHTMLURL()}, true, nil
	}

	if !isDuplicatePullRequestError(creationError) {
		return PullRequest{}, false, APIError{Operation: pullRequestCreationOperationConstant, Cause: creationError}
	}

	existingPullRequest, lookupError := client.FindOpenPullRequest(executionContext, owner, repository, headBranch, baseBranch)
	if lookupError != nil {
		return PullRequest{}, false, lookupError
	}
	if existingPullRequest == nil {
		return PullRequest{}, false, APIError{
			Operation: pullRequestCreationOperationConstant,
			Cause:     fmt.Errorf(duplicatePullRequestMissingConstant, headBranch),
		}
	}
	return *existingPullRequest, false, nil
}

// FindOpenPullRequest returns the open pull request from headBranch into
// baseBranch, or nil when none exists.
func (client *Client) FindOpenPullRequest(executionContext context.Context, owner string, repository string, headBranch string, baseBranch string) (*PullRequest, error) {
	listOptions := &github.PullRequestListOptions{
		State:       openPullRequestStateConstant,
		Head:        fmt.Sprintf(pullRequestHeadFilterTemplateConstant, owner, headBranch),
		Base:        baseBranch,
		ListOptions: github.ListOptions{PerPage: pullRequestListPageSizeConstant},
	}

	for {
		pullRequests, response, listError := client.gitHubClient.PullRequests.List(executionContext, owner, repository, listOptions)
		if listError != nil {
			return nil, APIError{Operation: pullRequestLookupOperationConstant, Cause: listError}
		}
		for _, candidatePullRequest := range pullRequests {
			if candidatePullRequest.GetHead().GetRef() != headBranch {
				continue
			}
			return &PullRequest{Number: candidatePullRequest.GetNumber(), URL: candidatePullRequest.GetHTMLURL()}, nil
		}
		if response.NextPage == 0 {
			return nil, nil
		}
		listOptions.Page = response.NextPage
	}
}

func isDuplicatePullRequestError(creationError error) bool {
	errorResponse := &github.ErrorResponse{}
	if !errors.As(creationError, &errorResponse) {
		return false
	}
	if errorResponse.Response == nil || errorResponse.Response.StatusCode != unprocessableEntityStatusCodeConstant {
		return false
	}
	for _, validationError := range errorResponse.Errors {
		if strings.Contains(validationError.Message, duplicatePullRequestMarkerConstant) {
			return true
		}
	}
	return strings.Contains(errorResponse.Message, duplicatePullRequestMarkerConstant)
}
