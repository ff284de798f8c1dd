// Package hub is the client for the remote dataset-hosting service: identity
// checks, collection creation, and blob/file uploads against its HTTP API.
package hub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"datapub/config"
	"datapub/logger"

	"github.com/cenkalti/backoff/v5"
)

// Identity describes the authenticated account.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Orgs  []Org  `json:"orgs"`
}

type Org struct {
	Name string `json:"name"`
}

type Client struct {
	endpoint string
	creds    CredentialProvider
	api      *http.Client
	uploader *http.Client
	tries    int
}

func New(cfg *config.Config, creds CredentialProvider) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		creds:    creds,
		api:      &http.Client{Timeout: cfg.APITimeout},
		uploader: &http.Client{Timeout: cfg.UploadTimeout},
		tries:    cfg.UploadRetries + 1,
	}
}

func (c *Client) token() (string, error) {
	token, ok := c.creds.CurrentToken()
	if !ok {
		return "", &AuthError{Message: "no access token available"}
	}
	return token, nil
}

// Whoami verifies the active credential and returns the account identity.
func (c *Client) Whoami(ctx context.Context) (*Identity, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/whoami-v2", nil)
	if err != nil {
		return nil, &RemoteError{Op: "whoami", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.api.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "whoami", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var id Identity
		if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
			return nil, &RemoteError{Op: "whoami", Err: err}
		}
		return &id, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Status: resp.StatusCode, Message: apiMessage(resp.Body)}
	default:
		return nil, &RemoteError{Op: "whoami", Status: resp.StatusCode, Message: apiMessage(resp.Body)}
	}
}

// EnsureDataset creates the collection if it does not exist. An existing
// collection is success; any other failure is a RemoteError the caller may
// choose to continue past.
func (c *Client) EnsureDataset(ctx context.Context, repo string, private bool) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	owner, name := splitRepo(repo)
	payload, err := json.Marshal(map[string]interface{}{
		"type":         "dataset",
		"name":         name,
		"organization": owner,
		"private":      private,
	})
	if err != nil {
		return &RemoteError{Op: "create collection", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/repos/create", bytes.NewReader(payload))
	if err != nil {
		return &RemoteError{Op: "create collection", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return &RemoteError{Op: "create collection", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		logger.Infof("Created collection %s (private: %t)", repo, private)
		return nil
	}
	message := apiMessage(resp.Body)
	if isConflict(resp.StatusCode, message) {
		logger.Debugf("Collection %s already exists", repo)
		return nil
	}
	return &RemoteError{Op: "create collection", Status: resp.StatusCode, Message: message}
}

// UploadBlob uploads in-memory content to dst in the collection.
func (c *Client) UploadBlob(ctx context.Context, content []byte, dst, repo string) error {
	return c.commit(ctx, repo, dst, func() (io.ReadCloser, error) {
		var buf bytes.Buffer
		if err := writeCommit(&buf, dst, bytes.NewReader(content)); err != nil {
			return nil, err
		}
		return io.NopCloser(&buf), nil
	})
}

// UploadFile streams the local file to dst in the collection, preserving any
// subdirectories in dst.
func (c *Client) UploadFile(ctx context.Context, local, dst, repo string) error {
	return c.commit(ctx, repo, dst, func() (io.ReadCloser, error) {
		f, err := os.Open(local)
		if err != nil {
			return nil, err
		}
		pr, pw := io.Pipe()
		go func() {
			defer f.Close()
			pw.CloseWithError(writeCommit(pw, dst, f))
		}()
		return pr, nil
	})
}

// commit posts one commit with a single file operation. The body is rebuilt
// per attempt so retries never reuse a consumed stream.
func (c *Client) commit(ctx context.Context, repo, dst string, bodyFn func() (io.ReadCloser, error)) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/datasets/%s/commit/main", c.endpoint, repo)

	operation := func() (struct{}, error) {
		body, err := bodyFn()
		if err != nil {
			return struct{}{}, backoff.Permanent(&RemoteError{Op: "upload", Path: dst, Err: err})
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
		if err != nil {
			body.Close()
			return struct{}{}, backoff.Permanent(&RemoteError{Op: "upload", Path: dst, Err: err})
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/x-ndjson")

		resp, err := c.uploader.Do(req)
		if err != nil {
			return struct{}{}, &RemoteError{Op: "upload", Path: dst, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return struct{}{}, nil
		}
		remoteErr := &RemoteError{Op: "upload", Path: dst, Status: resp.StatusCode, Message: apiMessage(resp.Body)}
		if retryableStatus(resp.StatusCode) {
			return struct{}{}, remoteErr
		}
		return struct{}{}, backoff.Permanent(remoteErr)
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.tries)),
	)
	return err
}

func retryableStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= 500
}

// writeCommit emits the commit NDJSON: a header line followed by one file
// operation with base64 content streamed directly into the JSON string.
func writeCommit(w io.Writer, dst string, src io.Reader) error {
	header, err := json.Marshal(map[string]interface{}{
		"key": "header",
		"value": map[string]string{
			"summary": "Add " + dst,
		},
	})
	if err != nil {
		return err
	}
	if _, err := w.Write(append(header, '\n')); err != nil {
		return err
	}

	quotedPath, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `{"key":"file","value":{"path":%s,"encoding":"base64","content":"`, quotedPath); err != nil {
		return err
	}
	// Standard base64 never needs JSON escaping.
	enc := base64.NewEncoder(base64.StdEncoding, w)
	if _, err := io.Copy(enc, src); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\"}}\n")
	return err
}

func splitRepo(repo string) (owner, name string) {
	if i := strings.Index(repo, "/"); i >= 0 {
		return repo[:i], repo[i+1:]
	}
	return "", repo
}

func apiMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
