package publish

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"codeberg.org/snonux/dsxlate/internal/logger"
)

const (
	// DefaultEndpoint is the public Hugging Face Hub
	DefaultEndpoint = "https://huggingface.co"
	// TrainPath is where the file lands in the repository. The Hub maps
	// data/train.* to the train split.
	TrainPath = "data/train.jsonl"

	lfsContentType = "application/vnd.git-lfs+json"
)

// HubConfig configures the Hub client
type HubConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// HubPublisher pushes files to Hub dataset repositories
type HubPublisher struct {
	client   *resty.Client
	endpoint string
}

// Result describes a finished upload
type Result struct {
	Repo      string
	URL       string
	CommitURL string
	Bytes     int
	LFS       bool
}

// NewHubPublisher creates a Hub client
func NewHubPublisher(cfg HubConfig) *HubPublisher {
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}

	return &HubPublisher{
		client:   resty.New().SetTimeout(timeout),
		endpoint: endpoint,
	}
}

// DatasetURL returns the web page of a dataset repository
func (p *HubPublisher) DatasetURL(repo string) string {
	return fmt.Sprintf("%s/datasets/%s", p.endpoint, repo)
}

// Publish creates the dataset repository if needed and commits the file as
// the train split. The request is validated before any network call.
func (p *HubPublisher) Publish(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	log := logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldComponent: "publish",
		logger.FieldRepo:      req.Repo,
		logger.FieldPath:      req.FilePath,
	})
	log.Infof("Preparing to upload '%s' to '%s'", req.FilePath, req.Repo)

	data, err := os.ReadFile(req.FilePath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read %s: %w", req.FilePath, err)
	}

	if err := p.createRepo(ctx, req); err != nil {
		return Result{}, err
	}

	mode, err := p.uploadMode(ctx, req, data)
	if err != nil {
		return Result{}, err
	}

	var fileOp commitOp
	lfs := mode == "lfs"
	if lfs {
		log.Info("Uploading file through LFS")
		oid, err := p.uploadLFS(ctx, req, data)
		if err != nil {
			return Result{}, err
		}
		fileOp = commitOp{Key: "lfsFile", Value: map[string]any{
			"path": TrainPath,
			"algo": "sha256",
			"oid":  oid,
			"size": len(data),
		}}
	} else {
		fileOp = commitOp{Key: "file", Value: map[string]any{
			"path":     TrainPath,
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString(data),
		}}
	}

	commitURL, err := p.commit(ctx, req, fileOp)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Repo:      req.Repo,
		URL:       p.DatasetURL(req.Repo),
		CommitURL: commitURL,
		Bytes:     len(data),
		LFS:       lfs,
	}
	log.WithField("commit", commitURL).Info("Successfully pushed dataset to the Hub")
	return result, nil
}

func (p *HubPublisher) request(ctx context.Context, token string) *resty.Request {
	return p.client.R().SetContext(ctx).SetAuthToken(token)
}

type hubError struct {
	Error string `json:"error"`
}

func statusError(op string, resp *resty.Response, apiErr *hubError) error {
	if apiErr != nil && apiErr.Error != "" {
		return fmt.Errorf("%s failed (status %d): %s", op, resp.StatusCode(), apiErr.Error)
	}
	return fmt.Errorf("%s failed: status %d", op, resp.StatusCode())
}

func (p *HubPublisher) createRepo(ctx context.Context, req Request) error {
	owner, name, _ := strings.Cut(req.Repo, "/")

	var apiErr hubError
	resp, err := p.request(ctx, req.Token).
		SetBody(map[string]any{
			"type":         "dataset",
			"name":         name,
			"organization": owner,
			"private":      req.Private,
		}).
		SetError(&apiErr).
		Post(p.endpoint + "/api/repos/create")
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	// 409 means the repository already exists
	if resp.IsError() && resp.StatusCode() != http.StatusConflict {
		return statusError("create repository", resp, &apiErr)
	}
	return nil
}

type preuploadResponse struct {
	Files []struct {
		Path       string `json:"path"`
		UploadMode string `json:"uploadMode"`
	} `json:"files"`
}

// uploadMode asks the Hub whether the file must go through LFS
func (p *HubPublisher) uploadMode(ctx context.Context, req Request, data []byte) (string, error) {
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}

	var out preuploadResponse
	var apiErr hubError
	resp, err := p.request(ctx, req.Token).
		SetBody(map[string]any{
			"files": []map[string]any{{
				"path":   TrainPath,
				"size":   len(data),
				"sample": base64.StdEncoding.EncodeToString(sample),
			}},
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post(fmt.Sprintf("%s/api/datasets/%s/preupload/main", p.endpoint, req.Repo))
	if err != nil {
		return "", fmt.Errorf("failed to query upload mode: %w", err)
	}
	if resp.IsError() {
		return "", statusError("preupload", resp, &apiErr)
	}

	for _, f := range out.Files {
		if f.Path == TrainPath {
			return f.UploadMode, nil
		}
	}
	return "regular", nil
}

type lfsAction struct {
	Href   string            `json:"href"`
	Header map[string]string `json:"header"`
}

type lfsBatchResponse struct {
	Objects []struct {
		OID     string `json:"oid"`
		Size    int    `json:"size"`
		Actions struct {
			Upload *lfsAction `json:"upload"`
			Verify *lfsAction `json:"verify"`
		} `json:"actions"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"objects"`
}

// uploadLFS stores data in the repository's LFS storage and returns its oid
func (p *HubPublisher) uploadLFS(ctx context.Context, req Request, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	oid := hex.EncodeToString(sum[:])

	body, err := json.Marshal(map[string]any{
		"operation": "upload",
		"transfers": []string{"basic"},
		"hash_algo": "sha256",
		"objects":   []map[string]any{{"oid": oid, "size": len(data)}},
	})
	if err != nil {
		return "", err
	}

	var batch lfsBatchResponse
	resp, err := p.request(ctx, req.Token).
		SetHeader("Accept", lfsContentType).
		SetHeader("Content-Type", lfsContentType).
		SetBody(body).
		Post(fmt.Sprintf("%s/datasets/%s.git/info/lfs/objects/batch", p.endpoint, req.Repo))
	if err != nil {
		return "", fmt.Errorf("failed to request LFS upload: %w", err)
	}
	if resp.IsError() {
		return "", statusError("LFS batch", resp, nil)
	}
	if err := json.Unmarshal(resp.Body(), &batch); err != nil {
		return "", fmt.Errorf("invalid LFS batch response: %w", err)
	}
	if len(batch.Objects) == 0 {
		return "", fmt.Errorf("LFS batch response holds no objects")
	}

	obj := batch.Objects[0]
	if obj.Error != nil {
		return "", fmt.Errorf("LFS upload rejected (%d): %s", obj.Error.Code, obj.Error.Message)
	}

	// no upload action means the object is already stored
	if obj.Actions.Upload != nil {
		resp, err := p.client.R().
			SetContext(ctx).
			SetHeaders(obj.Actions.Upload.Header).
			SetBody(bytes.NewReader(data)).
			Put(obj.Actions.Upload.Href)
		if err != nil {
			return "", fmt.Errorf("failed to upload LFS object: %w", err)
		}
		if resp.IsError() {
			return "", statusError("LFS upload", resp, nil)
		}
	}

	if obj.Actions.Verify != nil {
		resp, err := p.request(ctx, req.Token).
			SetHeaders(obj.Actions.Verify.Header).
			SetHeader("Content-Type", lfsContentType).
			SetBody(map[string]any{"oid": oid, "size": len(data)}).
			Post(obj.Actions.Verify.Href)
		if err != nil {
			return "", fmt.Errorf("failed to verify LFS object: %w", err)
		}
		if resp.IsError() {
			return "", statusError("LFS verify", resp, nil)
		}
	}

	return oid, nil
}

type commitOp struct {
	Key   string         `json:"key"`
	Value map[string]any `json:"value"`
}

type commitResponse struct {
	CommitURL string `json:"commitUrl"`
	CommitOID string `json:"commitOid"`
}

// commit writes a single-file commit to the main branch using the NDJSON
// commit API
func (p *HubPublisher) commit(ctx context.Context, req Request, fileOp commitOp) (string, error) {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	header := commitOp{Key: "header", Value: map[string]any{
		"summary":     "Upload translated dataset",
		"description": "",
	}}
	for _, op := range []commitOp{header, fileOp} {
		if err := enc.Encode(op); err != nil {
			return "", err
		}
	}

	var out commitResponse
	var apiErr hubError
	resp, err := p.request(ctx, req.Token).
		SetHeader("Content-Type", "application/x-ndjson").
		SetBody(body.Bytes()).
		SetResult(&out).
		SetError(&apiErr).
		Post(fmt.Sprintf("%s/api/datasets/%s/commit/main", p.endpoint, req.Repo))
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	if resp.IsError() {
		return "", statusError("commit", resp, &apiErr)
	}
	return out.CommitURL, nil
}
