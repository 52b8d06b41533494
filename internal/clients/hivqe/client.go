package hivqe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/zgreco2000/hivqe-workbench/internal/domain"
)

// Client is an HTTP client for the remote HI-VQE catalog service. The service
// is an opaque black box: submit a job, poll its status, read back a scalar
// ground-state energy. Status reads are idempotent and never drive the remote
// state machine.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// New creates a new catalog service client.
func New(baseURL, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log.With().Str("client", "hivqe").Logger(),
	}
}

// Submit sends one run request and returns the remote job identifier. The
// request is validated locally first so a bad active space never consumes
// remote resources.
func (c *Client) Submit(req domain.RunRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	body := SubmitRequest{
		Geometry:           req.Molecule.GeometryString(),
		Backend:            req.Backend,
		MaxStates:          req.MaxStates,
		MaxExpansionStates: req.MaxExpansionStates,
		MoleculeOptions: MoleculeOptions{
			Basis:          req.Molecule.Basis,
			ActiveOrbitals: req.Molecule.ActiveOrbitals,
			FrozenOrbitals: req.Molecule.FrozenOrbitals,
		},
		SolverOptions: SolverOptions{
			Shots:         req.Controls.Shots,
			MaxIterations: req.Controls.MaxIterations,
		},
		UseSession: req.UseSession,
	}

	var resp SubmitResponse
	if err := c.do(http.MethodPost, "/jobs", body, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("service accepted the job but returned no job_id")
	}

	c.log.Info().
		Str("job_id", resp.JobID).
		Int("max_states", req.MaxStates).
		Str("backend", req.Backend).
		Msg("Job submitted")

	return resp.JobID, nil
}

// Status reads the current status of a job. Safe to call repeatedly.
func (c *Client) Status(jobID string) (domain.JobStatus, string, error) {
	var resp StatusResponse
	if err := c.do(http.MethodGet, "/jobs/"+jobID, nil, &resp); err != nil {
		return "", "", err
	}

	status := domain.JobStatus(resp.Status)
	switch status {
	case domain.StatusPending, domain.StatusRunning, domain.StatusDone, domain.StatusFailed:
		return status, resp.Message, nil
	default:
		return "", "", fmt.Errorf("service returned unknown job status %q for job %s", resp.Status, jobID)
	}
}

// Result fetches the scalar energy for a DONE job.
func (c *Client) Result(jobID string) (*domain.RunResult, error) {
	var resp ResultResponse
	if err := c.do(http.MethodGet, "/jobs/"+jobID+"/result", nil, &resp); err != nil {
		return nil, err
	}

	return &domain.RunResult{
		JobID:  jobID,
		Status: domain.StatusDone,
		Energy: resp.EnergyHartree,
	}, nil
}

// do sends one request to the service and decodes the JSON reply.
func (c *Client) do(method, endpoint string, request, target interface{}) error {
	url := c.baseURL + endpoint

	var reqBody io.Reader
	if request != nil {
		jsonData, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	httpReq, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("Calling HI-VQE catalog service")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var svcErr errorResponse
		if json.Unmarshal(body, &svcErr) == nil && svcErr.Error != "" {
			return fmt.Errorf("service returned %d: %s", httpResp.StatusCode, svcErr.Error)
		}
		return fmt.Errorf("service returned %d", httpResp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
