package landmarks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"

	"github.com/kozaktomas/sunglasses/internal/readiness"
)

// ExecProvider runs a helper program (for example a dlib script) per image.
// The program receives a PNG path as its last argument and prints
// {"error": "", "faces": [...]} on stdout.
type ExecProvider struct {
	command []string
	ready   *readiness.Signal
}

// execOutput is the JSON printed by the helper program.
type execOutput struct {
	Error string     `json:"error"`
	Faces []faceJSON `json:"faces"`
}

// NewExecProvider creates a provider running cfg.Command.
func NewExecProvider(cfg Config) (*ExecProvider, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("exec provider requires a command")
	}
	cmd := make([]string, len(cfg.Command))
	copy(cmd, cfg.Command)
	return &ExecProvider{
		command: cmd,
		ready:   readiness.New("landmark helper"),
	}, nil
}

// Load checks that the helper program can be found.
func (p *ExecProvider) Load(ctx context.Context) error {
	if _, err := exec.LookPath(p.command[0]); err != nil {
		err = fmt.Errorf("landmark helper %q not found: %w", p.command[0], err)
		p.ready.Resolve(err)
		return err
	}
	p.ready.Resolve(nil)
	return nil
}

// Ready returns the readiness signal resolved by Load.
func (p *ExecProvider) Ready() *readiness.Signal {
	return p.ready
}

// Detect writes the image to a temp file and runs the helper on it.
func (p *ExecProvider) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	f, err := os.CreateTemp("", "sunglasses-detect-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	args := append(append([]string{}, p.command[1:]...), f.Name())
	cmd := exec.CommandContext(ctx, p.command[0], args...) //nolint:gosec // command comes from configuration
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("landmark helper failed: %w: %s", err, stderr.String())
	}

	var out execOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse helper output: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("landmark extraction error: %s", out.Error)
	}

	return decodeFaces(out.Faces)
}

// Close is a no-op; every Detect call runs its own process.
func (p *ExecProvider) Close() error {
	return nil
}
