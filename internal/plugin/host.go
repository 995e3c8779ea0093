package plugin

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/cigenhq/cigen/internal/diag"
	"github.com/cigenhq/cigen/internal/emit"
	"github.com/cigenhq/cigen/pkg/log"
	"github.com/cigenhq/cigen/pkg/model"
)

// ProtocolVersion is sent in Hello so a plugin built against an
// incompatible wire layout can refuse the connection instead of
// misparsing it.
const ProtocolVersion = "1"

// DefaultHookTimeout bounds a single Generate call; SPEC_FULL 13 calls
// for a per-hook timeout so one wedged plugin process can't hang the
// whole compile run.
const DefaultHookTimeout = 30 * time.Second

// Process is one spawned plugin: a running subprocess plus the
// handshake it completed on startup.
type Process struct {
	ref  model.PluginRef
	cmd  *exec.Cmd
	conn io.ReadWriteCloser
	r    *bufio.Reader
	Info PluginInfo
}

// rwc glues a Cmd's stdin/stdout pipes into one io.ReadWriteCloser so
// Process.conn can be written and read uniformly.
type rwc struct {
	io.Writer
	io.Reader
	closers []io.Closer
}

func (c rwc) Close() error {
	var first error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Spawn starts ref's plugin process (resolving an oci:// ref to a
// local binary first via fetch.go) and runs the Hello/PluginInfo
// handshake (SPEC_FULL 13) before returning.
func Spawn(ctx context.Context, ref model.PluginRef) (*Process, error) {
	path := ref.Command
	if ref.OCIRef != "" {
		resolved, err := ResolveOCIRef(ctx, ref.OCIRef)
		if err != nil {
			return nil, fmt.Errorf("plugin %q: resolving %s: %w", ref.Name, ref.OCIRef, err)
		}
		path = resolved
	}
	if path == "" {
		return nil, fmt.Errorf("plugin %q: neither command nor oci_ref is set", ref.Name)
	}

	cmd := exec.CommandContext(ctx, path, ref.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("plugin %q: stdin pipe: %w", ref.Name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("plugin %q: stdout pipe: %w", ref.Name, err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("plugin %q: starting %s: %w", ref.Name, path, err)
	}

	p := &Process{
		ref:  ref,
		cmd:  cmd,
		conn: rwc{Writer: stdin, Reader: stdout, closers: []io.Closer{stdin}},
		r:    bufio.NewReader(stdout),
	}

	if err := p.handshake(); err != nil {
		p.Close()
		return nil, fmt.Errorf("plugin %q: handshake: %w", ref.Name, err)
	}
	if p.Info.Name != ref.Name {
		log.Warnf("plugin %q: reports provider name %q, using configured name", ref.Name, p.Info.Name)
	}
	return p, nil
}

func (p *Process) handshake() error {
	if err := writeFrame(p.conn, encodeHello(Hello{CigenVersion: ProtocolVersion})); err != nil {
		return err
	}
	frame, err := readFrame(p.r)
	if err != nil {
		return fmt.Errorf("reading plugin_info: %w", err)
	}
	info, err := decodePluginInfo(frame)
	if err != nil {
		return err
	}
	p.Info = info
	return nil
}

// pluginPayload is the JSON body a Generate request wraps: cigen's own
// model types already carry json tags, so the plugin protocol reuses
// them verbatim instead of defining a second, protobuf-native domain
// schema just to cross one process boundary.
type pluginPayload struct {
	Config    *model.Config              `json:"config"`
	Workflows map[string]*model.Workflow `json:"workflows"`
}

// Generate sends in's config/workflows to the plugin and waits for its
// fragments, bounding the round trip to timeout (falling back to
// DefaultHookTimeout when zero).
func (p *Process) Generate(ctx context.Context, in emit.Input, timeout time.Duration) (GenerateResponse, error) {
	if timeout <= 0 {
		timeout = DefaultHookTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(pluginPayload{Config: in.Config, Workflows: in.Workflows})
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("marshaling plugin payload: %w", err)
	}

	done := make(chan struct {
		resp GenerateResponse
		err  error
	}, 1)

	requestID := uuid.New().String()
	go func() {
		if err := writeFrame(p.conn, encodeGenerateRequest(GenerateRequest{ConfigJSON: payload, RequestID: requestID})); err != nil {
			done <- struct {
				resp GenerateResponse
				err  error
			}{err: fmt.Errorf("writing generate_request: %w", err)}
			return
		}
		frame, err := readFrame(p.r)
		if err != nil {
			done <- struct {
				resp GenerateResponse
				err  error
			}{err: fmt.Errorf("reading generate_response: %w", err)}
			return
		}
		resp, err := decodeGenerateResponse(frame)
		done <- struct {
			resp GenerateResponse
			err  error
		}{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		p.Close()
		return GenerateResponse{}, fmt.Errorf("plugin %q: generate %s timed out: %w", p.ref.Name, requestID, ctx.Err())
	}
}

// Close closes the plugin's stdin (its cue to exit cleanly) and waits
// briefly before killing it — SPEC_FULL 13's graceful-stdin-close-
// then-kill shutdown.
func (p *Process) Close() error {
	_ = p.conn.Close()
	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		<-done
	}
	return nil
}

// GenerateAll spawns every configured plugin and runs Generate
// concurrently against all of them, merging their fragments and
// diagnostics the same way internal/compile merges built-in emitter
// output: in refs order, not goroutine-finish order.
func GenerateAll(ctx context.Context, refs []model.PluginRef, in emit.Input) ([]emit.Fragment, []*diag.Diagnostic) {
	type result struct {
		name      string
		fragments []emit.Fragment
		diags     []*diag.Diagnostic
	}
	results := make([]result, len(refs))

	done := make(chan int, len(refs))
	for i, ref := range refs {
		i, ref := i, ref
		go func() {
			defer func() { done <- i }()
			results[i] = result{name: ref.Name}

			proc, err := Spawn(ctx, ref)
			if err != nil {
				results[i].diags = []*diag.Diagnostic{diag.PluginError(diag.Span{}, "%s", err.Error())}
				return
			}
			defer proc.Close()

			resp, err := proc.Generate(ctx, in, DefaultHookTimeout)
			if err != nil {
				results[i].diags = []*diag.Diagnostic{diag.PluginError(diag.Span{}, "plugin %q: %s", ref.Name, err.Error())}
				return
			}
			for _, f := range resp.Fragments {
				results[i].fragments = append(results[i].fragments, emit.Fragment{Path: f.Path, Content: f.Content})
			}
			for _, d := range resp.Diagnostics {
				base := diag.PluginError(diag.Span{}, "plugin %q: %s", ref.Name, d.Message)
				if d.Severity == "warning" {
					base = diag.Warning(base)
				}
				results[i].diags = append(results[i].diags, base)
			}
		}()
	}
	for range refs {
		<-done
	}

	var fragments []emit.Fragment
	var diags []*diag.Diagnostic
	for _, r := range results {
		fragments = append(fragments, r.fragments...)
		diags = append(diags, r.diags...)
	}
	return fragments, diags
}
