package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/glmllm/config"
	"github.com/BaSui01/glmllm/internal/logging"
	"github.com/BaSui01/glmllm/internal/metrics"
	"github.com/BaSui01/glmllm/internal/telemetry"
	"github.com/BaSui01/glmllm/llm"
	"github.com/BaSui01/glmllm/llm/providers/glm"
)

// commonFlags 所有子命令共享的参数
type commonFlags struct {
	configPath string
	envPath    string
}

func parseFlags(name string, args []string, stderr io.Writer) (*flag.FlagSet, *commonFlags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", "", "Path to config file")
	fs.StringVar(&cf.envPath, "env", ".env", "Path to .env file")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return fs, cf, nil
}

func loadConfig(cf *commonFlags, validate bool) (*config.Config, error) {
	loader := config.NewLoader().WithConfigPath(cf.configPath).WithDotEnvPath(cf.envPath)
	if validate {
		loader = loader.WithValidator(func(c *config.Config) error { return c.Validate() })
	}
	return loader.Load()
}

// app 持有一次命令执行所需的依赖
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	telemetry  *telemetry.Providers
	registry   *prometheus.Registry
	metricsSrv *http.Server
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}

	a.telemetry, err = telemetry.Init(ctx, cfg.Telemetry, logger.Logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		if cfg.Metrics.Addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
			a.metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Warn("metrics server stopped", zap.Error(err))
				}
			}()
		}
	}
	return a, nil
}

func (a *app) newLLM() (*glm.LLM, error) {
	var opts []glm.Option
	if a.registry != nil {
		opts = append(opts, glm.WithMetrics(metrics.NewCollector(a.cfg.Metrics.Namespace, a.registry, a.logger.Logger)))
	}
	if a.telemetry.Enabled() {
		opts = append(opts, glm.WithTracer(a.telemetry.Tracer("github.com/BaSui01/glmllm")))
	}
	return glm.NewLLM(a.cfg.GLM, a.logger.Logger, opts...)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.metricsSrv != nil {
		_ = a.metricsSrv.Shutdown(ctx)
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Close()
}

// readPrompt 拼接位置参数，缺省或为 "-" 时读取 stdin
func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(bufio.NewReader(stdin))
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	prompt := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is empty")
	}
	return prompt, nil
}

func runCompletion(ctx context.Context, cmd string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs, cf, err := parseFlags(cmd, args, stderr)
	if err != nil {
		return 2
	}
	prompt, err := readPrompt(fs.Args(), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	cfg, err := loadConfig(cf, true)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	model, err := a.newLLM()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	switch cmd {
	case "stream":
		err = streamTo(ctx, model, prompt, stdout)
	case "async":
		var resp *llm.CompletionResponse
		if resp, err = model.AsyncComplete(ctx, prompt); err == nil {
			fmt.Fprintln(stdout, resp.Text)
		}
	default:
		var resp *llm.CompletionResponse
		if resp, err = model.Complete(ctx, prompt); err == nil {
			fmt.Fprintln(stdout, resp.Text)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", logging.RedactError(err))
		return 1
	}
	return 0
}

func streamTo(ctx context.Context, model llm.CompletionModel, prompt string, w io.Writer) error {
	deltas, err := model.StreamComplete(ctx, prompt)
	if err != nil {
		return err
	}
	for d := range deltas {
		if d.Err != nil {
			fmt.Fprintln(w)
			return d.Err
		}
		fmt.Fprint(w, d.Delta)
	}
	fmt.Fprintln(w)
	return ctx.Err()
}

func runMetadata(args []string, stdout, stderr io.Writer) int {
	_, cf, err := parseFlags("metadata", args, stderr)
	if err != nil {
		return 2
	}
	cfg, err := loadConfig(cf, false)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	model, err := glm.NewLLM(cfg.GLM, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(model.Metadata()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newProvider(ctx context.Context, name string, args []string, stderr io.Writer) (*glm.GLMProvider, func(), int) {
	_, cf, err := parseFlags(name, args, stderr)
	if err != nil {
		return nil, nil, 2
	}
	cfg, err := loadConfig(cf, true)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return nil, nil, 1
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil, 1
	}
	return glm.NewGLMProvider(cfg.GLM, a.logger.Logger), a.close, 0
}

func runHealth(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	p, closeFn, code := newProvider(ctx, "health", args, stderr)
	if p == nil {
		return code
	}
	defer closeFn()

	status, err := p.HealthCheck(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Health check failed: %s\n", logging.RedactError(err))
		return 1
	}
	fmt.Fprintf(stdout, "OK (%s)\n", status.Latency.Round(time.Millisecond))
	return 0
}

func runModels(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	p, closeFn, code := newProvider(ctx, "models", args, stderr)
	if p == nil {
		return code
	}
	defer closeFn()

	models, err := p.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", logging.RedactError(err))
		return 1
	}
	for _, m := range models {
		fmt.Fprintln(stdout, m.ID)
	}
	return 0
}
