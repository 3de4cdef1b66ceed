// =============================================================================
// GLM 命令行入口
// =============================================================================
// 使用方法:
//
//	glm complete "介绍一下你自己"          # 同步补全
//	glm stream --config config.yaml "写一首诗"
//	echo "总结这段话" | glm async -        # 异步任务
//	glm metadata                          # 模型元数据
//	glm health                            # 健康检查
//	glm version                           # 版本信息
// =============================================================================

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// =============================================================================
// 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run 执行子命令并返回进程退出码
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "complete", "stream", "async":
		return runCompletion(ctx, cmd, rest, stdin, stdout, stderr)
	case "metadata":
		return runMetadata(rest, stdout, stderr)
	case "models":
		return runModels(ctx, rest, stdout, stderr)
	case "health":
		return runHealth(ctx, rest, stdout, stderr)
	case "version":
		printVersion(stdout)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		printUsage(stderr)
		return 2
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "glm %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `glm - Zhipu GLM command line client

Usage:
  glm <command> [options] [prompt]

Commands:
  complete  Run a synchronous completion
  stream    Stream a completion to stdout
  async     Submit an async task and poll for the result
  metadata  Print model metadata as JSON
  models    List available models
  health    Check upstream health
  version   Show version information
  help      Show this help message

Options:
  --config <path>   Path to configuration file (YAML)
  --env <path>      Path to .env file (default ".env")

Prompt:
  Positional arguments are joined with spaces. When omitted or "-",
  the prompt is read from stdin.

Examples:
  glm complete "你好"
  glm stream --config /etc/glm/config.yaml "写一首关于秋天的诗"
  echo "总结这段话" | glm async
  GLM_MODEL=glm-4-plus glm metadata`)
}
