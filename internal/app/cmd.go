package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch Command(args[0]) {
	case CommandServe, CommandMigrate, CommandHealthcheck:
		return Command(args[0])
	default:
		return CommandServe
	}
}

// Options はサブコマンドとそのフラグの解析結果。
type Options struct {
	Command Command

	// serve
	Port string

	// migrate
	Down        bool
	Steps       int
	ShowVersion bool

	// healthcheck
	HealthcheckURL     string
	HealthcheckTimeout time.Duration
}

// ParseOptions はサブコマンドを判定し、残りの引数をそのサブコマンドのフラグとして解析する。
// -h/--help が指定された場合はpflag.ErrHelpを返す。
func ParseOptions(args []string, output io.Writer) (*Options, error) {
	opts := &Options{Command: ParseCommand(args)}

	rest := args
	if len(args) > 0 && Command(args[0]) == opts.Command {
		rest = args[1:]
	}

	flagSet := pflag.NewFlagSet("todoman "+string(opts.Command), pflag.ContinueOnError)
	flagSet.SetOutput(output)

	switch opts.Command {
	case CommandServe:
		flagSet.StringVar(&opts.Port, "port", "", "listen port (overrides SERVER_PORT)")
	case CommandMigrate:
		flagSet.BoolVar(&opts.Down, "down", false, "roll back all migrations")
		flagSet.IntVar(&opts.Steps, "steps", 0, "apply N migrations, or roll back N when negative")
		flagSet.BoolVar(&opts.ShowVersion, "version", false, "print the current schema version and exit")
	case CommandHealthcheck:
		flagSet.StringVar(&opts.HealthcheckURL, "url", defaultHealthcheckURL(), "health endpoint to probe")
		flagSet.DurationVar(&opts.HealthcheckTimeout, "timeout", 5*time.Second, "request timeout")
	}

	if err := flagSet.Parse(rest); err != nil {
		return nil, err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", extra[0])
	}
	if opts.Down && opts.Steps != 0 {
		return nil, fmt.Errorf("--down and --steps cannot be combined")
	}

	return opts, nil
}

// defaultHealthcheckURL はSERVER_PORTから既定のヘルスチェックURLを組み立てる。
func defaultHealthcheckURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "3001"
	}
	return fmt.Sprintf("http://localhost:%s/api/health", port)
}
