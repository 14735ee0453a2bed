// Command todoman はTodo管理APIサーバーを起動する。
//
// 使い方:
//
//	todoman [serve] [--port PORT]
//	todoman migrate [--down | --steps N | --version]
//	todoman healthcheck [--url URL] [--timeout D]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/todoman/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
