package main

import "github.com/mvp-joe/rendercheck/internal/cli"

func main() {
	cli.Execute()
}
