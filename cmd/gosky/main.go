package main

import "github.com/radiosky/gosky/internal/cli"

func main() {
	cli.Execute()
}
