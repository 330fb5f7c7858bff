package main

import "site-rag/internal/cli"

func main() {
	cli.Execute()
}
