package main

import "github.com/oshokin/ltex-ls-bundler/cmd/ltex-bundler/cmd"

func main() {
	cmd.Execute()
}
